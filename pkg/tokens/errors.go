package tokens

import "errors"

// Access token verification failures.
var (
	ErrTokenMissing   = errors.New("access token required")
	ErrTokenMalformed = errors.New("malformed access token")
	ErrTokenExpired   = errors.New("access token expired")
	ErrBadSignature   = errors.New("invalid access token signature")
)

// Rotation failures. All of them leave no usable row behind.
var (
	ErrRefreshInvalid = errors.New("refresh token not found or already used")
	ErrRefreshExpired = errors.New("refresh token has expired")
	ErrAccountInvalid = errors.New("account not found or not verified")
)

// ErrSigningKeyMissing indicates fatal misconfiguration, not a client error.
var ErrSigningKeyMissing = errors.New("token signing key is not configured")
