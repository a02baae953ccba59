package tokens

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	jwthandling "github.com/Rupe88/japan-project/pkg/jwt-handling"
	userTypes "github.com/Rupe88/japan-project/pkg/user-management/types"
)

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type IssuerConfig struct {
	AccessTokenSignKey  string
	RefreshTokenSignKey string
	AccessTokenTTL      time.Duration
	RefreshTokenTTL     time.Duration
}

// Issuer mints, rotates and revokes token pairs against a refresh token
// store. It is stateless apart from the store, so any number of instances can
// serve rotations concurrently; the single-use guarantee lives entirely in
// the store's atomic claim.
type Issuer struct {
	config IssuerConfig
	store  RefreshTokenStore
	users  AccountStore
}

func NewIssuer(config IssuerConfig, store RefreshTokenStore, users AccountStore) *Issuer {
	return &Issuer{
		config: config,
		store:  store,
		users:  users,
	}
}

// Issue signs a new access/refresh token pair and persists one refresh token
// record for it.
func (i *Issuer) Issue(accountID string, email string) (TokenPair, error) {
	if i.config.AccessTokenSignKey == "" || i.config.RefreshTokenSignKey == "" {
		return TokenPair{}, ErrSigningKeyMissing
	}

	accessToken, err := jwthandling.GenerateNewUserToken(
		i.config.AccessTokenTTL,
		accountID,
		email,
		i.config.AccessTokenSignKey,
	)
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to sign access token: %w", err)
	}

	now := time.Now()
	refreshToken, err := jwthandling.GenerateNewUserToken(
		i.config.RefreshTokenTTL,
		accountID,
		email,
		i.config.RefreshTokenSignKey,
	)
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	err = i.store.CreateRefreshToken(userTypes.RefreshTokenRecord{
		AccountID: accountID,
		Token:     refreshToken,
		IssuedAt:  now,
		ExpiresAt: now.Add(i.config.RefreshTokenTTL),
	})
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to persist refresh token: %w", err)
	}

	return TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Rotate exchanges a presented refresh token for a fresh pair. The old record
// is gone afterwards no matter the outcome: it is either atomically claimed
// on the success path or deleted on the failure paths, so a second attempt
// with the same token always fails with ErrRefreshInvalid.
func (i *Issuer) Rotate(presentedToken string) (TokenPair, error) {
	if presentedToken == "" {
		return TokenPair{}, ErrRefreshInvalid
	}
	if i.config.RefreshTokenSignKey == "" {
		return TokenPair{}, ErrSigningKeyMissing
	}

	_, valid, err := jwthandling.ValidateUserToken(presentedToken, i.config.RefreshTokenSignKey)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			// signature checked out, only the lifetime is over; drop the row
			// so the expired token cannot linger in the store
			if delErr := i.store.DeleteRefreshToken(presentedToken); delErr != nil {
				slog.Error("failed to delete expired refresh token", slog.String("error", delErr.Error()))
			}
			return TokenPair{}, ErrRefreshExpired
		}
		return TokenPair{}, ErrRefreshInvalid
	}
	if !valid {
		return TokenPair{}, ErrRefreshInvalid
	}

	record, err := i.store.ClaimRefreshToken(presentedToken)
	if err != nil {
		if errors.Is(err, ErrTokenRecordNotFound) {
			return TokenPair{}, ErrRefreshInvalid
		}
		return TokenPair{}, fmt.Errorf("failed to claim refresh token: %w", err)
	}

	if record.ExpiresAt.Before(time.Now()) {
		return TokenPair{}, ErrRefreshExpired
	}

	user, err := i.users.GetUser(record.AccountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return TokenPair{}, ErrAccountInvalid
		}
		return TokenPair{}, fmt.Errorf("failed to load account for rotation: %w", err)
	}
	if !user.EmailVerified {
		return TokenPair{}, ErrAccountInvalid
	}

	return i.Issue(record.AccountID, user.Email)
}

// Revoke deletes the record for the presented token. Revoking a token that
// has no record left is fine, logout must never fail visibly.
func (i *Issuer) Revoke(presentedToken string) error {
	if presentedToken == "" {
		return nil
	}
	return i.store.DeleteRefreshToken(presentedToken)
}

// RevokeAll deletes every refresh token of the account; used for
// logout-all-devices and for the revocation cascade after a password reset.
func (i *Issuer) RevokeAll(accountID string) (int64, error) {
	return i.store.DeleteRefreshTokensForAccount(accountID)
}

// VerifyAccess checks an access token by signature and claims alone, without
// touching the store.
func (i *Issuer) VerifyAccess(tokenString string) (*jwthandling.UserClaims, error) {
	if tokenString == "" {
		return nil, ErrTokenMissing
	}
	if i.config.AccessTokenSignKey == "" {
		return nil, ErrSigningKeyMissing
	}

	claims, valid, err := jwthandling.ValidateUserToken(tokenString, i.config.AccessTokenSignKey)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrBadSignature
		default:
			return nil, ErrTokenMalformed
		}
	}
	if !valid {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}
