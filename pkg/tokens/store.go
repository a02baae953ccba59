package tokens

import (
	"errors"

	userTypes "github.com/Rupe88/japan-project/pkg/user-management/types"
)

// Sentinel errors store implementations must return so that persistence
// outcomes can be mapped onto rotation failures.
var (
	ErrTokenRecordNotFound = errors.New("refresh token record not found")
	ErrAccountNotFound     = errors.New("account record not found")
)

// RefreshTokenStore is the persistence contract for refresh token records.
// ClaimRefreshToken must delete and return the record in one atomic step:
// when several rotations race on the same token value, exactly one caller
// receives the record, every other caller gets ErrTokenRecordNotFound.
type RefreshTokenStore interface {
	CreateRefreshToken(record userTypes.RefreshTokenRecord) error
	ClaimRefreshToken(token string) (userTypes.RefreshTokenRecord, error)
	DeleteRefreshToken(token string) error
	DeleteRefreshTokensForAccount(accountID string) (int64, error)
}

// AccountStore resolves the account a refresh token was issued for.
type AccountStore interface {
	GetUser(userID string) (userTypes.User, error)
}
