package apihandlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	jwthandling "github.com/Rupe88/japan-project/pkg/jwt-handling"
	"github.com/Rupe88/japan-project/pkg/tokens"
	userTypes "github.com/Rupe88/japan-project/pkg/user-management/types"
)

func HealthCheckHandle(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// UserStore is the account persistence surface the handlers need.
type UserStore interface {
	AddUser(user userTypes.User) (string, error)
	GetUserByEmail(email string) (userTypes.User, error)
	GetUser(userID string) (userTypes.User, error)
	MarkUserEmailVerified(userID string) error
	UpdateUserLastLogin(userID string) error
	UpdateUserPassword(userID string, passwordHash string) error
}

// CodeStore persists one-time verification codes.
type CodeStore interface {
	CreateVerificationCode(code userTypes.VerificationCode) error
	ConsumeVerificationCode(accountID string, code string, kind userTypes.VerificationCodeKind) (userTypes.VerificationCode, error)
}

// TokenService is the token lifecycle surface, implemented by tokens.Issuer.
type TokenService interface {
	Issue(accountID string, email string) (tokens.TokenPair, error)
	Rotate(presentedToken string) (tokens.TokenPair, error)
	Revoke(presentedToken string) error
	RevokeAll(accountID string) (int64, error)
	VerifyAccess(tokenString string) (*jwthandling.UserClaims, error)
}

type HttpEndpoints struct {
	userDBConn          UserStore
	codeDBConn          CodeStore
	tokenService        TokenService
	tokenSignKey        string
	verificationCodeTTL time.Duration
}

func NewHTTPHandler(
	tokenSignKey string,
	tokenService TokenService,
	userDBConn UserStore,
	codeDBConn CodeStore,
	verificationCodeTTL time.Duration,
) *HttpEndpoints {
	return &HttpEndpoints{
		userDBConn:          userDBConn,
		codeDBConn:          codeDBConn,
		tokenService:        tokenService,
		tokenSignKey:        tokenSignKey,
		verificationCodeTTL: verificationCodeTTL,
	}
}
