package apihandlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	mw "github.com/Rupe88/japan-project/pkg/apihelpers/middlewares"
	jwthandling "github.com/Rupe88/japan-project/pkg/jwt-handling"
	"github.com/Rupe88/japan-project/pkg/tokens"
	"github.com/Rupe88/japan-project/pkg/user-management/pwhash"
	userTypes "github.com/Rupe88/japan-project/pkg/user-management/types"
	umUtils "github.com/Rupe88/japan-project/pkg/user-management/utils"
)

func (h *HttpEndpoints) AddAuthAPI(rg *gin.RouterGroup) {
	authGroup := rg.Group("/auth")
	{
		authGroup.POST("/register", mw.RequirePayload(), h.register)
		authGroup.POST("/login", mw.RequirePayload(), h.loginWithEmail)
		authGroup.POST("/refresh", mw.RequirePayload(), h.refreshToken)
		authGroup.POST("/logout", mw.RequirePayload(), h.logout)
		authGroup.GET("/validate", mw.RequireAuth(h.tokenSignKey), h.validateToken)

		authGroup.POST("/verify-email", mw.RequirePayload(), h.verifyEmail)
		authGroup.POST("/resend-verification", mw.RequirePayload(), h.resendVerification)

		authGroup.POST("/logout-all", mw.RequireAuth(h.tokenSignKey), h.logoutAll)
		authGroup.GET("/profile", mw.RequireAuth(h.tokenSignKey), h.getProfile)
	}
}

type RegisterReq struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phoneNumber"`
}

func (h *HttpEndpoints) register(c *gin.Context) {
	var req RegisterReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req.Email = umUtils.SanitizeEmail(req.Email)
	req.PhoneNumber = umUtils.SanitizePhoneNumber(req.PhoneNumber)

	if !umUtils.CheckEmailFormat(req.Email) {
		slog.Error("invalid email format", slog.String("email", umUtils.BlurEmailAddress(req.Email)))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email format"})
		return
	}
	if !umUtils.CheckPasswordFormat(req.Password) {
		slog.Error("invalid password format")
		c.JSON(http.StatusBadRequest, gin.H{"error": "password too weak"})
		return
	}

	if _, err := h.userDBConn.GetUserByEmail(req.Email); err == nil {
		slog.Warn("registration attempt with existing email", slog.String("email", umUtils.BlurEmailAddress(req.Email)))
		c.JSON(http.StatusConflict, gin.H{"error": "account already exists", "code": ERROR_CODE_ACCOUNT_EXISTS})
		return
	}

	password, err := pwhash.HashPassword(req.Password)
	if err != nil {
		slog.Error("failed to hash password", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	userID, err := h.userDBConn.AddUser(userTypes.User{
		Email:       req.Email,
		Password:    password,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		slog.Error("failed to create user", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	go h.prepAndSendVerificationCode(userID, req.Email, userTypes.VERIFICATION_CODE_KIND_EMAIL_VERIFY)

	slog.Info("new user registered", slog.String("subject", userID))
	c.JSON(http.StatusCreated, gin.H{
		"userId":  userID,
		"message": "registration successful, check your email for the verification code",
	})
}

type LoginWithEmailReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *HttpEndpoints) loginWithEmail(c *gin.Context) {
	var req LoginWithEmailReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Email == "" || req.Password == "" {
		slog.Error("missing required fields")
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required fields"})
		return
	}

	req.Email = umUtils.SanitizeEmail(req.Email)

	user, err := h.userDBConn.GetUserByEmail(req.Email)
	if err != nil {
		slog.Warn("login attempt with wrong email address", slog.String("email", umUtils.BlurEmailAddress(req.Email)))
		randomWait(1, 4)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password", "code": ERROR_CODE_INVALID_CREDENTIALS})
		return
	}

	match, err := pwhash.ComparePasswordWithHash(user.Password, req.Password)
	if err != nil || !match {
		slog.Warn("login attempt with wrong password", slog.String("subject", user.ID.Hex()))
		randomWait(1, 4)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password", "code": ERROR_CODE_INVALID_CREDENTIALS})
		return
	}

	if !user.EmailVerified {
		slog.Warn("login attempt with unverified email", slog.String("subject", user.ID.Hex()))
		c.JSON(http.StatusForbidden, gin.H{"error": "email address not verified", "code": ERROR_CODE_EMAIL_NOT_VERIFIED})
		return
	}

	pair, err := h.tokenService.Issue(user.ID.Hex(), user.Email)
	if err != nil {
		slog.Error("failed to issue token pair", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	if err := h.userDBConn.UpdateUserLastLogin(user.ID.Hex()); err != nil {
		slog.Error("failed to update last login", slog.String("error", err.Error()))
	}

	slog.Info("login successful", slog.String("subject", user.ID.Hex()))
	c.JSON(http.StatusOK, gin.H{
		"user":         user,
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

type RefreshTokenReq struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *HttpEndpoints) refreshToken(c *gin.Context) {
	var req RefreshTokenReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pair, err := h.tokenService.Rotate(req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, tokens.ErrRefreshExpired):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "refresh token expired", "code": ERROR_CODE_REFRESH_EXPIRED})
		case errors.Is(err, tokens.ErrAccountInvalid):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "account not found or not verified", "code": ERROR_CODE_ACCOUNT_INVALID})
		case errors.Is(err, tokens.ErrRefreshInvalid):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token", "code": ERROR_CODE_REFRESH_INVALID})
		default:
			slog.Error("unexpected error during token rotation", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

type LogoutReq struct {
	RefreshToken string `json:"refreshToken"`
}

// logout deletes the presented refresh token. It reports success even when
// no record existed, logging out twice must not fail.
func (h *HttpEndpoints) logout(c *gin.Context) {
	var req LogoutReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.tokenService.Revoke(req.RefreshToken); err != nil {
		slog.Error("failed to revoke refresh token", slog.String("error", err.Error()))
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *HttpEndpoints) validateToken(c *gin.Context) {
	parsedToken := c.MustGet("validatedToken").(*jwthandling.UserClaims)
	c.JSON(http.StatusOK, gin.H{
		"accountId": parsedToken.Subject,
		"email":     parsedToken.Email,
		"issuedAt":  parsedToken.IssuedAt,
		"expiresAt": parsedToken.ExpiresAt,
	})
}

type VerifyEmailReq struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (h *HttpEndpoints) verifyEmail(c *gin.Context) {
	var req VerifyEmailReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req.Email = umUtils.SanitizeEmail(req.Email)

	user, err := h.userDBConn.GetUserByEmail(req.Email)
	if err != nil {
		slog.Warn("email verification attempt for unknown email", slog.String("email", umUtils.BlurEmailAddress(req.Email)))
		randomWait(1, 4)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired code", "code": ERROR_CODE_CODE_INVALID_OR_EXPIRED})
		return
	}

	_, err = h.codeDBConn.ConsumeVerificationCode(user.ID.Hex(), req.Code, userTypes.VERIFICATION_CODE_KIND_EMAIL_VERIFY)
	if err != nil {
		slog.Warn("email verification attempt with invalid code", slog.String("subject", user.ID.Hex()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired code", "code": ERROR_CODE_CODE_INVALID_OR_EXPIRED})
		return
	}

	if err := h.userDBConn.MarkUserEmailVerified(user.ID.Hex()); err != nil {
		slog.Error("failed to mark email verified", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	pair, err := h.tokenService.Issue(user.ID.Hex(), user.Email)
	if err != nil {
		slog.Error("failed to issue token pair", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	slog.Info("email verified", slog.String("subject", user.ID.Hex()))
	c.JSON(http.StatusOK, gin.H{
		"message":      "email verified",
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

type ResendVerificationReq struct {
	Email string `json:"email"`
}

// resendVerification always answers 200 so the endpoint cannot be used to
// probe which addresses have accounts.
func (h *HttpEndpoints) resendVerification(c *gin.Context) {
	var req ResendVerificationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req.Email = umUtils.SanitizeEmail(req.Email)

	user, err := h.userDBConn.GetUserByEmail(req.Email)
	if err == nil && !user.EmailVerified {
		go h.prepAndSendVerificationCode(user.ID.Hex(), user.Email, userTypes.VERIFICATION_CODE_KIND_EMAIL_VERIFY)
	} else {
		slog.Warn("verification resend for unknown or verified email", slog.String("email", umUtils.BlurEmailAddress(req.Email)))
	}

	c.JSON(http.StatusOK, gin.H{"message": "if the account exists, a new code was sent"})
}

func (h *HttpEndpoints) logoutAll(c *gin.Context) {
	parsedToken := c.MustGet("validatedToken").(*jwthandling.UserClaims)

	count, err := h.tokenService.RevokeAll(parsedToken.Subject)
	if err != nil {
		slog.Error("failed to revoke refresh tokens", slog.String("subject", parsedToken.Subject), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	slog.Info("logged out from all devices", slog.String("subject", parsedToken.Subject), slog.Int64("revokedSessions", count))
	c.JSON(http.StatusOK, gin.H{"message": "logged out from all devices", "revokedSessions": count})
}

func (h *HttpEndpoints) getProfile(c *gin.Context) {
	parsedToken := c.MustGet("validatedToken").(*jwthandling.UserClaims)

	user, err := h.userDBConn.GetUser(parsedToken.Subject)
	if err != nil {
		slog.Error("failed to load user", slog.String("subject", parsedToken.Subject), slog.String("error", err.Error()))
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
