package apihandlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	mw "github.com/Rupe88/japan-project/pkg/apihelpers/middlewares"
	"github.com/Rupe88/japan-project/pkg/user-management/pwhash"
	userTypes "github.com/Rupe88/japan-project/pkg/user-management/types"
	umUtils "github.com/Rupe88/japan-project/pkg/user-management/utils"
)

func (h *HttpEndpoints) AddPasswordResetAPI(rg *gin.RouterGroup) {
	pwResetGroup := rg.Group("/auth/password-reset")
	{
		pwResetGroup.POST("/request", mw.RequirePayload(), h.requestPasswordReset)
		pwResetGroup.POST("/verify", mw.RequirePayload(), h.verifyPasswordReset)
	}
}

type PasswordResetRequestReq struct {
	Email string `json:"email"`
}

// requestPasswordReset always answers 200, whether or not the account
// exists.
func (h *HttpEndpoints) requestPasswordReset(c *gin.Context) {
	var req PasswordResetRequestReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req.Email = umUtils.SanitizeEmail(req.Email)

	user, err := h.userDBConn.GetUserByEmail(req.Email)
	if err != nil {
		slog.Warn("password reset for non-existing user", slog.String("email", umUtils.BlurEmailAddress(req.Email)))
	} else {
		go h.prepAndSendVerificationCode(user.ID.Hex(), user.Email, userTypes.VERIFICATION_CODE_KIND_PASSWORD_RESET)
		slog.Info("password reset initiated", slog.String("subject", user.ID.Hex()))
	}

	randomWait(1, 4) // to discourage click-flooding
	c.JSON(http.StatusOK, gin.H{"message": "if the account exists, a reset code was sent"})
}

type PasswordResetVerifyReq struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

// verifyPasswordReset consumes the reset code, replaces the credential hash
// and revokes every refresh token of the account, forcing re-login on all
// devices.
func (h *HttpEndpoints) verifyPasswordReset(c *gin.Context) {
	var req PasswordResetVerifyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req.Email = umUtils.SanitizeEmail(req.Email)

	if !umUtils.CheckPasswordFormat(req.NewPassword) {
		slog.Error("invalid password format")
		c.JSON(http.StatusBadRequest, gin.H{"error": "password too weak"})
		return
	}

	user, err := h.userDBConn.GetUserByEmail(req.Email)
	if err != nil {
		slog.Warn("password reset for unknown email", slog.String("email", umUtils.BlurEmailAddress(req.Email)))
		randomWait(1, 4)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired code", "code": ERROR_CODE_CODE_INVALID_OR_EXPIRED})
		return
	}

	_, err = h.codeDBConn.ConsumeVerificationCode(user.ID.Hex(), req.Code, userTypes.VERIFICATION_CODE_KIND_PASSWORD_RESET)
	if err != nil {
		slog.Warn("password reset with invalid code", slog.String("subject", user.ID.Hex()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired code", "code": ERROR_CODE_CODE_INVALID_OR_EXPIRED})
		return
	}

	password, err := pwhash.HashPassword(req.NewPassword)
	if err != nil {
		slog.Error("failed to hash password", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	if err := h.userDBConn.UpdateUserPassword(user.ID.Hex(), password); err != nil {
		slog.Error("failed to update password", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	count, err := h.tokenService.RevokeAll(user.ID.Hex())
	if err != nil {
		slog.Error("failed to revoke refresh tokens after password reset", slog.String("subject", user.ID.Hex()), slog.String("error", err.Error()))
	} else {
		slog.Info("password reset completed", slog.String("subject", user.ID.Hex()), slog.Int64("revokedSessions", count))
	}

	c.JSON(http.StatusOK, gin.H{"message": "password updated, please log in again"})
}
