package apihandlers

import (
	"log/slog"
	"math/rand"
	"time"

	emailsending "github.com/Rupe88/japan-project/pkg/messaging/email-sending"
	userTypes "github.com/Rupe88/japan-project/pkg/user-management/types"
	umUtils "github.com/Rupe88/japan-project/pkg/user-management/utils"
)

// stable error codes of the auth surface
const (
	ERROR_CODE_ACCOUNT_EXISTS          = "ACCOUNT_EXISTS"
	ERROR_CODE_INVALID_CREDENTIALS     = "INVALID_CREDENTIALS"
	ERROR_CODE_EMAIL_NOT_VERIFIED      = "EMAIL_NOT_VERIFIED"
	ERROR_CODE_REFRESH_INVALID         = "REFRESH_INVALID"
	ERROR_CODE_REFRESH_EXPIRED         = "REFRESH_EXPIRED"
	ERROR_CODE_ACCOUNT_INVALID         = "ACCOUNT_INVALID"
	ERROR_CODE_CODE_INVALID_OR_EXPIRED = "CODE_INVALID_OR_EXPIRED"
	ERROR_CODE_TOKEN_INVALID           = "TOKEN_INVALID"
)

const verificationCodeLength = 6

// randomWait masks timing differences between failure paths; replaced in
// tests to keep them fast.
var randomWait = func(minTimeSec int, maxTimeSec int) {
	time.Sleep(time.Duration(rand.Intn(maxTimeSec-minTimeSec)+minTimeSec) * time.Second)
}

// prepAndSendVerificationCode creates a one-time code and mails it. Runs as a
// fire-and-forget step: failures are logged, the surrounding operation has
// already succeeded.
func (h *HttpEndpoints) prepAndSendVerificationCode(
	userID string,
	email string,
	kind userTypes.VerificationCodeKind,
) {
	code, err := umUtils.GenerateVerificationCode(verificationCodeLength)
	if err != nil {
		slog.Error("failed to generate verification code", slog.String("error", err.Error()))
		return
	}

	err = h.codeDBConn.CreateVerificationCode(userTypes.VerificationCode{
		AccountID: userID,
		Email:     email,
		Code:      code,
		Kind:      kind,
		ExpiresAt: time.Now().Add(h.verificationCodeTTL),
	})
	if err != nil {
		slog.Error("failed to save verification code", slog.String("error", err.Error()))
		return
	}

	switch kind {
	case userTypes.VERIFICATION_CODE_KIND_PASSWORD_RESET:
		err = emailsending.SendPasswordResetEmail(email, code)
	default:
		err = emailsending.SendVerificationCodeEmail(email, code)
	}
	if err != nil {
		slog.Error("failed to send email", slog.String("email", umUtils.BlurEmailAddress(email)), slog.String("error", err.Error()))
		return
	}
	slog.Debug("email sent", slog.String("email", umUtils.BlurEmailAddress(email)))
}
