package emailsending

import (
	"errors"
	"fmt"
	"log/slog"

	smtpclient "github.com/Rupe88/japan-project/pkg/smtp-client"
)

var (
	smtpClients *smtpclient.SmtpClients

	emailBrandName = "Japan Project"
)

func InitMessageSendingVariables(clients *smtpclient.SmtpClients, brandName string) {
	smtpClients = clients
	if brandName != "" {
		emailBrandName = brandName
	}
}

// SendVerificationCodeEmail delivers the email verification code. Callers
// run this in a goroutine and only log failures, the registration itself
// must not depend on delivery.
func SendVerificationCodeEmail(to string, code string) error {
	subject := fmt.Sprintf("%s - verify your email address", emailBrandName)
	content := fmt.Sprintf(`<p>Welcome to %s!</p>
<p>Your verification code is: <strong>%s</strong></p>
<p>The code expires in 15 minutes. If you did not create an account, ignore this email.</p>`, emailBrandName, code)
	return sendMail(to, subject, content)
}

func SendPasswordResetEmail(to string, code string) error {
	subject := fmt.Sprintf("%s - password reset code", emailBrandName)
	content := fmt.Sprintf(`<p>A password reset was requested for your %s account.</p>
<p>Your reset code is: <strong>%s</strong></p>
<p>The code expires in 15 minutes. If you did not request a reset, you can ignore this email.</p>`, emailBrandName, code)
	return sendMail(to, subject, content)
}

func sendMail(to string, subject string, htmlContent string) error {
	if smtpClients == nil {
		return errors.New("smtp clients not initialized")
	}
	err := smtpClients.SendMail([]string{to}, subject, htmlContent)
	if err != nil {
		slog.Error("error while sending email", slog.String("error", err.Error()))
	}
	return err
}
