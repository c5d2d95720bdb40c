package mailer

import (
	"context"
	"fmt"
	"net"
	"net/smtp"

	"github.com/grmaxv/users_api/internal/logging"
)

// Notifier delivers password-reset messages. Delivery is fire-and-forget:
// callers log failures and never surface them to the API client.
type Notifier interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

type SMTPMailer struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	BaseURL  string
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, email, token string) error {
	resetURL := fmt.Sprintf("%s/reset-password?token=%s", m.BaseURL, token)

	body := fmt.Sprintf(
		"To: %s\r\nFrom: %s\r\nSubject: Password reset\r\n\r\n"+
			"Follow this link to reset your password:\r\n%s\r\n\r\n"+
			"The link expires in 15 minutes.\r\n",
		email, m.From, resetURL,
	)

	addr := net.JoinHostPort(m.Host, m.Port)
	auth := smtp.PlainAuth("", m.Username, m.Password, m.Host)
	if err := smtp.SendMail(addr, auth, m.From, []string{email}, []byte(body)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", email, err)
	}

	logging.FromContext(ctx).Info("reset_email_sent", "email", email)
	return nil
}

// LogNotifier stands in when SMTP is not configured: it only logs the reset
// link, which is what the development environment wants.
type LogNotifier struct{}

func (LogNotifier) SendPasswordReset(ctx context.Context, email, token string) error {
	logging.FromContext(ctx).Info("reset_token_issued", "email", email, "token", token)
	return nil
}
