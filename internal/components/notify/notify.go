package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("samtimesheet/components/notify")

type SmtpConfig struct {
	Server       string `json:"server"`
	Port         int    `json:"port"`
	EmailAddress string `json:"email_address"`
	Password     string `json:"password"`
	// To defaults to EmailAddress.
	To []string `json:"to"`
}

func (c SmtpConfig) Enabled() bool {
	return c.Server != "" && c.EmailAddress != ""
}

// Mailer sends an email when the portal rejects the configured password.
type Mailer struct {
	config SmtpConfig
	// send is swapped out in tests.
	send func(mail *email.Email, addr string, auth smtp.Auth) error
}

func NewMailer(config SmtpConfig) Mailer {
	if config.Port == 0 {
		config.Port = 587
	}
	if len(config.To) == 0 {
		config.To = []string{config.EmailAddress}
	}
	return Mailer{
		config: config,
		send: func(mail *email.Email, addr string, auth smtp.Auth) error {
			return mail.Send(addr, auth)
		},
	}
}

func (m Mailer) message(username string) *email.Email {
	mail := email.NewEmail()
	mail.From = fmt.Sprintf("SAM Timesheet <%s>", m.config.EmailAddress)
	mail.To = m.config.To
	mail.Subject = "SAM login failed"

	body := fmt.Sprintf(`The SAM portal rejected the password of account %s.

No further login attempts will be made until the error flag is cleared, run
"samtimesheet reset" after updating the password in the configuration.`, username)
	mail.Text = []byte(body)
	return mail
}

func (m Mailer) CredentialsRejected(ctx context.Context, username string) error {
	_, span := tracer.Start(ctx, "CredentialsRejected")
	defer span.End()

	mail := m.message(username)
	addr := fmt.Sprintf("%s:%d", m.config.Server, m.config.Port)

	err := m.send(
		mail,
		addr,
		smtp.PlainAuth("", m.config.EmailAddress, m.config.Password, m.config.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = m.send(mail, addr, nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}
