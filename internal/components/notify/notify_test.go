package notify

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/jordan-wright/email"
	"github.com/stretchr/testify/require"
)

func TestMailerMessage(t *testing.T) {
	mailer := NewMailer(SmtpConfig{
		Server:       "smtp.example.com",
		EmailAddress: "bot@example.com",
	})
	require.True(t, mailer.config.Port == 587)

	mail := mailer.message("12345678")
	require.Equal(t, "SAM Timesheet <bot@example.com>", mail.From)
	require.Equal(t, []string{"bot@example.com"}, mail.To)
	require.Contains(t, string(mail.Text), "12345678")

	raw, err := mail.Bytes()
	require.NoError(t, err)
	require.Contains(t, string(raw), "Subject: SAM login failed")
}

func TestMailerFallsBackWithoutAuth(t *testing.T) {
	mailer := NewMailer(SmtpConfig{
		Server:       "localhost",
		Port:         2525,
		EmailAddress: "bot@example.com",
		To:           []string{"me@example.com"},
	})

	var auths []smtp.Auth
	mailer.send = func(mail *email.Email, addr string, auth smtp.Auth) error {
		require.Equal(t, "localhost:2525", addr)
		require.Equal(t, []string{"me@example.com"}, mail.To)
		auths = append(auths, auth)
		if auth != nil {
			return errors.New("smtp: server doesn't support AUTH")
		}
		return nil
	}

	require.NoError(t, mailer.CredentialsRejected(context.Background(), "12345678"))
	require.Len(t, auths, 2)
	require.NotNil(t, auths[0])
	require.Nil(t, auths[1])
}

func TestMailerError(t *testing.T) {
	mailer := NewMailer(SmtpConfig{Server: "localhost", EmailAddress: "bot@example.com"})
	mailer.send = func(*email.Email, string, smtp.Auth) error {
		return errors.New("connection refused")
	}

	err := mailer.CredentialsRejected(context.Background(), "12345678")
	require.Error(t, err)
	require.True(t, strings.HasPrefix(err.Error(), "send notification"))
}

func TestSmtpConfigEnabled(t *testing.T) {
	require.False(t, SmtpConfig{}.Enabled())
	require.True(t, SmtpConfig{Server: "localhost", EmailAddress: "bot@example.com"}.Enabled())
}
