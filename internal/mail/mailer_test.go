package mail

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomail "github.com/wneessen/go-mail"

	"github.com/iliyamo/edu-platform/internal/config"
)

func TestResetEmailContent(t *testing.T) {
	m := NewMailer(config.MailConfig{Host: "smtp.test", From: "no-reply@edu.test"})
	var sent *gomail.Msg
	m.send = func(_ context.Context, msg *gomail.Msg) error {
		sent = msg
		return nil
	}

	require.NoError(t, m.SendPasswordResetCode(context.Background(), "mona@example.com", "Mona", "123456", 10*time.Minute))
	require.NotNil(t, sent)

	var buf bytes.Buffer
	_, err := sent.WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()
	assert.Contains(t, raw, "Subject: Password reset code")
	assert.Contains(t, raw, "mona@example.com")
	assert.Contains(t, raw, "123456")
	assert.Contains(t, raw, "valid for 10 minutes")
}

func TestSendErrorsAreWrapped(t *testing.T) {
	m := NewMailer(config.MailConfig{Host: "smtp.test", From: "no-reply@edu.test"})
	boom := errors.New("relay down")
	m.send = func(context.Context, *gomail.Msg) error { return boom }

	err := m.SendPasswordResetCode(context.Background(), "mona@example.com", "Mona", "123456", time.Minute)
	assert.ErrorIs(t, err, boom)
}

func TestNoHostDropsSilently(t *testing.T) {
	m := NewMailer(config.MailConfig{})
	m.send = func(context.Context, *gomail.Msg) error {
		t.Fatal("send must not be called without a host")
		return nil
	}
	assert.NoError(t, m.SendPasswordResetCode(context.Background(), "x@example.com", "", "1", time.Minute))
}

func TestInvalidRecipient(t *testing.T) {
	m := NewMailer(config.MailConfig{Host: "smtp.test", From: "no-reply@edu.test"})
	assert.Error(t, m.SendPasswordResetCode(context.Background(), "not an address", "", "1", time.Minute))
}
