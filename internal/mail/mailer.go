// Package mail renders and delivers transactional emails over SMTP.
package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/gommon/log"
	gomail "github.com/wneessen/go-mail"

	"github.com/iliyamo/edu-platform/internal/config"
)

// ResetSubject is the subject line of every password-reset email.
const ResetSubject = "Password reset code"

// Mailer sends password-reset codes through an SMTP relay. With an empty
// host it only logs, which keeps local setups working without a relay.
type Mailer struct {
	cfg  config.MailConfig
	send func(ctx context.Context, msg *gomail.Msg) error
}

func NewMailer(cfg config.MailConfig) *Mailer {
	m := &Mailer{cfg: cfg}
	m.send = m.dialAndSend
	return m
}

// SendPasswordResetCode renders the reset email for code and delivers it.
func (m *Mailer) SendPasswordResetCode(ctx context.Context, email, name, code string, validFor time.Duration) error {
	if m.cfg.Host == "" {
		log.Warnf("mail: SMTP_HOST not set, dropping password reset email for %s", email)
		return nil
	}
	msg, err := m.resetMessage(email, name, code, validFor)
	if err != nil {
		return err
	}
	if err := m.send(ctx, msg); err != nil {
		return fmt.Errorf("mail: send to %s: %w", email, err)
	}
	return nil
}

func (m *Mailer) resetMessage(email, name, code string, validFor time.Duration) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return nil, fmt.Errorf("mail: from %q: %w", m.cfg.From, err)
	}
	if err := msg.To(email); err != nil {
		return nil, fmt.Errorf("mail: to %q: %w", email, err)
	}
	msg.Subject(ResetSubject)
	msg.SetBodyString(gomail.TypeTextPlain, ResetBody(name, code, validFor))
	return msg, nil
}

// ResetBody is the plain-text body of the password-reset email.
func ResetBody(name, code string, validFor time.Duration) string {
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf("Hello %s,\n\n"+
		"Your password reset code is: %s\n\n"+
		"The code is valid for %d minutes. If you did not ask to reset your password, ignore this email.\n",
		name, code, int(validFor.Minutes()))
}

func (m *Mailer) dialAndSend(ctx context.Context, msg *gomail.Msg) error {
	opts := []gomail.Option{gomail.WithPort(m.cfg.Port)}
	if m.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(m.cfg.Username),
			gomail.WithPassword(m.cfg.Password))
	}
	if m.cfg.TLS {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSMandatory))
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.NoTLS))
	}
	client, err := gomail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}
