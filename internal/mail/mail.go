// Package mail delivers password-reset links. The transport is chosen by
// configuration: log (development), smtp, or amqp (publish to a durable
// queue consumed by a separate mailer).
package mail

import (
	"context"
	"fmt"
	"html"

	"go.uber.org/zap"

	"github.com/deskline/helpdesk/internal/config"
)

// Sender sends a reset link to a user's email address.
type Sender interface {
	SendResetLink(ctx context.Context, to, link string) error
}

// Message is a rendered email.
type Message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

const resetSubject = "Password reset"

// ResetMessage renders the reset email for to.
func ResetMessage(from, to, link string) Message {
	escaped := html.EscapeString(link)
	return Message{
		From:    from,
		To:      to,
		Subject: resetSubject,
		HTML: fmt.Sprintf(
			`<p>Please click the link below to reset your password:</p><p><a href="%s">Reset password</a></p>`,
			escaped,
		),
	}
}

// New builds the sender selected by cfg.Transport.
func New(cfg config.MailConfig, logger *zap.Logger) (Sender, error) {
	switch cfg.Transport {
	case "", "log":
		return NewLogSender(cfg.From, logger), nil
	case "smtp":
		return NewSMTPSender(cfg), nil
	case "amqp":
		return NewAMQPSender(cfg, logger), nil
	default:
		return nil, fmt.Errorf("mail: unknown transport %q", cfg.Transport)
	}
}

// LogSender writes reset emails to the log instead of delivering them.
type LogSender struct {
	from   string
	logger *zap.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(from string, logger *zap.Logger) *LogSender {
	return &LogSender{from: from, logger: logger}
}

func (s *LogSender) SendResetLink(_ context.Context, to, link string) error {
	msg := ResetMessage(s.from, to, link)
	s.logger.Info("password reset email",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("link", link))
	return nil
}
