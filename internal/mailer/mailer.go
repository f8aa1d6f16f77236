package mailer

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/tutor-booking-api/pkg/config"
)

// Providers accepted by MAIL_PROVIDER.
const (
	ProviderLog      = "log"
	ProviderSendGrid = "sendgrid"
)

// Message is a plain-text email.
type Message struct {
	To      []string
	Subject string
	Body    string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New selects a mailer from configuration. SendGrid without an API key falls back to logging.
func New(cfg config.MailConfig, logger *zap.Logger) Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch strings.ToLower(cfg.Provider) {
	case ProviderSendGrid:
		if cfg.SendGridAPIKey != "" {
			return NewSendGridMailer(cfg.SendGridAPIKey, cfg.FromName, cfg.FromAddress, logger)
		}
		logger.Warn("sendgrid selected without SENDGRID_API_KEY, logging mail instead")
	}
	return NewLogMailer(logger)
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer constructs a LogMailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger}
}

// Send logs the message.
func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.logger.Info("mail",
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("body_bytes", len(msg.Body)),
	)
	return nil
}
