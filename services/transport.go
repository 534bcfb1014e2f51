package services

import (
	"context"
	"fmt"

	"membercrm/config"

	"go.uber.org/zap"
)

// LogTransport only logs. It is the fallback when no provider is configured.
type LogTransport struct {
	logger *zap.Logger
}

func NewLogTransport(logger *zap.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

func (t *LogTransport) Name() string { return "log" }

func (t *LogTransport) Send(_ context.Context, msg Message) error {
	t.logger.Info("Email not delivered (log transport)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("html_bytes", len(msg.HTML)),
		zap.Int("attachments", len(msg.Attachments)),
	)
	return nil
}

// NewTransport picks the transport named by mail.provider.
func NewTransport(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Transport, error) {
	switch cfg.Mail.Provider {
	case "sendgrid":
		return NewSendGridTransport(cfg.SendGrid.APIKey, cfg.SendGrid.Host, cfg.Mail.From, cfg.Mail.FromName), nil
	case "smtp":
		s := cfg.SMTP
		return NewSMTPTransport(s.Host, s.Port, s.User, s.Password, s.TLSMode, cfg.Mail.From, cfg.Mail.FromName), nil
	case "ses":
		return NewSESTransport(ctx, cfg.SES.Region, cfg.Mail.From, cfg.Mail.FromName)
	case "log", "":
		return NewLogTransport(logger), nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Mail.Provider)
	}
}
