package services

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Message is one outbound email to a single recipient.
type Message struct {
	To          string
	Subject     string
	HTML        string
	Text        string
	Attachments []Attachment
}

// Transport delivers a single message. Implementations: SendGrid, SMTP, SES, log.
type Transport interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

type SendResult struct {
	Attempted int
	Sent      int
	Failed    []string
}

// Mailer sends to recipients one at a time with a fixed pause after each
// attempt so the provider does not silently drop messages.
type Mailer struct {
	transport Transport
	delay     time.Duration
	logger    *zap.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

func NewMailer(transport Transport, delay time.Duration, logger *zap.Logger) *Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mailer{
		transport: transport,
		delay:     delay,
		logger:    logger,
		sleep:     sleepContext,
	}
}

func (m *Mailer) TransportName() string {
	return m.transport.Name()
}

// SendAll delivers msg to every recipient. Individual failures are counted
// and logged, never returned. A cancelled context stops the loop and returns
// the partial result with the context error.
func (m *Mailer) SendAll(ctx context.Context, recipients []string, msg Message) (SendResult, error) {
	var res SendResult
	for _, to := range recipients {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		res.Attempted++
		msg.To = to
		if err := m.transport.Send(ctx, msg); err != nil {
			res.Failed = append(res.Failed, to)
			emailDeliveries.WithLabelValues(m.transport.Name(), "failed").Inc()
			m.logger.Warn("Email delivery failed",
				zap.String("to", to),
				zap.String("transport", m.transport.Name()),
				zap.Error(err),
			)
		} else {
			res.Sent++
			emailDeliveries.WithLabelValues(m.transport.Name(), "sent").Inc()
		}

		if err := m.sleep(ctx, m.delay); err != nil {
			return res, err
		}
	}
	return res, nil
}

// SplitRecipients parses a comma separated address list, dropping blanks.
func SplitRecipients(to string) []string {
	var out []string
	for _, part := range strings.Split(to, ",") {
		if addr := strings.TrimSpace(part); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
