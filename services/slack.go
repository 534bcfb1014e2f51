package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// CampaignSummary is what gets posted after a send completes.
type CampaignSummary struct {
	Subject   string
	Segment   string
	Tier      string
	Sent      int
	Attempted int
	SentBy    string
}

type SlackNotifier struct {
	webhookURL string
	client     *http.Client
	logger     *zap.Logger
}

// NewSlackNotifier returns nil when no webhook is configured; a nil notifier
// is safe to call.
func NewSlackNotifier(webhookURL string, logger *zap.Logger) *SlackNotifier {
	if webhookURL == "" {
		return nil
	}
	return &SlackNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

func (n *SlackNotifier) NotifyCampaign(ctx context.Context, s CampaignSummary) error {
	if n == nil {
		return nil
	}

	payload := map[string]string{
		"text": fmt.Sprintf("📬 Campaign sent\n\nSubject: %s\nSegment: %s (%s)\nDelivered: %d/%d\nBy: %s",
			s.Subject, s.Segment, s.Tier, s.Sent, s.Attempted, s.SentBy),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send slack request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("slack api error: status %d", resp.StatusCode)
	}
	return nil
}

// NotifyCampaignAsync posts in the background; failures are only logged.
func (n *SlackNotifier) NotifyCampaignAsync(s CampaignSummary) {
	if n == nil {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				n.logger.Error("Slack notifier panic recovered", zap.Any("panic", r))
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := n.NotifyCampaign(ctx, s); err != nil {
			n.logger.Warn("Slack notification failed", zap.Error(err))
		}
	}()
}
