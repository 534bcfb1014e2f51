package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

type SendGridTransport struct {
	client   *sendgrid.Client
	from     string
	fromName string
}

// NewSendGridTransport builds a v3 mail/send client. host overrides the API
// base URL and is only set for tests or regional endpoints.
func NewSendGridTransport(apiKey, host, from, fromName string) *SendGridTransport {
	client := sendgrid.NewSendClient(apiKey)
	if host != "" {
		client.Request.BaseURL = strings.TrimRight(host, "/") + "/v3/mail/send"
	}
	return &SendGridTransport{client: client, from: from, fromName: fromName}
}

func (t *SendGridTransport) Name() string { return "sendgrid" }

func (t *SendGridTransport) Send(ctx context.Context, msg Message) error {
	from := sgmail.NewEmail(t.fromName, t.from)
	to := sgmail.NewEmail("", msg.To)
	message := sgmail.NewSingleEmail(from, msg.Subject, to, msg.Text, msg.HTML)

	for _, a := range msg.Attachments {
		att := sgmail.NewAttachment()
		att.SetContent(base64.StdEncoding.EncodeToString(a.Content))
		att.SetType(a.ContentType)
		att.SetFilename(a.Filename)
		att.SetDisposition("attachment")
		message.AddAttachment(att)
	}

	response, err := t.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send: status %d: %s", response.StatusCode, response.Body)
	}
	return nil
}
