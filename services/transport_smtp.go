package services

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail"
)

type SMTPTransport struct {
	dialer   *mail.Dialer
	from     string
	fromName string
}

// NewSMTPTransport dials per message. tlsMode is auto/starttls (negotiate),
// ssl (implicit TLS) or none.
func NewSMTPTransport(host string, port int, user, pass, tlsMode, from, fromName string) *SMTPTransport {
	d := mail.NewDialer(host, port, user, pass)
	d.TLSConfig = &tls.Config{ServerName: host}
	switch tlsMode {
	case "ssl":
		d.SSL = true
	case "none":
		d.StartTLSPolicy = mail.NoStartTLS
	case "starttls":
		d.StartTLSPolicy = mail.MandatoryStartTLS
	}
	return &SMTPTransport{dialer: d, from: from, fromName: fromName}
}

func (t *SMTPTransport) Name() string { return "smtp" }

func (t *SMTPTransport) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.dialer.DialAndSend(buildMIME(t.from, t.fromName, msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// buildMIME produces a multipart/alternative message (text + html) with
// attachments. SMTP and SES share it.
func buildMIME(from, fromName string, msg Message) *mail.Message {
	m := mail.NewMessage()
	m.SetAddressHeader("From", from, fromName)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)

	switch {
	case msg.Text != "" && msg.HTML != "":
		m.SetBody("text/plain", msg.Text)
		m.AddAlternative("text/html", msg.HTML)
	case msg.HTML != "":
		m.SetBody("text/html", msg.HTML)
	default:
		m.SetBody("text/plain", msg.Text)
	}

	for _, a := range msg.Attachments {
		contentType := a.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		m.AttachReader(a.Filename, bytes.NewReader(a.Content),
			mail.SetHeader(map[string][]string{"Content-Type": {contentType}}))
	}
	return m
}
