package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
)

type sesAPI interface {
	SendRawEmail(ctx context.Context, params *ses.SendRawEmailInput, optFns ...func(*ses.Options)) (*ses.SendRawEmailOutput, error)
}

// SESTransport sends raw MIME so attachments survive.
type SESTransport struct {
	client   sesAPI
	from     string
	fromName string
}

func NewSESTransport(ctx context.Context, region, from, fromName string) (*SESTransport, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SESTransport{client: ses.NewFromConfig(cfg), from: from, fromName: fromName}, nil
}

func (t *SESTransport) Name() string { return "ses" }

func (t *SESTransport) Send(ctx context.Context, msg Message) error {
	var raw bytes.Buffer
	if _, err := buildMIME(t.from, t.fromName, msg).WriteTo(&raw); err != nil {
		return fmt.Errorf("ses encode: %w", err)
	}

	_, err := t.client.SendRawEmail(ctx, &ses.SendRawEmailInput{
		Source:       aws.String(t.from),
		Destinations: []string{msg.To},
		RawMessage:   &sestypes.RawMessage{Data: raw.Bytes()},
	})
	if err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	return nil
}
