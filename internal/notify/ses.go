package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/wolfman30/dental-quote-platform/pkg/logging"
)

// SESAPI is the subset of the SES v2 client used by SESSender.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESConfig configures SESSender.
type SESConfig struct {
	FromEmail string
	FromName  string
}

// SESSender delivers quote emails through Amazon SES.
type SESSender struct {
	client SESAPI
	from   identity
	logger *logging.Logger
}

// NewSESSender returns nil without a client.
func NewSESSender(client SESAPI, cfg SESConfig, logger *logging.Logger) *SESSender {
	if client == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SESSender{client: client, from: newIdentity(cfg.FromEmail, cfg.FromName), logger: logger}
}

func utf8Content(s string) *types.Content {
	return &types.Content{Data: aws.String(s), Charset: aws.String("UTF-8")}
}

// sesTagValue keeps the characters SES accepts in message tags.
func sesTagValue(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}

func (s *SESSender) buildInput(msg QuoteEmail) *sesv2.SendEmailInput {
	body := &types.Body{}
	if msg.Text != "" {
		body.Text = utf8Content(msg.Text)
	}
	if msg.HTML != "" {
		body.Html = utf8Content(msg.HTML)
	}
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from.address()),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{Subject: utf8Content(msg.Subject), Body: body},
		},
	}
	if msg.ReplyTo != "" {
		input.ReplyToAddresses = []string{msg.ReplyTo}
	}
	if msg.Kind != "" {
		input.EmailTags = append(input.EmailTags, types.MessageTag{Name: aws.String("kind"), Value: aws.String(sesTagValue(string(msg.Kind)))})
	}
	if msg.QuoteID != "" {
		input.EmailTags = append(input.EmailTags, types.MessageTag{Name: aws.String("quote_id"), Value: aws.String(sesTagValue(msg.QuoteID))})
	}
	return input
}

// Send delivers msg.
func (s *SESSender) Send(ctx context.Context, msg QuoteEmail) error {
	if s == nil || s.client == nil {
		return errors.New("notify: SES client not configured")
	}
	out, err := s.client.SendEmail(ctx, s.buildInput(msg))
	if err != nil {
		s.logger.Error("SES send failed", "error", err, "kind", string(msg.Kind), "quote_id", msg.QuoteID)
		return fmt.Errorf("notify: SES send failed: %w", err)
	}
	s.logger.Info("quote email sent via SES", "kind", string(msg.Kind), "quote_id", msg.QuoteID, "message_id", aws.ToString(out.MessageId))
	return nil
}
