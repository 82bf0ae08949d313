package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/wolfman30/dental-quote-platform/pkg/logging"
)

// SendGridConfig configures SendGridSender.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

type sendGridClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridSender delivers quote emails through the SendGrid v3 API.
type SendGridSender struct {
	client sendGridClient
	from   identity
	logger *logging.Logger
}

// NewSendGridSender returns nil when no API key is configured.
func NewSendGridSender(cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if cfg.APIKey == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SendGridSender{
		client: sendgrid.NewSendClient(cfg.APIKey),
		from:   newIdentity(cfg.FromEmail, cfg.FromName),
		logger: logger,
	}
}

// buildMail tags the message with its kind and quote id so SendGrid
// activity and webhooks can be joined back to the quote.
func (s *SendGridSender) buildMail(msg QuoteEmail) *mail.SGMailV3 {
	m := mail.NewV3Mail()
	m.SetFrom(mail.NewEmail(s.from.name, s.from.email))
	m.Subject = msg.Subject

	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail(msg.ToName, msg.To))
	if msg.QuoteID != "" {
		p.SetCustomArg("quote_id", msg.QuoteID)
	}
	m.AddPersonalizations(p)

	if msg.ReplyTo != "" {
		m.SetReplyTo(mail.NewEmail(msg.ReplyToName, msg.ReplyTo))
	}
	m.AddCategories("quote")
	if msg.Kind != "" {
		m.AddCategories(string(msg.Kind))
	}

	text := msg.Text
	if text == "" {
		text = msg.Subject
	}
	m.AddContent(mail.NewContent("text/plain", text))
	if msg.HTML != "" {
		m.AddContent(mail.NewContent("text/html", msg.HTML))
	}
	return m
}

// Send delivers msg.
func (s *SendGridSender) Send(ctx context.Context, msg QuoteEmail) error {
	if s == nil || s.client == nil {
		return errors.New("notify: sendgrid client not configured")
	}
	resp, err := s.client.SendWithContext(ctx, s.buildMail(msg))
	if err != nil {
		s.logger.Error("sendgrid send failed", "error", err, "kind", string(msg.Kind), "quote_id", msg.QuoteID)
		return fmt.Errorf("notify: sendgrid send failed: %w", err)
	}
	if resp.StatusCode >= 400 {
		s.logger.Error("sendgrid rejected quote email", "status", resp.StatusCode, "body", resp.Body, "kind", string(msg.Kind), "quote_id", msg.QuoteID)
		return fmt.Errorf("notify: sendgrid returned status %d", resp.StatusCode)
	}
	s.logger.Info("quote email sent via sendgrid", "kind", string(msg.Kind), "quote_id", msg.QuoteID, "status", resp.StatusCode)
	return nil
}
