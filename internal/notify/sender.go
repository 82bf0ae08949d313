// Package notify emails patients and the operations team about quotes.
package notify

import (
	"context"
	"fmt"

	"github.com/wolfman30/dental-quote-platform/pkg/logging"
)

// DefaultFromName is used when no sender name is configured.
const DefaultFromName = "MyDentalFly"

// EmailKind tells providers which quote email they are delivering. It is
// attached as a category or tag so bounces can be traced per kind.
type EmailKind string

const (
	KindPatientQuote EmailKind = "patient_quote"
	KindOpsQuote     EmailKind = "ops_quote"
)

// QuoteEmail is one email about a submitted quote.
type QuoteEmail struct {
	Kind    EmailKind
	QuoteID string
	To      string
	ToName  string
	// ReplyTo routes answers: patients reply to the coordinators, the
	// coordinators' copy replies to the patient.
	ReplyTo     string
	ReplyToName string
	Subject     string
	Text        string
	HTML        string
}

// EmailSender delivers quote emails. SendGrid, SES and the stub satisfy it.
type EmailSender interface {
	Send(ctx context.Context, msg QuoteEmail) error
}

type identity struct {
	email string
	name  string
}

func newIdentity(email, name string) identity {
	if name == "" {
		name = DefaultFromName
	}
	return identity{email: email, name: name}
}

func (i identity) address() string {
	return fmt.Sprintf("%s <%s>", i.name, i.email)
}

// StubEmailSender logs quote emails instead of sending them.
type StubEmailSender struct {
	logger *logging.Logger
}

// NewStubEmailSender creates a stub sender.
func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{logger: logger}
}

// Send logs msg.
func (s *StubEmailSender) Send(ctx context.Context, msg QuoteEmail) error {
	s.logger.Info("email disabled, quote email not sent",
		"kind", string(msg.Kind),
		"quote_id", msg.QuoteID,
		"to", msg.To,
		"subject", msg.Subject,
	)
	return nil
}

var (
	_ EmailSender = (*SESSender)(nil)
	_ EmailSender = (*SendGridSender)(nil)
	_ EmailSender = (*StubEmailSender)(nil)
)
