package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wolfman30/dental-quote-platform/pkg/logging"
)

// QuoteLine is one priced treatment in a notice.
type QuoteLine struct {
	Name     string
	Quantity int
	Subtotal decimal.Decimal
}

// QuoteNotice carries what the emails about a submitted quote need.
type QuoteNotice struct {
	QuoteID      string
	PatientName  string
	PatientEmail string
	PatientPhone string
	ClinicName   string
	Source       string
	Lines        []QuoteLine
	Total        decimal.Decimal
	UKTotal      decimal.Decimal
	Savings      decimal.Decimal
	SubmittedAt  time.Time
}

// Service sends quote emails.
type Service struct {
	email      EmailSender
	recipients []string
	logger     *logging.Logger
}

// NewService creates a notification service. opsRecipients receive a copy of
// every submitted quote.
func NewService(email EmailSender, opsRecipients []string, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{email: email, recipients: opsRecipients, logger: logger}
}

// NotifyQuoteSubmitted emails the patient their quote and tells the
// operations team. Every recipient is attempted; failures are joined.
func (s *Service) NotifyQuoteSubmitted(ctx context.Context, n QuoteNotice) error {
	if s == nil || s.email == nil {
		return nil
	}

	name := strings.TrimSpace(n.PatientName)
	if name == "" {
		name = "there"
	}

	var errs []error

	if n.PatientEmail != "" {
		msg := QuoteEmail{
			Kind:    KindPatientQuote,
			QuoteID: n.QuoteID,
			To:      n.PatientEmail,
			ToName:  n.PatientName,
			Subject: fmt.Sprintf("Your dental treatment quote from %s", n.ClinicName),
			Text:    patientText(name, n),
			HTML:    patientHTML(name, n),
		}
		if len(s.recipients) > 0 {
			msg.ReplyTo = s.recipients[0]
			msg.ReplyToName = n.ClinicName
		}
		if err := s.email.Send(ctx, msg); err != nil {
			s.logger.Error("notify: failed to send patient quote email", "error", err, "quote_id", n.QuoteID)
			errs = append(errs, err)
		} else {
			s.logger.Info("notify: patient quote email sent", "quote_id", n.QuoteID)
		}
	}

	if len(s.recipients) > 0 {
		subject := fmt.Sprintf("New quote - %s - £%s", n.ClinicName, n.Total.StringFixed(2))
		body := fmt.Sprintf(`New quote submitted

Quote: %s
Patient: %s
Email: %s
Phone: %s
Clinic: %s
Source: %s
Total: £%s
Submitted: %s`, n.QuoteID, n.PatientName, n.PatientEmail, n.PatientPhone, n.ClinicName, n.Source,
			n.Total.StringFixed(2), n.SubmittedAt.Format("January 2, 2006 at 15:04 MST"))

		for _, recipient := range s.recipients {
			msg := QuoteEmail{
				Kind:        KindOpsQuote,
				QuoteID:     n.QuoteID,
				To:          recipient,
				ReplyTo:     n.PatientEmail,
				ReplyToName: n.PatientName,
				Subject:     subject,
				Text:        body,
			}
			if err := s.email.Send(ctx, msg); err != nil {
				s.logger.Error("notify: failed to send ops email", "error", err, "to", recipient)
				errs = append(errs, err)
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: quote notifications failed: %w", errors.Join(errs...))
	}
	return nil
}

func patientText(name string, n QuoteNotice) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\nHere is your treatment quote from %s.\n\n", name, n.ClinicName)
	for _, l := range n.Lines {
		fmt.Fprintf(&b, "  %d x %s: £%s\n", l.Quantity, l.Name, l.Subtotal.StringFixed(2))
	}
	fmt.Fprintf(&b, "\nTotal: £%s\n", n.Total.StringFixed(2))
	if n.Savings.IsPositive() {
		fmt.Fprintf(&b, "You save £%s compared with UK prices (£%s).\n", n.Savings.StringFixed(2), n.UKTotal.StringFixed(2))
	}
	fmt.Fprintf(&b, "\nQuote reference: %s\n\n- The MyDentalFly team", n.QuoteID)
	return b.String()
}

func patientHTML(name string, n QuoteNotice) string {
	var rows strings.Builder
	for _, l := range n.Lines {
		fmt.Fprintf(&rows, `  <tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%d x %s</td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb; text-align: right;">£%s</td></tr>
`, l.Quantity, html.EscapeString(l.Name), l.Subtotal.StringFixed(2))
	}
	savings := ""
	if n.Savings.IsPositive() {
		savings = fmt.Sprintf(`<p style="background: #f0fdf4; padding: 12px; border-radius: 8px; border-left: 4px solid #10b981;">You save <strong>£%s</strong> compared with UK prices.</p>`,
			n.Savings.StringFixed(2))
	}
	return fmt.Sprintf(`<div style="font-family: sans-serif; max-width: 600px;">
<h2 style="color: #0ea5e9;">Your treatment quote</h2>
<p>Hi %s, here is your quote from <strong>%s</strong>.</p>
<table style="border-collapse: collapse; margin: 20px 0; width: 100%%;">
%s  <tr><td style="padding: 8px;"><strong>Total</strong></td><td style="padding: 8px; text-align: right;"><strong>£%s</strong></td></tr>
</table>
%s
<p style="color: #6b7280; font-size: 12px; margin-top: 20px;">Quote reference %s</p>
</div>`, html.EscapeString(name), html.EscapeString(n.ClinicName), rows.String(), n.Total.StringFixed(2), savings, n.QuoteID)
}
