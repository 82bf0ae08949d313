package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventTypeQuoteSubmitted is published after a quote is persisted.
const EventTypeQuoteSubmitted = "quote.submitted"

// QuoteSubmittedV1 describes a patient's submitted quote.
type QuoteSubmittedV1 struct {
	QuoteID      string          `json:"quote_id"`
	SessionID    string          `json:"session_id,omitempty"`
	ClinicID     string          `json:"clinic_id"`
	Source       string          `json:"source"`
	PackageID    string          `json:"package_id,omitempty"`
	PatientEmail string          `json:"patient_email"`
	TotalGBP     decimal.Decimal `json:"total_gbp"`
	SavingsGBP   decimal.Decimal `json:"savings_gbp"`
	LineCount    int             `json:"line_count"`
	SubmittedAt  time.Time       `json:"submitted_at"`
}

// EventType implements CanonicalEvent.
func (QuoteSubmittedV1) EventType() string { return EventTypeQuoteSubmitted }
