package archive

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// RecordVersion is written into every archived record.
const RecordVersion = "1.0"

// QuoteRecord is the snapshot archived to S3 when a patient submits a quote.
// The patient's email is stored hashed; free text is scrubbed.
type QuoteRecord struct {
	Version    string          `json:"version"`
	QuoteID    string          `json:"quote_id"`
	ClinicID   string          `json:"clinic_id"`
	Source     string          `json:"source"`
	EmailHash  string          `json:"email_hash"`
	ArchivedAt time.Time       `json:"archived_at"`
	LineCount  int             `json:"line_count"`
	TotalGBP   decimal.Decimal `json:"total_gbp"`
	Notes      string          `json:"notes,omitempty"`
	Quote      json.RawMessage `json:"quote"`
}

// ManifestEntry is one JSONL line in a clinic's monthly manifest file.
type ManifestEntry struct {
	QuoteID    string          `json:"quote_id"`
	S3Key      string          `json:"s3_key"`
	Source     string          `json:"source"`
	TotalGBP   decimal.Decimal `json:"total_gbp"`
	ArchivedAt string          `json:"archived_at"`
	LineCount  int             `json:"line_count"`
}
