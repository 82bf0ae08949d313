package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned for unknown quote ids.
var ErrNotFound = errors.New("quotes: not found")

// Store persists quotes.
type Store interface {
	Create(ctx context.Context, q *Quote) error
	Get(ctx context.Context, id string) (*Quote, error)
}

// quoteDB defines the database interface needed by Repository
type quoteDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository stores quotes in Postgres.
type Repository struct {
	db quoteDB
}

// NewRepository creates a quote repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("quotes: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting a mock database for testing.
func NewRepositoryWithDB(db quoteDB) *Repository {
	return &Repository{db: db}
}

// Create inserts q. Amounts are sent as text and cast to numeric.
func (r *Repository) Create(ctx context.Context, q *Quote) error {
	lines, err := json.Marshal(q.Lines)
	if err != nil {
		return fmt.Errorf("quotes: marshal lines: %w", err)
	}
	patient, err := json.Marshal(q.Patient)
	if err != nil {
		return fmt.Errorf("quotes: marshal patient: %w", err)
	}
	query := `
		INSERT INTO quotes (
			id, session_id, clinic_id, clinic_name, source, package_id, offer_id, promo_token,
			patient, patient_email, lines, total_gbp, total_usd, uk_total_gbp, savings_gbp,
			savings_percent, package_applied, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
			$12::numeric, $13::numeric, $14::numeric, $15::numeric, $16, $17, $18
		)
	`
	_, err = r.db.Exec(ctx, query,
		q.ID, q.SessionID, q.ClinicID, q.ClinicName, q.Source, q.PackageID, q.OfferID, q.PromoToken,
		patient, q.Patient.Email, lines,
		q.Total.String(), q.TotalUSD.String(), q.UKTotal.String(), q.Savings.String(),
		q.SavingsPercent, q.PackageApplied, q.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("quotes: insert: %w", err)
	}
	return nil
}

// Get returns the quote or ErrNotFound.
func (r *Repository) Get(ctx context.Context, id string) (*Quote, error) {
	query := `
		SELECT id, session_id, clinic_id, clinic_name, source, package_id, offer_id, promo_token,
		       patient, lines, total_gbp::text, total_usd::text, uk_total_gbp::text, savings_gbp::text,
		       savings_percent, package_applied, created_at
		FROM quotes
		WHERE id = $1
	`
	var (
		q                               Quote
		patient, lines                  []byte
		total, totalUSD, ukTotal, saved string
	)
	err := r.db.QueryRow(ctx, query, id).Scan(
		&q.ID, &q.SessionID, &q.ClinicID, &q.ClinicName, &q.Source, &q.PackageID, &q.OfferID, &q.PromoToken,
		&patient, &lines, &total, &totalUSD, &ukTotal, &saved,
		&q.SavingsPercent, &q.PackageApplied, &q.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("quotes: get: %w", err)
	}
	if err := json.Unmarshal(patient, &q.Patient); err != nil {
		return nil, fmt.Errorf("quotes: decode patient: %w", err)
	}
	if err := json.Unmarshal(lines, &q.Lines); err != nil {
		return nil, fmt.Errorf("quotes: decode lines: %w", err)
	}
	for _, f := range []struct {
		dst *decimal.Decimal
		raw string
	}{{&q.Total, total}, {&q.TotalUSD, totalUSD}, {&q.UKTotal, ukTotal}, {&q.Savings, saved}} {
		v, err := decimal.NewFromString(f.raw)
		if err != nil {
			return nil, fmt.Errorf("quotes: parse amount %q: %w", f.raw, err)
		}
		*f.dst = v
	}
	return &q, nil
}
