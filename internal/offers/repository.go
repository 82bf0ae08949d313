package offers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// ErrNotFound is returned for unknown offer ids.
var ErrNotFound = errors.New("offers: not found")

// Repository stores offers in the special_offers table.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repository on db.
func NewRepository(db *sql.DB) *Repository {
	if db == nil {
		panic("offers: sql db required")
	}
	return &Repository{db: db}
}

const offerColumns = `id, clinic_id, title, description, discount_type, discount_value,
	       treatments, start_date, end_date, active, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanOffer(s scanner) (SpecialOffer, error) {
	var (
		o       SpecialOffer
		endDate sql.NullTime
	)
	if err := s.Scan(&o.ID, &o.ClinicID, &o.Title, &o.Description, &o.DiscountType, &o.DiscountValue,
		pq.Array(&o.Treatments), &o.StartDate, &endDate, &o.Active, &o.CreatedAt); err != nil {
		return SpecialOffer{}, err
	}
	if endDate.Valid {
		t := endDate.Time
		o.EndDate = &t
	}
	if o.Treatments == nil {
		o.Treatments = []string{}
	}
	return o, nil
}

// Create inserts o and fills its generated id and created_at.
func (r *Repository) Create(ctx context.Context, o *SpecialOffer) error {
	var endDate any
	if o.EndDate != nil {
		endDate = *o.EndDate
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO special_offers (clinic_id, title, description, discount_type, discount_value,
		    treatments, start_date, end_date, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`,
		o.ClinicID, o.Title, o.Description, o.DiscountType, o.DiscountValue,
		pq.Array(o.Treatments), o.StartDate, endDate, o.Active,
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return fmt.Errorf("offers: create: %w", err)
	}
	return nil
}

// Get returns one offer or ErrNotFound.
func (r *Repository) Get(ctx context.Context, id string) (SpecialOffer, error) {
	o, err := scanOffer(r.db.QueryRowContext(ctx, `SELECT `+offerColumns+` FROM special_offers WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return SpecialOffer{}, ErrNotFound
	}
	if err != nil {
		return SpecialOffer{}, fmt.Errorf("offers: get: %w", err)
	}
	return o, nil
}

// ListActive returns offers usable at now, newest first. An empty clinicID
// lists every clinic.
func (r *Repository) ListActive(ctx context.Context, clinicID string, now time.Time) ([]SpecialOffer, error) {
	query := `SELECT ` + offerColumns + ` FROM special_offers
		WHERE active = TRUE AND start_date <= $1 AND (end_date IS NULL OR end_date > $1)`
	args := []any{now}
	if clinicID != "" {
		query += ` AND clinic_id = $2`
		args = append(args, clinicID)
	}
	query += ` ORDER BY created_at DESC`
	return r.list(ctx, query, args...)
}

// ListByClinic returns all of a clinic's offers, newest first.
func (r *Repository) ListByClinic(ctx context.Context, clinicID string) ([]SpecialOffer, error) {
	return r.list(ctx, `SELECT `+offerColumns+` FROM special_offers WHERE clinic_id = $1 ORDER BY created_at DESC`, clinicID)
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]SpecialOffer, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("offers: list: %w", err)
	}
	defer rows.Close()

	out := []SpecialOffer{}
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("offers: list scan: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Deactivate switches an offer off. Only the owning clinic may do so.
func (r *Repository) Deactivate(ctx context.Context, clinicID, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE special_offers SET active = FALSE WHERE id = $1 AND clinic_id = $2`, id, clinicID)
	if err != nil {
		return fmt.Errorf("offers: deactivate: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("offers: deactivate: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
