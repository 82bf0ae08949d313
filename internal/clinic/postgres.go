package clinic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/dental-quote-platform/internal/catalog"
)

type clinicDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRepository stores clinics in the clinics table. Nested fields are
// JSONB columns.
type PostgresRepository struct {
	db clinicDB
}

// NewPostgresRepository creates a repository backed by pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("clinic: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting a mock database for testing.
func NewPostgresRepositoryWithDB(db clinicDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectClinic = `
	SELECT id, name, tier, price_factor, ratings, location, features, guarantees
	FROM clinics`

func scanClinic(row pgx.Row) (*catalog.Clinic, error) {
	var (
		c                                      catalog.Clinic
		tier                                   string
		ratings, location, features, guarantee []byte
	)
	if err := row.Scan(&c.ID, &c.Name, &tier, &c.PriceFactor, &ratings, &location, &features, &guarantee); err != nil {
		return nil, err
	}
	c.Tier = catalog.Tier(tier)
	for _, f := range []struct {
		raw  []byte
		dest any
	}{
		{ratings, &c.Ratings},
		{location, &c.Location},
		{features, &c.Features},
		{guarantee, &c.Guarantees},
	} {
		if len(f.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(f.raw, f.dest); err != nil {
			return nil, fmt.Errorf("clinic: decode %s: %w", c.ID, err)
		}
	}
	return &c, nil
}

// Get returns the clinic or ErrNotFound.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*catalog.Clinic, error) {
	c, err := scanClinic(r.db.QueryRow(ctx, selectClinic+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("clinic: get %s: %w", id, err)
	}
	return c, nil
}

// List returns clinics ordered by tier, then name.
func (r *PostgresRepository) List(ctx context.Context) ([]catalog.Clinic, error) {
	rows, err := r.db.Query(ctx, selectClinic+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("clinic: list: %w", err)
	}
	defer rows.Close()

	out := []catalog.Clinic{}
	for rows.Next() {
		c, err := scanClinic(rows)
		if err != nil {
			return nil, fmt.Errorf("clinic: list scan: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("clinic: list rows: %w", err)
	}
	slices.SortStableFunc(out, func(a, b catalog.Clinic) int {
		return a.Tier.Rank() - b.Tier.Rank()
	})
	return out, nil
}

// Upsert inserts or replaces a clinic.
func (r *PostgresRepository) Upsert(ctx context.Context, c catalog.Clinic) error {
	ratings, err := json.Marshal(c.Ratings)
	if err != nil {
		return fmt.Errorf("clinic: encode ratings: %w", err)
	}
	location, err := json.Marshal(c.Location)
	if err != nil {
		return fmt.Errorf("clinic: encode location: %w", err)
	}
	features, err := json.Marshal(c.Features)
	if err != nil {
		return fmt.Errorf("clinic: encode features: %w", err)
	}
	guarantees, err := json.Marshal(c.Guarantees)
	if err != nil {
		return fmt.Errorf("clinic: encode guarantees: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO clinics (id, name, tier, price_factor, ratings, location, features, guarantees, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, tier = EXCLUDED.tier, price_factor = EXCLUDED.price_factor,
			ratings = EXCLUDED.ratings, location = EXCLUDED.location, features = EXCLUDED.features,
			guarantees = EXCLUDED.guarantees, updated_at = NOW()`,
		c.ID, c.Name, string(c.Tier), c.PriceFactor, ratings, location, features, guarantees)
	if err != nil {
		return fmt.Errorf("clinic: upsert %s: %w", c.ID, err)
	}
	return nil
}

// Seed upserts every clinic in cat.
func (r *PostgresRepository) Seed(ctx context.Context, cat *catalog.Catalog) (int, error) {
	n := 0
	for _, c := range cat.Clinics() {
		if err := r.Upsert(ctx, c); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
