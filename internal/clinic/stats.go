package clinic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/wolfman30/dental-quote-platform/internal/apperr"
	"github.com/wolfman30/dental-quote-platform/internal/tenancy"
	"github.com/wolfman30/dental-quote-platform/pkg/logging"
)

// Stats summarizes the quotes patients requested from one clinic.
type Stats struct {
	ClinicID        string          `json:"clinic_id"`
	QuotesSubmitted int64           `json:"quotes_submitted"`
	PackageQuotes   int64           `json:"package_quotes"`
	PromotedQuotes  int64           `json:"promoted_quotes"`
	TotalQuotedGBP  decimal.Decimal `json:"total_quoted_gbp"`
	PeriodStart     string          `json:"period_start"`
	PeriodEnd       string          `json:"period_end"`
}

// statsDB defines the database interface needed by StatsRepository
type statsDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// StatsRepository queries clinic quote metrics from the database.
type StatsRepository struct {
	db statsDB
}

// NewStatsRepository creates a new stats repository.
func NewStatsRepository(pool *pgxpool.Pool) *StatsRepository {
	if pool == nil {
		panic("clinic: pgx pool required for stats")
	}
	return &StatsRepository{db: pool}
}

// NewStatsRepositoryWithDB allows injecting a mock database for testing.
func NewStatsRepositoryWithDB(db statsDB) *StatsRepository {
	return &StatsRepository{db: db}
}

// GetStats retrieves aggregated quote metrics for a clinic.
// Optional start/end times for filtering. If nil, returns all-time stats.
func (r *StatsRepository) GetStats(ctx context.Context, clinicID string, start, end *time.Time) (*Stats, error) {
	stats := &Stats{ClinicID: clinicID, TotalQuotedGBP: decimal.Zero}

	var timeFilter string
	args := []any{clinicID}
	if start != nil && end != nil {
		timeFilter = " AND created_at >= $2 AND created_at < $3"
		args = append(args, *start, *end)
		stats.PeriodStart = start.Format(time.RFC3339)
		stats.PeriodEnd = end.Format(time.RFC3339)
	} else {
		stats.PeriodStart = "all-time"
		stats.PeriodEnd = "now"
	}

	countQuery := `SELECT COUNT(*) FROM quotes WHERE clinic_id = $1` + timeFilter
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&stats.QuotesSubmitted); err != nil {
		return nil, fmt.Errorf("clinic stats: count quotes: %w", err)
	}

	packageQuery := `SELECT COUNT(*) FROM quotes WHERE clinic_id = $1 AND package_id <> ''` + timeFilter
	if err := r.db.QueryRow(ctx, packageQuery, args...).Scan(&stats.PackageQuotes); err != nil {
		return nil, fmt.Errorf("clinic stats: count package quotes: %w", err)
	}

	promotedQuery := `SELECT COUNT(*) FROM quotes WHERE clinic_id = $1 AND source IN ('special_offer', 'promo_token')` + timeFilter
	if err := r.db.QueryRow(ctx, promotedQuery, args...).Scan(&stats.PromotedQuotes); err != nil {
		return nil, fmt.Errorf("clinic stats: count promoted quotes: %w", err)
	}

	var total string
	totalQuery := `SELECT COALESCE(SUM(total_gbp), 0)::text FROM quotes WHERE clinic_id = $1` + timeFilter
	if err := r.db.QueryRow(ctx, totalQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("clinic stats: sum totals: %w", err)
	}
	amount, err := decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("clinic stats: parse total %q: %w", total, err)
	}
	stats.TotalQuotedGBP = amount

	return stats, nil
}

// StatsHandler provides HTTP endpoints for clinic statistics.
type StatsHandler struct {
	repo   *StatsRepository
	logger *logging.Logger
}

// NewStatsHandler creates a new stats HTTP handler.
func NewStatsHandler(repo *StatsRepository, logger *logging.Logger) *StatsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &StatsHandler{
		repo:   repo,
		logger: logger,
	}
}

// GetStats returns quote metrics for the caller's clinic. Callers without a
// clinic in their token (admins) pass ?clinicId=.
// GET /api/portal/clinic/stats
// Query params:
//   - start: RFC3339 timestamp for period start (optional)
//   - end: RFC3339 timestamp for period end (optional)
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := tenancy.ClinicIDFromContext(r.Context())
	if !ok {
		clinicID = strings.TrimSpace(r.URL.Query().Get("clinicId"))
	}
	if clinicID == "" {
		apperr.Write(w, r, h.logger, apperr.New(apperr.CategoryValidation, "clinic id required"))
		return
	}

	var start, end *time.Time
	if s := r.URL.Query().Get("start"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			apperr.Write(w, r, h.logger, apperr.New(apperr.CategoryValidation, "invalid start time, use RFC3339 format"))
			return
		}
		start = &t
	}
	if e := r.URL.Query().Get("end"); e != "" {
		t, err := time.Parse(time.RFC3339, e)
		if err != nil {
			apperr.Write(w, r, h.logger, apperr.New(apperr.CategoryValidation, "invalid end time, use RFC3339 format"))
			return
		}
		end = &t
	}

	// If only one is provided, require both
	if (start == nil) != (end == nil) {
		apperr.Write(w, r, h.logger, apperr.New(apperr.CategoryValidation, "both start and end must be provided, or neither"))
		return
	}

	stats, err := h.repo.GetStats(r.Context(), clinicID, start, end)
	if err != nil {
		apperr.Write(w, r, h.logger, apperr.Wrap(err, apperr.CategoryServer, ""))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		h.logger.Error("failed to encode clinic stats", "clinic_id", clinicID, "error", err)
	}
}
