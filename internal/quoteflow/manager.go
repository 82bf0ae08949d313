package quoteflow

import (
	"context"
	"net/url"
	"slices"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/wolfman30/dental-quote-platform/internal/catalog"
	"github.com/wolfman30/dental-quote-platform/internal/observability/metrics"
	"github.com/wolfman30/dental-quote-platform/internal/pricing"
	"github.com/wolfman30/dental-quote-platform/pkg/logging"
)

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// IdleTTL evicts flows not touched for this long. Zero means two hours.
	IdleTTL      time.Duration
	FetchTimeout time.Duration
	// Metrics is optional.
	Metrics *metrics.QuoteMetrics
}

// Manager maps session ids to flows.
type Manager struct {
	flows   *gocache.Cache
	mu      sync.Mutex
	fetcher ClinicFetcher
	mirror  Mirror
	logger  *logging.Logger
	cfg     ManagerConfig
}

// NewManager creates a Manager. mirror may be nil.
func NewManager(fetcher ClinicFetcher, mirror Mirror, logger *logging.Logger, cfg ManagerConfig) *Manager {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 2 * time.Hour
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if fetcher != nil && cfg.Metrics != nil {
		inner, m := fetcher, cfg.Metrics
		fetcher = ClinicFetcherFunc(func(ctx context.Context, id string) (*catalog.Clinic, error) {
			c, err := inner.FetchClinic(ctx, id)
			m.ObserveClinicFetch(err)
			return c, err
		})
	}
	return &Manager{
		flows:   gocache.New(cfg.IdleTTL, cfg.IdleTTL/2),
		fetcher: fetcher,
		mirror:  mirror,
		logger:  logger.WithComponent("quoteflow"),
		cfg:     cfg,
	}
}

// Flow returns the session's flow, creating it on first use. Each call
// extends the idle expiry.
func (m *Manager) Flow(sessionID string) *Flow {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.flows.Get(sessionID); ok {
		f := v.(*Flow)
		m.flows.SetDefault(sessionID, f)
		return f
	}
	logger := &logging.Logger{Logger: m.logger.With("session_id", sessionID)}
	f := NewFlow(m.fetcher, logger, WithFetchTimeout(m.cfg.FetchTimeout))
	m.flows.SetDefault(sessionID, f)
	return f
}

// Lookup returns the session's flow without creating one.
func (m *Manager) Lookup(sessionID string) (*Flow, bool) {
	v, ok := m.flows.Get(sessionID)
	if !ok {
		return nil, false
	}
	return v.(*Flow), true
}

// Initialize parses q, fills gaps from the session mirror and initializes the
// session's flow. A flow with no treatments gets the mirrored plan back.
func (m *Manager) Initialize(ctx context.Context, sessionID string, q url.Values, onError func(error)) (*Flow, State) {
	params := ParseParams(q)
	if m.mirror != nil {
		pending, err := m.mirror.LoadPending(ctx, sessionID)
		if err != nil {
			m.logger.Warn("session mirror unavailable", "session_id", sessionID, "error", err)
		} else {
			params = params.WithFallback(pending)
		}
	}
	f := m.Flow(sessionID)
	st := f.Initialize(ctx, params, onError)
	if len(st.TreatmentData) == 0 {
		if plan := m.loadPlan(ctx, sessionID); len(plan) > 0 {
			f.SetTreatmentData(plan)
			st = f.Snapshot()
		}
	}
	m.cfg.Metrics.ObserveFlowInitialized(string(st.Source))
	m.Persist(ctx, sessionID, st)
	return f, st
}

// loadPlan returns the mirrored treatments without synthetic offer, package
// or promo lines, which the flow re-derives from its own source.
func (m *Manager) loadPlan(ctx context.Context, sessionID string) []pricing.LineItem {
	if m.mirror == nil {
		return nil
	}
	plan, err := m.mirror.LoadTreatmentPlan(ctx, sessionID)
	if err != nil {
		m.logger.Warn("mirrored treatment plan unavailable", "session_id", sessionID, "error", err)
		return nil
	}
	return slices.DeleteFunc(plan, func(l pricing.LineItem) bool {
		return l.IsSpecialOffer || l.IsPackage || l.PromoToken != ""
	})
}

// Persist copies st into the session mirror. Failures are logged.
func (m *Manager) Persist(ctx context.Context, sessionID string, st State) {
	if m.mirror == nil {
		return
	}
	if err := m.mirror.Save(ctx, sessionID, st); err != nil {
		m.logger.Warn("session mirror save failed", "session_id", sessionID, "error", err)
	}
}

// Reset starts the session's flow over and clears its mirror.
func (m *Manager) Reset(ctx context.Context, sessionID string) {
	if f, ok := m.Lookup(sessionID); ok {
		f.Reset()
	}
	if m.mirror == nil {
		return
	}
	if err := m.mirror.Clear(ctx, sessionID); err != nil {
		m.logger.Warn("session mirror clear failed", "session_id", sessionID, "error", err)
	}
}

// Count returns the number of live flows.
func (m *Manager) Count() int {
	return m.flows.ItemCount()
}
