// Package quoteflow tracks where a patient is in the quote flow and how they
// arrived there (organic, special offer, package or promo token).
package quoteflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/dental-quote-platform/internal/catalog"
	"github.com/wolfman30/dental-quote-platform/internal/pricing"
	"github.com/wolfman30/dental-quote-platform/pkg/logging"
)

var flowTracer = otel.Tracer("dentalquote/quoteflow")

// DefaultFetchTimeout bounds the background clinic lookup.
const DefaultFetchTimeout = 10 * time.Second

// ClinicFetcher resolves a clinic id into its full record.
type ClinicFetcher interface {
	FetchClinic(ctx context.Context, id string) (*catalog.Clinic, error)
}

// ClinicFetcherFunc adapts a function into a ClinicFetcher.
type ClinicFetcherFunc func(ctx context.Context, id string) (*catalog.Clinic, error)

// FetchClinic calls f.
func (f ClinicFetcherFunc) FetchClinic(ctx context.Context, id string) (*catalog.Clinic, error) {
	return f(ctx, id)
}

// Flow holds one session's quote flow. All methods are safe for concurrent use.
type Flow struct {
	mu    sync.RWMutex
	state State
	// generation increments on reset so a late clinic fetch cannot write into
	// a flow that was started over.
	generation uint64

	// inflight counts running clinic fetches; idle is closed when it
	// drops to zero.
	inflight int
	idle     chan struct{}

	fetcher      ClinicFetcher
	fetchTimeout time.Duration
	logger       *logging.Logger
}

// FlowOption configures a Flow.
type FlowOption func(*Flow)

// WithFetchTimeout overrides DefaultFetchTimeout.
func WithFetchTimeout(d time.Duration) FlowOption {
	return func(f *Flow) {
		if d > 0 {
			f.fetchTimeout = d
		}
	}
}

// NewFlow returns a flow at the start step with a normal source.
func NewFlow(fetcher ClinicFetcher, logger *logging.Logger, opts ...FlowOption) *Flow {
	if logger == nil {
		logger = logging.Default()
	}
	f := &Flow{
		state:        defaultState(),
		fetcher:      fetcher,
		fetchTimeout: DefaultFetchTimeout,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Snapshot returns a copy of the current state.
func (f *Flow) Snapshot() State {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state.clone()
}

// CurrentStep returns the step the patient is on.
func (f *Flow) CurrentStep() Step {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state.CurrentStep
}

// GoToNextStep advances one step. It does nothing at confirm.
func (f *Flow) GoToNextStep() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	if next, ok := nextStep[f.state.CurrentStep]; ok {
		f.state.CurrentStep = next
	}
	return f.state.CurrentStep
}

// GoToPreviousStep goes back one step. It does nothing at start.
func (f *Flow) GoToPreviousStep() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	if prev, ok := prevStep[f.state.CurrentStep]; ok {
		f.state.CurrentStep = prev
	}
	return f.state.CurrentStep
}

// GoToStep jumps directly to step.
func (f *Flow) GoToStep(step Step) error {
	if !step.Valid() {
		return fmt.Errorf("quoteflow: unknown step %q", step)
	}
	f.mu.Lock()
	f.state.CurrentStep = step
	f.mu.Unlock()
	return nil
}

// SetPatientData stores the info step's answers.
func (f *Flow) SetPatientData(p PatientData) {
	f.mu.Lock()
	f.state.PatientData = &p
	f.mu.Unlock()
}

// SetTreatmentData replaces the treatment plan with the flow's synthetic
// offer, package or promo line applied.
func (f *Flow) SetTreatmentData(lines []pricing.LineItem) []pricing.LineItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.TreatmentData = ProcessSpecialOffers(f.state, lines)
	return f.state.TreatmentData
}

// SelectClinic records the patient's chosen clinic and fetches its record.
func (f *Flow) SelectClinic(ctx context.Context, clinicID string, onError func(error)) {
	f.mu.Lock()
	if f.state.SelectedClinicID != clinicID {
		f.state.SelectedClinic = nil
	}
	f.state.SelectedClinicID = clinicID
	gen := f.generation
	fetch := clinicID != "" && f.trackFetchLocked()
	f.mu.Unlock()
	if fetch {
		f.fetchClinic(ctx, gen, clinicID, onError)
	}
}

// Initialize applies URL parameters to the flow. IsQuoteInitialized is set
// before the clinic fetch completes; use WaitForClinic to observe the result.
// At most one clinic fetch is started per call.
//
// The source and its offer, package or promo data are fixed by the first
// call. Later calls before Reset only move the step and the selected clinic.
func (f *Flow) Initialize(ctx context.Context, p Params, onError func(error)) State {
	_, span := flowTracer.Start(ctx, "quoteflow.initialize")
	defer span.End()

	f.mu.Lock()
	st := f.state
	reinit := st.IsQuoteInitialized
	if !reinit {
		applySource(&st, p)
		st.SkipInfo = p.SkipInfo
		st.Enhanced = p.Enhanced
	}

	if step, err := ParseStep(p.Step); err == nil {
		st.CurrentStep = step
	} else if !reinit && p.SkipInfo && st.CurrentStep == StepStart {
		st.CurrentStep = StepDetails
	}

	if p.ClinicID != "" && p.ClinicID != st.SelectedClinicID {
		st.SelectedClinic = nil
	}
	if p.ClinicID != "" {
		st.SelectedClinicID = p.ClinicID
	}
	st.IsQuoteInitialized = true
	f.state = st
	gen := f.generation
	fetch := p.ClinicID != "" && f.trackFetchLocked()
	snapshot := f.state.clone()
	f.mu.Unlock()

	span.SetAttributes(
		attribute.String("quoteflow.source", string(snapshot.Source)),
		attribute.String("quoteflow.step", string(snapshot.CurrentStep)),
		attribute.String("quoteflow.clinic_id", p.ClinicID),
		attribute.Bool("quoteflow.reinitialized", reinit),
	)
	f.logger.Debug("quote flow initialized",
		"source", snapshot.Source,
		"step", snapshot.CurrentStep,
		"clinic_id", p.ClinicID,
		"reinitialized", reinit,
	)

	if fetch {
		f.fetchClinic(ctx, gen, p.ClinicID, onError)
	}
	return snapshot
}

// applySource sets the source and its offer, package or promo data from p.
func applySource(st *State, p Params) {
	source := p.resolveSource()
	st.Source = source
	st.SpecialOffer = nil
	st.PackageData = nil
	st.PromoTokenData = nil

	owner := p.FlowClinicID
	if owner == "" {
		owner = p.ClinicID
	}
	switch source {
	case SourceSpecialOffer:
		title := p.OfferTitle
		if title == "" {
			title = "Special Offer"
		}
		discountType := p.OfferDiscountType
		if discountType == "" {
			discountType = "percentage"
		}
		st.SpecialOffer = &SpecialOffer{
			ID:            p.OfferID,
			Title:         title,
			ClinicID:      owner,
			DiscountType:  discountType,
			DiscountValue: parseAmount(p.OfferDiscountValue),
		}
	case SourcePackage:
		st.PackageData = &PackageData{ID: p.PackageID, Title: p.PackageTitle, ClinicID: owner}
	case SourcePromoToken:
		st.PromoTokenData = &PromoTokenData{
			Token:         p.PromoToken,
			Type:          p.PromoType,
			Title:         p.PromoTitle,
			ClinicID:      p.ClinicID,
			DiscountType:  p.OfferDiscountType,
			DiscountValue: parseAmount(p.OfferDiscountValue),
		}
	}
}

// trackFetchLocked registers a clinic fetch about to start and reports
// whether one should. f.mu must be held.
func (f *Flow) trackFetchLocked() bool {
	if f.fetcher == nil {
		return false
	}
	if f.inflight == 0 {
		f.idle = make(chan struct{})
	}
	f.inflight++
	return true
}

func (f *Flow) finishFetch() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inflight--
	if f.inflight == 0 {
		close(f.idle)
	}
}

// fetchClinic resolves clinicID in the background. The fetch outlives ctx's
// cancellation but is bounded by the flow's fetch timeout. The caller must
// have registered it with trackFetchLocked.
func (f *Flow) fetchClinic(ctx context.Context, gen uint64, clinicID string, onError func(error)) {
	go func() {
		defer f.finishFetch()

		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.fetchTimeout)
		defer cancel()
		fetchCtx, span := flowTracer.Start(fetchCtx, "quoteflow.fetch_clinic")
		defer span.End()
		span.SetAttributes(attribute.String("quoteflow.clinic_id", clinicID))

		clinic, err := f.fetcher.FetchClinic(fetchCtx, clinicID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "clinic fetch failed")
			f.logger.Warn("clinic fetch failed", "clinic_id", clinicID, "error", err)
			if onError != nil {
				onError(fmt.Errorf("quoteflow: fetch clinic %s: %w", clinicID, err))
			}
			return
		}
		if clinic == nil {
			return
		}

		f.mu.Lock()
		defer f.mu.Unlock()
		if f.generation != gen || f.state.SelectedClinicID != clinicID {
			f.logger.Debug("discarding stale clinic fetch", "clinic_id", clinicID)
			return
		}
		c := *clinic
		f.state.SelectedClinic = &c
	}()
}

// WaitForClinic blocks until the clinic fetches in flight when it is called
// have finished or ctx is done, then returns the selected clinic, if any.
func (f *Flow) WaitForClinic(ctx context.Context) (*catalog.Clinic, error) {
	f.mu.RLock()
	busy, idle := f.inflight > 0, f.idle
	f.mu.RUnlock()
	if busy {
		select {
		case <-idle:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.state.SelectedClinic == nil {
		return nil, nil
	}
	c := *f.state.SelectedClinic
	return &c, nil
}

// Reset returns the flow to its initial state.
func (f *Flow) Reset() {
	f.mu.Lock()
	f.state = defaultState()
	f.generation++
	f.mu.Unlock()
}

func parseAmount(raw string) decimal.Decimal {
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}
