package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/dental-quote-platform/internal/apperr"
	"github.com/wolfman30/dental-quote-platform/internal/archive"
	"github.com/wolfman30/dental-quote-platform/internal/catalog"
	"github.com/wolfman30/dental-quote-platform/internal/events"
	"github.com/wolfman30/dental-quote-platform/internal/notify"
	"github.com/wolfman30/dental-quote-platform/internal/observability/metrics"
	"github.com/wolfman30/dental-quote-platform/internal/pricing"
	"github.com/wolfman30/dental-quote-platform/internal/quoteflow"
	"github.com/wolfman30/dental-quote-platform/pkg/logging"
)

var quoteTracer = otel.Tracer("dentalquote/quotes")

// DefaultSideEffectTimeout bounds each post-submission step.
const DefaultSideEffectTimeout = 5 * time.Second

// ClinicDirectory resolves partner clinics.
type ClinicDirectory interface {
	FetchClinic(ctx context.Context, id string) (*catalog.Clinic, error)
	ListClinics(ctx context.Context, tier catalog.Tier) ([]catalog.Clinic, error)
}

// Archiver stores an immutable copy of a submitted quote.
type Archiver interface {
	ArchiveQuote(ctx context.Context, record *archive.QuoteRecord) (string, error)
}

// Notifier tells the patient and operations team about a quote.
type Notifier interface {
	NotifyQuoteSubmitted(ctx context.Context, n notify.QuoteNotice) error
}

// Deps wires a Service. Flows, Archive, Events, Notifier and Metrics are
// optional.
type Deps struct {
	Store             Store
	Catalog           *catalog.Catalog
	Clinics           ClinicDirectory
	Flows             *quoteflow.Manager
	Archive           Archiver
	Events            events.Publisher
	Notifier          Notifier
	Metrics           *metrics.QuoteMetrics
	USDRate           decimal.Decimal
	SideEffectTimeout time.Duration
	Logger            *logging.Logger
}

// Service prices and records quotes.
type Service struct {
	deps   Deps
	logger *logging.Logger
	now    func() time.Time
}

// NewService creates a quote service.
func NewService(deps Deps) *Service {
	if deps.Store == nil || deps.Catalog == nil || deps.Clinics == nil {
		panic("quotes: store, catalog and clinics are required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	if deps.USDRate.IsZero() {
		deps.USDRate = pricing.DefaultUSDRate
	}
	if deps.SideEffectTimeout <= 0 {
		deps.SideEffectTimeout = DefaultSideEffectTimeout
	}
	return &Service{deps: deps, logger: deps.Logger.WithComponent("quotes"), now: time.Now}
}

// flowState returns the session's flow state, or a state built from params
// when the session has none.
func (s *Service) flowState(ctx context.Context, sessionID string, params map[string]string) (quoteflow.State, *quoteflow.Flow) {
	if sessionID != "" && s.deps.Flows != nil {
		if f, ok := s.deps.Flows.Lookup(sessionID); ok {
			return f.Snapshot(), f
		}
	}
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	return quoteflow.NewFlow(nil, s.logger).Initialize(ctx, quoteflow.ParseParams(q), nil), nil
}

func (s *Service) lines(reqs []TreatmentRequest) ([]pricing.LineItem, error) {
	lines, unknown := pricing.LinesFromPlan(s.deps.Catalog, planItems(reqs), s.deps.USDRate)
	if len(unknown) > 0 {
		return nil, apperr.New(apperr.CategoryValidation, "Unknown treatments").WithContext("unknown", unknown)
	}
	return lines, nil
}

// Compare prices the plan at every clinic, premium tier first.
func (s *Service) Compare(ctx context.Context, req CompareRequest) (*Comparison, error) {
	ctx, span := quoteTracer.Start(ctx, "quotes.compare")
	defer span.End()

	lines, err := s.lines(req.Treatments)
	if err != nil {
		return nil, err
	}
	st, _ := s.flowState(ctx, req.SessionID, req.Params)
	lines = quoteflow.ProcessSpecialOffers(st, lines)

	clinics, err := s.deps.Clinics.ListClinics(ctx, catalog.Tier(req.Tier))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list clinics failed")
		return nil, err
	}
	results := pricing.CompareClinics(clinics, lines, pricing.Options{Package: st.PackageDeal(), USDRate: s.deps.USDRate})
	slices.SortStableFunc(results, func(a, b pricing.Result) int {
		return a.Tier.Rank() - b.Tier.Rank()
	})
	span.SetAttributes(attribute.Int("quotes.clinics", len(results)), attribute.String("quotes.source", string(st.Source)))
	return &Comparison{Source: string(st.Source), Lines: lines, Results: results}, nil
}

// Submit prices the plan for the chosen clinic and persists it. Archive,
// event and email steps run after the quote is stored; their failures are
// logged and never returned.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*Quote, error) {
	ctx, span := quoteTracer.Start(ctx, "quotes.submit")
	defer span.End()
	span.SetAttributes(attribute.String("quotes.clinic_id", req.ClinicID))

	lines, err := s.lines(req.Treatments)
	if err != nil {
		return nil, err
	}
	st, flow := s.flowState(ctx, req.SessionID, req.Params)
	st.SelectedClinicID = req.ClinicID
	lines = quoteflow.ProcessSpecialOffers(st, lines)

	clinic, err := s.deps.Clinics.FetchClinic(ctx, req.ClinicID)
	if err != nil {
		return nil, err
	}
	res := pricing.PriceForClinic(*clinic, lines, pricing.Options{Package: st.PackageDeal(), USDRate: s.deps.USDRate})

	q := &Quote{
		ID:        uuid.NewString(),
		SessionID: req.SessionID,
		Patient: Patient{
			Name:        req.Patient.Name,
			Email:       req.Patient.Email,
			Phone:       req.Patient.Phone,
			Country:     req.Patient.Country,
			TravelMonth: req.Patient.TravelMonth,
		},
		ClinicID:       clinic.ID,
		ClinicName:     clinic.Name,
		Source:         string(st.Source),
		Lines:          res.Lines,
		Total:          res.Total,
		TotalUSD:       res.TotalUSD,
		UKTotal:        res.UKTotal,
		Savings:        res.Savings,
		SavingsPercent: res.SavingsPercent,
		PackageApplied: res.PackageApplied,
		CreatedAt:      s.now().UTC(),
	}
	if st.PackageData != nil {
		q.PackageID = st.PackageData.ID
	}
	if st.SpecialOffer != nil {
		q.OfferID = st.SpecialOffer.ID
	}
	if st.PromoTokenData != nil {
		q.PromoToken = st.PromoTokenData.Token
	}

	if err := s.deps.Store.Create(ctx, q); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		return nil, apperr.Wrap(err, apperr.CategoryServer, "")
	}
	span.SetAttributes(attribute.String("quotes.id", q.ID))
	s.deps.Metrics.ObserveSubmitted(q.Source, string(clinic.Tier), q.Total.InexactFloat64())
	s.logger.Info("quote submitted",
		"quote_id", q.ID,
		"clinic_id", q.ClinicID,
		"source", q.Source,
		"total_gbp", q.Total.String(),
	)

	if flow != nil {
		flow.SetPatientData(quoteflow.PatientData{
			Name:        req.Patient.Name,
			Email:       req.Patient.Email,
			Phone:       req.Patient.Phone,
			Country:     req.Patient.Country,
			TravelMonth: req.Patient.TravelMonth,
			Notes:       req.Patient.Notes,
		})
		_ = flow.GoToStep(quoteflow.StepConfirm)
		s.deps.Flows.Persist(ctx, req.SessionID, flow.Snapshot())
	}

	s.afterSubmit(ctx, q, req.Patient.Notes)
	return q, nil
}

func (s *Service) afterSubmit(ctx context.Context, q *Quote, notes string) {
	base := context.WithoutCancel(ctx)
	run := func(effect string, fn func(context.Context) error) {
		ectx, cancel := context.WithTimeout(base, s.deps.SideEffectTimeout)
		defer cancel()
		err := fn(ectx)
		s.deps.Metrics.ObserveSideEffect(effect, err)
		if err != nil {
			s.logger.Warn("quote side effect failed", "effect", effect, "quote_id", q.ID, "error", err)
		}
	}

	if s.deps.Archive != nil {
		run("archive", func(ctx context.Context) error {
			body, err := json.Marshal(q)
			if err != nil {
				return err
			}
			_, err = s.deps.Archive.ArchiveQuote(ctx, &archive.QuoteRecord{
				QuoteID:   q.ID,
				ClinicID:  q.ClinicID,
				Source:    q.Source,
				EmailHash: archive.HashEmail(q.Patient.Email),
				LineCount: len(q.Lines),
				TotalGBP:  q.Total,
				Notes:     notes,
				Quote:     body,
			})
			return err
		})
	}

	if s.deps.Events != nil {
		run("event", func(ctx context.Context) error {
			_, err := s.deps.Events.Publish(ctx, "quote:"+q.ID, q.SessionID, events.QuoteSubmittedV1{
				QuoteID:      q.ID,
				SessionID:    q.SessionID,
				ClinicID:     q.ClinicID,
				Source:       q.Source,
				PackageID:    q.PackageID,
				PatientEmail: q.Patient.Email,
				TotalGBP:     q.Total,
				SavingsGBP:   q.Savings,
				LineCount:    len(q.Lines),
				SubmittedAt:  q.CreatedAt,
			})
			return err
		})
	}

	if s.deps.Notifier != nil {
		run("email", func(ctx context.Context) error {
			notice := notify.QuoteNotice{
				QuoteID:      q.ID,
				PatientName:  q.Patient.Name,
				PatientEmail: q.Patient.Email,
				PatientPhone: q.Patient.Phone,
				ClinicName:   q.ClinicName,
				Source:       q.Source,
				Total:        q.Total,
				UKTotal:      q.UKTotal,
				Savings:      q.Savings,
				SubmittedAt:  q.CreatedAt,
			}
			for _, l := range q.Lines {
				notice.Lines = append(notice.Lines, notify.QuoteLine{Name: l.Name, Quantity: l.Quantity, Subtotal: l.Subtotal})
			}
			return s.deps.Notifier.NotifyQuoteSubmitted(ctx, notice)
		})
	}
}

// Get returns a stored quote.
func (s *Service) Get(ctx context.Context, id string) (*Quote, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperr.New(apperr.CategoryValidation, "invalid quote id")
	}
	q, err := s.deps.Store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.Wrap(err, apperr.CategoryClient, "Quote not found").WithStatus(http.StatusNotFound)
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CategoryServer, "")
	}
	return q, nil
}
