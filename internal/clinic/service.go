package clinic

import (
	"context"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/dental-quote-platform/internal/apperr"
	"github.com/wolfman30/dental-quote-platform/internal/catalog"
	"github.com/wolfman30/dental-quote-platform/pkg/logging"
)

var clinicTracer = otel.Tracer("dentalquote/clinic")

// Service resolves clinics for the quote flow and the public API.
type Service struct {
	repo   Repository
	logger *logging.Logger
}

// NewService creates a clinic service.
func NewService(repo Repository, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// FetchClinic returns the clinic with id. Unknown ids are client errors.
func (s *Service) FetchClinic(ctx context.Context, id string) (*catalog.Clinic, error) {
	ctx, span := clinicTracer.Start(ctx, "clinic.fetch")
	defer span.End()
	span.SetAttributes(attribute.String("clinic.id", id))

	c, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		span.SetStatus(codes.Error, "not found")
		return nil, apperr.Wrap(err, apperr.CategoryClient, "Clinic not found").WithStatus(http.StatusNotFound).WithContext("clinicId", id)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		return nil, apperr.Wrap(err, apperr.CategoryServer, "")
	}
	return c, nil
}

// ListClinics returns every clinic, optionally restricted to one tier.
func (s *Service) ListClinics(ctx context.Context, tier catalog.Tier) ([]catalog.Clinic, error) {
	clinics, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CategoryServer, "")
	}
	if tier == "" {
		return clinics, nil
	}
	out := make([]catalog.Clinic, 0, len(clinics))
	for _, c := range clinics {
		if c.Tier == tier {
			out = append(out, c)
		}
	}
	return out, nil
}
