package clinic

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/dental-quote-platform/internal/apperr"
	"github.com/wolfman30/dental-quote-platform/internal/catalog"
	"github.com/wolfman30/dental-quote-platform/pkg/logging"
)

// Handler provides the public clinic endpoints.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a clinic HTTP handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Routes returns a chi router with the clinic routes, mounted under /api/clinics.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListClinics)
	r.Get("/{clinicID}", h.GetClinic)
	return r
}

// ListClinics returns partner clinics ordered by tier.
// GET /api/clinics?tier=premium
func (h *Handler) ListClinics(w http.ResponseWriter, r *http.Request) {
	tier := catalog.Tier(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("tier"))))
	if tier != "" && !tier.Valid() {
		apperr.Write(w, r, h.logger, apperr.New(apperr.CategoryValidation, "unknown tier").WithContext("tier", string(tier)))
		return
	}

	clinics, err := h.service.ListClinics(r.Context(), tier)
	if err != nil {
		apperr.Write(w, r, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"clinics": clinics}); err != nil {
		h.logger.Error("failed to encode clinics", "error", err)
	}
}

// GetClinic returns one clinic.
// GET /api/clinics/{clinicID}
func (h *Handler) GetClinic(w http.ResponseWriter, r *http.Request) {
	clinicID := strings.TrimSpace(chi.URLParam(r, "clinicID"))
	if clinicID == "" {
		apperr.Write(w, r, h.logger, apperr.New(apperr.CategoryValidation, "clinic id required"))
		return
	}

	c, err := h.service.FetchClinic(r.Context(), clinicID)
	if err != nil {
		apperr.Write(w, r, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(c); err != nil {
		h.logger.Error("failed to encode clinic", "clinic_id", clinicID, "error", err)
	}
}
