package offers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/wolfman30/dental-quote-platform/internal/apperr"
	"github.com/wolfman30/dental-quote-platform/internal/tenancy"
	"github.com/wolfman30/dental-quote-platform/pkg/logging"
)

var hundred = decimal.NewFromInt(100)

// Handler serves special offer endpoints.
type Handler struct {
	repo        *Repository
	landingBase string
	logger      *logging.Logger
	now         func() time.Time
}

// NewHandler creates a handler. landingBase is the public site used to build
// offer links.
func NewHandler(repo *Repository, landingBase string, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, landingBase: landingBase, logger: logger, now: time.Now}
}

type offerResponse struct {
	SpecialOffer
	LandingURL string `json:"landingUrl,omitempty"`
}

func (h *Handler) present(o SpecialOffer) offerResponse {
	resp := offerResponse{SpecialOffer: o}
	if h.landingBase != "" {
		resp.LandingURL = o.LandingURL(h.landingBase)
	}
	return resp
}

func (h *Handler) presentAll(list []SpecialOffer) []offerResponse {
	out := make([]offerResponse, 0, len(list))
	for _, o := range list {
		out = append(out, h.present(o))
	}
	return out
}

// PortalRoutes mounts under /api/portal/clinic/special-offers. Callers must
// wrap it with portal auth and a clinic staff role check.
func (h *Handler) PortalRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListMine)
	r.Post("/", h.Create)
	r.Delete("/{offerID}", h.Deactivate)
	return r
}

// Create publishes an offer for the caller's clinic.
// POST /api/portal/clinic/special-offers
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := tenancy.ClinicIDFromContext(r.Context())
	if !ok {
		apperr.Write(w, r, h.logger, apperr.New(apperr.CategoryAuthorization, "clinic account required"))
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.Write(w, r, h.logger, apperr.Wrap(err, apperr.CategoryValidation, "invalid JSON body"))
		return
	}
	if err := apperr.Validate(req); err != nil {
		apperr.Write(w, r, h.logger, err)
		return
	}
	if !req.DiscountValue.IsPositive() {
		apperr.Write(w, r, h.logger, apperr.New(apperr.CategoryValidation, "discount value must be positive").
			WithContext("discountValue", "gt"))
		return
	}
	if req.DiscountType == DiscountPercentage && req.DiscountValue.GreaterThan(hundred) {
		apperr.Write(w, r, h.logger, apperr.New(apperr.CategoryValidation, "percentage discount cannot exceed 100").
			WithContext("discountValue", "lte"))
		return
	}

	start := h.now().UTC()
	if req.StartDate != nil {
		start = req.StartDate.UTC()
	}
	if req.EndDate != nil && !req.EndDate.After(start) {
		apperr.Write(w, r, h.logger, apperr.New(apperr.CategoryValidation, "end date must be after start date").
			WithContext("endDate", "gtfield"))
		return
	}

	treatments := make([]string, 0, len(req.Treatments))
	for _, t := range req.Treatments {
		if t = strings.TrimSpace(t); t != "" {
			treatments = append(treatments, t)
		}
	}

	offer := SpecialOffer{
		ClinicID:      clinicID,
		Title:         strings.TrimSpace(req.Title),
		Description:   strings.TrimSpace(req.Description),
		DiscountType:  req.DiscountType,
		DiscountValue: req.DiscountValue,
		Treatments:    treatments,
		StartDate:     start,
		EndDate:       req.EndDate,
		Active:        true,
	}
	if err := h.repo.Create(r.Context(), &offer); err != nil {
		apperr.Write(w, r, h.logger, apperr.Wrap(err, apperr.CategoryServer, ""))
		return
	}
	h.logger.Info("special offer created", "clinic_id", clinicID, "offer_id", offer.ID)

	writeJSON(w, h.logger, http.StatusCreated, h.present(offer))
}

// ListMine lists every offer of the caller's clinic, inactive ones included.
// GET /api/portal/clinic/special-offers
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := tenancy.ClinicIDFromContext(r.Context())
	if !ok {
		apperr.Write(w, r, h.logger, apperr.New(apperr.CategoryAuthorization, "clinic account required"))
		return
	}
	list, err := h.repo.ListByClinic(r.Context(), clinicID)
	if err != nil {
		apperr.Write(w, r, h.logger, apperr.Wrap(err, apperr.CategoryServer, ""))
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]any{"offers": h.presentAll(list)})
}

// Deactivate switches off one of the caller's offers.
// DELETE /api/portal/clinic/special-offers/{offerID}
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := tenancy.ClinicIDFromContext(r.Context())
	if !ok {
		apperr.Write(w, r, h.logger, apperr.New(apperr.CategoryAuthorization, "clinic account required"))
		return
	}
	id := chi.URLParam(r, "offerID")
	err := h.repo.Deactivate(r.Context(), clinicID, id)
	switch {
	case errors.Is(err, ErrNotFound):
		apperr.Write(w, r, h.logger, apperr.Wrap(err, apperr.CategoryClient, "special offer not found").WithStatus(http.StatusNotFound))
	case err != nil:
		apperr.Write(w, r, h.logger, apperr.Wrap(err, apperr.CategoryServer, ""))
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// ListPublic lists offers that are currently running.
// GET /api/special-offers?clinicId=
func (h *Handler) ListPublic(w http.ResponseWriter, r *http.Request) {
	clinicID := strings.TrimSpace(r.URL.Query().Get("clinicId"))
	list, err := h.repo.ListActive(r.Context(), clinicID, h.now().UTC())
	if err != nil {
		apperr.Write(w, r, h.logger, apperr.Wrap(err, apperr.CategoryServer, ""))
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]any{"offers": h.presentAll(list)})
}

// GetPublic returns one running offer. Expired or switched-off offers are
// reported as not found so stale landing links fall back to a normal quote.
// GET /api/special-offers/{offerID}
func (h *Handler) GetPublic(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "offerID"))
	offer, err := h.repo.Get(r.Context(), id)
	if err == nil && !offer.ActiveAt(h.now().UTC()) {
		err = ErrNotFound
	}
	switch {
	case errors.Is(err, ErrNotFound):
		apperr.Write(w, r, h.logger, apperr.Wrap(err, apperr.CategoryClient, "special offer not found").WithStatus(http.StatusNotFound))
	case err != nil:
		apperr.Write(w, r, h.logger, apperr.Wrap(err, apperr.CategoryServer, ""))
	default:
		writeJSON(w, h.logger, http.StatusOK, h.present(offer))
	}
}

func writeJSON(w http.ResponseWriter, logger *logging.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}
