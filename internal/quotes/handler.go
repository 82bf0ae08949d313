package quotes

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/dental-quote-platform/internal/apperr"
	"github.com/wolfman30/dental-quote-platform/pkg/logging"
)

// Handler serves the quotes API.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a quotes handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Routes mounts under /api/quotes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/compare", h.Compare)
	r.Post("/", h.Submit)
	r.Get("/{quoteID}", h.Get)
	return r
}

// Compare returns per-clinic pricing for a plan.
// POST /api/quotes/compare
func (h *Handler) Compare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if !h.decode(w, r, &req) {
		return
	}
	cmp, err := h.service.Compare(r.Context(), req)
	if err != nil {
		apperr.Write(w, r, h.logger, err)
		return
	}
	h.writeJSON(w, http.StatusOK, cmp)
}

// Submit prices and stores a quote for the chosen clinic.
// POST /api/quotes
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if !h.decode(w, r, &req) {
		return
	}
	q, err := h.service.Submit(r.Context(), req)
	if err != nil {
		apperr.Write(w, r, h.logger, err)
		return
	}
	w.Header().Set("Location", "/api/quotes/"+q.ID)
	h.writeJSON(w, http.StatusCreated, q)
}

// Get returns a stored quote.
// GET /api/quotes/{quoteID}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	q, err := h.service.Get(r.Context(), chi.URLParam(r, "quoteID"))
	if err != nil {
		apperr.Write(w, r, h.logger, err)
		return
	}
	h.writeJSON(w, http.StatusOK, q)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		apperr.Write(w, r, h.logger, apperr.Wrap(err, apperr.CategoryValidation, "invalid JSON body"))
		return false
	}
	if err := apperr.Validate(dst); err != nil {
		apperr.Write(w, r, h.logger, err)
		return false
	}
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}
