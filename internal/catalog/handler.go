package catalog

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/dental-quote-platform/internal/apperr"
	"github.com/wolfman30/dental-quote-platform/pkg/logging"
)

// Handler serves the treatment catalog.
type Handler struct {
	catalog *Catalog
	logger  *logging.Logger
}

// NewHandler creates a catalog handler.
func NewHandler(cat *Catalog, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{catalog: cat, logger: logger}
}

// Routes mounts under /api/treatments.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListTreatments)
	r.Get("/compare", h.CompareClinics)
	r.Get("/{name}/variants", h.Variants)
	return r
}

// ListTreatments lists treatments, optionally for one ?category=.
// GET /api/treatments
func (h *Handler) ListTreatments(w http.ResponseWriter, r *http.Request) {
	list := h.catalog.Treatments()
	if category := strings.TrimSpace(r.URL.Query().Get("category")); category != "" {
		list = h.catalog.TreatmentsInCategory(category)
	}
	h.writeJSON(w, map[string]any{
		"categories": h.catalog.Categories(),
		"treatments": list,
	})
}

type variantView struct {
	Variant
	ClinicName string      `json:"clinicName,omitempty"`
	Price      *PriceRange `json:"price,omitempty"`
}

// Variants lists how each clinic offers one treatment. Unparseable price
// strings are returned without a parsed price.
// GET /api/treatments/{name}/variants
func (h *Handler) Variants(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		apperr.Write(w, r, h.logger, apperr.Wrap(err, apperr.CategoryValidation, "invalid treatment name"))
		return
	}
	t, ok := h.catalog.Lookup(name)
	if !ok {
		apperr.Write(w, r, h.logger, apperr.New(apperr.CategoryClient, "Treatment not found").
			WithStatus(http.StatusNotFound).WithContext("name", name))
		return
	}
	out := make([]variantView, 0, len(t.Variants))
	for _, v := range t.Variants {
		view := variantView{Variant: v}
		if c, ok := h.catalog.Clinic(v.ClinicID); ok {
			view.ClinicName = c.Name
		}
		if p := v.Price(); p.Valid() {
			view.Price = &p
		}
		out = append(out, view)
	}
	h.writeJSON(w, map[string]any{
		"treatment":  t.Name,
		"category":   t.Category,
		"ukPriceGBP": t.UKPriceGBP,
		"variants":   out,
	})
}

// CompareClinics lays ?name= treatments (repeatable, "name:qty" for a
// quantity) against ?clinicId= clinics, or every clinic.
// GET /api/treatments/compare
func (h *Handler) CompareClinics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	names := q["name"]
	if len(names) == 0 {
		apperr.Write(w, r, h.logger, apperr.New(apperr.CategoryValidation, "at least one name is required"))
		return
	}
	items := make([]PlanItem, 0, len(names))
	for _, n := range names {
		items = append(items, ParsePlanItem(n))
	}
	h.writeJSON(w, map[string]any{"comparisons": h.catalog.Compare(items, q["clinicId"])})
}

// ParsePlanItem reads "Name:qty". A missing or invalid quantity is 1.
func ParsePlanItem(s string) PlanItem {
	name, qty, found := strings.Cut(s, ":")
	item := PlanItem{Name: strings.TrimSpace(name), Quantity: 1}
	if found {
		if n, err := strconv.Atoi(strings.TrimSpace(qty)); err == nil && n > 0 {
			item.Quantity = n
		}
	}
	return item
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}
