package quoteflow

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/wolfman30/dental-quote-platform/internal/apperr"
	"github.com/wolfman30/dental-quote-platform/internal/catalog"
	"github.com/wolfman30/dental-quote-platform/internal/pricing"
	"github.com/wolfman30/dental-quote-platform/pkg/logging"
)

// Handler exposes session quote flows over HTTP.
type Handler struct {
	manager *Manager
	catalog *catalog.Catalog
	usdRate decimal.Decimal
	logger  *logging.Logger
}

// NewHandler creates a quote flow handler.
func NewHandler(manager *Manager, cat *catalog.Catalog, usdRate decimal.Decimal, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{manager: manager, catalog: cat, usdRate: usdRate, logger: logger}
}

// Routes returns the quote flow routes, mounted under /api/quote-flow.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/{sessionID}", func(r chi.Router) {
		r.Get("/", h.GetFlow)
		r.Delete("/", h.ResetFlow)
		r.Post("/init", h.InitFlow)
		r.Post("/next", h.NextStep)
		r.Post("/previous", h.PreviousStep)
		r.Put("/step", h.SetStep)
		r.Put("/patient", h.SetPatient)
		r.Put("/treatments", h.SetTreatments)
		r.Put("/clinic", h.SelectClinic)
		r.Get("/pricing", h.Pricing)
	})
	return r
}

func (h *Handler) sessionID(r *http.Request) (string, error) {
	id := strings.TrimSpace(chi.URLParam(r, "sessionID"))
	if id == "" {
		return "", apperr.New(apperr.CategoryValidation, "session id required")
	}
	return id, nil
}

// InitFlow applies the request's query parameters to the session flow.
// POST /api/quote-flow/{sessionID}/init?source=package&packageId=pkg-002
func (h *Handler) InitFlow(w http.ResponseWriter, r *http.Request) {
	sessionID, err := h.sessionID(r)
	if err != nil {
		apperr.Write(w, r, h.logger, err)
		return
	}
	_, st := h.manager.Initialize(r.Context(), sessionID, r.URL.Query(), nil)
	h.writeState(w, st)
}

// GetFlow returns the session's current state.
func (h *Handler) GetFlow(w http.ResponseWriter, r *http.Request) {
	sessionID, err := h.sessionID(r)
	if err != nil {
		apperr.Write(w, r, h.logger, err)
		return
	}
	h.writeState(w, h.manager.Flow(sessionID).Snapshot())
}

// ResetFlow starts the session over.
func (h *Handler) ResetFlow(w http.ResponseWriter, r *http.Request) {
	sessionID, err := h.sessionID(r)
	if err != nil {
		apperr.Write(w, r, h.logger, err)
		return
	}
	h.manager.Reset(r.Context(), sessionID)
	w.WriteHeader(http.StatusNoContent)
}

// NextStep advances the flow one step.
func (h *Handler) NextStep(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(f *Flow) error {
		f.GoToNextStep()
		return nil
	})
}

// PreviousStep moves the flow back one step.
func (h *Handler) PreviousStep(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(f *Flow) error {
		f.GoToPreviousStep()
		return nil
	})
}

type stepRequest struct {
	Step string `json:"step"`
}

// SetStep jumps to the requested step.
func (h *Handler) SetStep(w http.ResponseWriter, r *http.Request) {
	var req stepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.Write(w, r, h.logger, apperr.Wrap(err, apperr.CategoryValidation, "invalid request body"))
		return
	}
	step, err := ParseStep(req.Step)
	if err != nil {
		apperr.Write(w, r, h.logger, apperr.Wrap(err, apperr.CategoryValidation, "unknown step").WithContext("step", req.Step))
		return
	}
	h.mutate(w, r, func(f *Flow) error { return f.GoToStep(step) })
}

// SetPatient stores the info step's answers.
func (h *Handler) SetPatient(w http.ResponseWriter, r *http.Request) {
	var p PatientData
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		apperr.Write(w, r, h.logger, apperr.Wrap(err, apperr.CategoryValidation, "invalid request body"))
		return
	}
	h.mutate(w, r, func(f *Flow) error {
		f.SetPatientData(p)
		return nil
	})
}

type treatmentsRequest struct {
	Treatments []catalog.PlanItem `json:"treatments"`
}

// SetTreatments replaces the treatment plan. Names are resolved against the
// catalog; the flow's offer, package or promo line is appended.
func (h *Handler) SetTreatments(w http.ResponseWriter, r *http.Request) {
	var req treatmentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.Write(w, r, h.logger, apperr.Wrap(err, apperr.CategoryValidation, "invalid request body"))
		return
	}
	lines, unknown := pricing.LinesFromPlan(h.catalog, req.Treatments, h.usdRate)
	if len(unknown) > 0 {
		apperr.Write(w, r, h.logger, apperr.New(apperr.CategoryValidation, "unknown treatments").WithContext("unknown", unknown))
		return
	}
	h.mutate(w, r, func(f *Flow) error {
		f.SetTreatmentData(lines)
		return nil
	})
}

type clinicRequest struct {
	ClinicID string `json:"clinicId"`
}

// SelectClinic records the chosen clinic and fetches it in the background.
func (h *Handler) SelectClinic(w http.ResponseWriter, r *http.Request) {
	var req clinicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.Write(w, r, h.logger, apperr.Wrap(err, apperr.CategoryValidation, "invalid request body"))
		return
	}
	if _, ok := h.catalog.Clinic(req.ClinicID); !ok {
		apperr.Write(w, r, h.logger, apperr.New(apperr.CategoryValidation, "unknown clinic").WithContext("clinicId", req.ClinicID))
		return
	}
	h.mutate(w, r, func(f *Flow) error {
		f.SelectClinic(r.Context(), req.ClinicID, nil)
		return nil
	})
}

// Pricing prices the session's plan at every clinic, or only the selected
// clinic when ?selected=true.
func (h *Handler) Pricing(w http.ResponseWriter, r *http.Request) {
	sessionID, err := h.sessionID(r)
	if err != nil {
		apperr.Write(w, r, h.logger, err)
		return
	}
	st := h.manager.Flow(sessionID).Snapshot()
	opts := pricing.Options{Package: st.PackageDeal(), USDRate: h.usdRate}

	clinics := h.catalog.Clinics()
	if r.URL.Query().Get("selected") == "true" && st.SelectedClinicID != "" {
		c, ok := h.catalog.Clinic(st.SelectedClinicID)
		if !ok {
			apperr.Write(w, r, h.logger, apperr.New(apperr.CategoryClient, "selected clinic not found").WithStatus(http.StatusNotFound))
			return
		}
		clinics = []catalog.Clinic{c}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"sessionId": sessionID,
		"results":   pricing.CompareClinics(clinics, st.TreatmentData, opts),
	}); err != nil {
		h.logger.Error("failed to encode pricing", "session_id", sessionID, "error", err)
	}
}

func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, fn func(*Flow) error) {
	sessionID, err := h.sessionID(r)
	if err != nil {
		apperr.Write(w, r, h.logger, err)
		return
	}
	f := h.manager.Flow(sessionID)
	if err := fn(f); err != nil {
		apperr.Write(w, r, h.logger, apperr.Wrap(err, apperr.CategoryValidation, err.Error()))
		return
	}
	st := f.Snapshot()
	h.manager.Persist(r.Context(), sessionID, st)
	h.writeState(w, st)
}

func (h *Handler) writeState(w http.ResponseWriter, st State) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(NewView(st)); err != nil {
		h.logger.Error("failed to encode quote flow", "error", err)
	}
}
