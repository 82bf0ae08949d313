package quoteflow

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/dental-quote-platform/internal/catalog"
	"github.com/wolfman30/dental-quote-platform/internal/pricing"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	mgr := NewManager(nil, nil, quietLogger(), ManagerConfig{})
	h := NewHandler(mgr, catalog.MustLoad(), pricing.DefaultUSDRate, quietLogger())
	r := chi.NewRouter()
	r.Mount("/api/quote-flow", h.Routes())
	return r
}

func do(t *testing.T, srv http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHandlerInitAndNavigate(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/quote-flow/abc/init?source=package&packageId=pkg-002&clinicId=dentgroup-istanbul", "")
	require.Equal(t, http.StatusOK, rec.Code)
	view := decodeView(t, rec)
	assert.Equal(t, true, view["isPackageFlow"])
	assert.Equal(t, false, view["isSpecialOfferFlow"])
	assert.Equal(t, true, view["isQuoteInitialized"])
	assert.Equal(t, "start", view["currentStep"])

	rec = do(t, srv, http.MethodPost, "/api/quote-flow/abc/next", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "info", decodeView(t, rec)["currentStep"])

	rec = do(t, srv, http.MethodPut, "/api/quote-flow/abc/step", `{"step":"confirm"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "confirm", decodeView(t, rec)["currentStep"])

	rec = do(t, srv, http.MethodPut, "/api/quote-flow/abc/step", `{"step":"payment"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"category":"validation"`)
}

func TestHandlerTreatmentsAndPricing(t *testing.T) {
	srv := newTestServer(t)
	do(t, srv, http.MethodPost, "/api/quote-flow/p1/init?packageId=pkg-002&clinicId=maltepe-dental-clinic", "")

	rec := do(t, srv, http.MethodPut, "/api/quote-flow/p1/treatments", `{"treatments":[{"name":"Dental Implant","quantity":2}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	lines := decodeView(t, rec)["treatmentData"].([]any)
	require.Len(t, lines, 2)

	rec = do(t, srv, http.MethodGet, "/api/quote-flow/p1/pricing?selected=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Results []pricing.Result `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Results, 1)
	res := body.Results[0]
	assert.True(t, res.PackageApplied)
	assert.Equal(t, "2200", res.Total.String())
	assert.Equal(t, "8850", res.UKTotal.String())
}

func TestHandlerUnknownTreatment(t *testing.T) {
	srv := newTestServer(t)
	rec := do(t, srv, http.MethodPut, "/api/quote-flow/u1/treatments", `{"treatments":[{"name":"Gold Tooth","quantity":1}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Gold Tooth")
}

func TestHandlerReset(t *testing.T) {
	srv := newTestServer(t)
	do(t, srv, http.MethodPost, "/api/quote-flow/r1/init?promoToken=SPRING", "")

	rec := do(t, srv, http.MethodDelete, "/api/quote-flow/r1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	view := decodeView(t, do(t, srv, http.MethodGet, "/api/quote-flow/r1", ""))
	assert.Equal(t, "normal", view["source"])
	assert.Equal(t, false, view["isQuoteInitialized"])
}

func TestHandlerSelectUnknownClinic(t *testing.T) {
	srv := newTestServer(t)
	rec := do(t, srv, http.MethodPut, "/api/quote-flow/c1/clinic", `{"clinicId":"nowhere"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
