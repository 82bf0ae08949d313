package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	appconfig "github.com/wolfman30/dental-quote-platform/internal/config"
	"github.com/wolfman30/dental-quote-platform/internal/quotes"
)

func TestSetupQuoteMetricsExposesMetrics(t *testing.T) {
	handler, metrics := setupQuoteMetrics()
	if handler == nil || metrics == nil {
		t.Fatalf("expected non-nil handler and metrics")
	}

	metrics.ObserveFlowInitialized("package")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "dentalquote_quoteflow_initialized_total") {
		t.Fatalf("expected flow counter to be exported")
	}
}

func TestBuildQuoteStoreWithoutDatabase(t *testing.T) {
	if _, ok := buildQuoteStore(nil).(*quotes.InMemoryRepository); !ok {
		t.Fatalf("expected in-memory store without a pool")
	}
}

func TestBuildMirrorWithoutRedis(t *testing.T) {
	if mirror := buildMirror(nil, &appconfig.Config{}); mirror != nil {
		t.Fatalf("expected no mirror without redis, got %T", mirror)
	}
}
