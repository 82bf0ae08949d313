package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wolfman30/dental-quote-platform/internal/authgate"
	"github.com/wolfman30/dental-quote-platform/internal/http/middleware"
	"github.com/wolfman30/dental-quote-platform/pkg/logging"
)

func TestAuthUserWithoutClaims(t *testing.T) {
	h := NewAuthUserHandler(logging.Default())
	rec := httptest.NewRecorder()

	h.GetUser(rec, httptest.NewRequest(http.MethodGet, "/api/auth/user", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
	if got := rec.Header().Get("Cache-Control"); got == "" {
		t.Fatalf("expected cache-control header")
	}
}

// The gate's HTTP validator and the server endpoint agree on the wire format.
func TestAuthUserServesAuthGate(t *testing.T) {
	const secret = "portal-secret"
	h := NewAuthUserHandler(logging.Default())
	srv := httptest.NewServer(middleware.PortalJWT(secret)(http.HandlerFunc(h.GetUser)))
	defer srv.Close()

	token, err := middleware.IssuePortalToken(secret, "user-7", "staff@antalya.example", middleware.RoleClinicStaff, "antalya-smile-centre", time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	v := authgate.NewHTTPValidator(srv.URL, srv.Client())
	user, err := v.Validate(context.Background(), token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	want := authgate.User{ID: "user-7", Email: "staff@antalya.example", Role: "clinic_staff", ClinicID: "antalya-smile-centre"}
	if user != want {
		t.Fatalf("expected %+v, got %+v", want, user)
	}

	if _, err := v.Validate(context.Background(), "garbage"); err == nil {
		t.Fatalf("expected error for bad token")
	}
}
