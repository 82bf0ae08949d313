package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/wolfman30/dental-quote-platform/internal/apperr"
	"github.com/wolfman30/dental-quote-platform/internal/authgate"
	"github.com/wolfman30/dental-quote-platform/internal/http/middleware"
	"github.com/wolfman30/dental-quote-platform/pkg/logging"
)

// AuthUserHandler reports who the bearer of a portal token is.
type AuthUserHandler struct {
	logger *logging.Logger
}

// NewAuthUserHandler creates the handler. It must be mounted behind PortalJWT.
func NewAuthUserHandler(logger *logging.Logger) *AuthUserHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AuthUserHandler{logger: logger}
}

// GetUser returns the authenticated portal user.
// GET /api/auth/user
func (h *AuthUserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.Header().Set("Pragma", "no-cache")

	claims, ok := middleware.PortalClaimsFromContext(r.Context())
	if !ok || claims.Subject == "" {
		apperr.Write(w, r, h.logger, apperr.New(apperr.CategoryAuthentication, "not signed in"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(authgate.User{
		ID:       claims.Subject,
		Email:    claims.Email,
		Role:     claims.Role,
		ClinicID: claims.ClinicID,
	}); err != nil {
		h.logger.Error("failed to encode auth user", "error", err)
	}
}
