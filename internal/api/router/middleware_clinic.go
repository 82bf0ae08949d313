package router

import (
	"net/http"
	"strings"

	"github.com/wolfman30/dental-quote-platform/internal/apperr"
	httpmiddleware "github.com/wolfman30/dental-quote-platform/internal/http/middleware"
	"github.com/wolfman30/dental-quote-platform/internal/tenancy"
)

const clinicHeader = "X-Clinic-Id"

// scopeClinic fixes the clinic a portal request acts for. Staff tokens carry
// their own clinic; admins pick one with the X-Clinic-Id header.
func scopeClinic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := httpmiddleware.PortalClaimsFromContext(r.Context())
		if !ok {
			apperr.Write(w, r, nil, apperr.New(apperr.CategoryAuthentication, "not signed in"))
			return
		}

		switch claims.Role {
		case httpmiddleware.RoleAdmin:
			if clinicID := strings.TrimSpace(r.Header.Get(clinicHeader)); clinicID != "" {
				r = r.WithContext(tenancy.WithClinicID(r.Context(), clinicID))
			}
		default:
			if _, ok := tenancy.ClinicIDFromContext(r.Context()); !ok {
				apperr.Write(w, r, nil, apperr.New(apperr.CategoryAuthorization, "no clinic assigned to this account"))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
