package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/dental-quote-platform/internal/apperr"
	"github.com/wolfman30/dental-quote-platform/internal/tenancy"
)

type contextKey string

const portalClaimsKey contextKey = "portalClaims"

// Portal roles.
const (
	RoleClinicStaff = "clinic_staff"
	RoleAdmin       = "admin"
	RolePatient     = "patient"
)

// PortalClaims are the claims carried by portal bearer tokens.
type PortalClaims struct {
	jwt.RegisteredClaims
	Email    string `json:"email"`
	Role     string `json:"role"`
	ClinicID string `json:"clinic_id,omitempty"`
}

// IssuePortalToken signs an HS256 token for subject valid for ttl.
func IssuePortalToken(secret, subject, email, role, clinicID string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("middleware: portal secret required")
	}
	now := time.Now()
	claims := PortalClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email:    email,
		Role:     role,
		ClinicID: clinicID,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// PortalJWT enforces an HMAC-signed portal token. The token's clinic, if any,
// is placed in the request context for tenancy scoping.
func PortalJWT(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				apperr.Write(w, r, nil, apperr.New(apperr.CategoryAuthentication, "portal auth disabled"))
				return
			}
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				apperr.Write(w, r, nil, apperr.New(apperr.CategoryAuthentication, "missing authorization header"))
				return
			}
			tokenString := strings.TrimPrefix(auth, "Bearer ")
			claims := PortalClaims{}
			token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				apperr.Write(w, r, nil, apperr.New(apperr.CategoryAuthentication, "invalid token"))
				return
			}
			ctx := context.WithValue(r.Context(), portalClaimsKey, claims)
			if claims.ClinicID != "" {
				ctx = tenancy.WithClinicID(ctx, claims.ClinicID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects requests whose portal role is not one of roles. It must
// run after PortalJWT.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := PortalClaimsFromContext(r.Context())
			if !ok {
				apperr.Write(w, r, nil, apperr.New(apperr.CategoryAuthentication, "not signed in"))
				return
			}
			if _, ok := allowed[claims.Role]; !ok {
				apperr.Write(w, r, nil, apperr.New(apperr.CategoryAuthorization, "access denied").WithContext("role", claims.Role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PortalClaimsFromContext returns portal JWT claims if present.
func PortalClaimsFromContext(ctx context.Context) (PortalClaims, bool) {
	claims, ok := ctx.Value(portalClaimsKey).(PortalClaims)
	return claims, ok
}
