package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/dental-quote-platform/internal/catalog"
	"github.com/wolfman30/dental-quote-platform/internal/clinic"
	"github.com/wolfman30/dental-quote-platform/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/dental-quote-platform/internal/http/middleware"
	"github.com/wolfman30/dental-quote-platform/internal/offers"
	"github.com/wolfman30/dental-quote-platform/internal/quoteflow"
	"github.com/wolfman30/dental-quote-platform/internal/quotes"
	"github.com/wolfman30/dental-quote-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	CatalogHandler     *catalog.Handler
	ClinicHandler      *clinic.Handler
	ClinicStatsHandler *clinic.StatsHandler
	OffersHandler      *offers.Handler
	QuotesHandler      *quotes.Handler
	QuoteFlowHandler   *quoteflow.Handler
	AuthUserHandler    *handlers.AuthUserHandler
	PortalAuthSecret   string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// Per-IP limit on the public quote API. Zero disables it.
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", healthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		// Public quote API
		api.Group(func(public chi.Router) {
			if cfg.RateLimitPerSecond > 0 && cfg.RateLimitBurst > 0 {
				public.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst))
			}
			if cfg.CatalogHandler != nil {
				public.Mount("/treatments", cfg.CatalogHandler.Routes())
			}
			if cfg.ClinicHandler != nil {
				public.Mount("/clinics", cfg.ClinicHandler.Routes())
			}
			if cfg.OffersHandler != nil {
				public.Get("/special-offers", cfg.OffersHandler.ListPublic)
				public.Get("/special-offers/{offerID}", cfg.OffersHandler.GetPublic)
			}
			if cfg.QuotesHandler != nil {
				public.Mount("/quotes", cfg.QuotesHandler.Routes())
			}
			if cfg.QuoteFlowHandler != nil {
				public.Mount("/quote-flow", cfg.QuoteFlowHandler.Routes())
			}
		})

		// Signed-in routes (portal bearer token)
		api.Group(func(authed chi.Router) {
			authed.Use(httpmiddleware.PortalJWT(cfg.PortalAuthSecret))

			if cfg.AuthUserHandler != nil {
				authed.Get("/auth/user", cfg.AuthUserHandler.GetUser)
			}

			authed.Route("/portal/clinic", func(portal chi.Router) {
				portal.Use(httpmiddleware.RequireRole(httpmiddleware.RoleClinicStaff, httpmiddleware.RoleAdmin))
				portal.Use(scopeClinic)
				if cfg.OffersHandler != nil {
					portal.Mount("/special-offers", cfg.OffersHandler.PortalRoutes())
				}
				if cfg.ClinicStatsHandler != nil {
					portal.Get("/stats", cfg.ClinicStatsHandler.GetStats)
				}
			})
		})
	})

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
