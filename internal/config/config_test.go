package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("GBP_TO_USD_RATE", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.GBPToUSDRate != 1.29 {
		t.Fatalf("expected default GBP rate 1.29, got %v", cfg.GBPToUSDRate)
	}
	if cfg.PortalTokenTTL != 24*time.Hour {
		t.Fatalf("expected default token ttl, got %s", cfg.PortalTokenTTL)
	}
	if cfg.LoginPath != "/portal-login" {
		t.Fatalf("expected default login path, got %s", cfg.LoginPath)
	}
	if len(cfg.CORSAllowedOrigins) != 0 {
		t.Fatalf("expected no CORS origins, got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.IsProduction() {
		t.Fatalf("development config reported as production")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "Production")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("GBP_TO_USD_RATE", "1.31")
	t.Setenv("QUOTE_SESSION_IDLE_TTL", "45m")
	t.Setenv("RATE_LIMIT_BURST", "7")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("EMAIL_PROVIDER", " SendGrid ")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if !cfg.IsProduction() {
		t.Fatalf("expected production env")
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.GBPToUSDRate != 1.31 {
		t.Fatalf("expected rate override, got %v", cfg.GBPToUSDRate)
	}
	if cfg.SessionIdleTTL != 45*time.Minute {
		t.Fatalf("expected idle ttl override, got %s", cfg.SessionIdleTTL)
	}
	if cfg.RateLimitBurst != 7 {
		t.Fatalf("expected burst override, got %d", cfg.RateLimitBurst)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", cfg.CORSAllowedOrigins)
	}
	if cfg.EmailProvider != "sendgrid" {
		t.Fatalf("expected normalized email provider, got %q", cfg.EmailProvider)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("RATE_LIMIT_BURST", "many")
	t.Setenv("REDIS_TLS", "perhaps")
	t.Setenv("CLINIC_FETCH_TIMEOUT", "soon")
	cfg := Load()
	if cfg.RateLimitBurst != 20 {
		t.Fatalf("expected default burst, got %d", cfg.RateLimitBurst)
	}
	if cfg.RedisTLS {
		t.Fatalf("expected redis tls default false")
	}
	if cfg.ClinicFetchTimeout != 10*time.Second {
		t.Fatalf("expected default fetch timeout, got %s", cfg.ClinicFetchTimeout)
	}
}
