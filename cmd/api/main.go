package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/wolfman30/dental-quote-platform/cmd/mainconfig"
	"github.com/wolfman30/dental-quote-platform/internal/api/router"
	"github.com/wolfman30/dental-quote-platform/internal/app/bootstrap"
	"github.com/wolfman30/dental-quote-platform/internal/catalog"
	"github.com/wolfman30/dental-quote-platform/internal/clinic"
	appconfig "github.com/wolfman30/dental-quote-platform/internal/config"
	"github.com/wolfman30/dental-quote-platform/internal/http/handlers"
	"github.com/wolfman30/dental-quote-platform/internal/notify"
	"github.com/wolfman30/dental-quote-platform/internal/observability/metrics"
	"github.com/wolfman30/dental-quote-platform/internal/offers"
	"github.com/wolfman30/dental-quote-platform/internal/quoteflow"
	"github.com/wolfman30/dental-quote-platform/internal/quotes"
	"github.com/wolfman30/dental-quote-platform/pkg/logging"
)

func main() {
	// Local development reads .env; deployed environments set real variables.
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.NewWithWriter(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting dental-quote-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()
	cat, err := catalog.Load()
	if err != nil {
		logger.Error("failed to load treatment catalog", "error", err)
		os.Exit(1)
	}

	pool := bootstrap.BuildPostgresPool(ctx, cfg.DatabaseURL, logger)
	if pool != nil {
		defer pool.Close()
	} else {
		logger.Warn("DATABASE_URL not set or unreachable; quotes are kept in memory and the clinic portal is disabled")
	}
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}

	var awsCfg *aws.Config
	if loaded, err := mainconfig.LoadAWSConfig(ctx, cfg); err != nil {
		logger.Warn("AWS config unavailable; archive, events and SES disabled", "error", err)
	} else {
		awsCfg = &loaded
	}

	metricsHandler, quoteMetrics := setupQuoteMetrics()

	clinicRepo := bootstrap.BuildClinicRepository(pool, redisClient, cat, 0, logger)
	clinicService := clinic.NewService(clinicRepo, logger)

	flows := quoteflow.NewManager(clinicService, buildMirror(redisClient, cfg), logger, quoteflow.ManagerConfig{
		IdleTTL:      cfg.SessionIdleTTL,
		FetchTimeout: cfg.ClinicFetchTimeout,
		Metrics:      quoteMetrics,
	})

	emailSender, provider := bootstrap.BuildEmailSender(cfg, awsCfg, logger)
	logger.Info("email provider selected", "provider", provider)

	var archiver quotes.Archiver
	if store := bootstrap.BuildArchiveStore(cfg, awsCfg, logger); store.Enabled() {
		archiver = store
	}

	usdRate := decimal.NewFromFloat(cfg.GBPToUSDRate)
	quoteService := quotes.NewService(quotes.Deps{
		Store:    buildQuoteStore(pool),
		Catalog:  cat,
		Clinics:  clinicService,
		Flows:    flows,
		Archive:  archiver,
		Events:   bootstrap.BuildEventPublisher(cfg, awsCfg, logger),
		Notifier: notify.NewService(emailSender, bootstrap.OpsRecipients(cfg), logger),
		Metrics:  quoteMetrics,
		USDRate:  usdRate,
		Logger:   logger,
	})

	routerCfg := &router.Config{
		Logger:             logger,
		CatalogHandler:     catalog.NewHandler(cat, logger),
		ClinicHandler:      clinic.NewHandler(clinicService, logger),
		QuotesHandler:      quotes.NewHandler(quoteService, logger),
		QuoteFlowHandler:   quoteflow.NewHandler(flows, cat, usdRate, logger),
		AuthUserHandler:    handlers.NewAuthUserHandler(logger),
		PortalAuthSecret:   cfg.PortalJWTSecret,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,
	}
	if pool != nil {
		offersDB := stdlib.OpenDBFromPool(pool)
		defer offersDB.Close()
		routerCfg.OffersHandler = offers.NewHandler(offers.NewRepository(offersDB), cfg.PublicBaseURL, logger)
		routerCfg.ClinicStatsHandler = clinic.NewStatsHandler(clinic.NewStatsRepository(pool), logger)
	}
	r := router.New(routerCfg)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

func setupQuoteMetrics() (http.Handler, *metrics.QuoteMetrics) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	quoteMetrics := metrics.NewQuoteMetrics(registry)
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), quoteMetrics
}

func buildMirror(client *redis.Client, cfg *appconfig.Config) quoteflow.Mirror {
	if client == nil {
		return nil
	}
	return quoteflow.NewRedisMirror(client, cfg.SessionIdleTTL)
}

func buildQuoteStore(pool *pgxpool.Pool) quotes.Store {
	if pool == nil {
		return quotes.NewInMemoryRepository()
	}
	return quotes.NewRepository(pool)
}
