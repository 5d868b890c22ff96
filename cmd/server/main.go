package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/config"
	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/events"
	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/handlers"
	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/integration"
	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/meli"
	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/middleware"
	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/services"
	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/storage"
	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/telemetry"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg := config.LoadConfig()

	slog.Info("Starting Mercado Livre analytics API", "version", "1.0.0")

	ctx := context.Background()
	otelTelemetry := telemetry.InitMetrics(ctx, cfg.MetricsExporter)

	apiTelemetry := telemetry.NewApiTelemetry()
	if err := apiTelemetry.InitializeTelemetry(ctx, nil); err != nil {
		slog.Error("Failed to initialize API telemetry", "error", err)
		return
	}

	store, err := openTokenStore(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize token storage", "driver", cfg.StorageDriver, "error", err)
		return
	}

	eventLog, err := events.NewLog(events.Config{
		FilePath:  cfg.EventsFilePath,
		MaxEvents: config.ParseInt(cfg.MaxEvents, 10000),
		Logger:    slog.Default(),
	})
	if err != nil {
		slog.Error("Failed to initialize event log", "error", err)
		return
	}

	meliTimeout := config.ParseDuration(cfg.MeliHTTPTimeout, 30*time.Second)
	meliClient := meli.NewClient(meli.ClientConfig{
		AuthURL:       cfg.MeliAuthURL,
		APIURL:        cfg.MeliAPIURL,
		ClientID:      cfg.MeliClientID,
		ClientSecret:  cfg.MeliClientSecret,
		Timeout:       meliTimeout,
		RatePerSecond: config.ParseFloat(cfg.MeliRatePerSec, 5),
		RateBurst:     config.ParseInt(cfg.MeliRateBurst, 10),
		MaxConcurrent: config.ParseInt(cfg.MeliMaxParallel, 4),
	})
	if cfg.MeliClientID == "" {
		slog.Warn("MELI_CLIENT_ID is not set, marketplace authorization will fail")
	}

	stateSecret := cfg.OAuthStateSecret
	if stateSecret == "" {
		if cfg.IsProduction() {
			slog.Error("OAUTH_STATE_SECRET is required in production")
			return
		}
		stateSecret = uuid.NewString()
		slog.Warn("OAUTH_STATE_SECRET is not set, using an ephemeral secret; pending authorizations will not survive a restart")
	}

	manager, err := integration.NewManager(meliClient, store, eventLog, apiTelemetry, integration.Config{
		StateSecret:        []byte(stateSecret),
		StateTTL:           config.ParseDuration(cfg.OAuthStateTTL, 10*time.Minute),
		ExpirySkew:         config.ParseDuration(cfg.TokenExpirySkew, 5*time.Minute),
		RefreshMode:        integration.RefreshMode(strings.ToLower(cfg.RefreshMode)),
		RefreshTimeout:     meliTimeout,
		DefaultRedirectURI: cfg.MeliRedirectURI,
	})
	if err != nil {
		slog.Error("Failed to initialize integration manager", "error", err)
		return
	}

	analysisService := services.NewAnalysisService(apiTelemetry)
	competitorService := services.NewCompetitorService(manager, meliClient,
		config.ParseDuration(cfg.CompetitorCacheTTL, 5*time.Minute), apiTelemetry)
	competitorService.SetFetchTimeout(2 * meliTimeout)

	// Initialize handlers
	analysisHandler := handlers.NewAnalysisHandler(analysisService)
	integrationHandler := handlers.NewIntegrationHandler(manager, competitorService)
	eventsHandler := handlers.NewEventsHandler(eventLog, slog.Default())
	healthHandler := handlers.NewHealthHandler()
	adminHandler := handlers.NewAdminHandler(manager, competitorService, eventLog)

	r := mux.NewRouter()

	// Apply telemetry middleware to all routes first
	r.Use(telemetry.NewTelemetryMiddleware(apiTelemetry).Middleware)

	rateLimitConfig := middleware.ParseRateLimitConfig(cfg)
	var rateLimiter *middleware.RateLimiter
	if rateLimitConfig.Enabled {
		rateLimiter = middleware.NewRateLimiter(rateLimitConfig)
		r.Use(middleware.RateLimitMiddleware(rateLimiter))
		slog.Info("Rate limiting middleware enabled")
	} else {
		slog.Info("Rate limiting middleware disabled")
	}
	rateLimitStatusHandler := handlers.NewRateLimitStatusHandler(rateLimiter)

	if cfg.IsProduction() && cfg.APIKeys == "demo" {
		slog.Warn("API_KEYS still uses the development key in production")
	}
	auth := middleware.NewAuth(cfg.APIKeys, cfg.AdminAPIKeys)

	// Health check and OAuth redirect target (no auth required)
	r.HandleFunc("/health", healthHandler.Health).Methods("GET")
	r.HandleFunc("/v1/integrations/callback", integrationHandler.Callback).Methods("GET")

	// Admin API routes (v1) - require admin authentication
	adminV1 := r.PathPrefix("/v1/admin").Subrouter()
	adminV1.Use(auth.AdminAuthMiddleware)
	adminV1.HandleFunc("/rate-limit/status", rateLimitStatusHandler.GetRateLimitStatus).Methods("GET")
	adminV1.HandleFunc("/rate-limit/reset", rateLimitStatusHandler.ResetRateLimits).Methods("POST")
	adminV1.HandleFunc("/stats", adminHandler.GetStats).Methods("GET")

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.Use(auth.AuthMiddleware)

	v1.HandleFunc("/analysis/listing", analysisHandler.AnalyzeListing).Methods("POST")
	v1.HandleFunc("/analysis/price", analysisHandler.ResolvePrice).Methods("POST")
	v1.HandleFunc("/analysis/costs", analysisHandler.CostBreakdown).Methods("POST")
	v1.HandleFunc("/analysis/catalog", analysisHandler.ClassifyCatalog).Methods("POST")
	v1.HandleFunc("/analysis/ads", analysisHandler.AnalyzeAds).Methods("POST")

	// specific integration routes before {id}
	v1.HandleFunc("/integrations/events", eventsHandler.GetEvents).Methods("GET")
	v1.HandleFunc("/integrations/{id}/authorization-url", integrationHandler.AuthorizationURL).Methods("GET")
	v1.HandleFunc("/integrations/{id}/refresh", integrationHandler.Refresh).Methods("POST")
	v1.HandleFunc("/integrations/{id}/test-connection", integrationHandler.TestConnection).Methods("GET")
	v1.HandleFunc("/integrations/{id}/status", integrationHandler.Status).Methods("GET")
	v1.HandleFunc("/integrations/{id}/competitors/{catalogProductId}", integrationHandler.Competitors).Methods("GET")
	v1.HandleFunc("/integrations/{id}", integrationHandler.Disconnect).Methods("DELETE")

	slog.Debug("Available endpoints",
		"analysis_endpoints", []string{
			"POST /v1/analysis/listing",
			"POST /v1/analysis/price",
			"POST /v1/analysis/costs",
			"POST /v1/analysis/catalog",
			"POST /v1/analysis/ads",
		},
		"integration_endpoints", []string{
			"GET /v1/integrations/{id}/authorization-url",
			"GET /v1/integrations/callback",
			"POST /v1/integrations/{id}/refresh",
			"DELETE /v1/integrations/{id}",
			"GET /v1/integrations/{id}/test-connection",
			"GET /v1/integrations/{id}/status",
			"GET /v1/integrations/{id}/competitors/{catalogProductId}",
			"GET /v1/integrations/events?offset=&limit=&wait=",
		},
		"system_endpoints", []string{
			"GET /health",
		})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Server ready to accept connections", "address", server.Addr, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop accepting requests before closing what they use
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	if rateLimiter != nil {
		rateLimiter.Stop()
	}
	competitorService.Stop()
	manager.Close()

	if err := eventLog.Close(); err != nil {
		slog.Error("Error closing event log", "error", err)
	}
	if err := store.Close(); err != nil {
		slog.Error("Error closing token storage", "error", err)
	}

	otelTelemetry.Shutdown(shutdownCtx)
	slog.Info("Server exited")
}

// openTokenStore selects the token storage backend from STORAGE_DRIVER
func openTokenStore(ctx context.Context, cfg *config.Config) (storage.TokenStore, error) {
	switch strings.ToLower(cfg.StorageDriver) {
	case "memory", "":
		return storage.NewMemoryStorage(cfg.DataPath)
	case "sqlite":
		return storage.NewSQLiteStorage(cfg.SQLitePath)
	case "postgres", "postgresql":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
		pool, err := storage.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		store, err := storage.NewPostgresStorage(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
