package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/logging"
)

// Config holds all configuration for the application
type Config struct {
	Port            string
	LogLevel        string
	Environment     string
	MetricsExporter string

	// API authentication, comma separated
	APIKeys      string
	AdminAPIKeys string

	// Marketplace OAuth application
	MeliClientID     string
	MeliClientSecret string
	MeliRedirectURI  string
	MeliAuthURL      string
	MeliAPIURL       string
	MeliHTTPTimeout  string
	MeliRatePerSec   string
	MeliRateBurst    string
	MeliMaxParallel  string

	// Integration token lifecycle
	OAuthStateSecret string
	OAuthStateTTL    string
	TokenExpirySkew  string
	RefreshMode      string

	// Storage
	StorageDriver  string
	DataPath       string
	SQLitePath     string
	DatabaseURL    string
	EventsFilePath string
	MaxEvents      string

	// Competitor snapshot cache
	CompetitorCacheTTL string

	// Rate limiting
	RateLimitEnabled                string
	RateLimitType                   string
	RateLimitRequestsPerMinute      string
	RateLimitBurst                  string
	RateLimitAdminRequestsPerMinute string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() *Config {
	// Existing environment variables are not overridden
	err := godotenv.Load()
	if err != nil {
		slog.Warn("Could not load .env file, continuing with system environment variables only", "error", err)
	} else {
		slog.Info("Successfully loaded .env file")
	}

	config := &Config{
		Port:            getEnvWithDefault("PORT", "8080"),
		LogLevel:        getEnvWithDefault("LOG_LEVEL", "info"),
		Environment:     getEnvWithDefault("ENVIRONMENT", "development"),
		MetricsExporter: getEnvWithDefault("METRICS_EXPORTER", "scraper"),

		APIKeys:      getEnvWithDefault("API_KEYS", "demo"),
		AdminAPIKeys: getEnvWithDefault("ADMIN_API_KEYS", ""),

		MeliClientID:     getEnvWithDefault("MELI_CLIENT_ID", ""),
		MeliClientSecret: getEnvWithDefault("MELI_CLIENT_SECRET", ""),
		MeliRedirectURI:  getEnvWithDefault("MELI_REDIRECT_URI", "http://localhost:5173/account/integration/callback"),
		MeliAuthURL:      getEnvWithDefault("MELI_AUTH_URL", "https://auth.mercadolivre.com.br"),
		MeliAPIURL:       getEnvWithDefault("MELI_API_URL", "https://api.mercadolibre.com"),
		MeliHTTPTimeout:  getEnvWithDefault("MELI_HTTP_TIMEOUT", "30s"),
		MeliRatePerSec:   getEnvWithDefault("MELI_RATE_PER_SECOND", "5"),
		MeliRateBurst:    getEnvWithDefault("MELI_RATE_BURST", "10"),
		MeliMaxParallel:  getEnvWithDefault("MELI_MAX_CONCURRENT", "4"),

		OAuthStateSecret: getEnvWithDefault("OAUTH_STATE_SECRET", ""),
		OAuthStateTTL:    getEnvWithDefault("OAUTH_STATE_TTL", "10m"),
		TokenExpirySkew:  getEnvWithDefault("TOKEN_EXPIRY_SKEW", "5m"),
		RefreshMode:      getEnvWithDefault("REFRESH_MODE", "coalesce"),

		StorageDriver:  getEnvWithDefault("STORAGE_DRIVER", "memory"),
		DataPath:       getEnvWithDefault("DATA_PATH", "./data/integrations.json"),
		SQLitePath:     getEnvWithDefault("SQLITE_PATH", "./data/integrations.db"),
		DatabaseURL:    getEnvWithDefault("DATABASE_URL", ""),
		EventsFilePath: getEnvWithDefault("EVENTS_FILE_PATH", "./data/events.json"),
		MaxEvents:      getEnvWithDefault("MAX_EVENTS_IN_QUEUE", "10000"),

		CompetitorCacheTTL: getEnvWithDefault("COMPETITOR_CACHE_TTL", "5m"),

		RateLimitEnabled:                getEnvWithDefault("RATE_LIMIT_ENABLED", "true"),
		RateLimitType:                   getEnvWithDefault("RATE_LIMIT_TYPE", "ip"),
		RateLimitRequestsPerMinute:      getEnvWithDefault("RATE_LIMIT_REQUESTS_PER_MINUTE", "100"),
		RateLimitBurst:                  getEnvWithDefault("RATE_LIMIT_BURST", "20"),
		RateLimitAdminRequestsPerMinute: getEnvWithDefault("RATE_LIMIT_ADMIN_REQUESTS_PER_MINUTE", "50"),
	}

	logging.SetupLogging(config.LogLevel)

	slog.Info("Configuration loaded",
		"port", config.Port,
		"environment", config.Environment,
		"logLevel", config.LogLevel,
		"storageDriver", config.StorageDriver,
		"metricsExporter", config.MetricsExporter,
		"meliAPIURL", config.MeliAPIURL,
		"meliClientConfigured", config.MeliClientID != "",
		"refreshMode", config.RefreshMode,
		"tokenExpirySkew", config.TokenExpirySkew,
		"eventsFilePath", config.EventsFilePath)

	return config
}

// getEnvWithDefault gets an environment variable with a default fallback
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
