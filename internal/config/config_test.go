package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/config"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("TOKEN_EXPIRY_SKEW", "")
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("API_KEYS", "")
	t.Setenv("METRICS_EXPORTER", "")

	cfg := config.LoadConfig()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "memory", cfg.StorageDriver)
	assert.Equal(t, "5m", cfg.TokenExpirySkew)
	assert.Equal(t, "https://api.mercadolibre.com", cfg.MeliAPIURL)
	assert.Equal(t, "demo", cfg.APIKeys)
	assert.Equal(t, "scraper", cfg.MetricsExporter)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("STORAGE_DRIVER", "sqlite")
	t.Setenv("REFRESH_MODE", "reject")
	t.Setenv("ENVIRONMENT", "production")

	cfg := config.LoadConfig()

	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, "sqlite", cfg.StorageDriver)
	assert.Equal(t, "reject", cfg.RefreshMode)
	assert.True(t, cfg.IsProduction())
}

func TestParseHelpers(t *testing.T) {
	assert.True(t, config.ParseBool("on", false))
	assert.False(t, config.ParseBool("disabled", true))
	assert.True(t, config.ParseBool("maybe", true))

	assert.Equal(t, 7, config.ParseInt("7", 1))
	assert.Equal(t, 1, config.ParseInt("-3", 1))
	assert.Equal(t, 1, config.ParseInt("x", 1))

	assert.Equal(t, 2.5, config.ParseFloat("2.5", 1))
	assert.Equal(t, 1.0, config.ParseFloat("", 1))

	assert.Equal(t, 90*time.Second, config.ParseDuration("90s", time.Minute))
	assert.Equal(t, time.Minute, config.ParseDuration("soon", time.Minute))
}
