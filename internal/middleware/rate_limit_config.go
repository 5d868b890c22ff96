package middleware

import (
	"log/slog"
	"strings"

	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/config"
)

// ParseRateLimitConfig parses rate limiting configuration from the config struct
func ParseRateLimitConfig(cfg *config.Config) RateLimitConfig {
	rateLimitConfig := RateLimitConfig{
		Enabled:                config.ParseBool(cfg.RateLimitEnabled, true),
		Type:                   parseRateLimitType(cfg.RateLimitType),
		RequestsPerMinute:      config.ParseInt(cfg.RateLimitRequestsPerMinute, 100),
		Burst:                  config.ParseInt(cfg.RateLimitBurst, 20),
		AdminRequestsPerMinute: config.ParseInt(cfg.RateLimitAdminRequestsPerMinute, 50),
	}

	slog.Info("Rate limiting configuration parsed",
		"enabled", rateLimitConfig.Enabled,
		"type", rateLimitConfig.Type,
		"requests_per_minute", rateLimitConfig.RequestsPerMinute,
		"burst", rateLimitConfig.Burst,
		"admin_requests_per_minute", rateLimitConfig.AdminRequestsPerMinute)

	return rateLimitConfig
}

func parseRateLimitType(value string) RateLimitType {
	switch strings.ToLower(value) {
	case "", "ip":
		return RateLimitTypeIP
	case "global":
		return RateLimitTypeGlobal
	case "both":
		return RateLimitTypeBoth
	default:
		slog.Warn("Invalid rate limit type, using default", "value", value, "default", "ip")
		return RateLimitTypeIP
	}
}
