package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/logging"
	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/models"
)

// Auth validates X-API-Key headers against configured key lists
type Auth struct {
	apiKeys   map[string]bool
	adminKeys map[string]bool
}

// NewAuth builds an Auth from comma-separated key lists. An empty admin
// list accepts regular keys carrying the "admin-" prefix.
func NewAuth(apiKeys, adminKeys string) *Auth {
	return &Auth{
		apiKeys:   splitKeys(apiKeys),
		adminKeys: splitKeys(adminKeys),
	}
}

func splitKeys(csv string) map[string]bool {
	keys := make(map[string]bool)
	for _, k := range strings.Split(csv, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys[k] = true
		}
	}
	return keys
}

// AuthMiddleware provides API key authentication
func (a *Auth) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			slog.Warn("Authentication failed: missing API key", "remote_addr", r.RemoteAddr)
			writeErrorResponse(w, http.StatusUnauthorized, "unauthorized", "API key required", nil)
			return
		}

		if !a.isValidAPIKey(apiKey) {
			slog.Warn("Authentication failed: invalid API key", "remote_addr", r.RemoteAddr, "provided_key", logging.MaskSecret(apiKey))
			writeErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Invalid API key", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// AdminAuthMiddleware provides admin-only API key authentication
func (a *Auth) AdminAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			slog.Warn("Admin authentication failed: missing API key", "remote_addr", r.RemoteAddr)
			writeErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Admin API key required", nil)
			return
		}

		if !a.isValidAdminAPIKey(apiKey) {
			slog.Warn("Admin authentication failed: invalid admin API key", "remote_addr", r.RemoteAddr, "provided_key", logging.MaskSecret(apiKey))
			writeErrorResponse(w, http.StatusForbidden, "forbidden", "Admin access required", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (a *Auth) isValidAPIKey(apiKey string) bool {
	return a.apiKeys[apiKey] || a.adminKeys[apiKey]
}

func (a *Auth) isValidAdminAPIKey(apiKey string) bool {
	if len(a.adminKeys) == 0 {
		return strings.HasPrefix(apiKey, "admin-") && a.apiKeys[apiKey]
	}
	return a.adminKeys[apiKey]
}

func writeErrorResponse(w http.ResponseWriter, statusCode int, code, message string, details []models.ErrorDetail) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(models.ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	})
}
