package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/config"
	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/models"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

// TestAuthMiddleware tests API key validation
func TestAuthMiddleware(t *testing.T) {
	auth := NewAuth("demo, seller-key", "root-key")
	handler := auth.AuthMiddleware(okHandler)

	tests := []struct {
		name       string
		key        string
		wantStatus int
	}{
		{name: "missing key", key: "", wantStatus: http.StatusUnauthorized},
		{name: "invalid key", key: "nope", wantStatus: http.StatusUnauthorized},
		{name: "valid key", key: "seller-key", wantStatus: http.StatusOK},
		{name: "admin key also works", key: "root-key", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/analysis/price", nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				var body models.ErrorResponse
				require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
				assert.Equal(t, "unauthorized", body.Code)
			}
		})
	}
}

// TestAdminAuthMiddleware tests admin key validation and the prefix fallback
func TestAdminAuthMiddleware(t *testing.T) {
	t.Run("explicit admin keys", func(t *testing.T) {
		handler := NewAuth("demo", "root-key").AdminAuthMiddleware(okHandler)

		for key, want := range map[string]int{"": 401, "demo": 403, "root-key": 200} {
			req := httptest.NewRequest(http.MethodGet, "/v1/admin/rate-limit/status", nil)
			if key != "" {
				req.Header.Set("X-API-Key", key)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			assert.Equal(t, want, rr.Code, "key %q", key)
		}
	})

	t.Run("prefix fallback", func(t *testing.T) {
		handler := NewAuth("demo,admin-ops", "").AdminAuthMiddleware(okHandler)

		for key, want := range map[string]int{"demo": 403, "admin-ops": 200, "admin-unknown": 403} {
			req := httptest.NewRequest(http.MethodGet, "/v1/admin/rate-limit/status", nil)
			req.Header.Set("X-API-Key", key)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			assert.Equal(t, want, rr.Code, "key %q", key)
		}
	})
}

func newTestLimiter(t *testing.T, cfg RateLimitConfig) (*RateLimiter, *time.Time) {
	t.Helper()
	rl := NewRateLimiter(cfg)
	t.Cleanup(rl.Stop)
	current := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return current }
	return rl, &current
}

// TestRateLimiter_IPBuckets tests burst, refill and per-IP isolation
func TestRateLimiter_IPBuckets(t *testing.T) {
	rl, current := newTestLimiter(t, RateLimitConfig{
		Enabled: true, Type: RateLimitTypeIP, RequestsPerMinute: 60, Burst: 2, AdminRequestsPerMinute: 60,
	})

	allowed, info := rl.IsAllowed("1.1.1.1", false)
	assert.True(t, allowed)
	assert.Equal(t, 60, info.Limit)
	assert.Equal(t, 1, info.Remaining)

	allowed, _ = rl.IsAllowed("1.1.1.1", false)
	assert.True(t, allowed)

	allowed, info = rl.IsAllowed("1.1.1.1", false)
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.Equal(t, time.Second, info.RetryAfter)

	allowed, _ = rl.IsAllowed("2.2.2.2", false)
	assert.True(t, allowed, "other clients have their own bucket")

	*current = current.Add(time.Second)
	allowed, _ = rl.IsAllowed("1.1.1.1", false)
	assert.True(t, allowed, "one token refills per second at 60/min")
}

// TestRateLimiter_Global tests the shared bucket
func TestRateLimiter_Global(t *testing.T) {
	rl, _ := newTestLimiter(t, RateLimitConfig{
		Enabled: true, Type: RateLimitTypeGlobal, RequestsPerMinute: 60, Burst: 1,
	})

	allowed, _ := rl.IsAllowed("1.1.1.1", false)
	assert.True(t, allowed)
	allowed, _ = rl.IsAllowed("2.2.2.2", false)
	assert.False(t, allowed)

	rl.ResetRateLimits()
	allowed, _ = rl.IsAllowed("2.2.2.2", false)
	assert.True(t, allowed)
}

// TestRateLimiter_BothDoesNotSpendOnDenial tests that a denied request keeps the IP tokens
func TestRateLimiter_BothDoesNotSpendOnDenial(t *testing.T) {
	rl, current := newTestLimiter(t, RateLimitConfig{
		Enabled: true, Type: RateLimitTypeBoth, RequestsPerMinute: 60, Burst: 1,
	})

	allowed, _ := rl.IsAllowed("1.1.1.1", false)
	assert.True(t, allowed)
	allowed, _ = rl.IsAllowed("2.2.2.2", false)
	assert.False(t, allowed, "global bucket is empty")

	*current = current.Add(time.Second)
	allowed, _ = rl.IsAllowed("2.2.2.2", false)
	assert.True(t, allowed, "the denied request did not consume 2.2.2.2's token")
}

// TestRateLimiter_Disabled tests the bypass
func TestRateLimiter_Disabled(t *testing.T) {
	rl, _ := newTestLimiter(t, RateLimitConfig{Enabled: false, RequestsPerMinute: 1, Burst: 1})

	for i := 0; i < 5; i++ {
		allowed, info := rl.IsAllowed("1.1.1.1", false)
		assert.True(t, allowed)
		assert.Equal(t, -1, info.Limit)
	}
}

// TestRateLimitMiddleware tests headers, the 429 envelope and the health bypass
func TestRateLimitMiddleware(t *testing.T) {
	rl, _ := newTestLimiter(t, RateLimitConfig{
		Enabled: true, Type: RateLimitTypeIP, RequestsPerMinute: 30, Burst: 1,
	})
	handler := RateLimitMiddleware(rl)(okHandler)

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/v1/analysis/price", nil))
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "30", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", first.Header().Get("X-RateLimit-Remaining"))

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/v1/analysis/price", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "2", second.Header().Get("Retry-After"))
	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(second.Body).Decode(&body))
	assert.Equal(t, "rate_limit_exceeded", body.Code)
	assert.Len(t, body.Details, 2)

	health := httptest.NewRecorder()
	handler.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, health.Code)
}

// TestRateLimiter_RemoveIdle tests cleanup of unused buckets
func TestRateLimiter_RemoveIdle(t *testing.T) {
	rl, current := newTestLimiter(t, RateLimitConfig{
		Enabled: true, Type: RateLimitTypeIP, RequestsPerMinute: 60, Burst: 5,
	})
	rl.IsAllowed("1.1.1.1", false)
	rl.IsAllowed("2.2.2.2", true)
	assert.Equal(t, 2, rl.GetRateLimitStats()["active_ip_limits"])

	*current = current.Add(10 * time.Minute)
	rl.removeIdle()
	assert.Equal(t, 0, rl.GetRateLimitStats()["active_ip_limits"])
}

// TestParseRateLimitConfig tests parsing with fallbacks
func TestParseRateLimitConfig(t *testing.T) {
	cfg := &config.Config{
		RateLimitEnabled:                "false",
		RateLimitType:                   "BOTH",
		RateLimitRequestsPerMinute:      "-3",
		RateLimitBurst:                  "7",
		RateLimitAdminRequestsPerMinute: "abc",
	}

	parsed := ParseRateLimitConfig(cfg)

	assert.False(t, parsed.Enabled)
	assert.Equal(t, RateLimitTypeBoth, parsed.Type)
	assert.Equal(t, 100, parsed.RequestsPerMinute)
	assert.Equal(t, 7, parsed.Burst)
	assert.Equal(t, 50, parsed.AdminRequestsPerMinute)
	assert.Equal(t, RateLimitTypeIP, parseRateLimitType("weird"))
}
