package middleware

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/models"
	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/telemetry"
)

// RateLimitType defines the type of rate limiting
type RateLimitType string

const (
	RateLimitTypeIP     RateLimitType = "ip"
	RateLimitTypeGlobal RateLimitType = "global"
	RateLimitTypeBoth   RateLimitType = "both"
)

const idleLimiterTTL = 5 * time.Minute

// RateLimitConfig holds rate limiting configuration. Limits are token
// buckets refilled at RequestsPerMinute with Burst capacity.
type RateLimitConfig struct {
	Enabled                bool
	Type                   RateLimitType
	RequestsPerMinute      int
	Burst                  int
	AdminRequestsPerMinute int
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP (separate buckets for
// admin routes) plus an optional global bucket
type RateLimiter struct {
	config        RateLimitConfig
	ipLimits      map[string]*limiterEntry
	globalLimit   *rate.Limiter
	mutex         sync.Mutex
	now           func() time.Time
	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	stopOnce      sync.Once
}

// RateLimitInfo contains rate limit information for response headers
type RateLimitInfo struct {
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = 100
	}
	if config.AdminRequestsPerMinute <= 0 {
		config.AdminRequestsPerMinute = config.RequestsPerMinute
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}

	rl := &RateLimiter{
		config:      config,
		ipLimits:    make(map[string]*limiterEntry),
		globalLimit: newBucket(config.RequestsPerMinute, config.Burst),
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}

	rl.cleanupTicker = time.NewTicker(time.Minute)
	go rl.cleanupExpiredEntries()

	slog.Info("Rate limiter initialized",
		"enabled", config.Enabled,
		"type", config.Type,
		"requests_per_minute", config.RequestsPerMinute,
		"burst", config.Burst,
		"admin_requests_per_minute", config.AdminRequestsPerMinute)
	return rl
}

func newBucket(perMinute, burst int) *rate.Limiter {
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst)
}

// Stop stops the cleanup goroutine
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		rl.cleanupTicker.Stop()
		close(rl.stopCleanup)
	})
}

func (rl *RateLimiter) cleanupExpiredEntries() {
	for {
		select {
		case <-rl.cleanupTicker.C:
			rl.removeIdle()
		case <-rl.stopCleanup:
			return
		}
	}
}

// removeIdle drops buckets unused for idleLimiterTTL; they would be full again anyway
func (rl *RateLimiter) removeIdle() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	cutoff := rl.now().Add(-idleLimiterTTL)
	for key, entry := range rl.ipLimits {
		if entry.lastSeen.Before(cutoff) {
			delete(rl.ipLimits, key)
		}
	}
}

// IsAllowed consumes one token for the request if the configured buckets allow it
func (rl *RateLimiter) IsAllowed(clientIP string, isAdmin bool) (bool, *RateLimitInfo) {
	if !rl.config.Enabled {
		return true, &RateLimitInfo{Limit: -1, Remaining: -1}
	}

	now := rl.now()
	limit := rl.config.RequestsPerMinute
	if isAdmin {
		limit = rl.config.AdminRequestsPerMinute
	}

	var buckets []*rate.Limiter
	if rl.config.Type == RateLimitTypeIP || rl.config.Type == RateLimitTypeBoth {
		buckets = append(buckets, rl.ipBucket(clientIP, isAdmin, limit, now))
	}
	if rl.config.Type == RateLimitTypeGlobal || rl.config.Type == RateLimitTypeBoth {
		rl.mutex.Lock()
		buckets = append(buckets, rl.globalLimit)
		rl.mutex.Unlock()
	}

	// reserve from every bucket first so a denial does not spend tokens elsewhere
	reservations := make([]*rate.Reservation, len(buckets))
	var wait time.Duration
	for i, b := range buckets {
		reservations[i] = b.ReserveN(now, 1)
		if !reservations[i].OK() {
			wait = time.Minute
			continue
		}
		if d := reservations[i].DelayFrom(now); d > wait {
			wait = d
		}
	}

	info := &RateLimitInfo{Limit: limit, Remaining: math.MaxInt}
	if wait > 0 {
		for _, r := range reservations {
			r.CancelAt(now)
		}
		info.Remaining = 0
		info.RetryAfter = wait
		return false, info
	}

	for _, b := range buckets {
		if remaining := int(math.Floor(b.TokensAt(now))); remaining < info.Remaining {
			info.Remaining = remaining
		}
	}
	if info.Remaining < 0 {
		info.Remaining = 0
	}
	return true, info
}

func (rl *RateLimiter) ipBucket(clientIP string, isAdmin bool, perMinute int, now time.Time) *rate.Limiter {
	key := clientIP
	if isAdmin {
		key = "admin|" + clientIP
	}

	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	entry, exists := rl.ipLimits[key]
	if !exists {
		entry = &limiterEntry{limiter: newBucket(perMinute, rl.config.Burst)}
		rl.ipLimits[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// RateLimitMiddleware creates a rate limiting middleware using an existing rate limiter
func RateLimitMiddleware(rateLimiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			clientIP := telemetry.ClientIP(r)
			isAdmin := strings.HasPrefix(r.URL.Path, "/v1/admin")

			allowed, info := rateLimiter.IsAllowed(clientIP, isAdmin)
			setRateLimitHeaders(w, info)

			if !allowed {
				slog.Warn("Rate limit exceeded",
					"client_ip", clientIP,
					"path", r.URL.Path,
					"method", r.Method,
					"is_admin", isAdmin,
					"limit", info.Limit,
					"retry_after", info.RetryAfter.String())
				writeRateLimitErrorResponse(w, info)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func setRateLimitHeaders(w http.ResponseWriter, info *RateLimitInfo) {
	if info.Limit < 0 {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
}

func writeRateLimitErrorResponse(w http.ResponseWriter, info *RateLimitInfo) {
	retryAfter := int(math.Ceil(info.RetryAfter.Seconds()))
	if retryAfter < 1 {
		retryAfter = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

	writeErrorResponse(w, http.StatusTooManyRequests, "rate_limit_exceeded",
		"Rate limit exceeded. Please try again later.",
		[]models.ErrorDetail{
			{Field: "rate_limit", Issue: fmt.Sprintf("Exceeded %d requests per minute.", info.Limit)},
			{Field: "retry_after", Issue: fmt.Sprintf("Retry after %d seconds", retryAfter)},
		})
}

// GetRateLimitStats returns current rate limiting statistics
func (rl *RateLimiter) GetRateLimitStats() map[string]interface{} {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	stats := map[string]interface{}{
		"enabled":                   rl.config.Enabled,
		"type":                      string(rl.config.Type),
		"requests_per_minute":       rl.config.RequestsPerMinute,
		"burst":                     rl.config.Burst,
		"admin_requests_per_minute": rl.config.AdminRequestsPerMinute,
		"active_ip_limits":          len(rl.ipLimits),
	}
	if rl.config.Type == RateLimitTypeGlobal || rl.config.Type == RateLimitTypeBoth {
		stats["global_tokens_available"] = math.Floor(rl.globalLimit.TokensAt(rl.now()))
	}
	return stats
}

// ResetRateLimits refills every bucket
func (rl *RateLimiter) ResetRateLimits() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	rl.ipLimits = make(map[string]*limiterEntry)
	rl.globalLimit = newBucket(rl.config.RequestsPerMinute, rl.config.Burst)
	slog.Info("Rate limits reset")
}
