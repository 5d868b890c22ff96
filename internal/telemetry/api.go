package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "meli-analytics-api"

// ApiTelemetry holds the instruments for the HTTP API and the analytics pipeline
type ApiTelemetry struct {
	meter metric.Meter

	requestCounter    metric.Int64Counter
	errorCounter      metric.Int64Counter
	durationHistogram metric.Float64Histogram

	analysisCounter   metric.Int64Counter
	advisoryCounter   metric.Int64Counter
	refreshCounter    metric.Int64Counter
	competitorCounter metric.Int64Counter
}

// ApiMetrics is the telemetry of one request
type ApiMetrics struct {
	Method       string
	Endpoint     string
	StatusCode   int
	Duration     time.Duration
	ErrorMessage string
	ClientIP     string
	ClientIPType string
}

func NewApiTelemetry() *ApiTelemetry {
	return &ApiTelemetry{}
}

// InitializeTelemetry creates the instruments on meter, or on the global
// provider when meter is nil
func (t *ApiTelemetry) InitializeTelemetry(ctx context.Context, meter metric.Meter) error {
	slog.Info("Initializing API telemetry")

	if meter == nil {
		meter = otel.Meter(meterName)
	}
	t.meter = meter

	var err error
	if t.requestCounter, err = t.meter.Int64Counter(
		"meli_api_requests_total",
		metric.WithDescription("Total number of API requests"),
		metric.WithUnit("1"),
	); err != nil {
		return fmt.Errorf("failed to create request counter: %w", err)
	}

	if t.errorCounter, err = t.meter.Int64Counter(
		"meli_api_errors_total",
		metric.WithDescription("Total number of API requests answered with an error status"),
		metric.WithUnit("1"),
	); err != nil {
		return fmt.Errorf("failed to create error counter: %w", err)
	}

	if t.durationHistogram, err = t.meter.Float64Histogram(
		"meli_api_request_duration_seconds",
		metric.WithDescription("Duration of API requests"),
		metric.WithUnit("s"),
	); err != nil {
		return fmt.Errorf("failed to create duration histogram: %w", err)
	}

	if t.analysisCounter, err = t.meter.Int64Counter(
		"meli_analyses_total",
		metric.WithDescription("Analyses run, by kind"),
		metric.WithUnit("1"),
	); err != nil {
		return fmt.Errorf("failed to create analysis counter: %w", err)
	}

	if t.advisoryCounter, err = t.meter.Int64Counter(
		"meli_advisories_total",
		metric.WithDescription("Advisories emitted, by severity"),
		metric.WithUnit("1"),
	); err != nil {
		return fmt.Errorf("failed to create advisory counter: %w", err)
	}

	if t.refreshCounter, err = t.meter.Int64Counter(
		"meli_token_refreshes_total",
		metric.WithDescription("Token refresh attempts, by outcome"),
		metric.WithUnit("1"),
	); err != nil {
		return fmt.Errorf("failed to create refresh counter: %w", err)
	}

	if t.competitorCounter, err = t.meter.Int64Counter(
		"meli_competitor_fetches_total",
		metric.WithDescription("Catalog competitor fetches, by outcome"),
		metric.WithUnit("1"),
	); err != nil {
		return fmt.Errorf("failed to create competitor counter: %w", err)
	}

	slog.Info("API telemetry initialized successfully")
	return nil
}

// RegisterRequestReceived records a successful request
func (t *ApiTelemetry) RegisterRequestReceived(ctx context.Context, m ApiMetrics) {
	if t.requestCounter == nil {
		return
	}
	t.requestCounter.Add(ctx, 1, metric.WithAttributes(requestAttributes(m)...))

	slog.Debug("Recorded API request",
		"method", m.Method,
		"endpoint", m.Endpoint,
		"status_code", m.StatusCode,
		"client_ip_type", m.ClientIPType,
		"duration_ms", m.Duration.Milliseconds(),
	)
}

// RegisterRequestError records a request answered with status >= 400
func (t *ApiTelemetry) RegisterRequestError(ctx context.Context, m ApiMetrics) {
	if t.errorCounter == nil || t.requestCounter == nil {
		return
	}
	attrs := requestAttributes(m)
	t.requestCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	t.errorCounter.Add(ctx, 1, metric.WithAttributes(append(attrs, attribute.String("error_type", categorizeStatus(m.StatusCode)))...))

	slog.Debug("Recorded API error",
		"method", m.Method,
		"endpoint", m.Endpoint,
		"status_code", m.StatusCode,
		"error", m.ErrorMessage,
	)
}

func (t *ApiTelemetry) RegisterRequestDuration(ctx context.Context, m ApiMetrics) {
	if t.durationHistogram == nil {
		return
	}
	t.durationHistogram.Record(ctx, m.Duration.Seconds(), metric.WithAttributes(
		attribute.String("method", m.Method),
		attribute.String("endpoint", m.Endpoint),
	))
}

// RecordAnalysis counts one analysis of kind and the advisories it produced
func (t *ApiTelemetry) RecordAnalysis(ctx context.Context, kind string, advisoriesBySeverity map[string]int) {
	if t.analysisCounter == nil {
		return
	}
	t.analysisCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
	for severity, n := range advisoriesBySeverity {
		t.advisoryCounter.Add(ctx, int64(n), metric.WithAttributes(attribute.String("severity", severity)))
	}
}

// RecordTokenRefresh counts a refresh attempt by outcome
func (t *ApiTelemetry) RecordTokenRefresh(ctx context.Context, outcome string) {
	if t.refreshCounter == nil {
		return
	}
	t.refreshCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordCompetitorFetch counts a competitor fetch by outcome (hit, miss, error)
func (t *ApiTelemetry) RecordCompetitorFetch(ctx context.Context, outcome string) {
	if t.competitorCounter == nil {
		return
	}
	t.competitorCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// requestAttributes keeps cardinality low: no raw IPs, no ids
func requestAttributes(m ApiMetrics) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("method", m.Method),
		attribute.String("endpoint", m.Endpoint),
		attribute.Int("status_code", m.StatusCode),
	}
	if m.ClientIPType != "" {
		attrs = append(attrs, attribute.String("client_ip_type", m.ClientIPType))
	}
	return attrs
}

func categorizeStatus(status int) string {
	switch {
	case status == 401 || status == 403:
		return "auth"
	case status == 404:
		return "not_found"
	case status == 409:
		return "conflict"
	case status == 422 || status == 400:
		return "validation"
	case status == 429:
		return "rate_limited"
	case status == 502 || status == 504:
		return "upstream"
	case status >= 500:
		return "server"
	default:
		return "other"
	}
}

// NormalizeClientIP categorizes client IPs to control cardinality
func NormalizeClientIP(clientIP string) string {
	if clientIP == "" {
		return "unknown"
	}

	ip := net.ParseIP(clientIP)
	if ip == nil {
		return "invalid"
	}
	if ip.IsLoopback() {
		return "localhost"
	}
	if ip.IsPrivate() || ip.IsLinkLocalUnicast() {
		return "internal"
	}
	return "external"
}
