package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
)

// ExporterScraper serves /metrics for a Prometheus scraper; anything else pushes over OTLP gRPC
const ExporterScraper = "scraper"

const scrapeAddr = ":9080"

// Telemetry owns the meter provider and, in scraper mode, the metrics server
type Telemetry struct {
	server   *http.Server
	Provider *metric.MeterProvider
}

var (
	once     sync.Once
	instance *Telemetry
)

// InitMetrics installs the global meter provider once per process
func InitMetrics(ctx context.Context, exporter string) *Telemetry {
	once.Do(func() {
		instance = &Telemetry{}
		if exporter == ExporterScraper {
			slog.Info("Starting metrics with scraper exporter")
			instance.initScrapeMetrics()
		} else {
			slog.Info("Starting metrics with grpc exporter")
			instance.initGRPCMetrics(ctx)
		}
	})
	return instance
}

// initGRPCMetrics exports to OTEL_EXPORTER_OTLP_METRICS_ENDPOINT, localhost:4317 by default
func (t *Telemetry) initGRPCMetrics(ctx context.Context) {
	exporter, err := otlpmetricgrpc.New(ctx)
	if err != nil {
		slog.Error("Creating GRPC exporter", "error", err)
		return
	}

	t.Provider = metric.NewMeterProvider(metric.WithReader(metric.NewPeriodicReader(exporter)))
	otel.SetMeterProvider(t.Provider)
}

func (t *Telemetry) initScrapeMetrics() {
	exporter, err := prometheus.New()
	if err != nil {
		slog.Error("Creating HTML scrape exporter", "error", err)
		return
	}

	t.Provider = metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(t.Provider)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	t.server = &http.Server{
		Addr:    scrapeAddr,
		Handler: mux,
	}
	go t.serveMetrics()
}

func (t *Telemetry) serveMetrics() {
	slog.Info("Serving metrics", "addr", scrapeAddr, "path", "/metrics")

	if err := t.server.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			slog.Info("Metrics server stopped")
			return
		}
		slog.Error("Metrics server exited", "error", err)
	}
}

// Shutdown flushes pending metrics and stops the scrape server
func (t *Telemetry) Shutdown(ctx context.Context) {
	if t == nil {
		return
	}
	if t.server != nil {
		_ = t.server.Shutdown(ctx)
		slog.Info("Shutting down metrics server")
	}
	if t.Provider != nil {
		_ = t.Provider.ForceFlush(ctx)
		_ = t.Provider.Shutdown(ctx)
	}
}
