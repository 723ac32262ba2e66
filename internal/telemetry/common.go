package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	api "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

const (
	ExporterScraper = "scraper"
	ExporterGRPC    = "grpc"
)

// Config selects how metrics leave the process
type Config struct {
	MeterName string
	// Exporter is "scraper" for a Prometheus endpoint, anything else pushes over OTLP gRPC
	Exporter string
	// Port serves /metrics when Exporter is "scraper"
	Port string
}

// Structure for Open Telemetry variables
type Telemetry struct {
	server   *http.Server          // If type of metrics collection == "scraper".
	Provider *metric.MeterProvider // If not scraper use gRPC.
	meter    api.Meter             // meter to create metrics.
}

// InitMetrics initializes metrics depending on the configured exporter.
// On exporter failure the global no-op provider stays in place.
func InitMetrics(ctx context.Context, cfg Config) *Telemetry {
	t := &Telemetry{}

	if cfg.Exporter == ExporterScraper {
		slog.Info("Starting metrics with scraper exporter", "port", cfg.Port)
		t.initScrapeMetrics(cfg.MeterName, cfg.Port) // Serves a page on http://localhost:<port>/metrics .
	} else {
		slog.Info("Starting metrics with grpc exporter")
		t.initGRPCMetrics(ctx, cfg.MeterName) // Sends data to localhost:4317 or whatever OTEL_EXPORTER_OTLP_METRICS_ENDPOINT is set to.
	}

	if t.meter == nil {
		t.meter = otel.Meter(cfg.MeterName)
	}
	return t
}

// Meter returns the meter instruments should be created from
func (t *Telemetry) Meter() api.Meter {
	return t.meter
}

// Close flushes pending metrics and stops the scrape endpoint
func (t *Telemetry) Close(ctx context.Context) {
	if t.Provider != nil {
		if err := t.Provider.ForceFlush(ctx); err != nil {
			slog.Warn("Flushing metrics", "error", err)
		}
		if err := t.Provider.Shutdown(ctx); err != nil {
			slog.Warn("Shutting down meter provider", "error", err)
		}
	}
	t.shutdownScraperMetrics(ctx)
}

// Initialize GRPC metrics exporter. https://opentelemetry.io/docs/languages/go/exporters/#otlp-metrics-over-grpc.
func (t *Telemetry) initGRPCMetrics(ctx context.Context, meterName string) {
	// The URL to export is set via environment variable
	// OTEL_EXPORTER_OTLP_METRICS_ENDPOINT and if not set it is  "localhost:4317"
	exporter, err := otlpmetricgrpc.New(ctx)
	if err != nil {
		slog.Error("Creating GRPC exporter", "error", err)

		return
	}

	t.Provider = metric.NewMeterProvider(metric.WithReader(metric.NewPeriodicReader(exporter)))
	otel.SetMeterProvider(t.Provider)
	t.meter = t.Provider.Meter(meterName)
}

// Initialize scrape metrics exporter. https://github.com/open-telemetry/opentelemetry-go/blob/main/example/prometheus/main.go.
func (t *Telemetry) initScrapeMetrics(meterName, port string) {
	// The exporter embeds a default OpenTelemetry Reader and
	// implements prometheus.Collector, allowing it to be used as
	// both a Reader and Collector.
	exporter, err := prometheus.New()
	if err != nil {
		slog.Error("Creating HTML scrape exporter", "error", err)

		return
	}

	t.Provider = metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(t.Provider)
	t.meter = t.Provider.Meter(meterName)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	t.server = &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go t.serveMetrics()
}

// Run metrics server for "scraper" open telemetry collector
func (t *Telemetry) serveMetrics() {
	slog.Info("Serving metrics", "addr", t.server.Addr, "path", "/metrics")

	err := t.server.ListenAndServe()
	if err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			slog.Info("Shutting down server", "message", err)
		} else {
			slog.Error("ListenAndServe exited with", "error", err)
		}

		return
	}
}

// Shutdown HTTP server used for "scraper" metrics collection.
func (t *Telemetry) shutdownScraperMetrics(ctx context.Context) {
	if t.server != nil {
		_ = t.server.Shutdown(ctx)
		slog.Info("Shutting down metrics server")
	}
}
