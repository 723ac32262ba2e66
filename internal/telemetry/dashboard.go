package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DashboardTelemetry provides telemetry for the dashboard API and its backend traffic
type DashboardTelemetry struct {
	meter metric.Meter

	// HTTP surface
	requestCounter    metric.Int64Counter
	errorCounter      metric.Int64Counter
	durationHistogram metric.Float64Histogram

	// Backend traffic
	backendRequestCounter  metric.Int64Counter
	backendDuration        metric.Float64Histogram
	swallowedErrorCounter  metric.Int64Counter
	uploadCounter          metric.Int64Counter
	cacheLookupCounter     metric.Int64Counter
	refreshFailureCounter  metric.Int64Counter
	signalDeliveredCounter metric.Int64Counter
	signalDroppedCounter   metric.Int64Counter
}

// DashboardApiMetrics contains the telemetry data for a request
type DashboardApiMetrics struct {
	Method       string
	Endpoint     string
	StatusCode   int
	Duration     time.Duration
	ErrorMessage string
	// Client information with controlled cardinality
	ClientIP     string // Raw IP for logging, will be normalized for metrics
	ClientIPType string // Normalized IP type: "internal", "external", "unknown"
}

// NewDashboardTelemetry creates a new instance of DashboardTelemetry
func NewDashboardTelemetry(meter metric.Meter) *DashboardTelemetry {
	return &DashboardTelemetry{meter: meter}
}

// InitializeTelemetry sets up all the telemetry instruments
func (t *DashboardTelemetry) InitializeTelemetry(ctx context.Context) error {
	slog.Info("Initializing dashboard telemetry")

	counters := []struct {
		target      *metric.Int64Counter
		name        string
		description string
	}{
		{&t.requestCounter, "dashboard_api_requests_total", "Total number of dashboard API requests"},
		{&t.errorCounter, "dashboard_api_errors_total", "Total number of dashboard API errors"},
		{&t.backendRequestCounter, "dashboard_backend_requests_total", "Total number of requests sent to the inventory backend"},
		{&t.swallowedErrorCounter, "dashboard_backend_swallowed_errors_total", "Backend read failures served as empty values"},
		{&t.uploadCounter, "dashboard_uploads_total", "Total number of file uploads forwarded to the backend"},
		{&t.cacheLookupCounter, "dashboard_cache_lookups_total", "Refresh cache lookups by result"},
		{&t.refreshFailureCounter, "dashboard_cache_refresh_failures_total", "Failed cache refreshes"},
		{&t.signalDeliveredCounter, "dashboard_signals_delivered_total", "Change signals delivered to subscribers"},
		{&t.signalDroppedCounter, "dashboard_signals_dropped_total", "Change signals dropped for full subscribers"},
	}

	var err error
	for _, c := range counters {
		*c.target, err = t.meter.Int64Counter(c.name,
			metric.WithDescription(c.description),
			metric.WithUnit("1"),
		)
		if err != nil {
			slog.Error("Failed to create counter", "name", c.name, "error", err)
			return fmt.Errorf("failed to create counter %s: %w", c.name, err)
		}
	}

	t.durationHistogram, err = t.meter.Float64Histogram(
		"dashboard_api_request_duration_seconds",
		metric.WithDescription("Duration of dashboard API requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		slog.Error("Failed to create duration histogram", "error", err)
		return fmt.Errorf("failed to create duration histogram: %w", err)
	}

	t.backendDuration, err = t.meter.Float64Histogram(
		"dashboard_backend_request_duration_seconds",
		metric.WithDescription("Duration of requests sent to the inventory backend"),
		metric.WithUnit("s"),
	)
	if err != nil {
		slog.Error("Failed to create backend duration histogram", "error", err)
		return fmt.Errorf("failed to create backend duration histogram: %w", err)
	}

	slog.Info("Dashboard telemetry initialized successfully")
	return nil
}

// RegisterRequestReceived records a successful API request
func (t *DashboardTelemetry) RegisterRequestReceived(ctx context.Context, metrics DashboardApiMetrics) {
	if t.requestCounter == nil {
		slog.Warn("Request counter not initialized")
		return
	}

	t.requestCounter.Add(ctx, 1, metric.WithAttributes(requestAttributes(metrics)...))

	slog.Debug("Recorded successful API request",
		"method", metrics.Method,
		"endpoint", metrics.Endpoint,
		"status_code", metrics.StatusCode,
		"client_ip_type", metrics.ClientIPType,
		"duration_ms", metrics.Duration.Milliseconds(),
	)
}

// RegisterRequestError records a failed API request
func (t *DashboardTelemetry) RegisterRequestError(ctx context.Context, metrics DashboardApiMetrics) {
	if t.errorCounter == nil {
		slog.Warn("Error counter not initialized")
		return
	}

	attrs := append(requestAttributes(metrics), attribute.String("error_type", categorizeError(metrics.ErrorMessage)))
	t.errorCounter.Add(ctx, 1, metric.WithAttributes(attrs...))

	slog.Warn("Recorded API request error",
		"method", metrics.Method,
		"endpoint", metrics.Endpoint,
		"status_code", metrics.StatusCode,
		"client_ip", metrics.ClientIP,
		"error", metrics.ErrorMessage,
	)
}

// RegisterRequestDuration records the duration of an API request
func (t *DashboardTelemetry) RegisterRequestDuration(ctx context.Context, metrics DashboardApiMetrics) {
	if t.durationHistogram == nil {
		slog.Warn("Duration histogram not initialized")
		return
	}

	t.durationHistogram.Record(ctx, metrics.Duration.Seconds(), metric.WithAttributes(requestAttributes(metrics)...))
}

// RecordBackendRequest records one request to the inventory backend
func (t *DashboardTelemetry) RecordBackendRequest(ctx context.Context, endpoint string, statusCode int, duration time.Duration) {
	if t.backendRequestCounter == nil || t.backendDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.String("status_class", statusClass(statusCode)),
	)
	t.backendRequestCounter.Add(ctx, 1, attrs)
	t.backendDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordSwallowedError records a read failure that was served as an empty value
func (t *DashboardTelemetry) RecordSwallowedError(ctx context.Context, endpoint, kind string) {
	if t.swallowedErrorCounter == nil {
		return
	}
	t.swallowedErrorCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.String("kind", kind),
	))
}

// RecordUpload records the outcome of a forwarded upload
func (t *DashboardTelemetry) RecordUpload(ctx context.Context, resource string, success bool) {
	if t.uploadCounter == nil {
		return
	}
	t.uploadCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("resource", resource),
		attribute.Bool("success", success),
	))
}

// RecordCacheLookup records a refresh cache hit or miss
func (t *DashboardTelemetry) RecordCacheLookup(ctx context.Context, resource string, hit bool) {
	if t.cacheLookupCounter == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	t.cacheLookupCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("resource", resource),
		attribute.String("result", result),
	))
}

// RecordRefreshFailure records a failed cache refresh
func (t *DashboardTelemetry) RecordRefreshFailure(ctx context.Context, resource string) {
	if t.refreshFailureCounter == nil {
		return
	}
	t.refreshFailureCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("resource", resource)))
}

// RecordSignal records the fan-out of one change signal
func (t *DashboardTelemetry) RecordSignal(ctx context.Context, topic string, delivered, dropped int) {
	if t.signalDeliveredCounter == nil || t.signalDroppedCounter == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("topic", topic))
	t.signalDeliveredCounter.Add(ctx, int64(delivered), attrs)
	if dropped > 0 {
		t.signalDroppedCounter.Add(ctx, int64(dropped), attrs)
	}
}

// Low-cardinality attributes only to prevent metric explosion
func requestAttributes(metrics DashboardApiMetrics) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("method", metrics.Method),
		attribute.String("endpoint", metrics.Endpoint),
		attribute.Int("status_code", metrics.StatusCode),
	}
	if metrics.ClientIPType != "" {
		attrs = append(attrs, attribute.String("client_ip_type", metrics.ClientIPType))
	}
	return attrs
}

func statusClass(statusCode int) string {
	switch {
	case statusCode == 0:
		return "transport_error"
	case statusCode < 300:
		return "2xx"
	case statusCode < 400:
		return "3xx"
	case statusCode < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

// categorizeError groups similar errors to prevent high cardinality
func categorizeError(errorMessage string) string {
	if errorMessage == "" {
		return "unknown"
	}

	msg := strings.ToLower(errorMessage)
	switch {
	case strings.Contains(msg, "not found"):
		return "not_found"
	case strings.Contains(msg, "bad request"):
		return "bad_request"
	case strings.Contains(msg, "too large"):
		return "payload_too_large"
	case strings.Contains(msg, "forbidden"):
		return "forbidden"
	case strings.Contains(msg, "bad gateway"):
		return "upstream_error"
	case strings.Contains(msg, "timeout"):
		return "timeout"
	case strings.Contains(msg, "internal"):
		return "internal_error"
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
