package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestTelemetry(t *testing.T) (*DashboardTelemetry, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	dt := NewDashboardTelemetry(provider.Meter("inventory-dashboard-test"))
	require.NoError(t, dt.InitializeTelemetry(context.Background()))
	return dt, reader
}

// counterValue sums every data point of a counter that carries all of attrs
func counterValue(t *testing.T, reader *sdkmetric.ManualReader, name string, attrs ...attribute.KeyValue) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				matches := true
				for _, kv := range attrs {
					v, found := dp.Attributes.Value(kv.Key)
					if !found || v != kv.Value {
						matches = false
						break
					}
				}
				if matches {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func TestTelemetryMiddleware_RecordsByRouteTemplate(t *testing.T) {
	dt, reader := newTestTelemetry(t)

	router := mux.NewRouter()
	router.Use(NewTelemetryMiddleware(dt).Middleware)
	router.HandleFunc("/api/dashboard/upload/{resource}", func(w http.ResponseWriter, r *http.Request) {
		if mux.Vars(r)["resource"] == "broken" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodPost)

	for _, resource := range []string{"inventory", "orders", "broken"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/dashboard/upload/"+resource, nil))
	}

	endpoint := attribute.String("endpoint", "/api/dashboard/upload/{resource}")
	assert.Equal(t, int64(2), counterValue(t, reader, "dashboard_api_requests_total", endpoint))
	assert.Equal(t, int64(1), counterValue(t, reader, "dashboard_api_errors_total",
		endpoint, attribute.String("error_type", "upstream_error")))
}

func TestResponseWriterWrapper_Flushes(t *testing.T) {
	rec := httptest.NewRecorder()
	wrapper := &responseWriterWrapper{ResponseWriter: rec, statusCode: http.StatusOK}

	var w http.ResponseWriter = wrapper
	flusher, ok := w.(http.Flusher)
	require.True(t, ok)

	_, _ = wrapper.Write([]byte("data: x\n\n"))
	flusher.Flush()
	wrapper.WriteHeader(http.StatusTeapot)

	assert.True(t, rec.Flushed)
	assert.Equal(t, http.StatusOK, wrapper.statusCode)
}

func TestDashboardTelemetry_Recorders(t *testing.T) {
	dt, reader := newTestTelemetry(t)
	ctx := context.Background()

	dt.RecordBackendRequest(ctx, "/api/inventory", 200, 20*time.Millisecond)
	dt.RecordBackendRequest(ctx, "/api/inventory", 0, time.Second)
	dt.RecordSwallowedError(ctx, "/api/inventory", "transport")
	dt.RecordUpload(ctx, "orders", false)
	dt.RecordCacheLookup(ctx, "inventory", true)
	dt.RecordCacheLookup(ctx, "inventory", false)
	dt.RecordCacheLookup(ctx, "inventory", true)
	dt.RecordRefreshFailure(ctx, "orders")
	dt.RecordSignal(ctx, "ordersUpdated", 3, 1)

	assert.Equal(t, int64(1), counterValue(t, reader, "dashboard_backend_requests_total", attribute.String("status_class", "transport_error")))
	assert.Equal(t, int64(1), counterValue(t, reader, "dashboard_backend_swallowed_errors_total", attribute.String("kind", "transport")))
	assert.Equal(t, int64(1), counterValue(t, reader, "dashboard_uploads_total", attribute.Bool("success", false)))
	assert.Equal(t, int64(2), counterValue(t, reader, "dashboard_cache_lookups_total", attribute.String("result", "hit")))
	assert.Equal(t, int64(1), counterValue(t, reader, "dashboard_cache_refresh_failures_total"))
	assert.Equal(t, int64(3), counterValue(t, reader, "dashboard_signals_delivered_total"))
	assert.Equal(t, int64(1), counterValue(t, reader, "dashboard_signals_dropped_total"))
}

func TestDashboardTelemetry_UninitializedIsSafe(t *testing.T) {
	dt := &DashboardTelemetry{}
	ctx := context.Background()

	assert.NotPanics(t, func() {
		dt.RegisterRequestReceived(ctx, DashboardApiMetrics{})
		dt.RegisterRequestError(ctx, DashboardApiMetrics{})
		dt.RegisterRequestDuration(ctx, DashboardApiMetrics{})
		dt.RecordBackendRequest(ctx, "/api/orders", 500, time.Millisecond)
		dt.RecordCacheLookup(ctx, "orders", false)
		dt.RecordSignal(ctx, "ordersUpdated", 1, 0)
	})
}

func TestNormalizeClientIP(t *testing.T) {
	testCases := map[string]string{
		"":            "unknown",
		"not-an-ip":   "invalid",
		"127.0.0.1":   "localhost",
		"10.1.2.3":    "internal",
		"192.168.0.4": "internal",
		"fe80::1":     "internal",
		"8.8.8.8":     "external",
	}

	for input, want := range testCases {
		assert.Equal(t, want, NormalizeClientIP(input), input)
	}
}

func TestCategorizeError(t *testing.T) {
	assert.Equal(t, "unknown", categorizeError(""))
	assert.Equal(t, "not_found", categorizeError(http.StatusText(http.StatusNotFound)))
	assert.Equal(t, "payload_too_large", categorizeError(http.StatusText(http.StatusRequestEntityTooLarge)))
	assert.Equal(t, "upstream_error", categorizeError(http.StatusText(http.StatusBadGateway)))
	assert.Equal(t, "other", categorizeError("I'm a teapot"))
}
