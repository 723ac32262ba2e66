package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENVIRONMENT", "API_BASE_URL", "CACHE_FRESHNESS_WINDOW", "KAFKA_BROKERS"} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()

	assert.Equal(t, "8090", cfg.Port)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "http://localhost:8000", cfg.APIBaseURL)
	assert.Equal(t, 30*time.Second, cfg.FreshnessWindow())
	assert.Equal(t, 10*time.Second, cfg.Timeout())
	assert.Empty(t, cfg.KafkaBrokerList())
	assert.Empty(t, cfg.Warnings())
}

func TestFromEnv_TrimsTrailingSlash(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://backend.example.com/")

	cfg := FromEnv()

	assert.Equal(t, "https://backend.example.com", cfg.APIBaseURL)
}

func TestWarnings(t *testing.T) {
	testCases := []struct {
		name     string
		config   Config
		contains string
	}{
		{
			name:     "plain HTTP in production",
			config:   Config{Environment: "production", APIBaseURL: "http://backend.example.com"},
			contains: "should use HTTPS",
		},
		{
			name:     "relative URL",
			config:   Config{Environment: "development", APIBaseURL: "backend"},
			contains: "not an absolute URL",
		},
		{
			name:     "bad freshness window",
			config:   Config{APIBaseURL: "https://backend.example.com", CacheFreshnessWindow: "soon"},
			contains: "CACHE_FRESHNESS_WINDOW",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := tc.config
			if cfg.RequestTimeout == "" {
				cfg.RequestTimeout = "10s"
			}
			if cfg.CacheFreshnessWindow == "" {
				cfg.CacheFreshnessWindow = "30s"
			}
			if cfg.MaxUploadSizeBytes == "" {
				cfg.MaxUploadSizeBytes = "1024"
			}

			warnings := cfg.Warnings()

			if assert.Len(t, warnings, 1) {
				assert.Contains(t, warnings[0], tc.contains)
			}
		})
	}
}

func TestWarnings_HTTPSInProductionIsClean(t *testing.T) {
	cfg := Config{
		Environment:          "production",
		APIBaseURL:           "https://backend.example.com",
		RequestTimeout:       "5s",
		CacheFreshnessWindow: "30s",
		MaxUploadSizeBytes:   "1024",
	}

	assert.Empty(t, cfg.Warnings())
}

func TestTypedAccessorsFallBack(t *testing.T) {
	cfg := Config{
		RequestTimeout:       "never",
		CacheFreshnessWindow: "-1s",
		MaxUploadSizeBytes:   "lots",
		SignalBufferSize:     "0",
		AllowedOrigins:       " http://a.example , ,http://b.example",
	}

	assert.Equal(t, defaultRequestTimeout, cfg.Timeout())
	assert.Equal(t, defaultFreshnessWindow, cfg.FreshnessWindow())
	assert.Equal(t, int64(defaultMaxUploadBytes), cfg.MaxUploadBytes())
	assert.Equal(t, defaultSignalBuffer, cfg.SignalBuffer())
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.AllowedOriginList())
}
