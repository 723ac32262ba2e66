package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"inventory-dashboard/internal/utils"

	"github.com/joho/godotenv"
)

const (
	defaultRequestTimeout  = 10 * time.Second
	defaultFreshnessWindow = 30 * time.Second
	defaultMaxUploadBytes  = 10 << 20
	defaultSignalBuffer    = 16
)

// Config holds all configuration for the application
type Config struct {
	Port                 string
	Environment          string
	LogLevel             string
	APIBaseURL           string
	RequestTimeout       string
	CacheFreshnessWindow string
	AllowedOrigins       string
	MaxUploadSizeBytes   string
	SignalBufferSize     string
	KafkaBrokers         string
	KafkaTopic           string
	KafkaGroupID         string
	MetricsExporter      string
	MetricsPort          string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() *Config {
	// Load .env file if it exists
	// This will not override existing environment variables
	err := godotenv.Load()
	if err != nil {
		slog.Warn("Could not load .env file, continuing with system environment variables only", "error", err)
	} else {
		slog.Info("Successfully loaded .env file")
	}

	config := FromEnv()

	utils.SetupLogging(config.LogLevel, config.Environment)

	slog.Info("Configuration loaded",
		"port", config.Port,
		"environment", config.Environment,
		"logLevel", config.LogLevel,
		"apiBaseUrl", config.APIBaseURL,
		"requestTimeout", config.RequestTimeout,
		"cacheFreshnessWindow", config.CacheFreshnessWindow,
		"allowedOrigins", config.AllowedOrigins,
		"kafkaBrokers", config.KafkaBrokers,
		"metricsExporter", config.MetricsExporter)

	for _, warning := range config.Warnings() {
		slog.Warn(warning)
	}

	return config
}

// FromEnv reads the configuration from the process environment only
func FromEnv() *Config {
	return &Config{
		Port:                 getEnvWithDefault("PORT", "8090"),
		Environment:          getEnvWithDefault("ENVIRONMENT", "development"),
		LogLevel:             getEnvWithDefault("LOG_LEVEL", "info"),
		APIBaseURL:           strings.TrimRight(getEnvWithDefault("API_BASE_URL", "http://localhost:8000"), "/"),
		RequestTimeout:       getEnvWithDefault("REQUEST_TIMEOUT", defaultRequestTimeout.String()),
		CacheFreshnessWindow: getEnvWithDefault("CACHE_FRESHNESS_WINDOW", defaultFreshnessWindow.String()),
		AllowedOrigins:       getEnvWithDefault("ALLOWED_ORIGINS", "http://localhost:3000"),
		MaxUploadSizeBytes:   getEnvWithDefault("MAX_UPLOAD_SIZE_BYTES", strconv.Itoa(defaultMaxUploadBytes)),
		SignalBufferSize:     getEnvWithDefault("SIGNAL_BUFFER_SIZE", strconv.Itoa(defaultSignalBuffer)),
		KafkaBrokers:         getEnvWithDefault("KAFKA_BROKERS", ""),
		KafkaTopic:           getEnvWithDefault("KAFKA_TOPIC", "dashboard-signals"),
		KafkaGroupID:         getEnvWithDefault("KAFKA_GROUP_ID", "dashboard-service"),
		MetricsExporter:      getEnvWithDefault("METRICS_EXPORTER", "scraper"),
		MetricsPort:          getEnvWithDefault("METRICS_PORT", "9080"),
	}
}

// getEnvWithDefault gets an environment variable with a default fallback
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Warnings reports configuration problems that do not stop the service.
// A non-HTTPS API_BASE_URL in production is a warning, never a failure.
func (c *Config) Warnings() []string {
	var warnings []string

	u, err := url.Parse(c.APIBaseURL)
	switch {
	case err != nil || u.Host == "":
		warnings = append(warnings, fmt.Sprintf("API_BASE_URL %q is not an absolute URL", c.APIBaseURL))
	case c.IsProduction() && u.Scheme != "https":
		warnings = append(warnings, "API_BASE_URL should use HTTPS in production")
	}

	if _, err := time.ParseDuration(c.RequestTimeout); err != nil {
		warnings = append(warnings, fmt.Sprintf("invalid REQUEST_TIMEOUT %q, using %s", c.RequestTimeout, defaultRequestTimeout))
	}
	if d, err := time.ParseDuration(c.CacheFreshnessWindow); err != nil || d <= 0 {
		warnings = append(warnings, fmt.Sprintf("invalid CACHE_FRESHNESS_WINDOW %q, using %s", c.CacheFreshnessWindow, defaultFreshnessWindow))
	}
	if n, err := strconv.ParseInt(c.MaxUploadSizeBytes, 10, 64); err != nil || n <= 0 {
		warnings = append(warnings, fmt.Sprintf("invalid MAX_UPLOAD_SIZE_BYTES %q, using %d", c.MaxUploadSizeBytes, defaultMaxUploadBytes))
	}

	return warnings
}

// Timeout returns the backend request timeout
func (c *Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil || d <= 0 {
		return defaultRequestTimeout
	}
	return d
}

// FreshnessWindow returns how long cached reads are served without revalidation
func (c *Config) FreshnessWindow() time.Duration {
	d, err := time.ParseDuration(c.CacheFreshnessWindow)
	if err != nil || d <= 0 {
		return defaultFreshnessWindow
	}
	return d
}

// MaxUploadBytes returns the upper bound for an uploaded file
func (c *Config) MaxUploadBytes() int64 {
	n, err := strconv.ParseInt(c.MaxUploadSizeBytes, 10, 64)
	if err != nil || n <= 0 {
		return defaultMaxUploadBytes
	}
	return n
}

// SignalBuffer returns the per-subscriber channel capacity
func (c *Config) SignalBuffer() int {
	n, err := strconv.Atoi(c.SignalBufferSize)
	if err != nil || n <= 0 {
		return defaultSignalBuffer
	}
	return n
}

// AllowedOriginList splits ALLOWED_ORIGINS on commas
func (c *Config) AllowedOriginList() []string {
	return splitList(c.AllowedOrigins)
}

// KafkaBrokerList splits KAFKA_BROKERS on commas; empty disables the relay
func (c *Config) KafkaBrokerList() []string {
	return splitList(c.KafkaBrokers)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
