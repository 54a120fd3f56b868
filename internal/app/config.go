package app

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains runtime settings for the widget process.
type Config struct {
	// BaseURL is the comments backend, for example http://localhost:3000.
	BaseURL  string
	LogLevel string

	// CSRFToken is sent on mutations when set. Empty means read it from
	// the backend page.
	CSRFToken string

	// RequestTimeout bounds each gateway call. Zero means no bound.
	RequestTimeout time.Duration
	// DrainTimeout bounds how long shutdown waits for in-flight requests.
	DrainTimeout time.Duration

	MetricsAddr string

	TracingEnabled     bool
	TracingEndpoint    string
	TracingServiceName string
}

// DefaultConfig returns a local-development configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:            "http://localhost:3000",
		LogLevel:           "info",
		DrainTimeout:       5 * time.Second,
		TracingEndpoint:    "localhost:4317",
		TracingServiceName: "comment-widget",
	}
}

// LoadConfigFromEnv loads config from environment variables.
//
// Supported vars:
// - APP_BASE_URL
// - APP_LOG_LEVEL (debug|info|warn|error)
// - APP_CSRF_TOKEN (empty = read from the backend page)
// - APP_REQUEST_TIMEOUT (duration, 0 = none)
// - APP_DRAIN_TIMEOUT (duration)
// - APP_METRICS_ADDR (empty = disabled)
// - APP_TRACING_ENABLED (bool)
// - APP_TRACING_ENDPOINT (OTLP gRPC host:port)
// - APP_TRACING_SERVICE_NAME
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv("APP_BASE_URL")); v != "" {
		cfg.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("APP_LOG_LEVEL")); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("APP_CSRF_TOKEN")); v != "" {
		cfg.CSRFToken = v
	}
	if v := strings.TrimSpace(os.Getenv("APP_REQUEST_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("app: invalid APP_REQUEST_TIMEOUT %q: %w", v, err)
		}
		cfg.RequestTimeout = d
	}
	if v := strings.TrimSpace(os.Getenv("APP_DRAIN_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("app: invalid APP_DRAIN_TIMEOUT %q: %w", v, err)
		}
		cfg.DrainTimeout = d
	}
	if v := strings.TrimSpace(os.Getenv("APP_METRICS_ADDR")); v != "" {
		cfg.MetricsAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("APP_TRACING_ENABLED")); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("app: invalid APP_TRACING_ENABLED %q: %w", v, err)
		}
		cfg.TracingEnabled = enabled
	}
	if v := strings.TrimSpace(os.Getenv("APP_TRACING_ENDPOINT")); v != "" {
		cfg.TracingEndpoint = v
	}
	if v := strings.TrimSpace(os.Getenv("APP_TRACING_SERVICE_NAME")); v != "" {
		cfg.TracingServiceName = v
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that required settings are present and supported.
func (c Config) Validate() error {
	u, err := url.Parse(strings.TrimSpace(c.BaseURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("app: base url %q must be an absolute http(s) url", c.BaseURL)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("app: unsupported log level %q: %w", c.LogLevel, err)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("app: request timeout must not be negative")
	}
	if c.DrainTimeout <= 0 {
		return fmt.Errorf("app: drain timeout must be positive")
	}
	if c.TracingEnabled {
		if strings.TrimSpace(c.TracingEndpoint) == "" {
			return fmt.Errorf("app: tracing endpoint is required when tracing is enabled")
		}
		if strings.TrimSpace(c.TracingServiceName) == "" {
			return fmt.Errorf("app: tracing service name is required when tracing is enabled")
		}
	}
	return nil
}

// Level returns the slog level named by LogLevel. Validate rejects names
// it cannot parse.
func (c Config) Level() slog.Level {
	l, _ := parseLevel(c.LogLevel)
	return l
}

func parseLevel(name string) (slog.Level, error) {
	var l slog.Level
	err := l.UnmarshalText([]byte(strings.TrimSpace(name)))
	return l, err
}
