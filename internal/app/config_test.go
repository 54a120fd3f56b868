package app

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{
		"APP_BASE_URL", "APP_LOG_LEVEL", "APP_CSRF_TOKEN", "APP_REQUEST_TIMEOUT",
		"APP_DRAIN_TIMEOUT", "APP_METRICS_ADDR", "APP_TRACING_ENABLED",
		"APP_TRACING_ENDPOINT", "APP_TRACING_SERVICE_NAME",
	} {
		t.Setenv(k, "")
	}

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv() error = %v", err)
	}
	if cfg != DefaultConfig() {
		t.Fatalf("config = %+v, want defaults %+v", cfg, DefaultConfig())
	}
}

func TestLoadConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("APP_BASE_URL", "https://comments.example.com/app")
	t.Setenv("APP_LOG_LEVEL", "DEBUG")
	t.Setenv("APP_CSRF_TOKEN", "tok")
	t.Setenv("APP_REQUEST_TIMEOUT", "2s")
	t.Setenv("APP_DRAIN_TIMEOUT", "250ms")
	t.Setenv("APP_METRICS_ADDR", ":9100")
	t.Setenv("APP_TRACING_ENABLED", "true")
	t.Setenv("APP_TRACING_ENDPOINT", "otel:4317")
	t.Setenv("APP_TRACING_SERVICE_NAME", "widget-test")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv() error = %v", err)
	}
	want := Config{
		BaseURL:            "https://comments.example.com/app",
		LogLevel:           "debug",
		CSRFToken:          "tok",
		RequestTimeout:     2 * time.Second,
		DrainTimeout:       250 * time.Millisecond,
		MetricsAddr:        ":9100",
		TracingEnabled:     true,
		TracingEndpoint:    "otel:4317",
		TracingServiceName: "widget-test",
	}
	if cfg != want {
		t.Fatalf("config = %+v, want %+v", cfg, want)
	}
}

func TestLoadConfigFromEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{name: "request timeout", key: "APP_REQUEST_TIMEOUT", value: "soon", wantErr: "APP_REQUEST_TIMEOUT"},
		{name: "drain timeout", key: "APP_DRAIN_TIMEOUT", value: "later", wantErr: "APP_DRAIN_TIMEOUT"},
		{name: "tracing flag", key: "APP_TRACING_ENABLED", value: "maybe", wantErr: "APP_TRACING_ENABLED"},
		{name: "log level", key: "APP_LOG_LEVEL", value: "loud", wantErr: "log level"},
		{name: "base url", key: "APP_BASE_URL", value: "localhost:3000", wantErr: "base url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := LoadConfigFromEnv()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("LoadConfigFromEnv() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "negative request timeout", mutate: func(c *Config) { c.RequestTimeout = -time.Second }},
		{name: "zero drain timeout", mutate: func(c *Config) { c.DrainTimeout = 0 }},
		{name: "tracing without endpoint", mutate: func(c *Config) { c.TracingEnabled = true; c.TracingEndpoint = " " }},
		{name: "tracing without service name", mutate: func(c *Config) { c.TracingEnabled = true; c.TracingServiceName = "" }},
		{name: "ftp base url", mutate: func(c *Config) { c.BaseURL = "ftp://example.com" }},
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() error = %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("Validate() error = nil, want error")
			}
		})
	}
}

func TestConfigLevel(t *testing.T) {
	tests := []struct {
		name string
		want slog.Level
	}{
		{name: "debug", want: slog.LevelDebug},
		{name: "info", want: slog.LevelInfo},
		{name: "WARN", want: slog.LevelWarn},
		{name: " error ", want: slog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.LogLevel = tt.name
			if err := cfg.Validate(); err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if got := cfg.Level(); got != tt.want {
				t.Fatalf("Level() = %v, want %v", got, tt.want)
			}
		})
	}

	cfg := DefaultConfig()
	cfg.LogLevel = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("Validate() accepted unknown log level %q", cfg.LogLevel)
	}
}

func TestConfigTracingAttributes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BaseURL = "https://comments.example.com:8443/app"
	cfg.RequestTimeout = 1500 * time.Millisecond

	got := map[string]string{}
	for _, kv := range cfg.tracingAttributes() {
		got[string(kv.Key)] = kv.Value.Emit()
	}
	want := map[string]string{
		"service.name":              "comment-widget",
		"widget.csrf.source":        "page",
		"widget.request_timeout_ms": "1500",
		"widget.drain_timeout_ms":   "5000",
		"widget.backend.scheme":     "https",
		"widget.backend.host":       "comments.example.com:8443",
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("attribute %s = %q, want %q (all: %v)", k, got[k], v, got)
		}
	}

	cfg.CSRFToken = "tok"
	for _, kv := range cfg.tracingAttributes() {
		if kv.Key == "widget.csrf.source" && kv.Value.AsString() != "static" {
			t.Fatalf("csrf source = %q, want static", kv.Value.AsString())
		}
	}
}
