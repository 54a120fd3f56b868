package backend

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Config contains runtime settings for the comments server.
type Config struct {
	Addr     string
	LogLevel string
	// DBPath selects the SQLite database. Empty keeps comments in memory.
	DBPath string
}

// DefaultConfig returns a local-development configuration.
func DefaultConfig() Config {
	return Config{
		Addr:     ":3000",
		LogLevel: "info",
	}
}

// LoadConfigFromEnv loads config from environment variables.
//
// Supported vars:
// - COMMENTD_ADDR
// - COMMENTD_LOG_LEVEL (debug|info|warn|error)
// - COMMENTD_DB_PATH (empty = in-memory)
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv("COMMENTD_ADDR")); v != "" {
		cfg.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("COMMENTD_LOG_LEVEL")); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("COMMENTD_DB_PATH")); v != "" {
		cfg.DBPath = v
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that required settings are present and supported.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("backend: addr is required")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("backend: unsupported log level %q: %w", c.LogLevel, err)
	}
	return nil
}

// Level returns the slog level named by LogLevel.
func (c Config) Level() slog.Level {
	l, _ := parseLevel(c.LogLevel)
	return l
}

func parseLevel(name string) (slog.Level, error) {
	var l slog.Level
	err := l.UnmarshalText([]byte(strings.TrimSpace(name)))
	return l, err
}

// OpenRepository returns the repository selected by c.
func (c Config) OpenRepository() (Repository, error) {
	if c.DBPath == "" {
		return NewMemoryRepository(), nil
	}
	repo, err := NewSQLiteRepository(c.DBPath)
	if err != nil {
		return nil, err
	}
	return repo, nil
}
