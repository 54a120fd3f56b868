// Package main runs the comment widget in a terminal against a comments
// backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"

	apppkg "github.com/i-melnichenko/comment-widget/internal/app"
	"github.com/i-melnichenko/comment-widget/internal/observability/metrics"
	"github.com/i-melnichenko/comment-widget/internal/transport/rest"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "widget: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := apppkg.LoadConfigFromEnv()
	if err != nil {
		return err
	}

	// stdout belongs to the widget view.
	slog.SetDefault(newLogger(cfg.Level()))
	logger := slog.Default()

	reg := prometheus.NewRegistry()
	m, err := metrics.NewPrometheus(reg)
	if err != nil {
		return err
	}

	opts := []rest.Option{
		rest.WithTracer(otel.Tracer("github.com/i-melnichenko/comment-widget/rest")),
		rest.WithMetrics(m),
	}
	if cfg.CSRFToken != "" {
		opts = append(opts, rest.WithTokenSource(rest.StaticToken(cfg.CSRFToken)))
	}
	client, err := rest.NewClient(cfg.BaseURL, opts...)
	if err != nil {
		return err
	}

	app, err := apppkg.New(cfg, logger, client, m, apppkg.WithRegistry(reg))
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return app.Run(ctx, os.Stdin, os.Stdout)
}

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
