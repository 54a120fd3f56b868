// Package app wires the REST gateway, the comment store, and the terminal
// view together.
package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"golang.org/x/term"

	"github.com/i-melnichenko/comment-widget/internal/actions"
	"github.com/i-melnichenko/comment-widget/internal/comment"
	"github.com/i-melnichenko/comment-widget/internal/store"
	"github.com/i-melnichenko/comment-widget/internal/view"
)

const tracerName = "github.com/i-melnichenko/comment-widget"

// Logger is the logging interface required by App.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// App wires the action creators and the store into a runnable widget.
// The gateway is injected; App does not dial the backend itself.
type App struct {
	config   Config
	logger   Logger
	creators *actions.Creators
	store    *store.Store

	registerer prometheus.Registerer
	gatherer   prometheus.Gatherer
}

// Option configures an App.
type Option func(*App)

// WithRegistry serves and registers runtime metrics on reg instead of the
// default registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(a *App) {
		if reg != nil {
			a.registerer = reg
			a.gatherer = reg
		}
	}
}

// New validates dependencies and constructs a runnable widget. A nil metrics
// sink disables store metrics.
func New(cfg Config, logger Logger, gw actions.Gateway, m store.Metrics, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		return nil, fmt.Errorf("app: nil logger")
	}
	if gw == nil {
		return nil, fmt.Errorf("app: nil gateway")
	}

	// The global provider delegates, so spans follow initTracing even
	// though the tracer is taken here.
	tracer := otel.Tracer(tracerName)

	creators, err := actions.NewCreators(gw, tracer)
	if err != nil {
		return nil, err
	}
	creators.Timeout = cfg.RequestTimeout

	st, err := store.New(comment.Reduce, logger, tracer, m, store.Logging, store.Resolve)
	if err != nil {
		return nil, err
	}

	a := &App{
		config:     cfg,
		logger:     logger,
		creators:   creators,
		store:      st,
		registerer: prometheus.DefaultRegisterer,
		gatherer:   prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Run mounts the widget, reads commands from in until quit, EOF, or ctx is
// done, and then drains in-flight requests. Views and prompts go to out.
func (a *App) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	shutdownTracing, err := a.initTracing(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			a.logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	metricsSrv, metricsLis, err := a.metricsServer()
	if err != nil {
		return err
	}
	if metricsSrv != nil {
		go func() {
			if err := metricsSrv.Serve(metricsLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("metrics server failed", "error", err)
			}
		}()
		defer shutdownHTTPServer(metricsSrv, a.logger, "metrics server")
		a.logger.Info("metrics enabled", "addr", metricsAddr(metricsLis))
	}

	w := &syncWriter{w: out}
	container, err := view.NewContainer(a.store, a.creators, w)
	if err != nil {
		return err
	}

	a.logger.Info("widget started", "base_url", a.config.BaseURL)
	container.Mount()

	sess := &session{container: container, store: a.store, creators: a.creators, out: w, prompt: isTerminal(in)}
	runErr := sess.loop(ctx, in)

	drainCtx, cancel := context.WithTimeout(context.Background(), a.config.DrainTimeout)
	defer cancel()
	if err := a.store.Drain(drainCtx); err != nil {
		a.logger.Warn("in-flight requests still pending at shutdown", "error", err)
	}
	container.Unmount()
	a.logger.Info("widget stopped")
	return runErr
}

// session is one interactive command loop over a mounted container.
type session struct {
	container *view.Container
	store     *store.Store
	creators  *actions.Creators
	out       io.Writer
	prompt    bool

	// non-empty while the add form collects fields
	stage  string
	values url.Values
}

const (
	stageBody   = "body"
	stageAuthor = "author"
)

func (s *session) loop(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	s.printPrompt()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-scanErr:
			if err != nil {
				return fmt.Errorf("app: read input: %w", err)
			}
			return nil
		case line := <-lines:
			if !s.handle(strings.TrimSpace(line)) {
				return nil
			}
			s.printPrompt()
		}
	}
}

// handle runs one input line and reports whether the loop should continue.
func (s *session) handle(line string) bool {
	if s.stage != "" {
		s.handleField(line)
		return true
	}

	cmd, arg, _ := strings.Cut(line, " ")
	switch cmd {
	case "":
	case "help", "?":
		s.printf("commands: list | refresh | add | cancel | delete <id> | quit\n")
	case "list", "ls":
		s.container.Render(s.out)
	case "refresh":
		s.store.Dispatch(s.creators.Load())
	case "add":
		s.container.ShowForm()
		s.stage = stageBody
		s.values = url.Values{}
	case "cancel":
		s.container.Cancel()
	case "delete", "rm":
		id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
		if err != nil || id <= 0 {
			s.printf("usage: delete <id>\n")
			return true
		}
		s.container.Delete(comment.ID(id))
	case "quit", "exit":
		return false
	default:
		s.printf("unknown command %q, try help\n", cmd)
	}
	return true
}

// handleField collects the add form. "cancel" at any field hides the form.
func (s *session) handleField(line string) {
	if line == "cancel" {
		s.container.Cancel()
		s.stage = ""
		return
	}
	switch s.stage {
	case stageBody:
		s.values.Set(view.FieldBody, line)
		s.stage = stageAuthor
	case stageAuthor:
		s.values.Set(view.FieldAuthor, line)
		s.stage = ""
		if !s.container.Submit(s.values) {
			s.printf("! %s can't be blank\n", view.FieldBody)
			s.stage = stageBody
			s.values = url.Values{}
		}
	}
}

func (s *session) printPrompt() {
	if !s.prompt {
		return
	}
	switch s.stage {
	case stageBody:
		s.printf("%s> ", view.FieldBody)
	case stageAuthor:
		s.printf("%s [%s]> ", view.FieldAuthor, comment.DefaultAuthor)
	default:
		s.printf("> ")
	}
}

func (s *session) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.out, format, args...)
}

func isTerminal(in io.Reader) bool {
	f, ok := in.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func metricsAddr(lis net.Listener) string {
	if lis == nil {
		return ""
	}
	return lis.Addr().String()
}

// syncWriter serializes renders from store listeners with prompt output.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.w.Write(p)
}
