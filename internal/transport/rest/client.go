// Package rest implements the comment gateway over the backend's JSON HTTP API.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/i-melnichenko/comment-widget/internal/comment"
)

// ErrMissingID is returned when a successful response names a comment
// without an id.
var ErrMissingID = errors.New("rest: response carries no comment id")

// maxErrorBody caps how much of a failed response is kept in StatusError.
const maxErrorBody = 4 << 10

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("rest: %s: unexpected status %d", e.Op, e.Code)
	}
	return fmt.Sprintf("rest: %s: unexpected status %d: %s", e.Op, e.Code, e.Body)
}

// Metrics captures gateway request metric sinks.
type Metrics interface {
	ObserveGatewayRequest(op string, code int, d time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) ObserveGatewayRequest(string, int, time.Duration) {}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client. It should carry a cookie jar.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTokenSource sets where the anti-forgery token comes from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithTracer sets the tracer used for request spans.
func WithTracer(t oteltrace.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

// WithMetrics sets the request metric sink.
func WithMetrics(m Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// Client talks to the comments backend. It implements actions.Gateway.
type Client struct {
	base    *url.URL
	http    *http.Client
	tokens  TokenSource
	tracer  oteltrace.Tracer
	metrics Metrics
}

// NewClient returns a gateway for the backend at baseURL. Without
// WithTokenSource the token is read from the page at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("rest: invalid base url %q: %w", baseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("rest: base url %q must be http or https", baseURL)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("rest: base url %q has no host", baseURL)
	}
	base.Path = strings.TrimSuffix(base.Path, "/")

	c := &Client{base: base, metrics: noopMetrics{}}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("rest: cookie jar: %w", err)
		}
		c.http = &http.Client{Jar: jar}
	}
	if c.tokens == nil {
		c.tokens = NewPageTokenSource(c.http, c.endpoint("/"))
	}
	if c.tracer == nil {
		return nil, fmt.Errorf("rest: nil tracer")
	}
	if c.metrics == nil {
		c.metrics = noopMetrics{}
	}
	return c, nil
}

// FetchAll retrieves the full comment collection.
func (c *Client) FetchAll(ctx context.Context) (comment.Collection, error) {
	var out comment.Collection
	if err := c.do(ctx, "fetch_all", http.MethodGet, "/comments.json", nil, false, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = comment.Collection{}
	}
	for i, cm := range out {
		if cm.ID == 0 {
			return nil, fmt.Errorf("rest: fetch_all: entry %d: %w", i, ErrMissingID)
		}
	}
	return out, nil
}

// Create posts a new comment and returns it with its assigned id.
func (c *Client) Create(ctx context.Context, in comment.Input) (comment.Comment, error) {
	body := struct {
		Comment comment.Input `json:"comment"`
	}{Comment: in}

	var out comment.Comment
	if err := c.do(ctx, "create", http.MethodPost, "/comments", body, true, &out); err != nil {
		return comment.Comment{}, err
	}
	if out.ID == 0 {
		return comment.Comment{}, fmt.Errorf("rest: create: %w", ErrMissingID)
	}
	return out, nil
}

// Delete removes comment id and returns the confirmed target.
func (c *Client) Delete(ctx context.Context, id comment.ID) (comment.Target, error) {
	path := "/comments/" + strconv.FormatInt(int64(id), 10) + ".json"
	body := comment.Target{ID: id}

	var out comment.Target
	if err := c.do(ctx, "delete", http.MethodDelete, path, body, true, &out); err != nil {
		return comment.Target{}, err
	}
	if out.ID == 0 {
		out.ID = id
	}
	return out, nil
}

func (c *Client) endpoint(path string) string {
	u := *c.base
	u.Path = c.base.Path + path
	return u.String()
}

func (c *Client) do(ctx context.Context, op, method, path string, in any, needsToken bool, out any) error {
	ctx, span := c.tracer.Start(ctx, "rest.client."+op)
	defer span.End()
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.path", path),
	)
	start := time.Now()
	code := 0
	defer func() { c.metrics.ObserveGatewayRequest(op, code, time.Since(start)) }()

	err := func() error {
		var token string
		if needsToken {
			t, err := c.tokens.Token(ctx)
			if err != nil {
				if errors.Is(err, ErrTokenMissing) {
					return fmt.Errorf("rest: %s: %w", op, err)
				}
				return fmt.Errorf("rest: %s: resolve csrf token: %w", op, err)
			}
			token = t
		}

		var body io.Reader
		if in != nil {
			raw, err := json.Marshal(in)
			if err != nil {
				return fmt.Errorf("rest: %s: encode body: %w", op, err)
			}
			body = bytes.NewReader(raw)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
		if err != nil {
			return fmt.Errorf("rest: %s: build request: %w", op, err)
		}
		req.Header.Set("Accept", "application/json")
		if in != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if token != "" {
			req.Header.Set("X-CSRF-Token", token)
		}
		otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("rest: %s: %w", op, err)
		}
		defer func() { _ = resp.Body.Close() }()
		code = resp.StatusCode
		span.SetAttributes(attribute.Int("http.response.status_code", code))

		if code < 200 || code > 299 {
			raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			return &StatusError{Op: op, Code: code, Body: strings.TrimSpace(string(raw))}
		}

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("rest: %s: read body: %w", op, err)
		}
		if len(bytes.TrimSpace(raw)) == 0 {
			return nil
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("rest: %s: decode body: %w", op, err)
		}
		return nil
	}()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
	}
	return err
}
