package rest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/net/html"
)

// ErrTokenMissing is returned when no anti-forgery token can be found.
// Create and delete requests cannot be built without one.
var ErrTokenMissing = errors.New("rest: csrf token missing")

// CSRFMetaName is the meta tag name holding the anti-forgery token.
const CSRFMetaName = "csrf-token"

// TokenSource supplies the anti-forgery token sent with mutating requests.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed token.
type StaticToken string

// Token implements TokenSource.
func (t StaticToken) Token(context.Context) (string, error) {
	if strings.TrimSpace(string(t)) == "" {
		return "", ErrTokenMissing
	}
	return string(t), nil
}

// PageTokenSource reads the token from the host page's csrf meta tag. The
// first successful lookup is cached; failures are retried on the next call.
type PageTokenSource struct {
	client  *http.Client
	pageURL string

	mu    sync.Mutex
	token string
}

// NewPageTokenSource returns a source that fetches pageURL with client.
// The client should share a cookie jar with the gateway so the session the
// token belongs to is reused.
func NewPageTokenSource(client *http.Client, pageURL string) *PageTokenSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &PageTokenSource{client: client, pageURL: pageURL}
}

// Token implements TokenSource.
func (p *PageTokenSource) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.token != "" {
		return p.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("rest: build page request: %w", err)
	}
	req.Header.Set("Accept", "text/html")
	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("rest: fetch page %s: %w", p.pageURL, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{Op: "page", Code: resp.StatusCode}
	}

	token, err := ParseCSRFToken(resp.Body)
	if err != nil {
		return "", err
	}
	p.token = token
	return token, nil
}

// Reset drops the cached token, for example after the session rotates.
func (p *PageTokenSource) Reset() {
	p.mu.Lock()
	p.token = ""
	p.mu.Unlock()
}

// ParseCSRFToken returns the content of <meta name="csrf-token"> in an HTML
// document, or ErrTokenMissing.
func ParseCSRFToken(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("rest: parse page: %w", err)
	}
	if token := findMeta(doc, CSRFMetaName); token != "" {
		return token, nil
	}
	return "", ErrTokenMissing
}

func findMeta(n *html.Node, name string) string {
	if n.Type == html.ElementNode && n.Data == "meta" {
		var metaName, content string
		for _, a := range n.Attr {
			switch strings.ToLower(a.Key) {
			case "name":
				metaName = a.Val
			case "content":
				content = a.Val
			}
		}
		if metaName == name && strings.TrimSpace(content) != "" {
			return content
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if v := findMeta(c, name); v != "" {
			return v
		}
	}
	return ""
}
