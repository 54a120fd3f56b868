package backend

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i-melnichenko/comment-widget/internal/comment"
)

var tokenPattern = regexp.MustCompile(`<meta name="csrf-token" content="([^"]+)">`)

type testClient struct {
	t     *testing.T
	base  string
	http  *http.Client
	token string
}

func newTestServer(t *testing.T, repo Repository) *testClient {
	t.Helper()
	srv, err := NewServer(repo, slog.Default())
	require.NoError(t, err)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testClient{t: t, base: ts.URL, http: &http.Client{Jar: jar}}
}

func (c *testClient) login() {
	c.t.Helper()
	resp, err := c.http.Get(c.base + "/")
	require.NoError(c.t, err)
	defer resp.Body.Close()
	page, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)

	m := tokenPattern.FindSubmatch(page)
	require.Len(c.t, m, 2, "csrf meta tag not found in page")
	c.token = string(m[1])
}

func (c *testClient) do(method, path, body string) (*http.Response, []byte) {
	c.t.Helper()
	req, err := http.NewRequest(method, c.base+path, strings.NewReader(body))
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("X-CSRF-Token", c.token)
	}
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp, raw
}

func TestNewServer_Validation(t *testing.T) {
	_, err := NewServer(nil, slog.Default())
	assert.Error(t, err)
	_, err = NewServer(NewMemoryRepository(), nil)
	assert.Error(t, err)
}

func TestServer_CreateListDeleteFlow(t *testing.T) {
	c := newTestServer(t, NewMemoryRepository())
	c.login()

	resp, raw := c.do(http.MethodPost, "/comments", `{"comment":{"body":"hello","author":"ann"}}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	var created comment.Comment
	require.NoError(t, json.Unmarshal(raw, &created))
	assert.Equal(t, comment.Comment{ID: 1, Body: "hello", Author: "ann"}, created)

	resp, raw = c.do(http.MethodPost, "/comments", `{"comment":{"body":"second","author":"bob"}}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	resp, raw = c.do(http.MethodGet, "/comments.json", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listed comment.Collection
	require.NoError(t, json.Unmarshal(raw, &listed))
	assert.Equal(t, []comment.ID{1, 2}, listed.IDs())

	resp, raw = c.do(http.MethodDelete, "/comments/1.json", `{"id":1}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var target comment.Target
	require.NoError(t, json.Unmarshal(raw, &target))
	assert.Equal(t, comment.ID(1), target.ID)

	resp, _ = c.do(http.MethodDelete, "/comments/1", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_MutationsRequireToken(t *testing.T) {
	c := newTestServer(t, NewMemoryRepository())

	resp, _ := c.do(http.MethodPost, "/comments", `{"comment":{"body":"x"}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, "no session")

	c.login()
	c.token = "forged"
	resp, _ = c.do(http.MethodPost, "/comments", `{"comment":{"body":"x"}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, "wrong token")

	resp, _ = c.do(http.MethodDelete, "/comments/1.json", "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, "wrong token on delete")
}

func TestServer_LoginReusesSession(t *testing.T) {
	c := newTestServer(t, NewMemoryRepository())
	c.login()
	first := c.token
	c.login()
	assert.Equal(t, first, c.token)
}

func TestServer_CreateValidation(t *testing.T) {
	c := newTestServer(t, NewMemoryRepository())
	c.login()

	resp, raw := c.do(http.MethodPost, "/comments", `{"comment":{"body":"   ","author":"a"}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, string(raw), "can't be blank")

	resp, _ = c.do(http.MethodPost, "/comments", `{"body":"not wrapped"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = c.do(http.MethodPost, "/comments", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_Health(t *testing.T) {
	c := newTestServer(t, NewMemoryRepository())
	resp, raw := c.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(raw))
}

func TestMemoryRepository(t *testing.T) {
	testRepository(t, NewMemoryRepository())
}

func TestSQLiteRepository(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "comments.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	testRepository(t, repo)

	reopened, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	defer reopened.Close()
	listed, err := reopened.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []comment.ID{2}, listed.IDs(), "comments survive reopening")
}

func testRepository(t *testing.T, repo Repository) {
	t.Helper()
	ctx := context.Background()

	empty, err := repo.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	a, err := repo.Create(ctx, comment.Input{Body: "a", Author: "x"})
	require.NoError(t, err)
	b, err := repo.Create(ctx, comment.Input{Body: "b", Author: "y"})
	require.NoError(t, err)
	assert.Less(t, a.ID, b.ID)

	require.NoError(t, repo.Delete(ctx, a.ID))
	assert.ErrorIs(t, repo.Delete(ctx, a.ID), ErrNotFound)

	listed, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, comment.Collection{{ID: b.ID, Body: "b", Author: "y"}}, listed)
	require.NoError(t, repo.Close())
}

func TestConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("COMMENTD_ADDR", "127.0.0.1:9999")
	t.Setenv("COMMENTD_LOG_LEVEL", "DEBUG")
	t.Setenv("COMMENTD_DB_PATH", "")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", cfg.Addr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, slog.LevelDebug, cfg.Level())

	repo, err := cfg.OpenRepository()
	require.NoError(t, err)
	assert.IsType(t, &MemoryRepository{}, repo)

	t.Setenv("COMMENTD_LOG_LEVEL", "loud")
	_, err = LoadConfigFromEnv()
	assert.Error(t, err)
}
