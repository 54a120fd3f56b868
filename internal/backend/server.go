package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/i-melnichenko/comment-widget/internal/comment"
)

const maxBodyBytes = 64 << 10

// Logger is the logging interface required by Server.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="csrf-param" content="authenticity_token">
<meta name="csrf-token" content="{{.}}">
<title>Comments</title>
</head>
<body></body>
</html>
`))

// Server serves the comments JSON API and the host page carrying the
// anti-forgery token.
type Server struct {
	repo     Repository
	logger   Logger
	sessions *sessions
	router   *mux.Router
}

// NewServer returns a server backed by repo.
func NewServer(repo Repository, logger Logger) (*Server, error) {
	if repo == nil {
		return nil, fmt.Errorf("backend: nil repository")
	}
	if logger == nil {
		return nil, fmt.Errorf("backend: nil logger")
	}
	s := &Server{repo: repo, logger: logger, sessions: newSessions()}

	r := mux.NewRouter()
	r.Use(s.logRequests)
	r.HandleFunc("/", s.handlePage).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/comments.json", s.handleList).Methods(http.MethodGet)
	r.HandleFunc("/comments", s.handleList).Methods(http.MethodGet)
	r.HandleFunc("/comments", s.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/comments.json", s.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/comments/{id:[0-9]+}.json", s.handleDelete).Methods(http.MethodDelete)
	r.HandleFunc("/comments/{id:[0-9]+}", s.handleDelete).Methods(http.MethodDelete)
	s.router = r
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	token := s.sessions.ensure(w, r)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, token); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	comments, err := s.repo.List(r.Context())
	if err != nil {
		s.logger.Error("list comments failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list comments")
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.verify(r) {
		writeError(w, http.StatusUnprocessableEntity, "invalid authenticity token")
		return
	}

	var req struct {
		Comment *comment.Input `json:"comment"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Comment == nil {
		writeError(w, http.StatusBadRequest, "expected {\"comment\": {...}}")
		return
	}
	if strings.TrimSpace(req.Comment.Body) == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"errors": map[string][]string{"body": {"can't be blank"}},
		})
		return
	}

	created, err := s.repo.Create(r.Context(), *req.Comment)
	if err != nil {
		s.logger.Error("create comment failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create comment")
		return
	}
	s.logger.Info("comment created", "id", created.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.verify(r) {
		writeError(w, http.StatusUnprocessableEntity, "invalid authenticity token")
		return
	}
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	err = s.repo.Delete(r.Context(), comment.ID(id))
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "comment not found")
		return
	case err != nil:
		s.logger.Error("delete comment failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete comment")
		return
	}
	s.logger.Info("comment deleted", "id", id)
	writeJSON(w, http.StatusOK, comment.Target{ID: comment.ID(id)})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
