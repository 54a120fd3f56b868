package backend

import (
	"crypto/subtle"
	"net/http"
	"sync"

	"github.com/google/uuid"
)

// SessionCookie is the cookie carrying the session id.
const SessionCookie = "_comments_session"

// sessions maps session ids to their anti-forgery token.
type sessions struct {
	mu     sync.Mutex
	tokens map[string]string
}

func newSessions() *sessions {
	return &sessions{tokens: make(map[string]string)}
}

// ensure returns the token of the request's session, starting a new session
// (and setting its cookie) when the request has none.
func (s *sessions) ensure(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil {
		s.mu.Lock()
		token, ok := s.tokens[c.Value]
		s.mu.Unlock()
		if ok {
			return token
		}
	}

	id := uuid.NewString()
	token := uuid.NewString()
	s.mu.Lock()
	s.tokens[id] = token
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return token
}

// verify reports whether the request carries its session's token.
func (s *sessions) verify(r *http.Request) bool {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return false
	}
	s.mu.Lock()
	want, ok := s.tokens[c.Value]
	s.mu.Unlock()
	if !ok {
		return false
	}
	got := r.Header.Get("X-CSRF-Token")
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
