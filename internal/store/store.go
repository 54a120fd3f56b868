// Package store holds the authoritative comment collection and commits
// dispatched actions to it one at a time.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/i-melnichenko/comment-widget/internal/comment"
)

// Logger is a minimal structured logger interface, compatible with slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Reducer computes the next collection from the current one and a resolved action.
type Reducer func(comment.Collection, comment.Action) comment.Collection

// Dispatch hands an action to the next stage of the chain.
type Dispatch func(comment.Action)

// Middleware wraps the dispatch chain. It receives the store so it can
// re-dispatch through the full chain.
type Middleware func(s *Store, next Dispatch) Dispatch

// Listener is notified after every commit.
type Listener func(Snapshot)

// Snapshot is the store state handed to listeners.
type Snapshot struct {
	Comments comment.Collection
	// Err is the last operation failure. It is cleared by the next successful commit.
	Err error
	// Kind is the kind of the action that produced this snapshot.
	Kind    comment.Kind
	Version uint64
}

// OpError reports that an operation failed to apply.
type OpError struct {
	Kind comment.Kind
	Err  error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("store: %s failed: %v", e.Kind, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// Store owns the comment collection. It must be created with New.
type Store struct {
	reduce   Reducer
	logger   Logger
	tracer   oteltrace.Tracer
	metrics  Metrics
	dispatch Dispatch

	mu       sync.Mutex
	state    comment.Collection
	lastErr  error
	lastKind comment.Kind
	version  uint64

	queue    []comment.Action
	draining bool

	listeners    map[uint64]Listener
	nextListener uint64

	// inflight counts queued actions plus pending resolutions; idle is closed
	// whenever it drops to zero.
	inflight int
	idle     chan struct{}
}

// New creates a store with an empty collection. Middlewares run in the order
// given, the first one seeing every dispatched action first.
func New(reduce Reducer, logger Logger, tracer oteltrace.Tracer, metrics Metrics, middlewares ...Middleware) (*Store, error) {
	if reduce == nil {
		return nil, fmt.Errorf("store: nil reducer")
	}
	if logger == nil {
		return nil, fmt.Errorf("store: nil logger")
	}
	if tracer == nil {
		return nil, fmt.Errorf("store: nil tracer")
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}

	idle := make(chan struct{})
	close(idle)

	s := &Store{
		reduce:    reduce,
		logger:    logger,
		tracer:    tracer,
		metrics:   metrics,
		state:     comment.Collection{},
		listeners: make(map[uint64]Listener),
		idle:      idle,
	}

	d := Dispatch(s.enqueue)
	for i := len(middlewares) - 1; i >= 0; i-- {
		if middlewares[i] == nil {
			return nil, fmt.Errorf("store: nil middleware at position %d", i)
		}
		d = middlewares[i](s, d)
	}
	s.dispatch = d
	return s, nil
}

// Dispatch sends a through the middleware chain.
func (s *Store) Dispatch(a comment.Action) {
	s.dispatch(a)
}

// State returns a copy of the current collection.
func (s *Store) State() comment.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// LastError returns the last operation failure, or nil if the most recent
// commit succeeded.
func (s *Store) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Snapshot returns the current state as listeners would see it.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers l and returns a function that removes it.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	if l == nil {
		return func() {}
	}
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = l
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// Drain blocks until no action is queued and no pending payload is awaited,
// or until ctx is done.
func (s *Store) Drain(ctx context.Context) error {
	for {
		s.mu.Lock()
		if s.inflight == 0 {
			s.mu.Unlock()
			return nil
		}
		idle := s.idle
		s.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// enqueue is the end of the dispatch chain. The first caller to find the
// queue idle commits everything queued, including actions dispatched by
// listeners while it runs.
func (s *Store) enqueue(a comment.Action) {
	s.mu.Lock()
	s.queue = append(s.queue, a)
	s.beginLocked()
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	s.mu.Unlock()

	s.drainQueue()
}

func (s *Store) drainQueue() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.draining = false
			s.mu.Unlock()
			return
		}
		a := s.queue[0]
		s.queue[0] = comment.Action{}
		s.queue = s.queue[1:]

		snap, changed := s.commitLocked(a)
		var listeners []Listener
		if changed {
			listeners = make([]Listener, 0, len(s.listeners))
			for _, l := range s.listeners {
				listeners = append(listeners, l)
			}
		}
		s.mu.Unlock()

		for _, l := range listeners {
			s.notify(l, snap)
		}
		s.end()
	}
}

func (s *Store) commitLocked(a comment.Action) (Snapshot, bool) {
	_, span := s.tracer.Start(context.Background(), "store.commit")
	defer span.End()
	span.SetAttributes(kindAttr(a.Kind))

	switch {
	case a.Pending():
		// Only the resolve middleware may settle a payload.
		s.metrics.IncDispatch(string(a.Kind), "dropped_pending")
		s.logger.Warn("pending action reached the reducer, dropped", "kind", a.Kind)
		return Snapshot{}, false

	case a.Failed():
		var opErr *OpError
		if !errors.As(a.Err, &opErr) {
			opErr = &OpError{Kind: a.Kind, Err: a.Err}
		}
		s.lastErr = opErr
		s.lastKind = a.Kind
		s.version++
		s.metrics.IncDispatch(string(a.Kind), "failed")
		spanRecordError(span, opErr)

	default:
		s.state = s.reduce(s.state, a)
		if s.state == nil {
			s.state = comment.Collection{}
		}
		s.lastErr = nil
		s.lastKind = a.Kind
		s.version++
		s.metrics.IncDispatch(string(a.Kind), "applied")
		s.metrics.SetCollectionSize(len(s.state))
	}

	span.SetAttributes(versionAttr(s.version))
	return s.snapshotLocked(), true
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Comments: s.state.Clone(),
		Err:      s.lastErr,
		Kind:     s.lastKind,
		Version:  s.version,
	}
}

func (s *Store) notify(l Listener, snap Snapshot) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("store listener panicked", "version", snap.Version, "panic", p)
		}
	}()
	l(snap)
}

func (s *Store) begin() {
	s.mu.Lock()
	s.beginLocked()
	s.mu.Unlock()
}

func (s *Store) beginLocked() {
	if s.inflight == 0 {
		s.idle = make(chan struct{})
	}
	s.inflight++
}

func (s *Store) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if s.inflight == 0 {
		close(s.idle)
	}
}
