package store

import (
	"context"
	"time"

	"github.com/i-melnichenko/comment-widget/internal/async"
	"github.com/i-melnichenko/comment-widget/internal/comment"
)

// Resolve awaits pending payloads and re-dispatches the outcome as an action
// of the same kind: resolved with the realized value, or failed with an
// *OpError. The dispatching goroutine never blocks.
//
// Committed order follows settlement order, not dispatch order. There is no
// cancellation: once dispatched, the outcome is always committed.
func Resolve(s *Store, next Dispatch) Dispatch {
	return func(a comment.Action) {
		aw, ok := a.Payload.(async.Awaitable)
		if !ok {
			next(a)
			return
		}

		s.begin()
		go func() {
			defer s.end()
			s.Dispatch(s.settle(a.Kind, aw))
		}()
	}
}

func (s *Store) settle(kind comment.Kind, aw async.Awaitable) comment.Action {
	ctx, span := s.tracer.Start(context.Background(), "store.resolve")
	defer span.End()
	span.SetAttributes(kindAttr(kind))
	start := time.Now()

	v, err := aw.Await(ctx)
	s.metrics.ObserveResolveDuration(string(kind), time.Since(start), err == nil)
	if err != nil {
		opErr := &OpError{Kind: kind, Err: err}
		spanRecordError(span, opErr)
		s.logger.Warn("operation failed", "kind", kind, "error", err)
		return comment.FailedAction(kind, opErr)
	}

	s.logger.Debug("operation settled", "kind", kind, "duration", time.Since(start))
	return comment.Action{Kind: kind, Payload: v}
}

// Logging logs every action passing through the chain at debug level.
func Logging(s *Store, next Dispatch) Dispatch {
	return func(a comment.Action) {
		state := "resolved"
		switch {
		case a.Pending():
			state = "pending"
		case a.Failed():
			state = "failed"
		}
		s.logger.Debug("dispatch", "kind", a.Kind, "payload", state)
		next(a)
	}
}
