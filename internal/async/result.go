// Package async provides an explicit pending/resolved/failed result type used to
// carry in-flight gateway calls inside actions.
package async

import (
	"context"
	"errors"
	"fmt"
)

// ErrPanicked is returned when the work function of a Result panicked.
var ErrPanicked = errors.New("async: work function panicked")

// ErrNilFailure is used when a result is failed with a nil error.
var ErrNilFailure = errors.New("async: failed with nil error")

// State is the settlement state of a Result.
type State int

// Result states.
const (
	Pending State = iota
	Resolved
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Resolved:
		return "resolved"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Awaitable is the untyped view of a Result. Middleware depends on it so it
// can resolve any payload without knowing its concrete type.
type Awaitable interface {
	Done() <-chan struct{}
	State() State
	Await(ctx context.Context) (any, error)
}

// Result holds the outcome of work that may not have finished yet.
// It settles exactly once.
type Result[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Go runs fn on a new goroutine and returns a pending Result immediately.
func Go[T any](fn func() (T, error)) *Result[T] {
	r := &Result[T]{done: make(chan struct{})}
	go func() {
		defer close(r.done)
		defer func() {
			if p := recover(); p != nil {
				var zero T
				r.value = zero
				r.err = fmt.Errorf("%w: %v", ErrPanicked, p)
			}
		}()
		v, err := fn()
		if err != nil {
			r.err = err
			return
		}
		r.value = v
	}()
	return r
}

// ResolvedWith returns an already-resolved Result.
func ResolvedWith[T any](v T) *Result[T] {
	r := &Result[T]{done: make(chan struct{}), value: v}
	close(r.done)
	return r
}

// FailedWith returns an already-failed Result.
func FailedWith[T any](err error) *Result[T] {
	if err == nil {
		err = ErrNilFailure
	}
	r := &Result[T]{done: make(chan struct{}), err: err}
	close(r.done)
	return r
}

// Done is closed once the result has settled.
func (r *Result[T]) Done() <-chan struct{} {
	return r.done
}

// State reports the current settlement state without blocking.
func (r *Result[T]) State() State {
	select {
	case <-r.done:
		if r.err != nil {
			return Failed
		}
		return Resolved
	default:
		return Pending
	}
}

// Wait blocks until the result settles or ctx is done.
func (r *Result[T]) Wait(ctx context.Context) (T, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-r.done:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Await implements Awaitable.
func (r *Result[T]) Await(ctx context.Context) (any, error) {
	v, err := r.Wait(ctx)
	if err != nil {
		return nil, err
	}
	return v, nil
}
