package comment

import "github.com/i-melnichenko/comment-widget/internal/async"

// Kind identifies a state-affecting operation.
type Kind string

// Supported action kinds.
const (
	KindLoad   Kind = "LOAD_COMMENTS"
	KindCreate Kind = "CREATE_COMMENT"
	KindDelete Kind = "DELETE_COMMENT"
)

// Action is a tagged intent dispatched to the store.
//
// While an action is pending its Payload is an async.Awaitable. Once resolved
// the payload is a Collection (load), a Comment (create) or a Target (delete).
// A failed action carries Err and no payload.
type Action struct {
	Kind    Kind
	Payload any
	Err     error
}

// Pending reports whether the payload has still to be awaited.
func (a Action) Pending() bool {
	_, ok := a.Payload.(async.Awaitable)
	return ok
}

// Failed reports whether the action settled with an error.
func (a Action) Failed() bool {
	return a.Err != nil
}

// Loaded returns a resolved load action.
func Loaded(c Collection) Action {
	return Action{Kind: KindLoad, Payload: c}
}

// Created returns a resolved create action.
func Created(c Comment) Action {
	return Action{Kind: KindCreate, Payload: c}
}

// Deleted returns a resolved delete action.
func Deleted(t Target) Action {
	return Action{Kind: KindDelete, Payload: t}
}

// FailedAction returns an explicitly failed action of kind.
func FailedAction(kind Kind, err error) Action {
	return Action{Kind: kind, Err: err}
}
