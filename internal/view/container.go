// Package view renders the comment store and turns user intent into actions.
package view

import (
	"fmt"
	"io"
	"net/url"
	"sync"

	"github.com/i-melnichenko/comment-widget/internal/comment"
	"github.com/i-melnichenko/comment-widget/internal/store"
)

// Store is the part of the store the view depends on.
type Store interface {
	Dispatch(comment.Action)
	Subscribe(store.Listener) (unsubscribe func())
	Snapshot() store.Snapshot
}

// ActionCreators produces the actions the view dispatches.
type ActionCreators interface {
	Load() comment.Action
	Create(in comment.Input) comment.Action
	Remove(target comment.Target) comment.Action
}

// Container binds the list and the form to the store. Form visibility is
// local to the container and never stored.
type Container struct {
	store   Store
	actions ActionCreators
	out     io.Writer
	list    *List
	form    *Form

	mu          sync.Mutex
	showForm    bool
	mounted     bool
	unsubscribe func()
	lastVersion uint64
}

// NewContainer returns an unmounted container. When out is non-nil the
// container re-renders to it after every store change.
func NewContainer(s Store, a ActionCreators, out io.Writer) (*Container, error) {
	if s == nil {
		return nil, fmt.Errorf("view: nil store")
	}
	if a == nil {
		return nil, fmt.Errorf("view: nil action creators")
	}
	c := &Container{store: s, actions: a, out: out}

	dispatch := s.Dispatch
	c.list = NewList(func(t comment.Target) { dispatch(a.Remove(t)) })
	c.form = NewForm(func(in comment.Input) { dispatch(a.Create(in)) }, c.HideForm)
	return c, nil
}

// Mount subscribes to the store and requests the initial load. Mounting
// twice is a no-op.
func (c *Container) Mount() {
	c.mu.Lock()
	if c.mounted {
		c.mu.Unlock()
		return
	}
	c.mounted = true
	c.mu.Unlock()

	unsubscribe := c.store.Subscribe(c.onChange)
	c.mu.Lock()
	c.unsubscribe = unsubscribe
	c.mu.Unlock()

	c.store.Dispatch(c.actions.Load())
}

// Unmount stops rendering store changes. Requests already in flight still
// commit to the store.
func (c *Container) Unmount() {
	c.mu.Lock()
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.mounted = false
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// Mounted reports whether the container is mounted.
func (c *Container) Mounted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mounted
}

// ShowForm makes the add-comment form visible.
func (c *Container) ShowForm() {
	c.setForm(true)
}

// HideForm hides the add-comment form.
func (c *Container) HideForm() {
	c.setForm(false)
}

// FormVisible reports whether the form is shown.
func (c *Container) FormVisible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.showForm
}

// Submit forwards a submission to the form. It returns false when the form
// is hidden or the body is blank.
func (c *Container) Submit(values url.Values) bool {
	if !c.FormVisible() {
		return false
	}
	return c.form.Submit(values)
}

// Cancel hides the form.
func (c *Container) Cancel() {
	c.form.Cancel()
}

// Delete activates the delete affordance of comment id.
func (c *Container) Delete(id comment.ID) {
	c.list.Delete(id)
}

// Render writes the current view to w.
func (c *Container) Render(w io.Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.renderLocked(w, c.store.Snapshot())
}

func (c *Container) setForm(show bool) {
	c.mu.Lock()
	changed := c.showForm != show
	c.showForm = show
	if changed && c.mounted && c.out != nil {
		c.renderLocked(c.out, c.store.Snapshot())
	}
	c.mu.Unlock()
}

func (c *Container) onChange(snap store.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.mounted || snap.Version < c.lastVersion {
		return
	}
	c.lastVersion = snap.Version
	if c.out != nil {
		c.renderLocked(c.out, snap)
	}
}

func (c *Container) renderLocked(w io.Writer, snap store.Snapshot) {
	_, _ = fmt.Fprintln(w, "== comments ==")
	if snap.Err != nil {
		_, _ = fmt.Fprintf(w, "! last operation failed: %v\n", snap.Err)
	}
	c.list.Render(w, snap.Comments)
	if c.showForm {
		c.form.Render(w)
		return
	}
	_, _ = fmt.Fprintln(w, "[add comment]")
}
