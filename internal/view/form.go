package view

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/i-melnichenko/comment-widget/internal/comment"
)

// Form field names.
const (
	FieldBody   = "body"
	FieldAuthor = "author"
)

// ParseInput reads a comment from submitted form values. Both fields are
// trimmed and the author defaults to comment.DefaultAuthor. ok is false when
// the body is blank.
func ParseInput(values url.Values) (in comment.Input, ok bool) {
	in.Body = strings.TrimSpace(values.Get(FieldBody))
	in.Author = strings.TrimSpace(values.Get(FieldAuthor))
	if in.Author == "" {
		in.Author = comment.DefaultAuthor
	}
	return in, in.Body != ""
}

// Form collects a new comment and dispatches its creation.
type Form struct {
	submit func(comment.Input)
	hide   func()
}

// NewForm returns a form that calls submit with valid input and then hide.
func NewForm(submit func(comment.Input), hide func()) *Form {
	return &Form{submit: submit, hide: hide}
}

// Submit handles a form submission. A blank body is ignored silently.
func (f *Form) Submit(values url.Values) bool {
	in, ok := ParseInput(values)
	if !ok {
		return false
	}
	f.submit(in)
	f.hide()
	return true
}

// Cancel hides the form without submitting.
func (f *Form) Cancel() {
	f.hide()
}

// Render writes the form prompt.
func (f *Form) Render(w io.Writer) {
	_, _ = fmt.Fprintf(w, "[new comment] %s (required), %s (optional) | submit | cancel\n", FieldBody, FieldAuthor)
}
