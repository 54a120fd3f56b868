package view

import (
	"fmt"
	"io"
	"strings"

	"github.com/i-melnichenko/comment-widget/internal/comment"
)

// List renders comments, each with a delete affordance.
type List struct {
	remove func(comment.Target)
}

// NewList returns a list whose delete affordance calls remove.
func NewList(remove func(comment.Target)) *List {
	return &List{remove: remove}
}

// DeleteHandler returns the handler bound to one item's delete affordance.
func (l *List) DeleteHandler(id comment.ID) func() {
	remove := l.remove
	return func() { remove(comment.Target{ID: id}) }
}

// Delete activates the delete affordance of the item with id.
func (l *List) Delete(id comment.ID) {
	l.DeleteHandler(id)()
}

// Render writes one line per comment.
func (l *List) Render(w io.Writer, comments comment.Collection) {
	if len(comments) == 0 {
		_, _ = fmt.Fprintln(w, "(no comments yet)")
		return
	}
	for _, cm := range comments {
		_, _ = fmt.Fprintf(w, "#%d %s: %s [delete %d]\n", cm.ID, cm.Author, oneLine(cm.Body), cm.ID)
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
