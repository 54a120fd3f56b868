// Package comment implements the comment collection state machine: the data
// model, the action set and the reducer applied by the store.
package comment

// ID identifies a comment. It is assigned by the backend; zero means "not yet created".
type ID int64

// DefaultAuthor is shown when a comment is submitted without an author.
// The form applies it; the reducer and action creators never do.
const DefaultAuthor = "anonymous"

// Comment is a single comment as returned by the backend.
type Comment struct {
	ID     ID     `json:"id,omitempty"`
	Body   string `json:"body"`
	Author string `json:"author"`
}

// Input is the payload submitted to create a comment.
type Input struct {
	Body   string `json:"body"`
	Author string `json:"author"`
}

// Target names the comment a delete refers to. It is also the shape of a
// delete confirmation.
type Target struct {
	ID ID `json:"id"`
}

// Collection is the ordered comment list held by the store.
type Collection []Comment

// Clone returns a copy that shares no backing array with c.
// A nil collection clones to an empty, non-nil one.
func (c Collection) Clone() Collection {
	out := make(Collection, len(c))
	copy(out, c)
	return out
}

// Contains reports whether a comment with id is present.
func (c Collection) Contains(id ID) bool {
	for _, cm := range c {
		if cm.ID == id {
			return true
		}
	}
	return false
}

// IDs returns the comment ids in order.
func (c Collection) IDs() []ID {
	out := make([]ID, 0, len(c))
	for _, cm := range c {
		out = append(out, cm.ID)
	}
	return out
}
