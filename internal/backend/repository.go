// Package backend implements the comments HTTP service the widget talks to.
package backend

import (
	"context"
	"errors"
	"sync"

	"github.com/i-melnichenko/comment-widget/internal/comment"
)

// ErrNotFound is returned when a comment does not exist.
var ErrNotFound = errors.New("backend: comment not found")

// Repository stores comments.
type Repository interface {
	List(ctx context.Context) (comment.Collection, error)
	Create(ctx context.Context, in comment.Input) (comment.Comment, error)
	Delete(ctx context.Context, id comment.ID) error
	Close() error
}

// MemoryRepository keeps comments in process memory.
type MemoryRepository struct {
	mu       sync.RWMutex
	comments comment.Collection
	nextID   comment.ID
}

// NewMemoryRepository returns an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{comments: comment.Collection{}, nextID: 1}
}

// List returns comments in creation order.
func (m *MemoryRepository) List(context.Context) (comment.Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.comments.Clone(), nil
}

// Create stores a comment and assigns its id.
func (m *MemoryRepository) Create(_ context.Context, in comment.Input) (comment.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := comment.Comment{ID: m.nextID, Body: in.Body, Author: in.Author}
	m.nextID++
	m.comments = append(m.comments, c)
	return c, nil
}

// Delete removes comment id.
func (m *MemoryRepository) Delete(_ context.Context, id comment.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, c := range m.comments {
		if c.ID == id {
			m.comments = append(m.comments[:i:i], m.comments[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// Close implements Repository.
func (m *MemoryRepository) Close() error { return nil }
