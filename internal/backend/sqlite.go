package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/i-melnichenko/comment-widget/internal/comment"
)

// SQLiteRepository persists comments in a SQLite database file.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (and creates if needed) the database at path.
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	if path == "" {
		return nil, fmt.Errorf("backend: sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("backend: create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("backend: open sqlite: %w", err)
	}
	// A single connection serializes writers and keeps ids monotonic.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS comments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		body TEXT NOT NULL,
		author TEXT NOT NULL DEFAULT ''
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("backend: create comments table: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// List returns comments in id order.
func (r *SQLiteRepository) List(ctx context.Context) (comment.Collection, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, body, author FROM comments ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("backend: select comments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := comment.Collection{}
	for rows.Next() {
		var c comment.Comment
		if err := rows.Scan(&c.ID, &c.Body, &c.Author); err != nil {
			return nil, fmt.Errorf("backend: scan comment: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("backend: iterate comments: %w", err)
	}
	return out, nil
}

// Create inserts a comment and returns it with its id.
func (r *SQLiteRepository) Create(ctx context.Context, in comment.Input) (comment.Comment, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO comments (body, author) VALUES (?, ?)`, in.Body, in.Author)
	if err != nil {
		return comment.Comment{}, fmt.Errorf("backend: insert comment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return comment.Comment{}, fmt.Errorf("backend: last insert id: %w", err)
	}
	return comment.Comment{ID: comment.ID(id), Body: in.Body, Author: in.Author}, nil
}

// Delete removes comment id.
func (r *SQLiteRepository) Delete(ctx context.Context, id comment.ID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, int64(id))
	if err != nil {
		return fmt.Errorf("backend: delete comment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("backend: rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the database.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
