package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// InsertContext adds a new context.
func (s *Store) InsertContext(ctx context.Context, c *Context) error {
	if c.CreatedAt == 0 {
		c.CreatedAt = time.Now().UnixMilli()
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO contexts (id, slug, name, created_at) VALUES (?, ?, ?, ?)`,
		c.ID, c.Slug, c.Name, c.CreatedAt,
	)
	return err
}

// GetContextBySlug retrieves a context by its slug, or nil if absent.
func (s *Store) GetContextBySlug(ctx context.Context, slug string) (*Context, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, slug, name, created_at FROM contexts WHERE slug = ?`, slug)
	var c Context
	if err := row.Scan(&c.ID, &c.Slug, &c.Name, &c.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan context: %w", err)
	}
	return &c, nil
}

// ListContexts returns all contexts, oldest first.
func (s *Store) ListContexts(ctx context.Context) ([]*Context, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, slug, name, created_at FROM contexts ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contexts []*Context
	for rows.Next() {
		var c Context
		if err := rows.Scan(&c.ID, &c.Slug, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan context: %w", err)
		}
		contexts = append(contexts, &c)
	}
	return contexts, rows.Err()
}
