package store

import (
	"context"
	"fmt"
	"time"
)

// InsertEvent appends a client interaction event. Validation happens at
// the transport; the store writes what it is given.
func (s *Store) InsertEvent(ctx context.Context, e *Event) error {
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().UnixMilli()
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO events (id, context_id, type, query, item_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.ContextID, e.Type, e.Query, e.ItemID, e.CreatedAt,
	)
	return err
}

// ListEvents returns a context's events, newest first.
func (s *Store) ListEvents(ctx context.Context, contextID string, limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, context_id, type, query, item_id, created_at
		FROM events WHERE context_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?`, contextID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.ContextID, &e.Type, &e.Query, &e.ItemID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}
