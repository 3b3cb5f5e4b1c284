package store

import (
	"context"
	"fmt"
)

// LatestChanges returns the most recent change record per item of a
// context, the record that determines each item's badge. Records older
// than cutoff (unix ms) are omitted, so their items show no badge;
// cutoff 0 keeps everything.
func (s *Store) LatestChanges(ctx context.Context, contextID string, cutoff int64) (map[string]*ChangeRecord, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT c.id, c.item_id, c.change_type, c.before_answer, c.after_answer, c.created_at
		FROM changes c
		JOIN items i ON i.id = c.item_id
		WHERE i.context_id = ?
		  AND c.created_at >= ?
		  AND c.id = (SELECT c2.id FROM changes c2 WHERE c2.item_id = c.item_id
		              ORDER BY c2.created_at DESC, c2.id DESC LIMIT 1)`,
		contextID, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	latest := make(map[string]*ChangeRecord)
	for rows.Next() {
		var c ChangeRecord
		if err := rows.Scan(&c.ID, &c.ItemID, &c.ChangeType, &c.BeforeAnswer, &c.AfterAnswer, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		latest[c.ItemID] = &c
	}
	return latest, rows.Err()
}

// ItemChanges returns an item's change history, newest first.
func (s *Store) ItemChanges(ctx context.Context, itemID string, limit int) ([]*ChangeRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, item_id, change_type, before_answer, after_answer, created_at
		FROM changes WHERE item_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?`, itemID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var changes []*ChangeRecord
	for rows.Next() {
		var c ChangeRecord
		if err := rows.Scan(&c.ID, &c.ItemID, &c.ChangeType, &c.BeforeAnswer, &c.AfterAnswer, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		changes = append(changes, &c)
	}
	return changes, rows.Err()
}
