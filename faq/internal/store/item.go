package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hazyhaar/vraagbaak/dbopen"
	"github.com/hazyhaar/vraagbaak/faq/internal/diff"
	"github.com/hazyhaar/vraagbaak/idgen"
)

const itemColumns = `id, context_id, source_id, question, answer,
	canonical_key, published, created_at, updated_at`

// Snapshot returns all items of a context, published or not, in
// creation order. This is the classifier's view: unpublished items must
// be visible so a returning question reuses its row.
func (s *Store) Snapshot(ctx context.Context, contextID string) ([]*Item, error) {
	return s.queryItems(ctx,
		`SELECT `+itemColumns+` FROM items WHERE context_id = ? ORDER BY created_at ASC, id ASC`,
		contextID)
}

// ListPublished returns a context's published items in creation order.
func (s *Store) ListPublished(ctx context.Context, contextID string) ([]*Item, error) {
	return s.queryItems(ctx,
		`SELECT `+itemColumns+` FROM items WHERE context_id = ? AND published = 1 ORDER BY created_at ASC, id ASC`,
		contextID)
}

// GetItem retrieves an item by ID, or nil if absent.
func (s *Store) GetItem(ctx context.Context, id string) (*Item, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	it, err := scanItem(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return it, err
}

// Applied summarizes what one batch wrote.
type Applied struct {
	New       int `json:"new"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Stale     int `json:"stale"`
}

// ApplyBatch persists one classification result in a single
// transaction: new items are inserted published with a "new" change
// record, updated items get the new answer and an "updated" record,
// unchanged items are republished if they had been suppressed (no
// record), and stale items are unpublished with a "stale" record.
func (s *Store) ApplyBatch(ctx context.Context, contextID string, res diff.Result) (Applied, error) {
	now := time.Now().UnixMilli()
	var ap Applied

	err := dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		for _, o := range res.New {
			itemID := idgen.New()
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO items (id, context_id, source_id, question, answer,
				canonical_key, published, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)`,
				itemID, contextID, o.SourceID, o.Question, o.Answer,
				o.CanonicalKey, now, now,
			); err != nil {
				return fmt.Errorf("insert item: %w", err)
			}
			if err := insertChange(ctx, tx, itemID, ChangeNew, "", o.Answer, now); err != nil {
				return err
			}
			ap.New++
		}

		for _, m := range res.Updated {
			if _, err := tx.ExecContext(ctx,
				`UPDATE items SET question=?, answer=?, published=1, updated_at=? WHERE id=?`,
				m.Observed.Question, m.Observed.Answer, now, m.Item.ID,
			); err != nil {
				return fmt.Errorf("update item: %w", err)
			}
			if err := insertChange(ctx, tx, m.Item.ID, ChangeUpdated, m.Item.Answer, m.Observed.Answer, now); err != nil {
				return err
			}
			ap.Updated++
		}

		for _, m := range res.Unchanged {
			if !m.Item.Published {
				if _, err := tx.ExecContext(ctx,
					`UPDATE items SET published=1, updated_at=? WHERE id=?`,
					now, m.Item.ID,
				); err != nil {
					return fmt.Errorf("republish item: %w", err)
				}
			}
			ap.Unchanged++
		}

		for _, it := range res.Stale {
			if _, err := tx.ExecContext(ctx,
				`UPDATE items SET published=0, updated_at=? WHERE id=?`,
				now, it.ID,
			); err != nil {
				return fmt.Errorf("unpublish item: %w", err)
			}
			if err := insertChange(ctx, tx, it.ID, ChangeStale, it.Answer, "", now); err != nil {
				return err
			}
			ap.Stale++
		}
		return nil
	})
	if err != nil {
		return Applied{}, err
	}
	return ap, nil
}

func insertChange(ctx context.Context, tx *sql.Tx, itemID, changeType, before, after string, now int64) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO changes (id, item_id, change_type, before_answer, after_answer, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		idgen.New(), itemID, changeType, before, after, now,
	)
	if err != nil {
		return fmt.Errorf("insert change: %w", err)
	}
	return nil
}

func (s *Store) queryItems(ctx context.Context, query string, args ...any) ([]*Item, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		it, err := scanItem(rows.Scan)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func scanItem(scan func(...any) error) (*Item, error) {
	var it Item
	var published int
	err := scan(
		&it.ID, &it.ContextID, &it.SourceID, &it.Question, &it.Answer,
		&it.CanonicalKey, &published, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan item: %w", err)
	}
	it.Published = published != 0
	return &it, nil
}
