package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// InsertSource adds a new source to a context.
func (s *Store) InsertSource(ctx context.Context, src *Source) error {
	now := time.Now().UnixMilli()
	if src.CreatedAt == 0 {
		src.CreatedAt = now
	}
	if src.UpdatedAt == 0 {
		src.UpdatedAt = now
	}
	if src.LastStatus == "" {
		src.LastStatus = "pending"
	}

	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO sources (id, context_id, name, url, enabled,
		last_fetched_at, last_hash, last_status, last_error, fail_count,
		created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		src.ID, src.ContextID, src.Name, src.URL, src.Enabled,
		src.LastFetchedAt, src.LastHash, src.LastStatus, src.LastError,
		src.FailCount, src.CreatedAt, src.UpdatedAt,
	)
	return err
}

// GetSource retrieves a source by ID, or nil if absent.
func (s *Store) GetSource(ctx context.Context, id string) (*Source, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, context_id, name, url, enabled,
		last_fetched_at, last_hash, last_status, last_error, fail_count,
		created_at, updated_at
		FROM sources WHERE id = ?`, id)
	return scanSource(row)
}

// GetSourceByURL returns the context's source with the given normalized
// URL, or nil.
func (s *Store) GetSourceByURL(ctx context.Context, contextID, url string) (*Source, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, context_id, name, url, enabled,
		last_fetched_at, last_hash, last_status, last_error, fail_count,
		created_at, updated_at
		FROM sources WHERE context_id = ? AND url = ? LIMIT 1`, contextID, url)
	return scanSource(row)
}

// ListSources returns a context's sources, oldest first.
func (s *Store) ListSources(ctx context.Context, contextID string) ([]*Source, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, context_id, name, url, enabled,
		last_fetched_at, last_hash, last_status, last_error, fail_count,
		created_at, updated_at
		FROM sources WHERE context_id = ? ORDER BY created_at ASC`, contextID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []*Source
	for rows.Next() {
		src, err := scanSourceRows(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// DeleteSource removes a source (cascades to its fetch log).
func (s *Store) DeleteSource(ctx context.Context, id string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, id)
	return err
}

// CountSources returns the number of sources in a context.
func (s *Store) CountSources(ctx context.Context, contextID string) (int, error) {
	var count int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sources WHERE context_id = ?`, contextID).Scan(&count)
	return count, err
}

// RecordFetchSuccess updates a source after a successful fetch.
func (s *Store) RecordFetchSuccess(ctx context.Context, id, hash string) error {
	now := time.Now().UnixMilli()
	_, err := s.DB.ExecContext(ctx,
		`UPDATE sources SET last_fetched_at=?, last_hash=?, last_status='ok',
		last_error='', fail_count=0, updated_at=?
		WHERE id=?`, now, hash, now, id)
	return err
}

// RecordFetchUnchanged updates last_fetched_at without changing the
// content hash.
func (s *Store) RecordFetchUnchanged(ctx context.Context, id string) error {
	now := time.Now().UnixMilli()
	_, err := s.DB.ExecContext(ctx,
		`UPDATE sources SET last_fetched_at=?, last_status='unchanged',
		last_error='', fail_count=0, updated_at=?
		WHERE id=?`, now, now, id)
	return err
}

// RecordFetchError updates a source after a failed fetch.
func (s *Store) RecordFetchError(ctx context.Context, id, errMsg string) error {
	now := time.Now().UnixMilli()
	_, err := s.DB.ExecContext(ctx,
		`UPDATE sources SET last_fetched_at=?, last_status='error',
		last_error=?, fail_count=fail_count+1, updated_at=?
		WHERE id=?`, now, errMsg, now, id)
	return err
}

func scanSource(row *sql.Row) (*Source, error) {
	var src Source
	var enabled int
	err := row.Scan(
		&src.ID, &src.ContextID, &src.Name, &src.URL, &enabled,
		&src.LastFetchedAt, &src.LastHash, &src.LastStatus, &src.LastError,
		&src.FailCount, &src.CreatedAt, &src.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan source: %w", err)
	}
	src.Enabled = enabled != 0
	return &src, nil
}

func scanSourceRows(rows *sql.Rows) (*Source, error) {
	var src Source
	var enabled int
	err := rows.Scan(
		&src.ID, &src.ContextID, &src.Name, &src.URL, &enabled,
		&src.LastFetchedAt, &src.LastHash, &src.LastStatus, &src.LastError,
		&src.FailCount, &src.CreatedAt, &src.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan source: %w", err)
	}
	src.Enabled = enabled != 0
	return &src, nil
}
