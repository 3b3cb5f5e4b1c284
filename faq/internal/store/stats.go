package store

import "context"

// ContextStats returns aggregate counters for a context: published item
// total plus how many items currently carry each badge. The badge is
// the latest change record per item, subject to the same cutoff as
// LatestChanges.
func (s *Store) ContextStats(ctx context.Context, contextID string, cutoff int64) (*ContextStats, error) {
	var stats ContextStats
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM items WHERE context_id = ? AND published = 1`,
		contextID).Scan(&stats.Total)
	if err != nil {
		return nil, err
	}

	latest, err := s.LatestChanges(ctx, contextID, cutoff)
	if err != nil {
		return nil, err
	}
	for _, c := range latest {
		switch c.ChangeType {
		case ChangeNew:
			stats.New++
		case ChangeUpdated:
			stats.Updated++
		case ChangeStale:
			stats.Stale++
		}
	}
	return &stats, nil
}
