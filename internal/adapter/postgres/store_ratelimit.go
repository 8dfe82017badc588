package postgres

import (
	"context"
	"fmt"
	"time"
)

// IncrementRateLimitWindow atomically increments (and creates if absent)
// the counter for (key, windowStart), returning the post-increment count.
func (s *Store) IncrementRateLimitWindow(ctx context.Context, key string, windowStart time.Time) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO rate_limit_windows (key, window_start, count)
		VALUES ($1, $2, 1)
		ON CONFLICT (key, window_start) DO UPDATE SET count = rate_limit_windows.count + 1
		RETURNING count`,
		key, windowStart,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("increment rate limit window: %w", err)
	}
	return count, nil
}

// PruneRateLimitWindows deletes window rows older than olderThan.
func (s *Store) PruneRateLimitWindows(ctx context.Context, olderThan time.Time) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM rate_limit_windows WHERE window_start < $1`, olderThan)
	if err != nil {
		return fmt.Errorf("prune rate limit windows: %w", err)
	}
	return nil
}
