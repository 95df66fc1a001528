package store

import (
	"database/sql"
	"fmt"
	"time"
)

// RateLimitStore is a fixed-window request counter persisted in the
// shared database, so overlapping server instances see one budget per
// key instead of each keeping a process-local map.
type RateLimitStore struct {
	db *sql.DB
}

func NewRateLimitStore(db *sql.DB) *RateLimitStore {
	return &RateLimitStore{db: db}
}

// Allow counts a hit against the key's current window and reports
// whether the key is still under its limit. A window that has elapsed
// is reset rather than slid.
func (s *RateLimitStore) Allow(key string, limit int, window time.Duration, now time.Time) (bool, error) {
	now = now.UTC()

	var windowStart time.Time
	var count int
	err := s.db.QueryRow(
		`SELECT window_start, count FROM rate_limits WHERE key = ?`, key,
	).Scan(&windowStart, &count)

	if err == sql.ErrNoRows || (err == nil && now.Sub(windowStart) >= window) {
		_, err = s.db.Exec(
			`INSERT INTO rate_limits (key, window_start, count) VALUES (?, ?, 1)
			 ON CONFLICT(key) DO UPDATE SET window_start = excluded.window_start, count = 1`,
			key, now,
		)
		if err != nil {
			return false, fmt.Errorf("reset rate limit window: %w", err)
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("read rate limit: %w", err)
	}

	_, err = s.db.Exec(`UPDATE rate_limits SET count = count + 1 WHERE key = ?`, key)
	if err != nil {
		return false, fmt.Errorf("increment rate limit: %w", err)
	}
	return count+1 <= limit, nil
}

// Cleanup removes windows that ended before the cutoff.
func (s *RateLimitStore) Cleanup(before time.Time) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM rate_limits WHERE window_start < ?`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("cleanup rate limits: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
