package store

import (
	"fmt"
	"time"
)

// MaybeCleanup purges rows older than the retention window once every
// CleanupInterval inserts (spec.md §4.4 Retention / §5 Backpressure). A
// failed purge is not fatal; the next interval retries. Calling it when
// nothing exceeds the window is a no-op (spec.md §8 idempotence).
func (s *Store) MaybeCleanup(now time.Time) error {
	if s.insertsSinceCleanup < CleanupInterval {
		return nil
	}
	s.insertsSinceCleanup = 0
	return s.Cleanup(now)
}

// Cleanup deletes rows older than the retention window from all four
// tables, unconditionally.
func (s *Store) Cleanup(now time.Time) error {
	cutoff := now.Add(-s.retention).UnixMilli()
	tables := []string{"system_snapshots", "process_snapshots", "events", "network_sockets"}
	for _, table := range tables {
		if _, err := s.db.Exec(fmt.Sprintf("DELETE FROM %s WHERE ts < ?", table), cutoff); err != nil {
			return fmt.Errorf("cleanup %s: %w", table, err)
		}
	}
	return nil
}
