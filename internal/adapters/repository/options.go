package repository

import (
	"time"

	"github.com/okian/aptrank/pkg/logger"
)

// Option applies a configuration option to the SQLiteStore.
type Option func(*SQLiteStore)

// WithBusyTimeout sets how long SQLite waits on a locked database.
func WithBusyTimeout(d time.Duration) Option {
	return func(s *SQLiteStore) {
		if d > 0 {
			s.busyTimeout = d
		}
	}
}

// WithJournalMode sets the SQLite journal mode, e.g. "WAL" or "DELETE".
func WithJournalMode(mode string) Option {
	return func(s *SQLiteStore) {
		if mode != "" {
			s.journalMode = mode
		}
	}
}

// WithLogger sets the logger used to report skipped rows.
func WithLogger(l logger.Logger) Option {
	return func(s *SQLiteStore) {
		if l != nil {
			s.logger = l
		}
	}
}
