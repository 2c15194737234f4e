package repository

import (
	"time"

	"github.com/okian/hush/pkg/logger"
)

// Option applies a configuration option to a SQLiteStore.
type Option func(*SQLiteStore)

// WithBusyTimeout sets how long SQLite waits on a locked database.
func WithBusyTimeout(d time.Duration) Option {
	return func(s *SQLiteStore) {
		if d > 0 {
			s.busyTimeout = d
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(s *SQLiteStore) {
		if l != nil {
			s.log = l
		}
	}
}
