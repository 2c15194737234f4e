// Package repository persists journal entries.
package repository

import (
	"context"

	"github.com/okian/hush/internal/domain/attribution"
	"github.com/okian/hush/internal/domain/model"
)

// Store provides read/write access to saved journal entries.
type Store interface {
	// Save persists a new entry. Returns ErrDuplicate if the ID exists.
	Save(ctx context.Context, e model.Entry) error

	// SetAttribution records the payload computed for an entry.
	// Returns ErrNotFound if the entry is unknown.
	SetAttribution(ctx context.Context, id string, p attribution.Payload) error

	// Get returns a single entry. Returns ErrNotFound if the entry is unknown.
	Get(ctx context.Context, id string) (model.Entry, error)

	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]model.Entry, error)

	// Count returns the number of saved entries.
	Count(ctx context.Context) int

	Close() error
}
