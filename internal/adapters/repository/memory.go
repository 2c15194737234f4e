package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/okian/hush/internal/domain/attribution"
	"github.com/okian/hush/internal/domain/model"
)

// MemoryStore keeps entries in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]int
	entries []model.Entry
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]int)}
}

// Save inserts e. An existing id returns ErrDuplicate.
func (s *MemoryStore) Save(_ context.Context, e model.Entry) error {
	if e.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidEntry)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[e.ID]; ok {
		return fmt.Errorf("%s: %w", e.ID, ErrDuplicate)
	}
	if e.Attribution != nil {
		p := *e.Attribution
		e.Attribution = &p
	}
	s.byID[e.ID] = len(s.entries)
	s.entries = append(s.entries, e)
	return nil
}

// SetAttribution stores the attribution computed for entry id.
func (s *MemoryStore) SetAttribution(_ context.Context, id string, p attribution.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	s.entries[i].Attribution = &p
	return nil
}

// Get returns the entry with id or ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, id string) (model.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[id]
	if !ok {
		return model.Entry{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return s.entries[i], nil
}

// Recent returns up to limit entries, newest first.
func (s *MemoryStore) Recent(_ context.Context, limit int) ([]model.Entry, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	out := make([]model.Entry, 0, len(s.entries))
	for i := len(s.entries) - 1; i >= 0; i-- {
		out = append(out, s.entries[i])
	}
	s.mu.RUnlock()

	// ties keep the most recently saved entry first

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Count returns the number of stored entries.
func (s *MemoryStore) Count(context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
