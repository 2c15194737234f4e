// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/okian/hush/internal/domain/attribution"
)

// Entry is a saved journal entry.
type Entry struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	// Attribution is the payload computed for this entry. It is nil for
	// entries saved before scoring finished.
	Attribution *attribution.Payload `json:"attribution,omitempty"`
}

// Submission is a queued attribution payload bound for the backend.
type Submission struct {
	EntryID    string              // entry the payload was computed for
	Payload    attribution.Payload // scores to submit
	EnqueuedAt time.Time
}
