package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted   = errors.New("service not started")
	ErrNoSession    = errors.New("no active composition session")
	ErrEmptyContent = errors.New("journal entry content is empty")

	// ErrSubmitInProgress is returned for a retried entry id whose first
	// submission has not been saved yet.
	ErrSubmitInProgress = errors.New("journal entry submission in progress")
)
