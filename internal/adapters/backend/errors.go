package backend

import "errors"

// Sentinel kinds for backend errors.
var (
	ErrRejected    = errors.New("backend rejected request")
	ErrUnreachable = errors.New("backend unreachable")
	ErrNoBaseURL   = errors.New("backend url not configured")
)
