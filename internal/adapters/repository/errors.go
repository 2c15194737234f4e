package repository

import "errors"

// Sentinel kinds for journal store errors.
var (
	ErrNotFound     = errors.New("entry not found")
	ErrDuplicate    = errors.New("entry already exists")
	ErrInvalidEntry = errors.New("invalid entry")
	ErrInvalidLimit = errors.New("invalid journal limit")
)
