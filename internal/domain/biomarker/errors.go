package biomarker

import (
	"errors"
)

// Sentinel error kinds for this package.
var (
	ErrEmptyHandle     = errors.New("empty surface handle")
	ErrSurfaceNotFound = errors.New("surface not found")
)
