package voice

import (
	"errors"
)

// Sentinel error kinds for this package.
var (
	ErrDeviceUnavailable = errors.New("audio device unavailable")
	ErrRecordingInFlight = errors.New("recording already in flight")
	ErrInvalidDuration   = errors.New("invalid recording duration")
	ErrEmptySample       = errors.New("empty audio sample")
	ErrDecode            = errors.New("decode audio sample")
	ErrStreamClosed      = errors.New("stream closed")
)
