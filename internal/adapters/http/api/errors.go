package api

import (
	"errors"
	"net/http"

	service "github.com/okian/hush/internal/app"
	repository "github.com/okian/hush/internal/adapters/repository"
	"github.com/okian/hush/internal/domain/biomarker"
	"github.com/okian/hush/internal/domain/voice"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest    = errors.New("bad request")
	ErrLimitExceeded = errors.New("limit exceeded")
	ErrTooLarge      = errors.New("payload too large")
	ErrMixedClocks   = errors.New("key batch mixes stamped and unstamped events")
)

// Error annotates an error with the handler operation that produced it.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Kind != nil && e.Err != nil:
		return e.Op + ": " + e.Kind.Error() + ": " + e.Err.Error()
	case e.Kind != nil:
		return e.Op + ": " + e.Kind.Error()
	case e.Err != nil:
		return e.Op + ": " + e.Err.Error()
	default:
		return e.Op
	}
}

func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// NewKind returns an error of the given kind for op.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// WrapKind wraps err under op with an explicit kind.
func WrapKind(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Wrap wraps err under op.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// classify maps domain errors to an HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "too_large"
	case errors.Is(err, ErrLimitExceeded):
		return http.StatusBadRequest, "limit_exceeded"
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, service.ErrEmptyContent),
		errors.Is(err, biomarker.ErrEmptyHandle),
		errors.Is(err, voice.ErrInvalidDuration),
		errors.Is(err, voice.ErrEmptySample):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, biomarker.ErrSurfaceNotFound):
		return http.StatusNotFound, "surface_not_found"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrNoSession):
		return http.StatusConflict, "no_session"
	case errors.Is(err, service.ErrSubmitInProgress):
		return http.StatusConflict, "submit_in_progress"
	case errors.Is(err, voice.ErrRecordingInFlight):
		return http.StatusConflict, "recording_in_flight"
	case errors.Is(err, voice.ErrDeviceUnavailable):
		return http.StatusServiceUnavailable, "device_unavailable"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, voice.ErrDecode):
		return http.StatusUnprocessableEntity, "decode_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
