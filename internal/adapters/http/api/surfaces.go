package api

import (
	"context"
	"net/http"
	"time"

	"github.com/okian/hush/internal/domain/biomarker"
)

// SurfaceDependencies defines the interface for input surface operations.
type SurfaceDependencies interface {
	RegisterSurface(ctx context.Context, handle string) error
	RemoveSurface(ctx context.Context, handle string)
	DeliverKeys(ctx context.Context, handle string, events []biomarker.KeyEvent) (int, error)
}

// SurfaceHandler handles surface registration and keystroke delivery.
type SurfaceHandler struct {
	deps SurfaceDependencies
	now  func() time.Time
}

// NewSurfaceHandler creates a new surface handler.
func NewSurfaceHandler(deps SurfaceDependencies) *SurfaceHandler {
	return &SurfaceHandler{deps: deps, now: time.Now}
}

// keyRequest is one keydown notification. TS is unix milliseconds; zero
// means the time the request was received. A batch either stamps every
// key or none, so one interval series never mixes client and server clocks.
type keyRequest struct {
	Key string `json:"key"`
	TS  int64  `json:"ts"`
}

type surfaceResponse struct {
	Handle string `json:"handle"`
}

type keysResponse struct {
	Accepted int `json:"accepted"`
}

// HandleRegister handles POST /surfaces/{handle} requests.
func (h *SurfaceHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	const op = "api.register_surface"
	handle := r.PathValue("handle")
	if err := h.deps.RegisterSurface(r.Context(), handle); err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, surfaceResponse{Handle: handle})
}

// HandleRemove handles DELETE /surfaces/{handle} requests.
func (h *SurfaceHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	h.deps.RemoveSurface(r.Context(), r.PathValue("handle"))
	w.WriteHeader(http.StatusNoContent)
}

// HandleKeys handles POST /surfaces/{handle}/keys requests.
func (h *SurfaceHandler) HandleKeys(w http.ResponseWriter, r *http.Request) {
	const op = "api.deliver_keys"
	var req []keyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	received := h.now()
	stamped := len(req) > 0 && req[0].TS > 0
	events := make([]biomarker.KeyEvent, 0, len(req))
	for _, k := range req {
		if k.Key == "" {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		if (k.TS > 0) != stamped {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, ErrMixedClocks))
			return
		}
		at := received
		if k.TS > 0 {
			at = time.UnixMilli(k.TS)
		}
		events = append(events, biomarker.KeyEvent{Key: k.Key, At: at})
	}

	n, err := h.deps.DeliverKeys(r.Context(), r.PathValue("handle"), events)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusAccepted, keysResponse{Accepted: n})
}
