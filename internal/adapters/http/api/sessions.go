package api

import (
	"context"
	"net/http"
	"strings"

	service "github.com/okian/hush/internal/app"
	"github.com/okian/hush/internal/domain/biomarker"
)

// SessionDependencies defines the interface for composition session operations.
type SessionDependencies interface {
	StartSession(ctx context.Context, handle string) (service.Session, error)
	EndSession(ctx context.Context) error
	CurrentSession() (service.Session, bool)
	TypingSnapshot() (biomarker.Snapshot, error)
}

// SessionHandler handles composition sessions.
type SessionHandler struct {
	deps SessionDependencies
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(deps SessionDependencies) *SessionHandler {
	return &SessionHandler{deps: deps}
}

type sessionRequest struct {
	Handle string `json:"handle"`
}

// sessionResponse reports the session together with a listen failure, if any.
type sessionResponse struct {
	service.Session
	Error string `json:"error,omitempty"`
}

// HandleStart handles POST /sessions requests. An unresolvable surface still
// starts an idle session and is reported with 404.
func (h *SessionHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	const op = "api.start_session"
	var req sessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.Handle) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, biomarker.ErrEmptyHandle))
		return
	}

	sess, err := h.deps.StartSession(r.Context(), req.Handle)
	if err != nil {
		status, _ := classify(err)
		writeJSON(w, status, sessionResponse{Session: sess, Error: Wrap(op, err).Error()})
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{Session: sess})
}

// HandleCurrent handles GET /sessions/current requests.
func (h *SessionHandler) HandleCurrent(w http.ResponseWriter, _ *http.Request) {
	sess, ok := h.deps.CurrentSession()
	if !ok {
		writeDomainError(w, "api.current_session", service.ErrNoSession)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// HandleEnd handles DELETE /sessions/current requests.
func (h *SessionHandler) HandleEnd(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.EndSession(r.Context()); err != nil {
		writeDomainError(w, "api.end_session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDebugTyping handles GET /debug/typing requests.
func (h *SessionHandler) HandleDebugTyping(w http.ResponseWriter, _ *http.Request) {
	snap, err := h.deps.TypingSnapshot()
	if err != nil {
		writeDomainError(w, "api.debug_typing", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
