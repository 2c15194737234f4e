package api

import (
	"context"
	"net/http"
	"strconv"

	service "github.com/okian/hush/internal/app"
	"github.com/okian/hush/internal/domain/model"
)

// JournalDependencies defines the interface for journal operations.
type JournalDependencies interface {
	SubmitEntry(ctx context.Context, req service.EntryRequest) (service.EntryResult, error)
	RecentEntries(ctx context.Context, limit int) ([]model.Entry, error)
}

// JournalHandler handles journal submissions and listings.
type JournalHandler struct {
	deps     JournalDependencies
	maxLimit int
}

// NewJournalHandler creates a new journal handler.
func NewJournalHandler(deps JournalDependencies, maxLimit int) *JournalHandler {
	return &JournalHandler{deps: deps, maxLimit: maxLimit}
}

// entryRequest is the body of POST /journal. ID is an optional idempotency key.
type entryRequest struct {
	ID      string `json:"id"`
	Prompt  string `json:"prompt"`
	Content string `json:"content"`
}

// HandleSubmit handles POST /journal requests.
func (h *JournalHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_entry"
	var req entryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	res, err := h.deps.SubmitEntry(r.Context(), service.EntryRequest{
		ID:      req.ID,
		Prompt:  req.Prompt,
		Content: req.Content,
	})
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	status := http.StatusCreated
	if res.Duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

// HandleRecent handles GET /journal?limit=N requests.
func (h *JournalHandler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	const op = "api.recent_entries"
	n := defaultJournalLimit
	if h.maxLimit < n {
		n = h.maxLimit
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		if v > h.maxLimit {
			writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrLimitExceeded))
			return
		}
		n = v
	}
	entries, err := h.deps.RecentEntries(r.Context(), n)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	if entries == nil {
		entries = []model.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
