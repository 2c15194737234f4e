package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	service "github.com/okian/hush/internal/app"
	"github.com/okian/hush/internal/domain/attribution"
	"github.com/okian/hush/internal/domain/sentiment"
	"github.com/okian/hush/internal/domain/voice"
)

// ScoreDependencies defines the interface for on-demand scoring.
type ScoreDependencies interface {
	ScoreText(ctx context.Context, text string) sentiment.Result
	RecordVoice(ctx context.Context, d time.Duration) error
	LoadVoice(ctx context.Context, sample []byte) error
	ScoreVoice(ctx context.Context) (voice.Result, error)
	Diagnostics(ctx context.Context, req service.DiagnosticsRequest) (attribution.Breakdown, error)
}

// ScoreHandler handles text, voice and diagnostics requests.
type ScoreHandler struct {
	deps           ScoreDependencies
	maxSampleBytes int64
}

// NewScoreHandler creates a new score handler.
func NewScoreHandler(deps ScoreDependencies, maxSampleBytes int64) *ScoreHandler {
	return &ScoreHandler{deps: deps, maxSampleBytes: maxSampleBytes}
}

type textRequest struct {
	Text string `json:"text"`
}

type recordRequest struct {
	DurationMS int64 `json:"duration_ms"`
}

type uploadResponse struct {
	Status string `json:"status"`
	Bytes  int    `json:"bytes"`
}

type diagnosticsRequest struct {
	Text     string `json:"text"`
	RecordMS int64  `json:"record_ms"`
}

// HandleText handles POST /score/text requests.
func (h *ScoreHandler) HandleText(w http.ResponseWriter, r *http.Request) {
	const op = "api.score_text"
	var req textRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	writeJSON(w, http.StatusOK, h.deps.ScoreText(r.Context(), req.Text))
}

// HandleRecord handles POST /voice/record requests. It blocks until the
// recording finishes. A missing duration uses the agent default.
func (h *ScoreHandler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	const op = "api.record_voice"
	var req recordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.DurationMS < 0 {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, voice.ErrInvalidDuration))
		return
	}
	if err := h.deps.RecordVoice(r.Context(), time.Duration(req.DurationMS)*time.Millisecond); err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "recorded"})
}

// HandleUpload handles PUT /voice/sample requests carrying a raw WAV body.
func (h *ScoreHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	const op = "api.upload_voice"
	sample, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxSampleBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", WrapKind(op, ErrTooLarge, err))
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.deps.LoadVoice(r.Context(), sample); err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse{Status: "loaded", Bytes: len(sample)})
}

// HandleVoice handles GET /voice/score requests.
func (h *ScoreHandler) HandleVoice(w http.ResponseWriter, r *http.Request) {
	res, err := h.deps.ScoreVoice(r.Context())
	if err != nil {
		writeDomainError(w, "api.score_voice", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleDiagnostics handles POST /diagnostics requests. Nothing is saved
// or submitted, but the session's typing sample is consumed.
func (h *ScoreHandler) HandleDiagnostics(w http.ResponseWriter, r *http.Request) {
	const op = "api.diagnostics"
	var req diagnosticsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.RecordMS < 0 {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, voice.ErrInvalidDuration))
		return
	}
	b, err := h.deps.Diagnostics(r.Context(), service.DiagnosticsRequest{
		Text:   req.Text,
		Record: time.Duration(req.RecordMS) * time.Millisecond,
	})
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}
