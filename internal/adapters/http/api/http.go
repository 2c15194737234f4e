// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/okian/hush/pkg/logger"
)

const (
	defaultMaxJournalLimit = 100
	defaultJournalLimit    = 20
	defaultMaxSampleBytes  = 10 << 20
	maxBodyBytes           = 1 << 20
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SurfaceDependencies
	SessionDependencies
	ScoreDependencies
	JournalDependencies
	StatsProvider
}

// Server wires HTTP routes for the agent API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	surfaceHandler *SurfaceHandler
	sessionHandler *SessionHandler
	scoreHandler   *ScoreHandler
	journalHandler *JournalHandler

	debug bool
	log   logger.Logger
}

// Option configures a Server.
type Option func(*serverConfig)

type serverConfig struct {
	maxJournalLimit int
	maxSampleBytes  int64
	debug           bool
	log             logger.Logger
}

// WithMaxJournalLimit caps the limit accepted by GET /journal.
func WithMaxJournalLimit(n int) Option {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxJournalLimit = n
		}
	}
}

// WithMaxSampleBytes caps the size of uploaded voice samples.
func WithMaxSampleBytes(n int64) Option {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxSampleBytes = n
		}
	}
}

// WithDebug exposes the /debug routes.
func WithDebug(enabled bool) Option {
	return func(c *serverConfig) { c.debug = enabled }
}

// WithLogger sets the handler logger.
func WithLogger(l logger.Logger) Option {
	return func(c *serverConfig) {
		if l != nil {
			c.log = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	cfg := serverConfig{
		maxJournalLimit: defaultMaxJournalLimit,
		maxSampleBytes:  defaultMaxSampleBytes,
		log:             logger.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(deps),
		surfaceHandler: NewSurfaceHandler(deps),
		sessionHandler: NewSessionHandler(deps),
		scoreHandler:   NewScoreHandler(deps, cfg.maxSampleBytes),
		journalHandler: NewJournalHandler(deps, cfg.maxJournalLimit),
		debug:          cfg.debug,
		log:            cfg.log,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	mux.HandleFunc("GET /{$}", s.healthHandler.HandleRoot)
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /surfaces/{handle}", MetricsMiddleware(s.surfaceHandler.HandleRegister, "surfaces"))
	mux.HandleFunc("DELETE /surfaces/{handle}", MetricsMiddleware(s.surfaceHandler.HandleRemove, "surfaces"))
	mux.HandleFunc("POST /surfaces/{handle}/keys", MetricsMiddleware(s.surfaceHandler.HandleKeys, "keys"))

	mux.HandleFunc("POST /sessions", MetricsMiddleware(s.sessionHandler.HandleStart, "sessions"))
	mux.HandleFunc("GET /sessions/current", MetricsMiddleware(s.sessionHandler.HandleCurrent, "sessions"))
	mux.HandleFunc("DELETE /sessions/current", MetricsMiddleware(s.sessionHandler.HandleEnd, "sessions"))

	mux.HandleFunc("POST /score/text", MetricsMiddleware(s.scoreHandler.HandleText, "score_text"))
	mux.HandleFunc("POST /voice/record", MetricsMiddleware(s.scoreHandler.HandleRecord, "voice_record"))
	mux.HandleFunc("PUT /voice/sample", MetricsMiddleware(s.scoreHandler.HandleUpload, "voice_sample"))
	mux.HandleFunc("GET /voice/score", MetricsMiddleware(s.scoreHandler.HandleVoice, "voice_score"))
	mux.HandleFunc("POST /diagnostics", MetricsMiddleware(s.scoreHandler.HandleDiagnostics, "diagnostics"))

	mux.HandleFunc("POST /journal", MetricsMiddleware(s.journalHandler.HandleSubmit, "journal"))
	mux.HandleFunc("GET /journal", MetricsMiddleware(s.journalHandler.HandleRecent, "journal"))

	if s.debug {
		mux.HandleFunc("GET /debug/typing", s.sessionHandler.HandleDebugTyping)
		s.log.Warn(ctx, "debug routes enabled")
	}
}

type statusResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError classifies err and writes the matching response.
func writeDomainError(w http.ResponseWriter, op string, err error) {
	status, code := classify(err)
	writeError(w, status, code, Wrap(op, err))
}

// decodeJSON reads a bounded JSON body into v. An empty body leaves v unchanged.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
