// Package service provides the scoring agent that implements the
// dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	submissionqueue "github.com/okian/hush/internal/adapters/mq/queue"
	workerpool "github.com/okian/hush/internal/adapters/mq/worker"
	repository "github.com/okian/hush/internal/adapters/repository"
	"github.com/okian/hush/internal/domain/attribution"
	"github.com/okian/hush/internal/domain/biomarker"
	"github.com/okian/hush/internal/domain/dedupe"
	"github.com/okian/hush/internal/domain/model"
	"github.com/okian/hush/internal/domain/sentiment"
	"github.com/okian/hush/internal/domain/types"
	"github.com/okian/hush/internal/domain/voice"
	"github.com/okian/hush/pkg/logger"
	"github.com/okian/hush/pkg/metrics"
)

const (
	defaultQueueSize     = 1024
	defaultDedupeSize    = 10_000
	defaultRecord        = 3 * time.Second
	defaultSubmitTimeout = 5 * time.Second
)

// Session describes the active composition session.
type Session struct {
	ID        string    `json:"id"`
	Handle    string    `json:"handle"`
	StartedAt time.Time `json:"started_at"`
	Listening bool      `json:"listening"`
}

// EntryRequest is a journal submission.
type EntryRequest struct {
	// ID is an optional client idempotency key.
	ID      string
	Prompt  string
	Content string
}

// EntryResult is the outcome of a journal submission.
type EntryResult struct {
	Entry      model.Entry            `json:"entry"`
	Duplicate  bool                   `json:"duplicate"`
	Breakdown  *attribution.Breakdown `json:"breakdown,omitempty"`
	Submission types.SubmissionStatus `json:"submission,omitempty"`
}

// DiagnosticsRequest asks for all three scores without saving or submitting.
type DiagnosticsRequest struct {
	Text string
	// Record, when positive, captures a fresh voice sample first.
	Record time.Duration
}

// Service wires the analyzers, the journal store and the submission pipeline.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	deduper    dedupe.Deduper
	queue      *submissionqueue.InMemoryQueue
	pool       *workerpool.Pool
	submitter  attribution.Submitter
	registry   *biomarker.Registry
	voice      *voice.Analyzer
	aggregator *attribution.Aggregator

	// Composition session; one monitor per session
	sessMu  sync.Mutex
	monitor *biomarker.Monitor
	session Session

	// Configuration
	workerCount   int
	queueSize     int
	dedupeSize    int
	submitTimeout time.Duration
	recordDefault time.Duration
	voiceOnSubmit bool
	monitorOpts   []biomarker.Option
	now           func() time.Time

	dropped atomic.Int64
	started bool
	logger  logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:   runtime.NumCPU(),
		queueSize:     defaultQueueSize,
		dedupeSize:    defaultDedupeSize,
		submitTimeout: defaultSubmitTimeout,
		recordDefault: defaultRecord,
		voiceOnSubmit: true,
		registry:      biomarker.NewRegistry(),
		now:           time.Now,
		logger:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.voice == nil {
		s.voice = voice.NewAnalyzer(voice.WithLogger(s.logger.Named("voice")))
	}
	s.aggregator = attribution.NewAggregator(
		attribution.WithVoice(s.voice),
		attribution.WithVoiceScoring(s.voiceOnSubmit),
		attribution.WithLogger(s.logger.Named("attribution")),
	)
	return s
}

// Start initializes the store, the idempotency cache and the submission workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting scoring agent...")
	if s.store == nil {
		s.store = repository.NewMemoryStore()
		s.logger.Info(ctx, "using in-memory journal store")
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))

	if s.submitter != nil {
		s.queue = submissionqueue.NewInMemoryQueue(submissionqueue.WithCapacity(s.queueSize))
		s.pool = workerpool.NewPool(s.workerCount, s.queue, s.submitter,
			workerpool.WithLogger(s.logger),
			workerpool.WithSubmitTimeout(s.submitTimeout),
		)
		// workers outlive the start request; Stop drains them
		s.pool.Start(context.WithoutCancel(ctx))
	} else {
		s.logger.Warn(ctx, "no backend configured, attribution submission disabled")
	}

	s.started = true
	s.logger.Info(ctx, "scoring agent started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Bool("submission", s.submitter != nil),
	)
	return nil
}

// Stop ends the composition session, drains pending submissions and
// closes the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping scoring agent...")
	_ = s.EndSession(ctx)

	var errs []error
	if s.pool != nil {
		if err := s.pool.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
		s.pool, s.queue = nil, nil
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
		s.store = nil
	}
	s.started = false
	s.logger.Info(ctx, "scoring agent stopped")
	return errors.Join(errs...)
}

// RegisterSurface makes an input surface available for sessions.
func (s *Service) RegisterSurface(_ context.Context, handle string) error {
	_, err := s.registry.Register(handle)
	return err
}

// RemoveSurface drops an input surface. A session attached to it stops
// receiving keystrokes.
func (s *Service) RemoveSurface(_ context.Context, handle string) {
	s.registry.Remove(handle)
}

// DeliverKeys forwards keydown events from a surface to its observers.
func (s *Service) DeliverKeys(_ context.Context, handle string, events []biomarker.KeyEvent) (int, error) {
	surface, ok := s.registry.Lookup(handle)
	if !ok {
		return 0, fmt.Errorf("%s: %w", handle, biomarker.ErrSurfaceNotFound)
	}
	if surface.Emit(events...) > 0 {
		for range events {
			metrics.RecordKeystroke()
		}
	}
	return len(events), nil
}

// StartSession begins a composition session on handle with a fresh monitor,
// tearing down any previous session. If the surface cannot be resolved the
// session still exists but records nothing.
func (s *Service) StartSession(ctx context.Context, handle string) (Session, error) {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()

	if s.monitor != nil {
		s.monitor.StopListening(ctx)
	}
	opts := append([]biomarker.Option{biomarker.WithLogger(s.logger.Named("typing"))}, s.monitorOpts...)
	s.monitor = biomarker.NewMonitor(s.registry, opts...)
	s.session = Session{ID: uuid.NewString(), Handle: handle, StartedAt: s.now()}
	metrics.UpdateActiveSessions(1)

	if err := s.monitor.StartListening(ctx, handle); err != nil {
		metrics.RecordSurfaceResolveError()
		return s.session, err
	}
	s.session.Listening = true
	return s.session, nil
}

// EndSession stops the active session and discards its keystrokes.
func (s *Service) EndSession(ctx context.Context) error {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()
	if s.monitor == nil {
		return ErrNoSession
	}
	s.monitor.StopListening(ctx)
	s.monitor = nil
	s.session = Session{}
	metrics.UpdateActiveSessions(0)
	return nil
}

// CurrentSession returns the active session, if any.
func (s *Service) CurrentSession() (Session, bool) {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()
	if s.monitor == nil {
		return Session{}, false
	}
	sess := s.session
	sess.Listening = s.monitor.Listening()
	return sess, true
}

// TypingSnapshot exposes the monitor state for debugging.
func (s *Service) TypingSnapshot() (biomarker.Snapshot, error) {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()
	if s.monitor == nil {
		return biomarker.Snapshot{}, ErrNoSession
	}
	return s.monitor.Snapshot(), nil
}

// ScoreText scores free text.
func (s *Service) ScoreText(_ context.Context, text string) sentiment.Result {
	start := time.Now()
	res := sentiment.Analyze(text)
	metrics.RecordAnalysis(metrics.ModalityText, res.Score, msSince(start))
	return res
}

// RecordVoice captures a voice sample from the configured device.
// A zero duration uses the default.
func (s *Service) RecordVoice(ctx context.Context, d time.Duration) error {
	if d == 0 {
		d = s.recordDefault
	}
	err := s.voice.Record(ctx, d)
	switch {
	case err == nil:
		metrics.RecordVoiceRecording()
	case errors.Is(err, voice.ErrDeviceUnavailable):
		metrics.RecordDeviceUnavailable()
	}
	return err
}

// LoadVoice replaces the retained sample with an uploaded one.
func (s *Service) LoadVoice(_ context.Context, sample []byte) error {
	return s.voice.Load(sample)
}

// ScoreVoice analyzes the retained voice sample.
func (s *Service) ScoreVoice(ctx context.Context) (voice.Result, error) {
	start := time.Now()
	res, err := s.voice.Analyze(ctx)
	if err != nil {
		metrics.RecordDecodeError()
		return res, err
	}
	s.recordVoice(res, start)
	return res, nil
}

// Diagnostics reports all three scores without saving or submitting. Like
// a submission it consumes the session's typing sample.
func (s *Service) Diagnostics(ctx context.Context, req DiagnosticsRequest) (attribution.Breakdown, error) {
	var recordErr error
	if req.Record > 0 {
		if recordErr = s.RecordVoice(ctx, req.Record); recordErr != nil {
			if errors.Is(recordErr, voice.ErrRecordingInFlight) || errors.Is(recordErr, voice.ErrInvalidDuration) {
				return attribution.Breakdown{}, recordErr
			}
			s.logger.Warn(ctx, "voice diagnostics skipped", logger.Error(recordErr))
		}
	}

	// diagnostics always score a retained sample
	agg := attribution.NewAggregator(attribution.WithVoice(s.voice), attribution.WithLogger(s.logger))
	b := s.collect(ctx, agg, req.Text)
	if recordErr != nil {
		b.VoiceErr = recordErr.Error()
	}
	return b, nil
}

// SubmitEntry saves a journal entry, computes its attribution and hands the
// payload to the submission queue. Scoring and submission never fail the save.
func (s *Service) SubmitEntry(ctx context.Context, req EntryRequest) (EntryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return EntryResult{}, ErrNotStarted
	}
	if strings.TrimSpace(req.Content) == "" {
		return EntryResult{}, ErrEmptyContent
	}

	// The deduper is a fast path; the store's unique id decides.
	id := req.ID
	if id != "" {
		if s.deduper.SeenAndRecord(ctx, id) {
			return s.duplicate(ctx, id)
		}
	} else {
		id = uuid.NewString()
	}

	entry := model.Entry{ID: id, Prompt: req.Prompt, Content: req.Content, CreatedAt: s.now().UTC()}
	if err := s.store.Save(ctx, entry); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return s.duplicate(ctx, id)
		}
		if req.ID != "" {
			s.deduper.Unrecord(ctx, req.ID)
		}
		return EntryResult{}, fmt.Errorf("save entry: %w", err)
	}
	metrics.RecordJournalSave()

	b := s.collect(ctx, s.aggregator, req.Content)
	payload := b.Payload
	if err := s.store.SetAttribution(ctx, id, payload); err != nil {
		s.logger.Warn(ctx, "attribution not stored", logger.String("entry_id", id), logger.Error(err))
	} else {
		entry.Attribution = &payload
	}

	return EntryResult{Entry: entry, Breakdown: &b, Submission: s.enqueue(ctx, id, payload)}, nil
}

// duplicate returns the saved entry for a repeated id. An id that is
// recorded but not yet saved belongs to a submission still in flight.
func (s *Service) duplicate(ctx context.Context, id string) (EntryResult, error) {
	metrics.RecordJournalDuplicate()
	existing, err := s.store.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return EntryResult{}, fmt.Errorf("%s: %w", id, ErrSubmitInProgress)
	}
	if err != nil {
		return EntryResult{}, fmt.Errorf("load duplicate entry: %w", err)
	}
	return EntryResult{Entry: existing, Duplicate: true}, nil
}

// RecentEntries returns up to limit entries, newest first.
func (s *Service) RecentEntries(ctx context.Context, limit int) ([]model.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store.Recent(ctx, limit)
}

// Stats returns a point-in-time view of the agent.
func (s *Service) Stats(ctx context.Context) types.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := types.Stats{
		Surfaces:    s.registry.Len(),
		VoiceSample: s.voice.HasSample(),
		Recording:   s.voice.Recording(),
		Dropped:     s.dropped.Load(),
	}
	if sess, ok := s.CurrentSession(); ok {
		st.SessionActive = true
		st.SessionHandle = sess.Handle
	}
	if s.store != nil {
		st.JournalEntries = s.store.Count(ctx)
	}
	if s.queue != nil {
		st.QueueDepth = s.queue.Len(ctx)
		st.QueueCapacity = s.queue.Cap()
	}
	if s.pool != nil {
		st.Submitted = s.pool.Counters().Submitted()
		st.SubmitFailed = s.pool.Counters().Failed()
	}
	return st
}

// collect runs the aggregator against the current session monitor.
func (s *Service) collect(ctx context.Context, agg *attribution.Aggregator, text string) attribution.Breakdown {
	start := time.Now()
	s.sessMu.Lock()
	var typing attribution.TypingSource
	if s.monitor != nil {
		typing = s.monitor
	}
	b := agg.Collect(ctx, text, typing)
	s.sessMu.Unlock()

	latency := msSince(start)
	metrics.RecordAnalysis(metrics.ModalityText, b.Text.Score, latency)
	if b.Typing.Insufficient {
		metrics.RecordInsufficientSignal(metrics.ModalityTyping)
	} else {
		metrics.RecordAnalysis(metrics.ModalityTyping, b.Typing.Score, latency)
	}
	if b.VoiceErr != "" {
		metrics.RecordDecodeError()
	} else {
		s.recordVoice(b.Voice, start)
	}
	return b
}

func (s *Service) recordVoice(res voice.Result, start time.Time) {
	switch {
	case res.NoSample:
	case res.Insufficient:
		metrics.RecordInsufficientSignal(metrics.ModalityVoice)
	default:
		metrics.RecordAnalysis(metrics.ModalityVoice, res.Score, msSince(start))
	}
}

func (s *Service) enqueue(ctx context.Context, id string, p attribution.Payload) types.SubmissionStatus {
	if s.queue == nil {
		return types.SubmissionDisabled
	}
	sub := model.Submission{EntryID: id, Payload: p, EnqueuedAt: s.now()}
	if !s.queue.Enqueue(ctx, sub) {
		s.dropped.Add(1)
		metrics.RecordSubmission(metrics.SubmissionDropped)
		s.logger.Warn(ctx, "submission queue full, payload dropped", logger.String("entry_id", id))
		return types.SubmissionDropped
	}
	return types.SubmissionQueued
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
