// Package biomarker implements the typing biomarker monitor.
//
// A Monitor observes keydown events on one input surface at a time and
// reduces their timing into an agitation/hesitation score in [0,1].
// One Monitor is constructed per composition session.
package biomarker

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/okian/hush/pkg/logger"
)

const (
	defaultMinKeystrokes   = 10
	defaultAgitationNormMS = 150.0
	defaultHesitationNorm  = 0.15
	defaultAgitationWeight = 0.7
)

// Result is the outcome of a single analysis.
type Result struct {
	Score          float64 `json:"score"`
	Agitation      float64 `json:"agitation"`
	Hesitation     float64 `json:"hesitation"`
	Keystrokes     int     `json:"keystrokes"`
	Backspaces     int     `json:"backspaces"`
	MeanIntervalMS float64 `json:"mean_interval_ms"`
	StdDevMS       float64 `json:"stddev_ms"`
	// Insufficient is set when fewer keystrokes than the floor were
	// recorded. The log is kept in that case.
	Insufficient bool `json:"insufficient"`
}

// Snapshot is a read-only view of the monitor state.
type Snapshot struct {
	Handle     string `json:"handle,omitempty"`
	Listening  bool   `json:"listening"`
	Keystrokes int    `json:"keystrokes"`
	Backspaces int    `json:"backspaces"`
}

// Monitor observes keystrokes on a single surface.
type Monitor struct {
	resolver SurfaceResolver
	log      logger.Logger

	minKeystrokes   int
	agitationNormMS float64
	hesitationNorm  float64
	agitationWeight float64

	mu         sync.Mutex
	timestamps []time.Time
	backspaces int
	handle     string
	detach     func()
	// gen invalidates observers from earlier sessions that may still
	// be delivering events after detach.
	gen uint64
}

// NewMonitor creates an idle monitor.
func NewMonitor(resolver SurfaceResolver, opts ...Option) *Monitor {
	m := &Monitor{
		resolver:        resolver,
		log:             logger.Nop(),
		minKeystrokes:   defaultMinKeystrokes,
		agitationNormMS: defaultAgitationNormMS,
		hesitationNorm:  defaultHesitationNorm,
		agitationWeight: defaultAgitationWeight,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// StartListening stops any active session and attaches to the surface
// named by handle. If the surface cannot be resolved the failure is logged,
// the monitor stays idle and the error is returned.
func (m *Monitor) StartListening(ctx context.Context, handle string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked()

	if m.resolver == nil {
		m.log.Warn(ctx, "no surface resolver configured", logger.String("handle", handle))
		return fmt.Errorf("resolve %q: %w", handle, ErrSurfaceNotFound)
	}
	surface, err := m.resolver.Resolve(ctx, handle)
	if err != nil {
		m.log.Warn(ctx, "input surface not resolved, not listening",
			logger.String("handle", handle), logger.Error(err))
		return fmt.Errorf("resolve %q: %w", handle, err)
	}

	gen := m.gen
	m.detach = surface.Attach(func(ev KeyEvent) { m.observe(gen, ev) })
	m.handle = handle
	m.log.Debug(ctx, "listening", logger.String("handle", handle))
	return nil
}

// StopListening detaches the observer and clears the log. No-op when idle.
func (m *Monitor) StopListening(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.detach == nil {
		return
	}
	handle := m.handle
	m.stopLocked()
	m.log.Debug(ctx, "stopped listening", logger.String("handle", handle))
}

// Listening reports whether an observer is attached.
func (m *Monitor) Listening() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.detach != nil
}

// Snapshot returns the current state for inspection.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Handle:     m.handle,
		Listening:  m.detach != nil,
		Keystrokes: len(m.timestamps),
		Backspaces: m.backspaces,
	}
}

// Analyze scores the recorded keystrokes and clears the log. With fewer
// than the minimum keystrokes it returns a zero score and keeps the log.
func (m *Monitor) Analyze(ctx context.Context) Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.timestamps)
	if n < m.minKeystrokes {
		m.log.Debug(ctx, "insufficient typing signal",
			logger.Int("keystrokes", n), logger.Int("min", m.minKeystrokes))
		return Result{Keystrokes: n, Backspaces: m.backspaces, Insufficient: true}
	}

	deltas := make([]float64, n-1)
	for i := 1; i < n; i++ {
		deltas[i-1] = float64(m.timestamps[i].Sub(m.timestamps[i-1])) / float64(time.Millisecond)
	}
	mean, std := meanStdDev(deltas)
	ratio := float64(m.backspaces) / float64(n)

	res := Result{
		Agitation:      math.Min(std/m.agitationNormMS, 1),
		Hesitation:     math.Min(ratio/m.hesitationNorm, 1),
		Keystrokes:     n,
		Backspaces:     m.backspaces,
		MeanIntervalMS: mean,
		StdDevMS:       std,
	}
	score := m.agitationWeight*res.Agitation + (1-m.agitationWeight)*res.Hesitation
	res.Score = math.Max(0, math.Min(1, score))

	m.resetLocked()
	m.log.Debug(ctx, "typing analyzed",
		logger.Float64("score", res.Score),
		logger.Float64("stddev_ms", std),
		logger.Float64("backspace_ratio", ratio))
	return res
}

func (m *Monitor) observe(gen uint64, ev KeyEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen || m.detach == nil {
		return
	}
	m.timestamps = append(m.timestamps, ev.At)
	if ev.Key == BackspaceKey {
		m.backspaces++
	}
}

func (m *Monitor) stopLocked() {
	if m.detach != nil {
		m.detach()
		m.detach = nil
	}
	m.handle = ""
	m.gen++
	m.resetLocked()
}

func (m *Monitor) resetLocked() {
	m.timestamps = m.timestamps[:0]
	m.backspaces = 0
}

// meanStdDev returns the mean and population standard deviation of xs.
func meanStdDev(xs []float64) (mean, std float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean = sum / float64(len(xs))
	var sq float64
	for _, x := range xs {
		d := x - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(xs)))
}
