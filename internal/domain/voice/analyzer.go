// Package voice records short audio samples and scores pitch monotony.
//
// Pitch is estimated per window from the zero-crossing rate. Low pitch
// variance across the sample maps to a monotony score near 1.
package voice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/hush/pkg/logger"
)

const (
	windowSize = 1024
	hopSize    = 512

	minVoiceHz = 50.0
	maxVoiceHz = 2000.0

	defaultMinPitches   = 6
	defaultPitchStdNorm = 50.0
	defaultSilence      = 1e-6
	defaultMaxDuration  = 30 * time.Second
)

// Result is the outcome of a single analysis.
type Result struct {
	Score         float64 `json:"score"`
	Pitches       int     `json:"pitches"`
	MeanPitchHz   float64 `json:"mean_pitch_hz"`
	StdDevHz      float64 `json:"stddev_hz"`
	Windows       int     `json:"windows"`
	SilentWindows int     `json:"silent_windows"`
	SampleRate    int     `json:"sample_rate,omitempty"`
	// NoSample is set when nothing has been recorded or loaded yet.
	NoSample bool `json:"no_sample"`
	// Insufficient is set when too few valid pitches were observed.
	Insufficient bool `json:"insufficient"`
}

// Analyzer owns the single retained audio sample.
type Analyzer struct {
	device  Device
	decoder Decoder
	log     logger.Logger

	maxDuration  time.Duration
	minPitches   int
	pitchStdNorm float64
	silence      float64

	recording atomic.Bool

	mu     sync.RWMutex
	sample []byte
}

// NewAnalyzer creates an analyzer with no retained sample. Without
// WithDevice every recording fails with ErrDeviceUnavailable.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		device:       NoDevice{},
		decoder:      WAVDecoder{},
		log:          logger.Nop(),
		maxDuration:  defaultMaxDuration,
		minPitches:   defaultMinPitches,
		pitchStdNorm: defaultPitchStdNorm,
		silence:      defaultSilence,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Record captures d worth of audio from the device and replaces the
// retained sample. Only one recording may be in flight. A cancelled
// context aborts the capture and keeps the previous sample.
func (a *Analyzer) Record(ctx context.Context, d time.Duration) error {
	if d <= 0 || d > a.maxDuration {
		return fmt.Errorf("%w: %s (max %s)", ErrInvalidDuration, d, a.maxDuration)
	}
	if !a.recording.CompareAndSwap(false, true) {
		return ErrRecordingInFlight
	}
	defer a.recording.Store(false)

	stream, err := a.device.Open(ctx)
	if err != nil {
		a.log.Warn(ctx, "audio device unavailable", logger.Error(err))
		if errors.Is(err, ErrDeviceUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}

	var (
		buf     bytes.Buffer
		readErr error
		done    = make(chan struct{})
	)
	go func() {
		defer close(done)
		for {
			chunk, err := stream.Next()
			if err != nil {
				if !errors.Is(err, io.EOF) && !errors.Is(err, ErrStreamClosed) {
					readErr = err
				}
				return
			}
			buf.Write(chunk)
		}
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		_ = stream.Close()
		<-done
		return ctx.Err()
	}
	if err := stream.Close(); err != nil {
		a.log.Warn(ctx, "closing audio stream", logger.Error(err))
	}
	<-done

	if readErr != nil {
		return fmt.Errorf("read audio stream: %w", readErr)
	}
	if buf.Len() == 0 {
		return ErrEmptySample
	}

	a.mu.Lock()
	a.sample = buf.Bytes()
	a.mu.Unlock()
	a.log.Debug(ctx, "voice sample recorded",
		logger.Duration("duration", d), logger.Int("bytes", buf.Len()))
	return nil
}

// Recording reports whether a recording is in flight.
func (a *Analyzer) Recording() bool { return a.recording.Load() }

// Load replaces the retained sample with an externally captured one.
func (a *Analyzer) Load(sample []byte) error {
	if len(sample) == 0 {
		return ErrEmptySample
	}
	cp := bytes.Clone(sample)
	a.mu.Lock()
	a.sample = cp
	a.mu.Unlock()
	return nil
}

// HasSample reports whether a sample is retained.
func (a *Analyzer) HasSample() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.sample) > 0
}

// Clear drops the retained sample.
func (a *Analyzer) Clear() {
	a.mu.Lock()
	a.sample = nil
	a.mu.Unlock()
}

// Analyze scores the retained sample. It returns a zero score when no
// sample exists or too few pitches were observed. Decode failures are
// returned as errors wrapping ErrDecode or ErrEmptySample.
func (a *Analyzer) Analyze(ctx context.Context) (Result, error) {
	a.mu.RLock()
	sample := a.sample
	a.mu.RUnlock()
	if len(sample) == 0 {
		return Result{NoSample: true}, nil
	}

	wf, err := a.decoder.Decode(sample)
	if err != nil {
		return Result{}, err
	}
	res := a.score(wf)
	a.log.Debug(ctx, "voice analyzed",
		logger.Float64("score", res.Score),
		logger.Int("pitches", res.Pitches),
		logger.Float64("stddev_hz", res.StdDevHz))
	return res, nil
}

func (a *Analyzer) score(wf Waveform) Result {
	res := Result{SampleRate: wf.SampleRate}
	if wf.SampleRate <= 0 {
		res.Insufficient = true
		return res
	}

	x := wf.Samples
	pitches := make([]float64, 0, len(x)/hopSize+1)
	for i := 0; i+windowSize < len(x); i += hopSize {
		res.Windows++
		w := x[i : i+windowSize]

		var energy float64
		for _, v := range w {
			energy += v * v
		}
		if energy/windowSize < a.silence {
			res.SilentWindows++
			continue
		}

		zc := 0
		for j := 1; j < len(w); j++ {
			if (w[j-1] >= 0) != (w[j] >= 0) {
				zc++
			}
		}
		f := float64(zc) * float64(wf.SampleRate) / (2 * windowSize)
		if f > minVoiceHz && f < maxVoiceHz {
			pitches = append(pitches, f)
		}
	}

	res.Pitches = len(pitches)
	if len(pitches) < a.minPitches {
		res.Insufficient = true
		return res
	}

	mean, std := meanStdDev(pitches)
	res.MeanPitchHz = mean
	res.StdDevHz = std
	res.Score = math.Max(0, math.Min(1, 1-math.Min(std/a.pitchStdNorm, 1)))
	return res
}

func meanStdDev(xs []float64) (mean, std float64) {
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
