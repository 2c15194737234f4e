package voice

import (
	"time"

	"github.com/okian/hush/pkg/logger"
)

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithDevice sets the capture device.
func WithDevice(d Device) Option {
	return func(a *Analyzer) {
		if d != nil {
			a.device = d
		}
	}
}

// WithDecoder sets the sample decoder.
func WithDecoder(d Decoder) Option {
	return func(a *Analyzer) {
		if d != nil {
			a.decoder = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.log = l
		}
	}
}

// WithMaxDuration caps a single recording.
func WithMaxDuration(d time.Duration) Option {
	return func(a *Analyzer) {
		if d > 0 {
			a.maxDuration = d
		}
	}
}

// WithMinPitches sets the number of valid pitch observations below which
// the score falls back to zero.
func WithMinPitches(n int) Option {
	return func(a *Analyzer) {
		if n >= 2 {
			a.minPitches = n
		}
	}
}

// WithPitchStdNorm sets the pitch stddev in Hz that maps to a zero monotony score.
func WithPitchStdNorm(hz float64) Option {
	return func(a *Analyzer) {
		if hz > 0 {
			a.pitchStdNorm = hz
		}
	}
}

// WithSilenceThreshold sets the mean-square energy below which a window is silent.
func WithSilenceThreshold(e float64) Option {
	return func(a *Analyzer) {
		if e >= 0 {
			a.silence = e
		}
	}
}
