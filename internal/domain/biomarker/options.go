package biomarker

import (
	"github.com/okian/hush/pkg/logger"
)

// Option configures a Monitor.
type Option func(*Monitor)

// WithLogger sets the logger used for resolution failures and analyses.
func WithLogger(l logger.Logger) Option {
	return func(m *Monitor) {
		if l != nil {
			m.log = l
		}
	}
}

// WithMinKeystrokes sets the insufficient-signal floor.
func WithMinKeystrokes(n int) Option {
	return func(m *Monitor) {
		if n >= 2 {
			m.minKeystrokes = n
		}
	}
}

// WithAgitationNorm sets the interval stddev in milliseconds that saturates agitation.
func WithAgitationNorm(ms float64) Option {
	return func(m *Monitor) {
		if ms > 0 {
			m.agitationNormMS = ms
		}
	}
}

// WithHesitationNorm sets the backspace ratio that saturates hesitation.
func WithHesitationNorm(ratio float64) Option {
	return func(m *Monitor) {
		if ratio > 0 {
			m.hesitationNorm = ratio
		}
	}
}

// WithAgitationWeight sets the agitation weight; hesitation gets 1-w.
func WithAgitationWeight(w float64) Option {
	return func(m *Monitor) {
		if w >= 0 && w <= 1 {
			m.agitationWeight = w
		}
	}
}
