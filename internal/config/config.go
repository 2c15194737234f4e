// Package config defines the agent configuration and its loader.
//
// Conventions:
// - New() returns a Config populated with defaults.
// - Load(ctx) layers defaults, an optional YAML file and HUSH_* env vars.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9180".
	Addr string `koanf:"addr"`

	// Debug exposes /debug/typing for interactive inspection.
	Debug bool `koanf:"debug"`

	// BackendURL is the aggregation backend base URL. Empty disables submission.
	BackendURL string `koanf:"backend_url"`
	// BackendToken is sent as a bearer token when set.
	BackendToken string `koanf:"backend_token"`
	// BackendTimeoutMS bounds a single submission round trip.
	BackendTimeoutMS int `koanf:"backend_timeout_ms"`

	// QueueSize bounds the in-memory submission queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of submission workers.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize sets the size of the journal idempotency cache.
	DedupeSize int `koanf:"dedupe_size"`

	// StorePath is the SQLite journal file. Empty keeps entries in memory.
	StorePath string `koanf:"store_path"`
	// MaxJournalLimit caps GET /journal?limit.
	MaxJournalLimit int `koanf:"max_journal_limit"`

	// Typing biomarker calibration.
	TypingMinKeystrokes   int     `koanf:"typing_min_keystrokes"`
	TypingAgitationNormMS float64 `koanf:"typing_agitation_norm_ms"`
	TypingHesitationNorm  float64 `koanf:"typing_hesitation_norm"`
	TypingAgitationWeight float64 `koanf:"typing_agitation_weight"`

	// Voice capture and calibration.
	VoiceDevicePath       string  `koanf:"voice_device_path"`
	VoiceRecordMS         int     `koanf:"voice_record_ms"`
	VoiceMaxRecordMS      int     `koanf:"voice_max_record_ms"`
	VoiceMinPitches       int     `koanf:"voice_min_pitches"`
	VoicePitchStdNormHz   float64 `koanf:"voice_pitch_std_norm_hz"`
	VoiceMaxSampleBytes   int64   `koanf:"voice_max_sample_bytes"`
	VoiceScoreOnSubmit    bool    `koanf:"voice_score_on_submit"`
	VoiceSilenceThreshold float64 `koanf:"voice_silence_threshold"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":9180",
		BackendURL:            "http://127.0.0.1:8000",
		BackendTimeoutMS:      5000,
		QueueSize:             1024,
		WorkerCount:           runtime.NumCPU(),
		DedupeSize:            10_000,
		MaxJournalLimit:       100,
		TypingMinKeystrokes:   10,
		TypingAgitationNormMS: 150,
		TypingHesitationNorm:  0.15,
		TypingAgitationWeight: 0.7,
		VoiceRecordMS:         3000,
		VoiceMaxRecordMS:      30_000,
		VoiceMinPitches:       6,
		VoicePitchStdNormHz:   50,
		VoiceMaxSampleBytes:   16 << 20,
		VoiceScoreOnSubmit:    true,
		VoiceSilenceThreshold: 1e-6,
	}
}

// Validate checks invariants the rest of the agent relies on.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.DedupeSize <= 0:
		return fmt.Errorf("%w: dedupe_size must be positive", ErrInvalidConfig)
	case c.MaxJournalLimit <= 0:
		return fmt.Errorf("%w: max_journal_limit must be positive", ErrInvalidConfig)
	case c.BackendTimeoutMS <= 0:
		return fmt.Errorf("%w: backend_timeout_ms must be positive", ErrInvalidConfig)
	case c.VoiceMaxSampleBytes <= 0:
		return fmt.Errorf("%w: voice_max_sample_bytes must be positive", ErrInvalidConfig)
	case c.TypingMinKeystrokes < 2:
		return fmt.Errorf("%w: typing_min_keystrokes must be at least 2", ErrInvalidConfig)
	case c.TypingAgitationNormMS <= 0 || c.TypingHesitationNorm <= 0:
		return fmt.Errorf("%w: typing normalizers must be positive", ErrInvalidConfig)
	case c.TypingAgitationWeight < 0 || c.TypingAgitationWeight > 1:
		return fmt.Errorf("%w: typing_agitation_weight must be within [0,1]", ErrInvalidConfig)
	case c.VoiceMinPitches < 2 || c.VoicePitchStdNormHz <= 0:
		return fmt.Errorf("%w: voice calibration out of range", ErrInvalidConfig)
	case c.VoiceRecordMS <= 0 || c.VoiceMaxRecordMS < c.VoiceRecordMS:
		return fmt.Errorf("%w: voice_record_ms must be positive and not exceed voice_max_record_ms", ErrInvalidConfig)
	}
	return nil
}
