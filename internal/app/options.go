package service

import (
	"time"

	repository "github.com/okian/hush/internal/adapters/repository"
	"github.com/okian/hush/internal/domain/attribution"
	"github.com/okian/hush/internal/domain/biomarker"
	"github.com/okian/hush/internal/domain/voice"
	"github.com/okian/hush/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of submission workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the submission queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the journal idempotency cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore sets the journal store. The service closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithSubmitter sets the backend submitter. Without one, submission is disabled.
func WithSubmitter(sub attribution.Submitter) Option {
	return func(s *Service) {
		s.submitter = sub
	}
}

// WithSubmitTimeout bounds a single backend submission.
func WithSubmitTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.submitTimeout = d
		}
	}
}

// WithVoiceAnalyzer sets the voice analyzer holding the retained sample.
func WithVoiceAnalyzer(a *voice.Analyzer) Option {
	return func(s *Service) {
		if a != nil {
			s.voice = a
		}
	}
}

// WithVoiceOnSubmit controls whether a retained voice sample is scored
// when a journal entry is submitted.
func WithVoiceOnSubmit(enabled bool) Option {
	return func(s *Service) {
		s.voiceOnSubmit = enabled
	}
}

// WithDefaultRecordDuration sets the recording length used when callers pass 0.
func WithDefaultRecordDuration(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.recordDefault = d
		}
	}
}

// WithMonitorOptions sets the options applied to every session monitor.
func WithMonitorOptions(opts ...biomarker.Option) Option {
	return func(s *Service) {
		s.monitorOpts = append(s.monitorOpts, opts...)
	}
}

// WithClock overrides the time source for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
