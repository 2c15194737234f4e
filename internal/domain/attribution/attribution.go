// Package attribution bundles the per-modality scores into the feature
// attribution payload and defines the submission contract.
package attribution

import (
	"context"
	"math"
	"time"

	"github.com/okian/hush/internal/domain/biomarker"
	"github.com/okian/hush/internal/domain/sentiment"
	"github.com/okian/hush/internal/domain/voice"
	"github.com/okian/hush/pkg/logger"
)

// Payload is the triple of normalized scores, each in [0,1].
type Payload struct {
	Text   float64 `json:"text"`
	Typing float64 `json:"typing"`
	Voice  float64 `json:"voice"`
}

// NewPayload builds a payload with every field clamped to [0,1].
// NaN becomes 0.
func NewPayload(text, typing, voice float64) Payload {
	return Payload{Text: unit(text), Typing: unit(typing), Voice: unit(voice)}
}

// Envelope is the wire shape accepted by the aggregation backend.
type Envelope struct {
	FeatureAttributions Payload `json:"feature_attributions"`
}

// Ack acknowledges an accepted submission.
type Ack struct {
	Status     string    `json:"status"`
	Message    string    `json:"message,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

// Submitter hands a payload to the external aggregation backend.
type Submitter interface {
	Submit(ctx context.Context, p Payload) (Ack, error)
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, p Payload) (Ack, error)

// Submit implements Submitter.
func (f SubmitterFunc) Submit(ctx context.Context, p Payload) (Ack, error) { return f(ctx, p) }

// Discard accepts every payload without sending it anywhere.
type Discard struct{}

// Submit implements Submitter.
func (Discard) Submit(context.Context, Payload) (Ack, error) {
	return Ack{Status: "discarded", ReceivedAt: time.Now()}, nil
}

// TypingSource is the typing analyzer of the current composition session.
type TypingSource interface {
	Analyze(ctx context.Context) biomarker.Result
}

// VoiceSource is the voice analyzer holding the retained sample.
type VoiceSource interface {
	HasSample() bool
	Analyze(ctx context.Context) (voice.Result, error)
}

// Breakdown is the payload together with the per-analyzer detail.
type Breakdown struct {
	Payload  Payload          `json:"feature_attributions"`
	Text     sentiment.Result `json:"text"`
	Typing   biomarker.Result `json:"typing"`
	Voice    voice.Result     `json:"voice"`
	VoiceErr string           `json:"voice_error,omitempty"`
}

// Aggregator collects the three scores for a journal submission.
type Aggregator struct {
	voice      VoiceSource
	scoreVoice bool
	log        logger.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithVoice sets the voice source.
func WithVoice(v VoiceSource) Option {
	return func(a *Aggregator) { a.voice = v }
}

// WithVoiceScoring controls whether a retained voice sample is scored.
// When disabled the voice field is always 0.
func WithVoiceScoring(enabled bool) Option {
	return func(a *Aggregator) { a.scoreVoice = enabled }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.log = l
		}
	}
}

// NewAggregator creates an aggregator. Voice scoring is on by default but
// has no effect until a voice source is set.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{scoreVoice: true, log: logger.Nop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Collect scores text, consumes the typing sample and scores the retained
// voice sample if one exists. typing may be nil when no session is active.
// Voice failures are logged and degrade to 0.
func (a *Aggregator) Collect(ctx context.Context, text string, typing TypingSource) Breakdown {
	var b Breakdown
	b.Text = sentiment.Analyze(text)
	if typing != nil {
		b.Typing = typing.Analyze(ctx)
	} else {
		b.Typing = biomarker.Result{Insufficient: true}
	}
	if a.scoreVoice && a.voice != nil && a.voice.HasSample() {
		res, err := a.voice.Analyze(ctx)
		if err != nil {
			a.log.Warn(ctx, "voice scoring skipped", logger.Error(err))
			b.VoiceErr = err.Error()
		} else {
			b.Voice = res
		}
	} else {
		b.Voice = voice.Result{NoSample: true}
	}
	b.Payload = NewPayload(b.Text.Score, b.Typing.Score, b.Voice.Score)
	return b
}

func unit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
