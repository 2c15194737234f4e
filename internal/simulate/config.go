// Package simulate drives a running agent with synthetic journaling sessions.
//
// Each generated entry carries affect text and a keystroke trace whose
// timing and correction rate follow a mood profile, so the attributions the
// agent returns can be checked against the profile that produced them.
package simulate

import (
	"time"

	"github.com/okian/hush/internal/domain/attribution"
	"github.com/okian/hush/internal/domain/types"
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL    string        // Base URL of the agent
	Entries    int           // Number of journal entries to write
	Handle     string        // Surface handle to type into
	Seed       uint64        // Seed for the synthetic generator
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Optional JSON dump of generated entries
	Verbose    bool          // Log every entry
}

// Profile is the mood a synthetic entry is written in.
type Profile string

// Mood profiles.
const (
	ProfileCalm     Profile = "calm"
	ProfileAgitated Profile = "agitated"
)

// Key is a keydown event in the agent wire format.
type Key struct {
	Key string `json:"key"`
	TS  int64  `json:"ts"`
}

// Entry is one synthetic journal entry and the typing that produced it.
type Entry struct {
	ID      string  `json:"id"`
	Profile Profile `json:"profile"`
	Prompt  string  `json:"prompt"`
	Content string  `json:"content"`
	Keys    []Key   `json:"keys"`
}

// ScoreSummary accumulates attributions for one profile.
type ScoreSummary struct {
	Count  int
	Text   float64
	Typing float64
	Voice  float64
}

func (s *ScoreSummary) add(p attribution.Payload) {
	s.Count++
	s.Text += p.Text
	s.Typing += p.Typing
	s.Voice += p.Voice
}

// Mean returns the average attribution.
func (s *ScoreSummary) Mean() attribution.Payload {
	if s == nil || s.Count == 0 {
		return attribution.Payload{}
	}
	n := float64(s.Count)
	return attribution.Payload{Text: s.Text / n, Typing: s.Typing / n, Voice: s.Voice / n}
}

// Stats holds run statistics.
type Stats struct {
	EntriesGenerated int
	EntriesSaved     int
	Duplicates       int
	Failed           int
	KeysDelivered    int
	Submissions      map[types.SubmissionStatus]int
	Profiles         map[Profile]*ScoreSummary
	Agent            types.Stats
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}

func newStats() *Stats {
	return &Stats{
		Submissions: make(map[types.SubmissionStatus]int),
		Profiles: map[Profile]*ScoreSummary{
			ProfileCalm:     {},
			ProfileAgitated: {},
		},
		StartTime: time.Now(),
	}
}
