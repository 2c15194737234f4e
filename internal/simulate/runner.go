package simulate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"

	"github.com/okian/hush/internal/domain/types"
	"github.com/okian/hush/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o600
)

// Defaults applied to a zero Config.
const (
	DefaultBaseURL = "http://localhost:9180"
	DefaultHandle  = "simulated-journal"
	DefaultEntries = 10
	DefaultTimeout = 10 * time.Second
)

// ErrVerification is returned when the agent's results do not match what
// was sent.
var ErrVerification = errors.New("simulation verification failed")

// Run executes a complete simulation against the agent.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	cfg := withDefaults(config)
	stats := newStats()
	log := logger.Named("simulate")

	log.Info(ctx, "starting journaling simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("entries", cfg.Entries),
		logger.String("handle", cfg.Handle),
		logger.Any("seed", cfg.Seed))

	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	// Step 1: Check agent health
	if err := client.health(ctx); err != nil {
		return stats, fmt.Errorf("agent health check failed: %w", err)
	}

	// Step 2: Generate entries
	entries := NewGenerator(cfg.Seed, time.Now()).Generate(cfg.Entries)
	stats.EntriesGenerated = len(entries)

	// Step 3: Open a composition session
	if err := client.registerSurface(ctx, cfg.Handle); err != nil {
		return stats, fmt.Errorf("register surface: %w", err)
	}
	if err := client.startSession(ctx, cfg.Handle); err != nil {
		return stats, fmt.Errorf("start session: %w", err)
	}

	// Step 4: Type and submit every entry
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		writeEntry(ctx, log, client, cfg, e, stats)
	}

	// Step 5: Resubmit the first entry to exercise idempotency
	if len(entries) > 0 {
		res, status, err := client.submit(ctx, entries[0])
		if err == nil && status == http.StatusOK && res.Duplicate {
			stats.Duplicates++
		} else {
			log.Warn(ctx, "resubmitted entry was not reported as duplicate", logger.Int("status", status))
		}
	}

	// Step 6: Close the session and read back agent state
	if err := client.endSession(ctx); err != nil {
		log.Warn(ctx, "failed to end session", logger.Error(err))
	}
	agent, err := client.stats(ctx)
	if err != nil {
		return stats, fmt.Errorf("stats retrieval failed: %w", err)
	}
	stats.Agent = agent

	if cfg.OutputFile != "" {
		if err := saveEntriesToFile(ctx, cfg.OutputFile, entries); err != nil {
			log.Warn(ctx, "failed to save entries to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)

	// Step 7: Verify results
	if err := verifyResults(ctx, log, stats); err != nil {
		return stats, err
	}
	log.Info(ctx, "simulation completed successfully")
	return stats, nil
}

func writeEntry(ctx context.Context, log logger.Logger, client *HTTPClient, cfg Config, e Entry, stats *Stats) {
	if err := client.deliverKeys(ctx, cfg.Handle, e.Keys); err != nil {
		log.Warn(ctx, "failed to deliver keys", logger.String("entry", e.ID), logger.Error(err))
	} else {
		stats.KeysDelivered += len(e.Keys)
	}

	res, status, err := client.submit(ctx, e)
	switch {
	case err != nil || status >= http.StatusBadRequest:
		stats.Failed++
		log.Warn(ctx, "entry submission failed", logger.String("entry", e.ID), logger.Int("status", status), logger.Error(err))
		return
	case res.Duplicate:
		stats.Duplicates++
		return
	}

	stats.EntriesSaved++
	stats.Submissions[res.Submission]++
	if res.Entry.Attribution != nil {
		stats.Profiles[e.Profile].add(*res.Entry.Attribution)
	}
	if cfg.Verbose {
		attr := res.Entry.Attribution
		if attr == nil {
			log.Info(ctx, "entry saved without attribution", logger.String("entry", e.ID))
			return
		}
		log.Info(ctx, "entry saved",
			logger.String("entry", e.ID),
			logger.String("profile", string(e.Profile)),
			logger.Float64("text", attr.Text),
			logger.Float64("typing", attr.Typing),
			logger.Float64("voice", attr.Voice))
	}
}

func withDefaults(c *Config) Config {
	cfg := Config{}
	if c != nil {
		cfg = *c
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Entries <= 0 {
		cfg.Entries = DefaultEntries
	}
	if cfg.Handle == "" {
		cfg.Handle = DefaultHandle
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return cfg
}

// saveEntriesToFile writes the generated entries as a JSON array.
func saveEntriesToFile(ctx context.Context, filename string, entries []Entry) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal entries: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	logger.Get().Info(ctx, "entries saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	calm := stats.Profiles[ProfileCalm].Mean()
	agitated := stats.Profiles[ProfileAgitated].Mean()
	log.Info(ctx, "final statistics",
		logger.Int("entriesGenerated", stats.EntriesGenerated),
		logger.Int("entriesSaved", stats.EntriesSaved),
		logger.Int("duplicates", stats.Duplicates),
		logger.Int("failed", stats.Failed),
		logger.Int("keysDelivered", stats.KeysDelivered),
		logger.Int("queued", stats.Submissions[types.SubmissionQueued]),
		logger.Int("dropped", stats.Submissions[types.SubmissionDropped]),
		logger.Float64("calmText", calm.Text),
		logger.Float64("calmTyping", calm.Typing),
		logger.Float64("agitatedText", agitated.Text),
		logger.Float64("agitatedTyping", agitated.Typing),
		logger.Int("agentEntries", stats.Agent.JournalEntries),
		logger.String("duration", stats.Duration.String()))
}
