package simulate

import (
	"context"
	"fmt"

	"github.com/okian/hush/pkg/logger"
)

// verifyResults checks that every entry was stored and that the agent
// separated the two mood profiles.
func verifyResults(ctx context.Context, log logger.Logger, stats *Stats) error {
	if stats.Failed > 0 {
		return fmt.Errorf("%w: %d entries failed", ErrVerification, stats.Failed)
	}
	if stats.EntriesSaved != stats.EntriesGenerated {
		return fmt.Errorf("%w: saved %d of %d entries", ErrVerification, stats.EntriesSaved, stats.EntriesGenerated)
	}
	if stats.Agent.JournalEntries < stats.EntriesSaved {
		return fmt.Errorf("%w: agent reports %d entries, expected at least %d",
			ErrVerification, stats.Agent.JournalEntries, stats.EntriesSaved)
	}

	calm, agitated := stats.Profiles[ProfileCalm], stats.Profiles[ProfileAgitated]
	if calm.Count == 0 || agitated.Count == 0 {
		return nil
	}
	if c, a := calm.Mean(), agitated.Mean(); a.Typing <= c.Typing || a.Text <= c.Text {
		log.Warn(ctx, "agitated entries did not score above calm entries",
			logger.Float64("calmText", c.Text), logger.Float64("agitatedText", a.Text),
			logger.Float64("calmTyping", c.Typing), logger.Float64("agitatedTyping", a.Typing))
		return fmt.Errorf("%w: profiles not separated", ErrVerification)
	}
	log.Info(ctx, "profiles separated as expected")
	return nil
}
