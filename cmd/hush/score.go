package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/okian/hush/internal/domain/sentiment"
	"github.com/okian/hush/pkg/logger"
)

func newScoreCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a single input offline",
	}
	cmd.AddCommand(newScoreTextCmd(), newScoreVoiceCmd(opts))
	return cmd
}

func newScoreTextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "text <words...>",
		Short: "Print the sentiment negativity of the given text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(cmd, sentiment.Analyze(strings.Join(args, " ")))
		},
	}
}

func newScoreVoiceCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "voice <file.wav>",
		Short: "Print the voice monotony of a WAV recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.setup(cmd.Context())
			if err != nil {
				return err
			}
			sample, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read sample: %w", err)
			}

			a := newVoiceAnalyzer(cfg, logger.Get())
			if err := a.Load(sample); err != nil {
				return err
			}
			res, err := a.Analyze(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
