package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/hush/internal/simulate"
	"github.com/okian/hush/pkg/logger"
)

func newSimulateCmd() *cobra.Command {
	cfg := &simulate.Config{}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Drive a running agent with synthetic journaling sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(); err != nil {
				return fmt.Errorf("failed to initialize logging: %w", err)
			}
			_, err := simulate.Run(cmd.Context(), cfg)
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", simulate.DefaultBaseURL, "agent base URL")
	f.IntVarP(&cfg.Entries, "entries", "n", simulate.DefaultEntries, "number of journal entries to write")
	f.StringVar(&cfg.Handle, "handle", simulate.DefaultHandle, "surface handle to type into")
	f.Uint64Var(&cfg.Seed, "seed", 1, "generator seed")
	f.DurationVar(&cfg.Timeout, "timeout", simulate.DefaultTimeout, "per-request timeout")
	f.StringVarP(&cfg.OutputFile, "output", "o", "", "write generated entries to this JSON file")
	f.BoolVarP(&cfg.Verbose, "verbose", "v", false, "log every entry")
	return cmd
}
