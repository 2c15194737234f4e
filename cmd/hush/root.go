package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/hush/internal/config"
	"github.com/okian/hush/pkg/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:           "hush",
		Short:         "hush scoring agent",
		Long:          "hush scores journal entries by text sentiment, typing rhythm and voice monotony, and submits the feature attributions to the backend.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		"YAML config file (defaults to $"+config.EnvConfigFile+")")

	rootCmd.AddCommand(
		newVersionCmd(),
		newServeCmd(opts),
		newScoreCmd(opts),
		newSimulateCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version)
			return err
		},
	}
}

// path returns the config file in effect, flag first.
func (o *rootOptions) path() string {
	if o.configPath != "" {
		return o.configPath
	}
	return os.Getenv(config.EnvConfigFile)
}

// setup loads configuration and initializes the global logger from it.
func (o *rootOptions) setup(_ context.Context) (*config.Config, error) {
	cfg, err := config.LoadFile(o.path())
	if err != nil {
		return nil, err
	}
	if err := logger.InitWith(os.Stderr, cfg.LogFormat); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(context.Background(), "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return cfg, nil
}
