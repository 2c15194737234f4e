package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/okian/hush/internal/adapters/backend"
	"github.com/okian/hush/internal/adapters/http/api"
	"github.com/okian/hush/internal/adapters/http/swagger"
	repository "github.com/okian/hush/internal/adapters/repository"
	app "github.com/okian/hush/internal/app"
	"github.com/okian/hush/internal/config"
	"github.com/okian/hush/internal/domain/biomarker"
	"github.com/okian/hush/internal/domain/voice"
	"github.com/okian/hush/pkg/logger"
	"github.com/okian/hush/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scoring agent HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Root context with cancel on SIGINT/SIGTERM.
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := opts.setup(ctx)
			if err != nil {
				return err
			}
			return serve(ctx, cfg, opts.path())
		},
	}
}

// agent bundles the wired service and its HTTP server.
type agent struct {
	svc *app.Service
	srv *http.Server
}

// buildAgent wires the service and HTTP routes from cfg. The service is
// not started.
func buildAgent(ctx context.Context, cfg *config.Config) (*agent, error) {
	log := logger.Get()

	var store repository.Store
	if cfg.StorePath != "" {
		s, err := repository.OpenSQLite(ctx, cfg.StorePath, repository.WithLogger(log.Named("store")))
		if err != nil {
			return nil, err
		}
		store = s
	}

	svcOpts := []app.Option{
		app.WithLogger(log),
		app.WithStore(store),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithVoiceOnSubmit(cfg.VoiceScoreOnSubmit),
		app.WithDefaultRecordDuration(time.Duration(cfg.VoiceRecordMS) * time.Millisecond),
		app.WithSubmitTimeout(time.Duration(cfg.BackendTimeoutMS) * time.Millisecond),
		app.WithVoiceAnalyzer(newVoiceAnalyzer(cfg, log)),
		app.WithMonitorOptions(
			biomarker.WithMinKeystrokes(cfg.TypingMinKeystrokes),
			biomarker.WithAgitationNorm(cfg.TypingAgitationNormMS),
			biomarker.WithHesitationNorm(cfg.TypingHesitationNorm),
			biomarker.WithAgitationWeight(cfg.TypingAgitationWeight),
		),
	}
	if cfg.BackendURL != "" {
		client, err := backend.New(cfg.BackendURL,
			backend.WithToken(cfg.BackendToken),
			backend.WithTimeout(time.Duration(cfg.BackendTimeoutMS)*time.Millisecond),
		)
		if err != nil {
			if store != nil {
				_ = store.Close()
			}
			return nil, err
		}
		if err := client.Health(ctx); err != nil {
			log.Warn(ctx, "backend not reachable; submissions will fail until it is",
				logger.String("backend", cfg.BackendURL), logger.Error(err))
		}
		svcOpts = append(svcOpts, app.WithSubmitter(client))
	}
	svc := app.New(svcOpts...)

	// HTTP mux and routes.
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc,
		api.WithDebug(cfg.Debug),
		api.WithMaxJournalLimit(cfg.MaxJournalLimit),
		api.WithMaxSampleBytes(cfg.VoiceMaxSampleBytes),
		api.WithLogger(log.Named("api")),
	).Register(ctx, mux)

	return &agent{
		svc: svc,
		srv: &http.Server{
			Addr:              cfg.Addr,
			Handler:           mux,
			ReadTimeout:       readTimeout,
			IdleTimeout:       idleTimeout,
			ReadHeaderTimeout: readHeaderTimeout,
		},
	}, nil
}

func newVoiceAnalyzer(cfg *config.Config, log logger.Logger) *voice.Analyzer {
	opts := []voice.Option{
		voice.WithLogger(log.Named("voice")),
		voice.WithMaxDuration(time.Duration(cfg.VoiceMaxRecordMS) * time.Millisecond),
		voice.WithMinPitches(cfg.VoiceMinPitches),
		voice.WithPitchStdNorm(cfg.VoicePitchStdNormHz),
		voice.WithSilenceThreshold(cfg.VoiceSilenceThreshold),
	}
	if cfg.VoiceDevicePath != "" {
		opts = append(opts, voice.WithDevice(voice.NewFileDevice(cfg.VoiceDevicePath, 0)))
	}
	return voice.NewAnalyzer(opts...)
}

// serve runs the agent until ctx is cancelled. configPath, when set, is
// watched for log level changes.
func serve(ctx context.Context, cfg *config.Config, configPath string) error {
	// Disable default Go metrics collection to avoid duplicate metrics
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	log := logger.Get()
	a, err := buildAgent(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to build agent: %w", err)
	}
	if err := a.svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info(gctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info(context.Background(), "shutting down server...")

		// Graceful shutdown with timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		if err := a.srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown failed: %w", err))
		}
		if err := a.svc.Stop(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("service stop failed: %w", err))
		}
		log.Info(shutdownCtx, "server stopped")
		return errors.Join(errs...)
	})

	g.Go(func() error {
		startSystemMetricsUpdater(gctx)
		return nil
	})

	if configPath != "" {
		w := config.NewWatcher(configPath, applyReload(log), config.WithWatchLogger(log.Named("config")))
		g.Go(func() error {
			if err := w.Run(gctx); err != nil {
				log.Warn(gctx, "config watch disabled", logger.Error(err))
			}
			return nil
		})
	}

	return g.Wait()
}

// applyReload returns the hook applied to a reloaded config. Only the log
// level takes effect without a restart.
func applyReload(log logger.Logger) func(*config.Config) {
	return func(cfg *config.Config) {
		if err := logger.SetLevelString(cfg.LogLevel); err != nil {
			log.Warn(context.Background(), "invalid log_level in reloaded config",
				logger.String("log_level", cfg.LogLevel), logger.Error(err))
			return
		}
		log.Info(context.Background(), "log level applied", logger.String("log_level", cfg.LogLevel))
	}
}

// startSystemMetricsUpdater updates system metrics until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
