package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/hush/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9180")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 1024)
				convey.So(cfg.TypingMinKeystrokes, convey.ShouldEqual, 10)
				convey.So(cfg.TypingAgitationNormMS, convey.ShouldEqual, 150)
				convey.So(cfg.VoiceMinPitches, convey.ShouldEqual, 6)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("HUSH_ADDR", ":8080")
			_ = os.Setenv("HUSH_QUEUE_SIZE", "64")
			_ = os.Setenv("HUSH_DEBUG", "true")
			_ = os.Setenv("HUSH_TYPING_HESITATION_NORM", "0.2")
			_ = os.Setenv("HUSH_BACKEND_TOKEN", "secret")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 64)
				convey.So(cfg.Debug, convey.ShouldBeTrue)
				convey.So(cfg.TypingHesitationNorm, convey.ShouldEqual, 0.2)
				convey.So(cfg.BackendToken, convey.ShouldEqual, "secret")
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile(`
addr: ":9090"
worker_count: 3
store_path: "/tmp/hush.db"
voice_record_ms: 5000
`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("HUSH_CONFIG", tmpFile)
			_ = os.Setenv("HUSH_WORKER_COUNT", "8")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 8)
				convey.So(cfg.StorePath, convey.ShouldEqual, "/tmp/hush.db")
				convey.So(cfg.VoiceRecordMS, convey.ShouldEqual, 5000)
				convey.So(cfg.DedupeSize, convey.ShouldEqual, 10_000)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("HUSH_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("HUSH_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("HUSH_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("HUSH_QUEUE_SIZE", "invalid")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the queue size is zero", func() {
			_ = os.Setenv("HUSH_QUEUE_SIZE", "0")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then validation rejects it instead of falling back", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "queue_size")
			})
		})

		convey.Convey("When the typing calibration is out of range", func() {
			_ = os.Setenv("HUSH_TYPING_AGITATION_WEIGHT", "1.5")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then validation rejects it", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func clearConfigEnvVars() {
	for _, envVar := range []string{
		"HUSH_CONFIG",
		"HUSH_ADDR",
		"HUSH_QUEUE_SIZE",
		"HUSH_WORKER_COUNT",
		"HUSH_DEBUG",
		"HUSH_TYPING_HESITATION_NORM",
		"HUSH_TYPING_AGITATION_WEIGHT",
		"HUSH_BACKEND_TOKEN",
	} {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "hush-config-*.yaml")
	if err != nil {
		panic(err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	if err := tmpFile.Close(); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
