package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/okian/hush/pkg/logger"
)

const defaultDebounce = 100 * time.Millisecond

// Watcher reloads a config file when it changes on disk.
// The parent directory is watched so editors that replace the file by
// rename are picked up.
type Watcher struct {
	path     string
	onChange func(*Config)
	debounce time.Duration
	log      logger.Logger
}

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WithDebounce sets the quiet period before a reload.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithWatchLogger sets the watcher logger.
func WithWatchLogger(l logger.Logger) WatchOption {
	return func(w *Watcher) {
		if l != nil {
			w.log = l
		}
	}
}

// NewWatcher creates a watcher for path. onChange receives every config
// that loads and validates; invalid edits are logged and skipped.
func NewWatcher(path string, onChange func(*Config), opts ...WatchOption) *Watcher {
	w := &Watcher{
		path:     filepath.Clean(path),
		onChange: onChange,
		debounce: defaultDebounce,
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	defer func() { _ = fsw.Close() }()

	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("config watcher: %s: %w", w.path, err)
	}
	w.log.Info(ctx, "watching config file", logger.String("path", w.path))

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(w.debounce)

		case <-timer.C:
			w.reload(ctx)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Error(ctx, "config watcher error", logger.Error(err))
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	cfg, err := LoadFile(w.path)
	if err != nil {
		w.log.Warn(ctx, "config reload skipped", logger.String("path", w.path), logger.Error(err))
		return
	}
	w.log.Info(ctx, "config reloaded", logger.String("path", w.path))
	if w.onChange != nil {
		w.onChange(cfg)
	}
}
