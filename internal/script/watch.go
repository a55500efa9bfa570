package script

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounceInterval = 500 * time.Millisecond

// Watch calls run with the parsed script once, then again every time the
// file changes, until ctx is cancelled. Bursts of events are coalesced.
// Parse and run errors are logged and watching continues.
//
// The parent directory is watched rather than the file itself because
// editors commonly save by renaming a temporary file over the original.
func Watch(ctx context.Context, path string, run func(context.Context, *Script) error, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve script path: %w", err)
	}

	fsW, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsW.Close()

	if err := fsW.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	once := func() {
		s, err := Load(abs)
		if err != nil {
			logger.Error("script not loaded", "path", abs, "error", err)
			return
		}
		if err := run(ctx, s); err != nil {
			logger.Error("script failed", "path", abs, "error", err)
			return
		}
		logger.Info("script finished", "path", abs, "steps", len(s.Steps))
	}
	once()

	// The timer only signals; runs happen on this goroutine so they never
	// overlap.
	trigger := make(chan struct{}, 1)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsW.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceInterval, func() {
				select {
				case trigger <- struct{}{}:
				default:
				}
			})
		case <-trigger:
			logger.Debug("script changed", "path", abs)
			once()
		case err, ok := <-fsW.Errors:
			if !ok {
				return nil
			}
			logger.Warn("script watcher error", "path", abs, "error", err)
		}
	}
}
