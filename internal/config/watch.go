package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debouncePeriod coalesces the burst of filesystem events an editor fires
// during a single save into one reload.
const debouncePeriod = 200 * time.Millisecond

// Watch monitors the config file at path and calls onChange with the newly
// loaded Config after each change. It blocks until ctx is cancelled.
//
// A failed reload (invalid YAML, validation error) keeps the previous
// config active: the error is logged and onChange is not called.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}
	slog.Info("config: watching for changes", "path", path)

	var debounce *time.Timer
	reloads := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Write covers in-place saves; Create covers editors that save
			// atomically by writing a temp file and renaming it over path.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debouncePeriod, func() {
				select {
				case reloads <- struct{}{}:
				default:
				}
			})

		case <-reloads:
			reload(path, onChange)
			// An atomic save replaces the inode; re-add so we keep
			// receiving events for the new file.
			if err := watcher.Add(path); err != nil {
				slog.Error("config: re-watch failed", "path", path, "err", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}

// reload loads path and hands the result to onChange, keeping the previous
// config on any error.
func reload(path string, onChange func(*Config)) {
	cfg, err := Load(path)
	if err != nil {
		slog.Error("config: reload failed, keeping previous config",
			"path", path, "err", err)
		return
	}
	slog.Info("config: reloaded", "path", path, "services", len(cfg.Services))
	onChange(cfg)
}
