package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/veilmq/veil/internal/task"
)

// Watch returns a tracked-task function that watches the config file at path
// and applies the log level from it whenever the file changes. It watches the
// parent directory because editors and config management tools typically
// replace the file rather than write it in place.
func Watch(path string, level *slog.LevelVar, logger *slog.Logger) task.Func {
	return func(ctx context.Context) error {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("create watcher: %w", err)
		}
		defer watcher.Close()

		if err := watcher.Add(filepath.Dir(path)); err != nil {
			return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
		}

		target := filepath.Clean(path)
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()

			case ev, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Op&fsnotify.Write != fsnotify.Write && ev.Op&fsnotify.Create != fsnotify.Create {
					continue
				}
				cfg, err := Load(path)
				if err != nil {
					logger.Warn("config reload failed", "path", path, "error", err)
					continue
				}
				if level.Level() != cfg.LogLevel() {
					level.Set(cfg.LogLevel())
					logger.Info("log level changed", "level", cfg.Log.Level)
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				logger.Warn("config watcher error", "error", err)
			}
		}
	}
}
