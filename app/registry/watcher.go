package registry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounceInterval = 500 * time.Millisecond

// Watch monitors the seed file and re-syncs the registry when it changes.
// Events are debounced so a burst of writes triggers a single reload. Blocks
// until ctx is cancelled.
func (r *Registry) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(r.path); err != nil {
		return fmt.Errorf("failed to watch %s: %w", r.path, err)
	}

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	slog.Debug("Watching seed file", "path", r.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if event.Op&fsnotify.Chmod == fsnotify.Chmod {
				continue
			}

			// Editors often replace the file instead of writing in place,
			// which silently drops the watch. Re-add once the new file is
			// in place.
			if event.Op&fsnotify.Rename == fsnotify.Rename || event.Op&fsnotify.Remove == fsnotify.Remove {
				go func() {
					time.Sleep(100 * time.Millisecond)
					if err := watcher.Add(r.path); err != nil {
						slog.Warn("Failed to re-watch seed file", "path", r.path, "error", err)
					}
				}()
			}

			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceInterval, func() {
				if err := r.Reload(); err != nil {
					slog.Error("Failed to reload seed file", "path", r.path, "error", err)
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("Seed file watcher error", "error", err)
		}
	}
}
