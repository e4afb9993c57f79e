package scheduler

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"camsort/internal/logging"
)

// watchConfig requests a reload whenever the file at path is written or
// replaced. The parent directory is watched so editors that save through a
// rename are still seen. The watcher stops with ctx.
func (s *Service) watchConfig(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				s.logger.Debug("configuration file changed", logging.String("op", ev.Op.String()))
				s.RequestReload()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logging.WarnWithContext(s.logger, "configuration watcher error", "config_watch_error",
					logging.Error(err),
					logging.String(logging.FieldImpact, "a configuration edit may be missed"),
				)
			}
		}
	}()
	return nil
}
