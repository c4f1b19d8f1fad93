package live

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Relay notifies topics on h whenever one of the named files in dir is
// created or written, until ctx is done. It turns writes made by other
// processes into local change notifications.
func Relay(ctx context.Context, h *Hub, dir string, files []string, topics ...string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	log := zerolog.Ctx(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !slices.Contains(files, filepath.Base(ev.Name)) || !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			h.Notify(topics...)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Str("dir", dir).Msg("relay watcher error")
		}
	}
}
