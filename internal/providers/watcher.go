package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	xlog "github.com/streamdex/streamdex/internal/log"
)

const debounce = 500 * time.Millisecond

// Watch observes the providers file and invokes onChange after edits settle.
// Rapid consecutive writes are debounced into one notification. The watcher
// runs until ctx is cancelled; a missing file at start is an error (create it
// first, even empty).
func Watch(ctx context.Context, path string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch providers file: %w", err)
	}

	logger := xlog.WithComponent("providers")
	logger.Info().
		Str("event", "providers.watcher_started").
		Str(xlog.FieldPath, path).
		Msg("watching providers file for changes")

	go func() {
		defer watcher.Close()
		var debounceTimer *time.Timer
		for {
			select {
			case <-ctx.Done():
				logger.Info().Str("event", "providers.watcher_stopped").Msg("providers watcher stopped")
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				// Write and Create cover editors that replace the file
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					if debounceTimer != nil {
						debounceTimer.Stop()
					}
					debounceTimer = time.AfterFunc(debounce, onChange)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Error().
					Err(err).
					Str("event", "providers.watcher_error").
					Msg("providers watcher error")
			}
		}
	}()
	return nil
}
