package health

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/sqlitedrop/sqlitedrop/pkg/dropin"
)

// DefaultDebounce coalesces bursts of filesystem events (touch then write).
const DefaultDebounce = 500 * time.Millisecond

// Watcher re-evaluates notices whenever the drop-in appears, changes or
// disappears in a local content directory.
type Watcher struct {
	contentDir string
	notices    *Notices
	debounce   time.Duration
	logger     zerolog.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
}

// NewWatcher creates a watcher for contentDir.
func NewWatcher(contentDir string, notices *Notices, debounce time.Duration, logger zerolog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		contentDir: contentDir,
		notices:    notices,
		debounce:   debounce,
		logger:     logger.With().Str("component", "watcher").Logger(),
	}
}

// Watch starts watching and calls fn with the current notices once
// immediately, then after each debounced change. It returns once the
// watcher is running; events are processed until ctx is cancelled.
func (w *Watcher) Watch(ctx context.Context, fn func([]Notice)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	// The directory is watched rather than the file so that creation and
	// removal of db.php are both seen.
	if err := watcher.Add(w.contentDir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", w.contentDir, err)
	}

	w.mu.Lock()
	w.watcher = watcher
	w.mu.Unlock()

	fn(w.notices.Emit(ctx))

	go w.processEvents(ctx, watcher, fn)

	w.logger.Info().Str("dir", w.contentDir).Msg("watching content directory")
	return nil
}

func (w *Watcher) processEvents(ctx context.Context, watcher *fsnotify.Watcher, fn func([]Notice)) {
	target := filepath.Join(w.contentDir, dropin.FileName)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = watcher.Close()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}

			w.logger.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("drop-in changed")

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				if ctx.Err() != nil {
					return
				}
				fn(w.notices.Emit(ctx))
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("watcher error")
		}
	}
}

// Stop closes the underlying watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}
