package fixture

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/airwaves-fm/stationsearch/pkg/logger"
)

// DefaultSettle is how long the watcher waits for writes to stop
const DefaultSettle = 200 * time.Millisecond

// Watcher reloads a fixture Source when its file changes and then calls onChange
type Watcher struct {
	source   *Source
	watcher  *fsnotify.Watcher
	onChange func()
	settle   time.Duration
	logger   *logger.Logger

	mu    sync.Mutex
	timer *time.Timer
	done  chan struct{}
}

// Watch starts watching the source's file. The parent directory is watched
// so editors that replace the file by rename are seen.
func Watch(ctx context.Context, source *Source, settle time.Duration, onChange func(), log *logger.Logger) (*Watcher, error) {
	if source.Path() == "" {
		return nil, fmt.Errorf("fixture has no backing file")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(source.Path())); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to watch fixture directory: %w", err)
	}
	if settle <= 0 {
		settle = DefaultSettle
	}

	w := &Watcher{
		source:   source,
		watcher:  fsw,
		onChange: onChange,
		settle:   settle,
		logger:   log.WithComponent("fixture-watcher"),
		done:     make(chan struct{}),
	}
	go w.eventLoop(ctx)

	w.logger.Info("Watching fixture", "path", source.Path())
	return w, nil
}

// Close stops watching
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

func (w *Watcher) eventLoop(ctx context.Context) {
	defer close(w.done)

	target := filepath.Clean(w.source.Path())
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.schedule()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Fixture watcher error", "error", err)
		}
	}
}

// schedule debounces bursts of events into one reload
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.settle, w.reload)
}

func (w *Watcher) reload() {
	if err := w.source.Reload(); err != nil {
		w.logger.Warn("Fixture reload failed, keeping previous content", "error", err)
		return
	}
	w.logger.Info("Fixture reloaded", "path", w.source.Path())
	if w.onChange != nil {
		w.onChange()
	}
}
