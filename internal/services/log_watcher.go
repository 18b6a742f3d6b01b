package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce collapses bursts of writes into one reload
const DefaultDebounce = 500 * time.Millisecond

// selfWriteWindow is how long after an export events on the file are ignored
const selfWriteWindow = 2 * time.Second

// LogWatcher reloads the network whenever the command-log file changes.
// Writes made by the service's own ExportLog are ignored.
type LogWatcher struct {
	service  *NetworkService
	path     string
	debounce time.Duration
	logger   *zap.Logger
	watcher  *fsnotify.Watcher

	mu       sync.Mutex
	reloads  int
	lastErr  error
	reloaded chan struct{}
}

// NewLogWatcher watches the directory holding path. Watching the directory
// rather than the file survives editors that replace the file on save.
func NewLogWatcher(service *NetworkService, path string, debounce time.Duration) (*LogWatcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	abs := cleanPath(path)
	if err := fsWatcher.Add(filepath.Dir(abs)); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	return &LogWatcher{
		service:  service,
		path:     abs,
		debounce: debounce,
		logger:   service.logger.Named("watcher"),
		watcher:  fsWatcher,
		reloaded: make(chan struct{}, 1),
	}, nil
}

// Run handles file events until ctx is cancelled. It returns only after any
// scheduled or running reload has finished.
func (w *LogWatcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	var (
		pending       sync.WaitGroup
		debounceTimer *time.Timer
	)
	// a timer stopped before firing never runs its reload, so release it here
	cancelPending := func() {
		if debounceTimer != nil && debounceTimer.Stop() {
			pending.Done()
		}
	}
	defer func() {
		cancelPending()
		pending.Wait()
	}()

	w.logger.Info("Watching command log", zap.String("path", w.path))

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if cleanPath(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if w.service.exportedWithin(w.path, selfWriteWindow) {
				w.logger.Debug("Ignoring own export", zap.String("path", w.path))
				continue
			}

			w.logger.Debug("Command log changed",
				zap.String("file", event.Name),
				zap.String("operation", event.Op.String()))

			cancelPending()
			pending.Add(1)
			debounceTimer = time.AfterFunc(w.debounce, func() {
				defer pending.Done()
				w.reload(ctx)
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("File watcher error", zap.Error(err))

		case <-ctx.Done():
			w.logger.Info("Stopping command log watcher")
			return nil
		}
	}
}

// Reloads returns the number of successful reloads and the last reload error
func (w *LogWatcher) Reloads() (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.reloads, w.lastErr
}

// Reloaded signals after each reload attempt
func (w *LogWatcher) Reloaded() <-chan struct{} {
	return w.reloaded
}

func (w *LogWatcher) reload(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	_, err := w.service.ReloadFromLog(ctx, w.path)

	w.mu.Lock()
	w.lastErr = err
	if err == nil {
		w.reloads++
	}
	w.mu.Unlock()

	select {
	case w.reloaded <- struct{}{}:
	default:
	}
}
