package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Chandanbam/openstack-rca-system/internal/logging"
)

// ReloadCallback is invoked with each successfully reloaded, validated
// config. A callback error is logged and watching continues.
type ReloadCallback func(cfg *Config) error

// WatcherOptions configures a config file Watcher.
type WatcherOptions struct {
	// FilePath is the config file to watch
	FilePath string

	// DebounceMillis coalesces change bursts (editor save sequences,
	// atomic-rename writers) into one reload. Default 500ms.
	DebounceMillis int
}

// Watcher hot-reloads the config file so tunables (fusion weights, timeouts)
// can change without a restart. Invalid configs are logged and skipped; the
// previous valid config stays in effect.
type Watcher struct {
	opts     WatcherOptions
	callback ReloadCallback
	logger   *logging.Logger

	cancel  context.CancelFunc
	stopped chan struct{}
	ready   chan struct{}
	mu      sync.Mutex

	debounceTimer *time.Timer
}

// NewWatcher creates a watcher for the given config file.
func NewWatcher(opts WatcherOptions, callback ReloadCallback) (*Watcher, error) {
	if opts.FilePath == "" {
		return nil, fmt.Errorf("FilePath cannot be empty")
	}
	if callback == nil {
		return nil, fmt.Errorf("callback cannot be nil")
	}
	if opts.DebounceMillis == 0 {
		opts.DebounceMillis = 500
	}

	return &Watcher{
		opts:     opts,
		callback: callback,
		logger:   logging.GetLogger("config.watcher"),
		stopped:  make(chan struct{}),
		ready:    make(chan struct{}),
	}, nil
}

// Start loads the initial config, invokes the callback with it, and begins
// watching. Returns once the file watch is established; the watch itself runs
// until Stop or context cancellation.
func (w *Watcher) Start(ctx context.Context) error {
	initial, err := Load(w.opts.FilePath)
	if err != nil {
		return fmt.Errorf("failed to load initial config: %w", err)
	}
	if err := w.callback(initial); err != nil {
		return fmt.Errorf("initial callback failed: %w", err)
	}

	w.logger.Info("loaded initial config from %s", w.opts.FilePath)

	watchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	go w.watchLoop(watchCtx)

	select {
	case <-w.ready:
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Second):
		return fmt.Errorf("timeout waiting for file watcher to initialize")
	}
	return nil
}

// Stop cancels the watch and waits for the loop to exit.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	<-w.stopped
}

func (w *Watcher) signalReady() {
	w.mu.Lock()
	defer w.mu.Unlock()
	select {
	case <-w.ready:
	default:
		close(w.ready)
	}
}

func (w *Watcher) watchLoop(ctx context.Context) {
	defer close(w.stopped)
	defer w.signalReady()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.ErrorWithErr("failed to create file watcher", err)
		return
	}
	defer watcher.Close()

	if err := watcher.Add(w.opts.FilePath); err != nil {
		w.logger.ErrorWithErr("failed to watch config file", err)
		return
	}

	w.logger.Info("watching %s for changes (debounce: %dms)", w.opts.FilePath, w.opts.DebounceMillis)
	w.signalReady()

	const relevant = fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&relevant == 0 {
				continue
			}
			// Atomic writes unlink the watched inode; re-add after the
			// rename settles.
			if event.Op&(fsnotify.Rename|fsnotify.Remove) != 0 {
				time.Sleep(50 * time.Millisecond)
				if err := watcher.Add(w.opts.FilePath); err != nil {
					w.logger.Warn("failed to re-add watch after %s: %v", event.Op, err)
				}
			}
			w.scheduleReload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.ErrorWithErr("watcher error", err)
		}
	}
}

// scheduleReload debounces change events into a single reload.
func (w *Watcher) scheduleReload(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(time.Duration(w.opts.DebounceMillis)*time.Millisecond, func() {
		if ctx.Err() != nil {
			return
		}
		w.reload()
	})
}

func (w *Watcher) reload() {
	cfg, err := Load(w.opts.FilePath)
	if err != nil {
		w.logger.Warn("config reload skipped, keeping previous config: %v", err)
		return
	}
	if err := w.callback(cfg); err != nil {
		w.logger.ErrorWithErr("config reload callback failed", err)
		return
	}
	w.logger.Info("config reloaded from %s", w.opts.FilePath)
}
