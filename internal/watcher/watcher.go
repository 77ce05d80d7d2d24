// Package watcher keeps the corpus store in sync with the log directory.
// File change bursts coalesce into one corpus reload, and each reload
// queues a background semantic index rebuild so analysis requests never
// wait on indexing.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Chandanbam/openstack-rca-system/internal/corpus"
	"github.com/Chandanbam/openstack-rca-system/internal/logging"
)

// IndexRefresher rebuilds the semantic index over a corpus snapshot.
// Satisfied by *analysis.Engine.
type IndexRefresher interface {
	RefreshIndex(ctx context.Context, c *corpus.Corpus) error
}

// Options configures a log directory Watcher.
type Options struct {
	// DebounceMillis coalesces change bursts (log rotation, bulk copies)
	// into one reload. Default 2000ms.
	DebounceMillis int

	// RefreshTimeout bounds one background index rebuild. Default 5m.
	RefreshTimeout time.Duration
}

// Watcher reloads the corpus store when files under its log directory
// change. With an IndexRefresher attached, every reload also queues an
// index rebuild; queued rebuilds collapse so only the newest snapshot
// gets indexed.
type Watcher struct {
	store     *corpus.Store
	refresher IndexRefresher
	opts      Options
	logger    *logging.Logger

	cancel    context.CancelFunc
	stopped   chan struct{}
	ready     chan struct{}
	refreshCh chan struct{}

	mu            sync.Mutex
	debounceTimer *time.Timer
}

// New creates a watcher over the store's log directory. refresher may be
// nil, which limits the watcher to corpus reloads.
func New(store *corpus.Store, refresher IndexRefresher, opts Options) *Watcher {
	if opts.DebounceMillis <= 0 {
		opts.DebounceMillis = 2000
	}
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = 5 * time.Minute
	}
	return &Watcher{
		store:     store,
		refresher: refresher,
		opts:      opts,
		logger:    logging.GetLogger("watcher"),
		stopped:   make(chan struct{}),
		ready:     make(chan struct{}),
		refreshCh: make(chan struct{}, 1),
	}
}

// Name identifies the watcher to the lifecycle manager.
func (w *Watcher) Name() string { return "log-watcher" }

// Start performs the initial corpus load and begins watching. An empty or
// unparseable directory is not fatal; the watcher waits for logs to show
// up. Returns once the file watch is established.
func (w *Watcher) Start(ctx context.Context) error {
	if _, err := os.Stat(w.store.Dir()); err != nil {
		return fmt.Errorf("log directory: %w", err)
	}

	if c, err := w.store.Reload(ctx); err != nil {
		w.logger.Warn("initial corpus load failed, watching for logs: %v", err)
	} else {
		w.logger.Info("initial corpus loaded: %d entries from %s", c.Len(), w.store.Dir())
		w.notifyRefresh()
	}

	watchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); w.watchLoop(watchCtx) }()
	go func() { defer wg.Done(); w.refreshLoop(watchCtx) }()
	go func() { wg.Wait(); close(w.stopped) }()

	select {
	case <-w.ready:
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	case <-time.After(5 * time.Second):
		cancel()
		return fmt.Errorf("timeout waiting for file watcher to initialize")
	}
	return nil
}

// Stop cancels the watch and waits for the loops to exit.
func (w *Watcher) Stop(ctx context.Context) error {
	if w.cancel == nil {
		return nil
	}
	w.cancel()
	select {
	case <-w.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
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
	defer w.signalReady()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.ErrorWithErr("failed to create file watcher", err)
		return
	}
	defer fsw.Close()

	if err := w.addWatches(fsw); err != nil {
		w.logger.ErrorWithErr("failed to watch log directory", err)
		return
	}

	w.logger.Info("watching %s for log changes (debounce: %dms)", w.store.Dir(), w.opts.DebounceMillis)
	w.signalReady()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, fsw, event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.ErrorWithErr("watcher error", err)
		}
	}
}

// addWatches registers the log directory and its existing subdirectories.
// fsnotify watches are not recursive.
func (w *Watcher) addWatches(fsw *fsnotify.Watcher) error {
	return filepath.WalkDir(w.store.Dir(), func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return fsw.Add(path)
	})
}

func (w *Watcher) handleEvent(ctx context.Context, fsw *fsnotify.Watcher, event fsnotify.Event) {
	const relevant = fsnotify.Create | fsnotify.Write | fsnotify.Rename | fsnotify.Remove
	if event.Op&relevant == 0 {
		return
	}

	// A new subdirectory needs its own watch before its files produce
	// events.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := fsw.Add(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory %s: %v", event.Name, err)
			}
			w.scheduleReload(ctx)
			return
		}
	}

	if !strings.Contains(filepath.Base(event.Name), ".log") {
		return
	}
	w.scheduleReload(ctx)
}

// scheduleReload coalesces change events into a single reload.
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
		w.reload(ctx)
	})
}

func (w *Watcher) reload(ctx context.Context) {
	c, err := w.store.Reload(ctx)
	if err != nil {
		w.logger.Warn("corpus reload failed, keeping previous snapshot: %v", err)
		return
	}
	w.logger.InfoWithFields("corpus reloaded",
		logging.Field("entries", c.Len()),
		logging.Field("fingerprint", c.Fingerprint()[:12]))
	w.notifyRefresh()
}

// refreshLoop rebuilds the index for the newest snapshot. The channel has
// capacity one, so reload bursts collapse into a single rebuild.
func (w *Watcher) refreshLoop(ctx context.Context) {
	if w.refresher == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.refreshCh:
		}

		c := w.store.Snapshot()
		if c == nil || c.Len() == 0 {
			continue
		}
		rctx, cancel := context.WithTimeout(ctx, w.opts.RefreshTimeout)
		start := time.Now()
		err := w.refresher.RefreshIndex(rctx, c)
		cancel()
		if err != nil {
			w.logger.Warn("background index refresh failed: %v", err)
			continue
		}
		w.logger.InfoWithFields("semantic index refreshed",
			logging.Field("entries", c.Len()),
			logging.Field("duration_ms", time.Since(start).Milliseconds()))
	}
}

func (w *Watcher) notifyRefresh() {
	if w.refresher == nil {
		return
	}
	select {
	case w.refreshCh <- struct{}{}:
	default:
	}
}
