package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/star/tlecat/internal/metrics"
)

const defaultDebounce = 200 * time.Millisecond

// Watcher keeps a Store in sync with a run catalog file on disk. The parent
// directory is watched rather than the file so that atomic replace-by-rename
// is seen.
type Watcher struct {
	path     string
	store    *Store
	logger   *slog.Logger
	debounce time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher creates a watcher for path. A debounce of zero uses 200ms.
func NewWatcher(path string, store *Store, debounce time.Duration, logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Watcher{
		path:     filepath.Clean(path),
		store:    store,
		logger:   logger,
		debounce: debounce,
	}
}

// Load reads the catalog file and swaps it into the store. A failed load
// keeps the previous snapshot.
func (w *Watcher) Load() error {
	w.store.Lock()
	defer w.store.Unlock()

	start := time.Now()
	rc, err := LoadRun(w.path)
	metrics.IncCatalogReload(err)
	if err != nil {
		return fmt.Errorf("loading run catalog %s: %w", w.path, err)
	}

	w.store.Set(&Snapshot{Catalog: rc, Source: w.path, LoadedAt: time.Now()})
	metrics.SetCatalogSize(rc.Len(), rc.Records())
	w.logger.Info("run catalog loaded",
		"component", "catalog",
		"path", w.path,
		"objects", rc.Len(),
		"records", rc.Records(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Run watches for changes until ctx is cancelled. It does not perform the
// initial load; call Load first.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	w.logger.Info("watching run catalog", "component", "catalog", "path", w.path)

	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("run catalog watcher error", "component", "catalog", "error", err)
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if err := w.Load(); err != nil {
			w.logger.Warn("run catalog reload failed, keeping previous", "component", "catalog", "error", err)
		}
	})
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}
