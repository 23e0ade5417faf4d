package dataset

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce is the delay before a burst of dump writes triggers a reload.
// Dumps are rewritten in one go by the export script, so a short quiet
// period is enough.
const watchDebounce = 1500 * time.Millisecond

// ReloadFunc rebuilds the index. It runs on the watcher's timer goroutine.
type ReloadFunc func(ctx context.Context) error

// Watcher monitors a dataset directory for Who.DD / Paths.DD changes.
type Watcher struct {
	dir      string
	reload   ReloadFunc
	fsw      *fsnotify.Watcher
	debounce time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
}

// NewWatcher creates a dataset directory watcher.
func NewWatcher(dir string, reload ReloadFunc) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		dir:      dir,
		reload:   reload,
		fsw:      fsw,
		debounce: watchDebounce,
	}, nil
}

// Start watches the dataset root and every version directory below it.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.fsw.Add(w.dir); err != nil {
		return err
	}
	watched := 1

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if err := w.fsw.Add(filepath.Join(w.dir, e.Name())); err == nil {
			watched++
		}
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.loop()

	slog.Info("dataset watcher started", "dir", w.dir, "watched", watched)
	return nil
}

// Stop shuts down the watcher and waits for its goroutine to exit.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.fsw.Close()

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("dataset watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	// New version directory: watch it, its dumps arrive later.
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			_ = w.fsw.Add(path)
			slog.Debug("dataset watcher: watching new dir", "path", path)
			return
		}
	}

	base := filepath.Base(path)
	if !strings.EqualFold(base, SymbolsFile) && !strings.EqualFold(base, PathsFile) {
		return
	}
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return
	}
	w.schedule()
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if !w.pending {
		w.mu.Unlock()
		return
	}
	w.pending = false
	w.mu.Unlock()

	if w.ctx.Err() != nil {
		return
	}

	start := time.Now()
	if err := w.reload(w.ctx); err != nil {
		// Keep serving the previous index.
		slog.Error("dataset reload failed", "dir", w.dir, "error", err)
		return
	}
	slog.Info("dataset reloaded", "dir", w.dir, "took", time.Since(start))
}
