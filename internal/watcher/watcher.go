package watcher

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher watches the card directory and triggers a corpus rebuild when
// documents change. Events are debounced: a burst of writes (editors save in
// several steps, syncs copy many files) produces one rebuild after the
// directory goes quiet. Rebuilds are serialized; events arriving during a
// rebuild schedule a follow-up rather than a concurrent run.
type Watcher struct {
	dir        string
	extensions map[string]bool
	debounce   time.Duration
	onRebuild  func(ctx context.Context)
	logger     *zap.Logger

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool

	rebuildMu  sync.Mutex
	rebuilding bool
	pending    bool
}

// New creates a watcher over dir. onRebuild is invoked after the debounce
// window closes.
func New(dir string, extensions []string, debounce time.Duration, onRebuild func(ctx context.Context), logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(ext)] = true
	}
	return &Watcher{
		dir:        dir,
		extensions: allowed,
		debounce:   debounce,
		onRebuild:  onRebuild,
		logger:     logger,
	}
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return err
	}
	w.logger.Info("watching card directory", zap.String("dir", w.dir))

	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			w.stopped = true
			if w.timer != nil {
				w.timer.Stop()
			}
			w.mu.Unlock()
			return ctx.Err()
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("card document changed",
				zap.String("file", event.Name),
				zap.String("op", event.Op.String()))
			w.schedule(ctx)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

// relevant reports whether an event concerns a supported document type.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	ext := strings.ToLower(filepath.Ext(event.Name))
	return w.extensions[ext]
}

// schedule arms (or re-arms) the debounce timer.
func (w *Watcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.runRebuild(ctx)
	})
}

// runRebuild serializes rebuilds. If the timer fires while a rebuild is in
// flight, the change is recorded as pending and the running rebuild performs
// exactly one follow-up when it finishes; onRebuild never runs concurrently
// with itself.
func (w *Watcher) runRebuild(ctx context.Context) {
	w.rebuildMu.Lock()
	if w.rebuilding {
		w.pending = true
		w.rebuildMu.Unlock()
		return
	}
	w.rebuilding = true
	w.rebuildMu.Unlock()

	for {
		if ctx.Err() != nil {
			w.rebuildMu.Lock()
			w.rebuilding = false
			w.pending = false
			w.rebuildMu.Unlock()
			return
		}
		w.logger.Info("rebuilding corpus after document changes")
		w.onRebuild(ctx)

		w.rebuildMu.Lock()
		if !w.pending {
			w.rebuilding = false
			w.rebuildMu.Unlock()
			return
		}
		w.pending = false
		w.rebuildMu.Unlock()
	}
}
