package policy

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// defaultDebounce coalesces the burst of events editors emit for one save.
const defaultDebounce = 500 * time.Millisecond

// Watcher is a Source backed by a policy file that is reloaded whenever the
// file changes. A file that fails to parse is logged and ignored; the last
// good policy stays in effect.
type Watcher struct {
	path     string
	logger   *slog.Logger
	onReload func(*Policy)
	debounce time.Duration

	current atomic.Pointer[Policy]
	fsw     *fsnotify.Watcher

	mu     sync.Mutex
	timer  *time.Timer
	target string // path with symlinks resolved at the last load
	wg     sync.WaitGroup
}

// NewWatcher loads the policy at path and prepares to watch it. onReload,
// when non-nil, is called with each successfully reloaded policy.
func NewWatcher(path string, logger *slog.Logger, onReload func(*Policy)) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve policy path: %w", err)
	}
	p, err := Load(abs)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create policy watcher: %w", err)
	}
	// Watch the directory: editors and config management replace the file
	// rather than writing it in place.
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	w := &Watcher{
		path:     abs,
		logger:   logger,
		onReload: onReload,
		debounce: defaultDebounce,
		fsw:      fsw,
		target:   resolve(abs),
	}
	w.current.Store(p)
	return w, nil
}

// Current returns the policy in effect.
func (w *Watcher) Current() *Policy {
	return w.current.Load()
}

// Start processes file events until ctx is cancelled or Close is called.
func (w *Watcher) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if w.changed(event) {
				w.schedule()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("policy watcher error", "path", w.path, "error", err)
		}
	}
}

// resolve follows symlinks in path. It returns "" when the path cannot be
// resolved, for example between the removal and re-creation of a link.
func resolve(path string) string {
	target, err := filepath.EvalSymlinks(path)
	if err != nil {
		return ""
	}
	return target
}

// changed reports whether event may have changed the policy file. Writes to
// the file itself count, and so does any event in the directory that moves
// the file's resolved target. Kubernetes ConfigMap volumes update by
// swapping a ..data symlink and never touch the file name itself.
func (w *Watcher) changed(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) == w.path {
		return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
	}
	target := resolve(w.path)
	w.mu.Lock()
	defer w.mu.Unlock()
	return target != "" && target != w.target
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	target := resolve(w.path)
	p, err := Load(w.path)
	if err != nil {
		w.logger.Error("policy reload failed, keeping previous policy",
			"path", w.path, "version", w.Current().Version, "error", err)
		return
	}
	w.mu.Lock()
	w.target = target
	w.mu.Unlock()
	w.current.Store(p)
	w.logger.Info("policy reloaded", "path", w.path, "version", p.Version)
	if w.onReload != nil {
		w.onReload(p)
	}
}

// Close stops watching. The last loaded policy remains available.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	err := w.fsw.Close()
	w.wg.Wait()
	return err
}
