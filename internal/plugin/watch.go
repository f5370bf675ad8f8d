package plugin

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce is the quiet period before a changed plugin reloads.
const DefaultDebounce = 200 * time.Millisecond

// ErrWatcherClosed is returned when using a closed watcher.
var ErrWatcherClosed = errors.New("watcher is closed")

// Watcher reloads plugins whose files change on disk.
//
// Changes are debounced per plugin. A plugin whose files are gone is
// unloaded; any other change reloads it.
type Watcher struct {
	mu sync.Mutex

	manager  *Manager
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   zerolog.Logger

	roots   []string
	pending map[string]*time.Timer
	fire    chan string

	closed   bool
	closeCh  chan struct{}
	closedWg sync.WaitGroup
}

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WithDebounce sets the quiet period before reloading.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithWatchLogger sets the watcher's logger.
func WithWatchLogger(l zerolog.Logger) WatchOption {
	return func(w *Watcher) {
		w.logger = l
	}
}

// NewWatcher starts watching the manager's search paths. Reloads run on
// the watcher's goroutine with ctx; the watcher stops when ctx is done or
// Close is called.
func NewWatcher(ctx context.Context, m *Manager, opts ...WatchOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		manager:  m,
		watcher:  fsw,
		debounce: DefaultDebounce,
		logger:   zerolog.Nop(),
		pending:  make(map[string]*time.Timer),
		fire:     make(chan string),
		closeCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	for _, root := range m.Paths() {
		abs, err := filepath.Abs(root)
		if err != nil {
			_ = fsw.Close()
			return nil, err
		}
		if err := w.watchTree(abs); err != nil {
			_ = fsw.Close()
			return nil, err
		}
		w.roots = append(w.roots, abs)
	}

	w.closedWg.Add(1)
	go w.processLoop(ctx)

	return w, nil
}

// watchTree watches root and its immediate plugin directories. A missing
// root is skipped.
func (w *Watcher) watchTree(root string) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := w.watcher.Add(root); err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			if err := w.watcher.Add(filepath.Join(root, entry.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close stops the watcher. Pending reloads are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	for name, t := range w.pending {
		t.Stop()
		delete(w.pending, name)
	}
	w.mu.Unlock()

	w.closedWg.Wait()
	return w.watcher.Close()
}

// processLoop handles fsnotify events and fired debounce timers.
func (w *Watcher) processLoop(ctx context.Context) {
	defer w.closedWg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case <-ctx.Done():
			return

		case fsEvent, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(fsEvent)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("plugin watcher error")

		case name := <-w.fire:
			w.apply(ctx, name)
		}
	}
}

// handleFSEvent maps a file change to its plugin and schedules a reload.
func (w *Watcher) handleFSEvent(ev fsnotify.Event) {
	if ev.Op == fsnotify.Chmod {
		return
	}

	root, name, top, ok := w.pluginFor(ev.Name)
	if !ok {
		return
	}

	// A new plugin directory needs its own watch.
	if top && ev.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			_ = w.watcher.Add(ev.Name)
		}
	}

	w.logger.Debug().
		Str("path", ev.Name).
		Str("op", ev.Op.String()).
		Str("plugin", name).
		Str("root", root).
		Msg("plugin file changed")
	w.schedule(name)
}

// pluginFor returns the plugin a path belongs to. top is true when the
// path is a direct child of a search root.
func (w *Watcher) pluginFor(path string) (root, name string, top, ok bool) {
	for _, r := range w.roots {
		rel, err := filepath.Rel(r, path)
		if err != nil || rel == "." || !filepath.IsLocal(rel) {
			continue
		}
		first, _, nested := strings.Cut(rel, string(filepath.Separator))
		if strings.HasPrefix(first, ".") {
			return "", "", false, false
		}
		if nested {
			return r, w.dirPluginName(filepath.Join(r, first)), false, true
		}
		switch filepath.Ext(first) {
		case ".lua":
			return r, strings.TrimSuffix(first, ".lua"), true, true
		case "":
			// a directory plugin itself was created, removed or renamed
			return r, w.dirPluginName(filepath.Join(r, first)), true, true
		default:
			return "", "", false, false
		}
	}
	return "", "", false, false
}

// dirPluginName resolves the name of a directory plugin, honoring the
// manifest name when one loads.
func (w *Watcher) dirPluginName(dir string) string {
	if m, err := LoadManifest(dir); err == nil {
		return m.Name
	}
	return filepath.Base(dir)
}

// schedule restarts the plugin's debounce timer.
func (w *Watcher) schedule(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if t, ok := w.pending[name]; ok {
		t.Stop()
	}
	w.pending[name] = time.AfterFunc(w.debounce, func() {
		select {
		case w.fire <- name:
		case <-w.closeCh:
		}
	})
}

// apply reloads or unloads a plugin once its files settle.
func (w *Watcher) apply(ctx context.Context, name string) {
	defer w.recoverHandler(name)

	w.mu.Lock()
	delete(w.pending, name)
	w.mu.Unlock()

	if !w.manager.enabled(name) {
		return
	}

	if _, err := w.manager.loader.Find(name); errors.Is(err, ErrPluginNotFound) {
		if err := w.manager.Unload(ctx, name); err == nil {
			w.logger.Info().Str("plugin", name).Msg("plugin removed, unloaded")
		}
		return
	}

	if _, err := w.manager.Reload(ctx, name); err != nil {
		w.logger.Error().Err(err).Str("plugin", name).Msg("plugin reload failed")
		return
	}
	w.logger.Info().Str("plugin", name).Msg("plugin reloaded")
}

// recoverHandler keeps the watch loop alive when a plugin handler fails
// during a reload, such as a ("reload", "plugin") handler. Other panics
// propagate.
func (w *Watcher) recoverHandler(name string) {
	r := recover()
	if r == nil {
		return
	}
	herr, ok := r.(*HandlerError)
	if !ok {
		panic(r)
	}
	w.logger.Error().Err(herr).Str("plugin", name).Msg("plugin handler failed during reload")
}
