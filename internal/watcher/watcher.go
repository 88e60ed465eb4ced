// Package watcher ingests files dropped into a per-client inbox directory.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/hyperjump/lexsy/internal/fileid"
)

const defaultDebounce = 400 * time.Millisecond

// Handler ingests the file at path for clientID.
type Handler func(ctx context.Context, clientID int64, path string) error

// Inbox watches root/<client_id>/... and hands new or changed files with an
// accepted extension to a Handler. Removals are ignored.
type Inbox struct {
	root        string
	extensions  []string
	handle      Handler
	debounce    time.Duration
	watcher     *fsnotify.Watcher
	ctx         context.Context
	mu          sync.Mutex
	debounceMap map[string]*time.Timer
	seen        map[string]string // path -> fingerprint
	done        chan struct{}
	started     bool
	stopOnce    sync.Once
	logger      *zap.Logger
}

// Option configures an Inbox.
type Option func(*Inbox)

// WithLogger sets a logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Inbox) { w.logger = l }
}

// WithDebounce sets how long a file must stay quiet before it is handled.
func WithDebounce(d time.Duration) Option {
	return func(w *Inbox) { w.debounce = d }
}

// NewInbox creates an inbox watcher over root. extensions filter which
// files are handled (empty = all).
func NewInbox(root string, extensions []string, handle Handler, opts ...Option) *Inbox {
	w := &Inbox{
		root:        filepath.Clean(root),
		extensions:  extensions,
		handle:      handle,
		debounce:    defaultDebounce,
		debounceMap: make(map[string]*time.Timer),
		seen:        make(map[string]string),
		done:        make(chan struct{}),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start watches the inbox until ctx is cancelled or Stop is called. The
// root is created when missing. Files already present are handled once.
func (w *Inbox) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	if err := os.MkdirAll(w.root, 0o755); err != nil {
		w.mu.Unlock()
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.watcher = watcher
	w.ctx = ctx
	w.started = true
	if err := w.addTreeLocked(w.root); err != nil {
		_ = w.watcher.Close()
		w.watcher = nil
		w.started = false
		w.mu.Unlock()
		return err
	}
	w.mu.Unlock()
	w.logger.Info("inbox watching", zap.String("root", w.root), zap.Strings("extensions", w.extensions))

	go w.run(ctx, watcher)
	go w.syncDirectory(w.root)
	return nil
}

func (w *Inbox) run(ctx context.Context, watcher *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Debug("inbox watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Inbox) handleEvent(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}
	info, err := os.Stat(ev.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		w.handleNewDirectory(ev.Name)
		return
	}
	if w.accepts(ev.Name) {
		w.debounceHandle(ev.Name)
	}
}

// handleNewDirectory watches a directory created or moved into the inbox
// and handles the files already inside it.
func (w *Inbox) handleNewDirectory(dir string) {
	w.mu.Lock()
	if w.watcher == nil {
		w.mu.Unlock()
		return
	}
	if err := w.addTreeLocked(dir); err != nil {
		w.logger.Debug("inbox failed to watch directory", zap.String("path", dir), zap.Error(err))
	}
	w.mu.Unlock()
	w.syncDirectory(dir)
}

func (w *Inbox) addTreeLocked(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
}

// syncDirectory queues the accepted files under dir. They go through the
// same debounce as events so a file still being copied is handled once.
func (w *Inbox) syncDirectory(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if w.accepts(path) {
			w.debounceHandle(path)
		}
		return nil
	})
}

// accepts reports whether path has an accepted extension and sits under a
// client directory.
func (w *Inbox) accepts(path string) bool {
	if !matchExtension(path, w.extensions) {
		return false
	}
	_, ok := ClientID(w.root, path)
	return ok
}

// ClientID returns the client a file under root belongs to: the first
// path element below root, which must be a non-negative integer.
func ClientID(root, path string) (int64, bool) {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return 0, false
	}
	first, rest, found := strings.Cut(rel, string(filepath.Separator))
	if !found || rest == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(first, 10, 64)
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}

func matchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}

func (w *Inbox) debounceHandle(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
	}
	w.debounceMap[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.debounceMap, path)
		w.mu.Unlock()
		w.process(path)
	})
}

// process hands path to the handler unless the same version of the file
// was handled before. Failed files are not retried until they change.
func (w *Inbox) process(path string) {
	clientID, ok := ClientID(w.root, path)
	if !ok {
		return
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return
	}
	fp := fileid.Fingerprint(path, info)

	w.mu.Lock()
	if w.seen[path] == fp {
		w.mu.Unlock()
		w.logger.Debug("inbox skipping unchanged file", zap.String("path", path))
		return
	}
	w.seen[path] = fp
	ctx := w.ctx
	w.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := w.handle(ctx, clientID, path); err != nil {
		w.logger.Warn("inbox file ingestion failed",
			zap.Int64("client_id", clientID), zap.String("path", path), zap.Error(err))
		return
	}
	w.logger.Info("inbox file ingested", zap.Int64("client_id", clientID), zap.String("path", path))
}

// Stop stops the watcher and releases resources.
func (w *Inbox) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	for path, t := range w.debounceMap {
		t.Stop()
		delete(w.debounceMap, path)
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
