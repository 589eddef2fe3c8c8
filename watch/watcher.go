// Package watch feeds filesystem changes under a root directory into a
// dependency graph.
package watch

import (
	"context"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/fsnotify/fsnotify"
	"github.com/souporserious/renoun-depgraph/depgraph"
	"github.com/souporserious/renoun-depgraph/pathtrie"
	"go.trai.ch/zerr"
)

var (
	ErrInvalidRoot    = zerr.New("watch root is not a directory")
	ErrAlreadyStarted = zerr.New("watcher already started")
)

// skipDirectories are never watched.
var skipDirectories = map[string]bool{
	".git":         true,
	".jj":          true,
	"node_modules": true,
}

const (
	DefaultDebounce      = 100 * time.Millisecond
	DefaultHashCacheSize = 4096
)

type Option func(*Watcher)

func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithOnAffected sets a callback receiving the sorted affected node keys of
// every applied batch that affected at least one node.
func WithOnAffected(fn func(nodeKeys []string)) Option {
	return func(w *Watcher) {
		w.onAffected = fn
	}
}

// WithHashCacheSize bounds how many file digests are remembered.
func WithHashCacheSize(n int) Option {
	return func(w *Watcher) {
		w.hashCacheSize = n
	}
}

// Watcher owns a graph and serializes every access to it.
type Watcher struct {
	mu    sync.Mutex
	graph *depgraph.Graph

	root          string
	debounce      time.Duration
	hashCacheSize int
	logger        *slog.Logger
	onAffected    func([]string)

	digests   *digestCache
	debouncer *Debouncer
	fsWatcher *fsnotify.Watcher
	// done is closed when the event loop of the running watcher returns.
	done chan struct{}
}

// New prepares a watcher for root. Nothing is watched until Start.
func New(graph *depgraph.Graph, root string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "resolve watch root"), "root", root)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return nil, zerr.With(zerr.Wrap(ErrInvalidRoot, "open watch root"), "root", abs)
	}

	w := &Watcher{
		graph:         graph,
		root:          abs,
		debounce:      DefaultDebounce,
		hashCacheSize: DefaultHashCacheSize,
		logger:        slog.Default().With(slog.String("component", "watch")),
	}
	for _, opt := range opts {
		opt(w)
	}

	w.digests, err = newDigestCache(w.hashCacheSize)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "create digest cache"), "size", w.hashCacheSize)
	}
	w.debouncer = NewDebouncer(w.debounce, func(paths []string) {
		w.Apply(paths)
	})
	return w, nil
}

func (w *Watcher) Root() string {
	return w.root
}

// Do runs fn with exclusive access to the graph.
func (w *Watcher) Do(fn func(g *depgraph.Graph)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(w.graph)
}

// Apply touches the graph for each root-relative path and returns the sorted
// union of affected node keys. Files whose content digest matches the last
// one seen are skipped.
func (w *Watcher) Apply(paths []string) []string {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)

	affected := mapset.NewThreadUnsafeSet[string]()
	skipped := 0

	w.mu.Lock()
	for _, p := range sorted {
		rel := pathtrie.Normalize(p)
		digest, changed := w.digests.check(filepath.Join(w.root, filepath.FromSlash(rel)), rel)
		if !changed {
			skipped++
			continue
		}
		if fileKey := depgraph.FileKey(rel); digest != "" && w.graph.HasDependencyReferences(fileKey) {
			w.graph.SetDependencyVersion(fileKey, digest)
		}
		affected.Append(w.graph.TouchPathDependencies(rel)...)
	}
	w.mu.Unlock()

	out := affected.ToSlice()
	sort.Strings(out)
	w.logger.Debug("applied changes",
		slog.Int("paths", len(sorted)),
		slog.Int("unchanged", skipped),
		slog.Int("affected", len(out)),
	)
	if len(out) > 0 && w.onAffected != nil {
		w.onAffected(out)
	}
	return out
}

// Start watches root recursively until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsWatcher != nil {
		return ErrAlreadyStarted
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return zerr.Wrap(err, "create fsnotify watcher")
	}
	for dir := range watchRecursively(w.root) {
		if err := fsWatcher.Add(dir); err != nil {
			_ = fsWatcher.Close()
			return zerr.With(zerr.Wrap(err, "watch directory"), "dir", dir)
		}
	}
	w.fsWatcher = fsWatcher
	w.done = make(chan struct{})
	w.logger.Info("watching", slog.String("root", w.root))

	go w.processEvents(ctx, fsWatcher, w.done)
	return nil
}

// Stop closes the fsnotify watcher, waits for its event loop to return and
// applies anything still pending. No callback runs after Stop returns.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	fsWatcher, done := w.fsWatcher, w.done
	w.fsWatcher, w.done = nil, nil
	w.mu.Unlock()

	var err error
	if fsWatcher != nil {
		if closeErr := fsWatcher.Close(); closeErr != nil {
			err = zerr.Wrap(closeErr, "close fsnotify watcher")
		}
		<-done
	}
	w.debouncer.Flush()
	return err
}

func watchRecursively(root string) iter.Seq[string] {
	return func(yield func(string) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil //nolint:nilerr // unreadable directories are skipped
			}
			if !d.IsDir() {
				return nil
			}
			if path != root && skipDirectories[d.Name()] {
				return fs.SkipDir
			}
			if !yield(path) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

func (w *Watcher) processEvents(ctx context.Context, fsWatcher *fsnotify.Watcher, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			rel, ok := w.relative(event.Name)
			if !ok {
				continue
			}
			w.debouncer.Add(rel)

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !skipDirectories[info.Name()] {
					for dir := range watchRecursively(event.Name) {
						_ = fsWatcher.Add(dir)
					}
				}
			}
		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file system error", slog.Any("error", err))
		}
	}
}

// relative converts an absolute event path to a root-relative slash path.
// Paths outside root or inside skipped directories are rejected.
func (w *Watcher) relative(name string) (string, bool) {
	rel, err := filepath.Rel(w.root, name)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	segments := pathtrie.Segments(rel)
	if len(segments) > 0 && segments[0] == ".." {
		return "", false
	}
	for _, segment := range segments {
		if skipDirectories[segment] {
			return "", false
		}
	}
	return pathtrie.Normalize(rel), true
}
