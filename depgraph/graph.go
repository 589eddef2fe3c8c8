// Package depgraph tracks which cached computations ("nodes") depend on which
// invalidation sources ("dependency keys") and answers, on every change, which
// nodes are now stale.
//
// Each dependency key is backed by a reactive signal. Each node owns an effect
// that reads the signals of its dependency keys, so writing or touching a
// signal synchronously flips the dirty flag of every subscribed node. Keys of
// the form file:<path>, dir:<path> and <prefix>:<file|dir>:<path>:<tag> are
// also indexed by path, which lets a single filesystem change be mapped to the
// keys it invalidates.
//
// A Graph is not safe for concurrent use. Every method runs to completion
// without blocking.
package depgraph

import (
	"log/slog"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/souporserious/renoun-depgraph/pathtrie"
	"github.com/souporserious/renoun-depgraph/reactive"
)

// version is the value held by a dependency signal. The zero value means no
// version has been recorded.
type version struct {
	value string
	set   bool
}

type nodeRecord struct {
	stop  func()
	dirty *reactive.WriteableSignal[bool]
	deps  []string
}

type Graph struct {
	rs *reactive.ReactiveSystem

	signals        map[string]*reactive.WriteableSignal[version]
	nodes          map[string]*nodeRecord
	dependents     map[string]mapset.Set[string]
	refCounts      map[string]int
	indexed        map[string]Key
	pendingCleanup mapset.Set[string]
	dirty          mapset.Set[string]

	// propagated holds the nodes that already touched node:<key> during the
	// outermost write in progress. writeDepth counts nested writes.
	propagated mapset.Set[string]
	writeDepth int

	files *pathtrie.Trie
	dirs  *pathtrie.Trie

	sweepThreshold int
	logger         *slog.Logger
	observer       Observer
}

func New(opts ...Option) *Graph {
	g := &Graph{
		sweepThreshold: DefaultSweepThreshold,
		logger:         discardLogger(),
		observer:       NopObserver{},
	}
	for _, opt := range opts {
		opt(g)
	}
	g.rs = reactive.CreateReactiveSystem(func(from reactive.SignalAware, err error) {
		g.logger.Error("node effect failed", slog.Any("error", err))
	})
	g.reset()
	return g
}

func (g *Graph) reset() {
	g.signals = map[string]*reactive.WriteableSignal[version]{}
	g.nodes = map[string]*nodeRecord{}
	g.dependents = map[string]mapset.Set[string]{}
	g.refCounts = map[string]int{}
	g.indexed = map[string]Key{}
	g.pendingCleanup = mapset.NewThreadUnsafeSet[string]()
	g.dirty = mapset.NewThreadUnsafeSet[string]()
	g.propagated = mapset.NewThreadUnsafeSet[string]()
	g.files = pathtrie.New()
	g.dirs = pathtrie.New()
}

// Clear stops every node and drops all state.
func (g *Graph) Clear() {
	for _, rec := range g.nodes {
		rec.stop()
	}
	g.reset()
	g.logger.Debug("graph cleared")
}

type Stats struct {
	Nodes          int
	DirtyNodes     int
	Signals        int
	ReferencedKeys int
	PendingCleanup int
	FileEntries    int
	DirEntries     int
}

func (g *Graph) Stats() Stats {
	return Stats{
		Nodes:          len(g.nodes),
		DirtyNodes:     g.dirty.Cardinality(),
		Signals:        len(g.signals),
		ReferencedKeys: len(g.refCounts),
		PendingCleanup: g.pendingCleanup.Cardinality(),
		FileEntries:    g.files.Len(),
		DirEntries:     g.dirs.Len(),
	}
}

func sortedSet(s mapset.Set[string]) []string {
	out := s.ToSlice()
	sort.Strings(out)
	return out
}

func filterPrefix(keys []string, prefix string) []string {
	if prefix == "" {
		return keys
	}
	out := keys[:0]
	for _, k := range keys {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out
}
