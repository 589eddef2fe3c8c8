package depgraph

import (
	"sort"

	"github.com/souporserious/renoun-depgraph/reactive"
)

func (g *Graph) getOrCreateSignal(key string) *reactive.WriteableSignal[version] {
	if s, ok := g.signals[key]; ok {
		return s
	}
	s := reactive.Signal(g.rs, version{})
	g.signals[key] = s
	if g.refCounts[key] == 0 {
		// created for a key nothing depends on yet; reclaim it with the next sweep
		g.pendingCleanup.Add(key)
	}
	return s
}

// SetDependencyVersion records version for key. Nodes depending on key become
// dirty only if the version differs from the one last recorded.
func (g *Graph) SetDependencyVersion(key, v string) {
	defer g.beginWrite()()

	var changed bool
	g.rs.Untracked(func() {
		changed = g.getOrCreateSignal(key).SetValue(version{value: v, set: true})
	})
	if changed {
		g.observer.DependenciesTouched(1)
	}
	g.maybeSweep()
}

// DependencyVersion returns the last version recorded for key.
func (g *Graph) DependencyVersion(key string) (string, bool) {
	s, ok := g.signals[key]
	if !ok {
		return "", false
	}
	v := s.Peek()
	return v.value, v.set
}

// TouchDependency notifies everything depending on key, whether or not its
// version changed. Touching a key that has no signal is a no-op: nothing can
// be subscribed to it.
func (g *Graph) TouchDependency(key string) {
	defer g.beginWrite()()

	if g.notify(key) {
		g.observer.DependenciesTouched(1)
	}
}

// notify re-runs the effects subscribed to key. Propagation between nodes
// goes through here so the observer only counts caller-initiated touches.
func (g *Graph) notify(key string) bool {
	s, ok := g.signals[key]
	if !ok {
		return false
	}
	g.rs.Untracked(s.Notify)
	return true
}

// beginWrite opens a write to the signals and returns the func closing it.
// Leaving the outermost write forgets which nodes have propagated.
func (g *Graph) beginWrite() func() {
	g.writeDepth++
	return func() {
		g.writeDepth--
		if g.writeDepth == 0 {
			g.propagated.Clear()
		}
	}
}

// TouchDependencies touches every key with a live signal for which match
// returns true and reports how many were touched.
func (g *Graph) TouchDependencies(match func(key string) bool) int {
	var keys []string
	for key := range g.signals {
		if match(key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	g.touchAll(keys)
	return len(keys)
}

// touchAll notifies keys inside one batch so each affected node re-runs once.
func (g *Graph) touchAll(keys []string) {
	if len(keys) == 0 {
		return
	}
	defer g.beginWrite()()

	g.rs.Untracked(func() {
		g.rs.Batch(func() {
			for _, key := range keys {
				if s, ok := g.signals[key]; ok {
					s.Notify()
				}
			}
		})
	})
	g.observer.DependenciesTouched(len(keys))
}

// GetDependencySignalCount returns the number of live dependency signals,
// including unreferenced ones waiting for a sweep.
func (g *Graph) GetDependencySignalCount() int {
	return len(g.signals)
}
