package depgraph

import (
	"log/slog"
	"sort"

	"github.com/souporserious/renoun-depgraph/reactive"
)

// RegisterNode (re)wires nodeKey to exactly dependencyKeys and marks it clean.
// A previous registration of nodeKey is fully detached first, so calling this
// twice with the same arguments leaves the graph unchanged.
func (g *Graph) RegisterNode(nodeKey string, dependencyKeys []string) {
	if prev, ok := g.nodes[nodeKey]; ok {
		prev.stop()
		g.detachAll(nodeKey, prev.deps)
		delete(g.nodes, nodeKey)
		g.logger.Debug("node replaced", slog.String("node", nodeKey), slog.Int("previous_deps", len(prev.deps)))
	}

	deps := dedupe(dependencyKeys)
	for _, key := range deps {
		g.attach(nodeKey, key)
	}

	rec := &nodeRecord{deps: deps}
	g.rs.Untracked(func() {
		rec.dirty = reactive.Signal(g.rs, false)
	})
	g.dirty.Remove(nodeKey)

	signals := make([]*reactive.WriteableSignal[version], len(deps))
	for i, key := range deps {
		signals[i] = g.getOrCreateSignal(key)
	}

	wired := false
	rec.stop = reactive.Effect(g.rs, func() error {
		for _, s := range signals {
			s.Value()
		}
		if !wired {
			wired = true
			return nil
		}
		g.markDirty(nodeKey, rec)
		return nil
	})

	g.nodes[nodeKey] = rec
	g.observer.NodeRegistered(nodeKey, len(deps))
	g.maybeSweep()
}

// markDirty flips rec to dirty and notifies node:<key> so nodes depending on
// it follow, even when rec was dirty already. Each node propagates at most once
// per outermost write, which bounds diamonds and ends node cycles.
func (g *Graph) markDirty(nodeKey string, rec *nodeRecord) {
	g.rs.Untracked(func() {
		rec.dirty.SetValue(true)
	})
	g.dirty.Add(nodeKey)
	if !g.propagated.Add(nodeKey) {
		return
	}
	g.notify(NodeKey(nodeKey))
}

// UnregisterNode detaches nodeKey and forgets it. Unknown keys are ignored.
func (g *Graph) UnregisterNode(nodeKey string) {
	g.dirty.Remove(nodeKey)
	rec, ok := g.nodes[nodeKey]
	if !ok {
		return
	}
	rec.stop()
	g.detachAll(nodeKey, rec.deps)
	delete(g.nodes, nodeKey)
	g.observer.NodeUnregistered(nodeKey)
	g.maybeSweep()
}

func (g *Graph) HasNode(nodeKey string) bool {
	_, ok := g.nodes[nodeKey]
	return ok
}

// NodeDependencies returns the dependency keys nodeKey was last registered
// with, sorted.
func (g *Graph) NodeDependencies(nodeKey string) []string {
	rec, ok := g.nodes[nodeKey]
	if !ok {
		return nil
	}
	out := append([]string(nil), rec.deps...)
	sort.Strings(out)
	return out
}

func (g *Graph) IsNodeDirty(nodeKey string) bool {
	rec, ok := g.nodes[nodeKey]
	if !ok {
		return false
	}
	return rec.dirty.Peek()
}

// GetDirtyNodeKeys returns the dirty node keys starting with prefix, sorted.
// An empty prefix matches every node.
func (g *Graph) GetDirtyNodeKeys(prefix string) []string {
	return filterPrefix(sortedSet(g.dirty), prefix)
}

// ClearDirty marks nodeKey clean without re-registering it, for callers that
// recomputed a node whose dependency set did not change.
func (g *Graph) ClearDirty(nodeKey string) {
	g.dirty.Remove(nodeKey)
	rec, ok := g.nodes[nodeKey]
	if !ok {
		return
	}
	g.rs.Untracked(func() {
		rec.dirty.SetValue(false)
	})
}

// MarkNodeDirty dirties nodeKey and touches node:<nodeKey>, so nodes that
// depend on nodeKey's version become dirty too.
func (g *Graph) MarkNodeDirty(nodeKey string) {
	defer g.beginWrite()()

	if rec, ok := g.nodes[nodeKey]; ok {
		g.rs.Untracked(func() {
			rec.dirty.SetValue(true)
		})
		g.dirty.Add(nodeKey)
		g.propagated.Add(nodeKey)
	}
	g.TouchDependency(NodeKey(nodeKey))
}

// MarkNodeVersion records version for node:<nodeKey>.
func (g *Graph) MarkNodeVersion(nodeKey, v string) {
	g.SetDependencyVersion(NodeKey(nodeKey), v)
}

func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}
