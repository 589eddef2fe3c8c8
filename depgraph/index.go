package depgraph

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/souporserious/renoun-depgraph/pathtrie"
)

// attach records the edge nodeKey -> key.
func (g *Graph) attach(nodeKey, key string) {
	g.incrementDependencyRefCount(key)
	bucket, ok := g.dependents[key]
	if !ok {
		bucket = mapset.NewThreadUnsafeSet[string]()
		g.dependents[key] = bucket
	}
	bucket.Add(nodeKey)
}

func (g *Graph) detachAll(nodeKey string, keys []string) {
	for _, key := range keys {
		if bucket, ok := g.dependents[key]; ok {
			bucket.Remove(nodeKey)
			if bucket.Cardinality() == 0 {
				delete(g.dependents, key)
			}
		}
		g.decrementDependencyRefCount(key)
	}
}

func (g *Graph) incrementDependencyRefCount(key string) {
	count := g.refCounts[key]
	if count == 0 {
		g.indexPathDependency(key)
	}
	g.refCounts[key] = count + 1
	g.pendingCleanup.Remove(key)
}

// decrementDependencyRefCount drops one reference. At zero the key leaves the
// path index and its signal becomes eligible for the next sweep.
func (g *Graph) decrementDependencyRefCount(key string) {
	count, ok := g.refCounts[key]
	if !ok {
		return
	}
	if count > 1 {
		g.refCounts[key] = count - 1
		return
	}
	delete(g.refCounts, key)
	g.unindexPathDependency(key)
	g.pendingCleanup.Add(key)
}

// HasDependencyReferences reports whether any node currently depends on key.
func (g *Graph) HasDependencyReferences(key string) bool {
	return g.refCounts[key] > 0
}

// DependencyReferenceCount returns the number of nodes depending on key.
func (g *Graph) DependencyReferenceCount(key string) int {
	return g.refCounts[key]
}

// DependentNodeKeys returns the nodes depending directly on key, sorted.
func (g *Graph) DependentNodeKeys(key string) []string {
	bucket, ok := g.dependents[key]
	if !ok {
		return nil
	}
	return sortedSet(bucket)
}

func (g *Graph) trie(kind PathKind) *pathtrie.Trie {
	if kind == PathDir {
		return g.dirs
	}
	return g.files
}

func (g *Graph) indexPathDependency(key string) {
	parsed := ParseKey(key)
	kind, path, ok := parsed.PathKind()
	if !ok {
		return
	}
	g.trie(kind).Insert(path, key)
	g.indexed[key] = parsed
}

func (g *Graph) unindexPathDependency(key string) {
	parsed, ok := g.indexed[key]
	if !ok {
		return
	}
	delete(g.indexed, key)
	kind, path, _ := parsed.PathKind()
	g.trie(kind).Remove(path, key)
}
