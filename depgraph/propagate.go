package depgraph

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/souporserious/renoun-depgraph/pathtrie"
)

// collectMatchingPathDependencyKeys returns every indexed key a change at path
// invalidates:
//
//	file keys at path or below it
//	dir keys at path, any ancestor of path, or below it
func (g *Graph) collectMatchingPathDependencyKeys(path string) mapset.Set[string] {
	p := pathtrie.Normalize(path)
	matched := mapset.NewThreadUnsafeSet[string]()
	matched.Append(g.files.Exact(p)...)
	matched.Append(g.files.Descendants(p)...)
	matched.Append(g.dirs.Ancestors(p)...)
	matched.Append(g.dirs.Descendants(p)...)
	return matched
}

// collectAffectedNodeKeys walks dependency key -> dependent nodes -> node:<key>
// -> dependent nodes ... breadth first. Every key and node is visited once, so
// cycles through node keys terminate.
func (g *Graph) collectAffectedNodeKeys(keys []string) []string {
	visitedKeys := mapset.NewThreadUnsafeSet[string]()
	affected := mapset.NewThreadUnsafeSet[string]()
	queue := make([]string, 0, len(keys))
	for _, key := range keys {
		if visitedKeys.Add(key) {
			queue = append(queue, key)
		}
	}

	for len(queue) > 0 {
		key := queue[0]
		queue = queue[1:]
		bucket, ok := g.dependents[key]
		if !ok {
			continue
		}
		for _, nodeKey := range bucket.ToSlice() {
			if !affected.Add(nodeKey) {
				continue
			}
			next := NodeKey(nodeKey)
			if visitedKeys.Add(next) {
				queue = append(queue, next)
			}
		}
	}

	out := affected.ToSlice()
	sort.Strings(out)
	return out
}

// TouchPathDependencies touches every dependency key matched by a change at
// path and returns the sorted keys of all nodes affected, directly or through
// node:<key> dependencies.
func (g *Graph) TouchPathDependencies(path string) []string {
	keys := sortedSet(g.collectMatchingPathDependencyKeys(path))
	g.touchAll(keys)
	affected := g.collectAffectedNodeKeys(keys)
	g.observer.NodesAffected(len(affected))
	return affected
}

// GetAffectedNodeKeysForPathDependency reports what TouchPathDependencies
// would return for path without touching anything.
func (g *Graph) GetAffectedNodeKeysForPathDependency(path string) []string {
	keys := g.collectMatchingPathDependencyKeys(path).ToSlice()
	return g.collectAffectedNodeKeys(keys)
}

// GetAffectedNodeKeys returns the nodes reachable from keys, without touching
// anything.
func (g *Graph) GetAffectedNodeKeys(keys ...string) []string {
	return g.collectAffectedNodeKeys(keys)
}

// GetPathDependencyKeys returns the sorted dependency keys a change at path
// matches.
func (g *Graph) GetPathDependencyKeys(path string) []string {
	return sortedSet(g.collectMatchingPathDependencyKeys(path))
}
