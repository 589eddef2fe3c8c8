// Package pathtrie indexes string keys by filesystem path so that keys
// registered at a path, its ancestors, or its descendants can be found
// without scanning every key.
package pathtrie

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
)

type node struct {
	keys     mapset.Set[string]
	children map[string]*node
}

func newNode() *node {
	return &node{
		keys:     mapset.NewThreadUnsafeSet[string](),
		children: map[string]*node{},
	}
}

func (n *node) empty() bool {
	return n.keys.Cardinality() == 0 && len(n.children) == 0
}

// Trie maps paths to sets of keys. It is not safe for concurrent use.
type Trie struct {
	root *node
	size int
}

func New() *Trie {
	return &Trie{root: newNode()}
}

// Len returns the number of (path, key) entries.
func (t *Trie) Len() int {
	return t.size
}

func (t *Trie) Empty() bool {
	return t.size == 0
}

// Insert adds key at p, creating intermediate nodes. It reports whether the
// key was not already present there.
func (t *Trie) Insert(p, key string) bool {
	n := t.root
	for _, segment := range Segments(p) {
		child, ok := n.children[segment]
		if !ok {
			child = newNode()
			n.children[segment] = child
		}
		n = child
	}
	if !n.keys.Add(key) {
		return false
	}
	t.size++
	return true
}

// Remove deletes key from p and prunes branches left with no keys and no
// children. It reports whether the key was present.
func (t *Trie) Remove(p, key string) bool {
	segments := Segments(p)
	chain := make([]*node, 0, len(segments)+1)
	n := t.root
	chain = append(chain, n)
	for _, segment := range segments {
		child, ok := n.children[segment]
		if !ok {
			return false
		}
		n = child
		chain = append(chain, n)
	}
	if !n.keys.Contains(key) {
		return false
	}
	n.keys.Remove(key)
	t.size--

	for i := len(chain) - 1; i > 0; i-- {
		if !chain[i].empty() {
			break
		}
		delete(chain[i-1].children, segments[i-1])
	}
	return true
}

func (t *Trie) find(p string) *node {
	n := t.root
	for _, segment := range Segments(p) {
		child, ok := n.children[segment]
		if !ok {
			return nil
		}
		n = child
	}
	return n
}

// Exact returns the keys registered exactly at p, sorted.
func (t *Trie) Exact(p string) []string {
	n := t.find(p)
	if n == nil {
		return nil
	}
	return sorted(n.keys.ToSlice())
}

// Ancestors returns the keys registered at p or any ancestor of p, up to and
// including the root, sorted. p itself does not need to exist in the trie.
func (t *Trie) Ancestors(p string) []string {
	var out []string
	n := t.root
	out = append(out, n.keys.ToSlice()...)
	for _, segment := range Segments(p) {
		child, ok := n.children[segment]
		if !ok {
			break
		}
		n = child
		out = append(out, n.keys.ToSlice()...)
	}
	return sorted(out)
}

// Descendants returns the keys registered strictly below p, sorted.
func (t *Trie) Descendants(p string) []string {
	start := t.find(p)
	if start == nil {
		return nil
	}
	var out []string
	stack := make([]*node, 0, len(start.children))
	for _, child := range start.children {
		stack = append(stack, child)
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, n.keys.ToSlice()...)
		for _, child := range n.children {
			stack = append(stack, child)
		}
	}
	return sorted(out)
}

func sorted(keys []string) []string {
	if len(keys) == 0 {
		return nil
	}
	sort.Strings(keys)
	return keys
}
