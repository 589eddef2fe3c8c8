package depgraph_test

import (
	"fmt"
	"testing"

	"github.com/souporserious/renoun-depgraph/depgraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathDependencyKeys(t *testing.T) {
	g := depgraph.New()
	g.RegisterNode("a", []string{"file:src/a.ts", "dir:src"})
	g.RegisterNode("b", []string{"file:src/nested/b.ts", "dir:src/nested"})
	g.RegisterNode("readme", []string{"file:docs/readme.md", "dir:docs"})

	assert.Equal(t,
		[]string{"dir:src", "file:src/a.ts"},
		g.GetPathDependencyKeys("src/a.ts"),
	)
	assert.Equal(t,
		[]string{"dir:src", "dir:src/nested", "file:src/a.ts", "file:src/nested/b.ts"},
		g.GetPathDependencyKeys("src"),
	)
	assert.Equal(t,
		[]string{"dir:docs", "file:docs/readme.md"},
		g.GetPathDependencyKeys("./docs/readme.md"),
	)
	assert.Empty(t, g.GetPathDependencyKeys("other/file.ts"))
}

func TestRefCountAndSweep(t *testing.T) {
	g := depgraph.New()
	before := g.GetDependencySignalCount()

	g.RegisterNode("n", []string{"file:src/a.ts"})
	assert.Equal(t, before+1, g.GetDependencySignalCount())
	assert.True(t, g.HasDependencyReferences("file:src/a.ts"))

	g.UnregisterNode("n")
	assert.False(t, g.HasDependencyReferences("file:src/a.ts"))
	assert.Equal(t, before+1, g.GetDependencySignalCount())
	assert.Empty(t, g.GetPathDependencyKeys("src/a.ts"))
	assert.Equal(t, 1, g.Stats().PendingCleanup)

	assert.Equal(t, 1, g.SweepUnreferencedDependencySignals())
	assert.Equal(t, before, g.GetDependencySignalCount())
	assert.Equal(t, 0, g.SweepUnreferencedDependencySignals())
}

func TestSharedDependencyRefCount(t *testing.T) {
	g := depgraph.New()
	g.RegisterNode("n1", []string{"file:a", "file:b"})
	g.RegisterNode("n2", []string{"file:a"})

	assert.Equal(t, 2, g.DependencyReferenceCount("file:a"))
	assert.Equal(t, []string{"n1", "n2"}, g.DependentNodeKeys("file:a"))

	g.UnregisterNode("n1")
	assert.Equal(t, 1, g.DependencyReferenceCount("file:a"))
	assert.Equal(t, []string{"n2"}, g.DependentNodeKeys("file:a"))
	assert.Nil(t, g.DependentNodeKeys("file:b"))
	assert.Equal(t, []string{"file:a"}, g.GetPathDependencyKeys("a"))

	// only file:b became unreferenced
	assert.Equal(t, 1, g.SweepUnreferencedDependencySignals())
	assert.Equal(t, 1, g.GetDependencySignalCount())
}

func TestReregisterCancelsPendingCleanup(t *testing.T) {
	g := depgraph.New()
	g.RegisterNode("n", []string{"file:a"})
	g.SetDependencyVersion("file:a", "v1")
	g.UnregisterNode("n")
	g.RegisterNode("n", []string{"file:a"})

	assert.Equal(t, 0, g.SweepUnreferencedDependencySignals())
	v, ok := g.DependencyVersion("file:a")
	assert.True(t, ok)
	assert.Equal(t, "v1", v)
}

func TestIdempotentRegistration(t *testing.T) {
	g := depgraph.New()
	deps := []string{"file:src/a.ts", "dir:src", "file:src/a.ts"}

	g.RegisterNode("n", deps)
	first := g.Stats()
	g.RegisterNode("n", deps)
	second := g.Stats()

	assert.Equal(t, first, second)
	assert.Equal(t, 1, second.Nodes)
	assert.Equal(t, 2, second.Signals)
	assert.Equal(t, 0, second.PendingCleanup)
	assert.Equal(t, 1, g.DependencyReferenceCount("file:src/a.ts"))
	assert.Equal(t, 1, g.DependencyReferenceCount("dir:src"))
	assert.Equal(t, []string{"n"}, g.DependentNodeKeys("dir:src"))
	assert.Equal(t, []string{"dir:src", "file:src/a.ts"}, g.NodeDependencies("n"))
	assert.Equal(t, []string{"dir:src", "file:src/a.ts"}, g.GetPathDependencyKeys("src/a.ts"))

	// the replaced effect must not linger as a second subscriber
	assert.Equal(t, []string{"n"}, g.TouchPathDependencies("src/a.ts"))
}

func TestReregistrationReplacesDependencies(t *testing.T) {
	g := depgraph.New()
	g.RegisterNode("n", []string{"file:old.ts"})
	g.RegisterNode("n", []string{"file:new.ts"})

	assert.False(t, g.HasDependencyReferences("file:old.ts"))
	assert.Empty(t, g.TouchPathDependencies("old.ts"))
	assert.False(t, g.IsNodeDirty("n"))

	assert.Equal(t, []string{"n"}, g.TouchPathDependencies("new.ts"))
	assert.True(t, g.IsNodeDirty("n"))
}

func TestReregistrationResetsDirty(t *testing.T) {
	g := depgraph.New()
	g.RegisterNode("n", []string{"file:a"})
	g.TouchDependency("file:a")
	require.True(t, g.IsNodeDirty("n"))

	g.RegisterNode("n", []string{"file:a"})
	assert.False(t, g.IsNodeDirty("n"))
	assert.Empty(t, g.GetDirtyNodeKeys(""))
}

func TestDirtyPropagation(t *testing.T) {
	g := depgraph.New()
	g.RegisterNode("N", []string{"file:a"})
	assert.False(t, g.IsNodeDirty("N"))

	g.SetDependencyVersion("file:a", "v2")
	assert.True(t, g.IsNodeDirty("N"))

	g.ClearDirty("N")
	assert.False(t, g.IsNodeDirty("N"))

	g.SetDependencyVersion("file:a", "v2")
	assert.False(t, g.IsNodeDirty("N"))

	g.SetDependencyVersion("file:a", "v3")
	assert.True(t, g.IsNodeDirty("N"))
}

func TestTouchDependencyForcesNotify(t *testing.T) {
	g := depgraph.New()
	g.RegisterNode("N", []string{"dir:src"})
	g.SetDependencyVersion("dir:src", "v1")
	g.ClearDirty("N")

	g.TouchDependency("dir:src")
	assert.True(t, g.IsNodeDirty("N"))
	v, _ := g.DependencyVersion("dir:src")
	assert.Equal(t, "v1", v)
}

func TestTouchUnknownDependencyIsNoop(t *testing.T) {
	g := depgraph.New()
	g.TouchDependency("file:nobody")
	assert.Equal(t, 0, g.GetDependencySignalCount())
	g.MarkNodeDirty("ghost")
	assert.False(t, g.IsNodeDirty("ghost"))
	assert.Empty(t, g.GetDirtyNodeKeys(""))
}

func TestUnknownNodeReads(t *testing.T) {
	g := depgraph.New()
	g.UnregisterNode("ghost")
	assert.False(t, g.HasNode("ghost"))
	assert.False(t, g.IsNodeDirty("ghost"))
	assert.Nil(t, g.NodeDependencies("ghost"))
	g.ClearDirty("ghost")
	_, ok := g.DependencyVersion("file:ghost")
	assert.False(t, ok)
}

func TestUnregisterStopsNode(t *testing.T) {
	g := depgraph.New()
	g.RegisterNode("a", []string{"file:x"})
	g.RegisterNode("b", []string{"file:x"})
	g.UnregisterNode("a")

	g.TouchDependency("file:x")
	assert.False(t, g.IsNodeDirty("a"))
	assert.True(t, g.IsNodeDirty("b"))
	assert.Equal(t, []string{"b"}, g.GetDirtyNodeKeys(""))
}

func TestGetDirtyNodeKeysPrefix(t *testing.T) {
	g := depgraph.New()
	for _, key := range []string{"mdx:b", "ts:c", "mdx:a"} {
		g.RegisterNode(key, []string{"file:shared.ts"})
	}
	g.RegisterNode("mdx:clean", []string{"file:other.ts"})

	g.TouchPathDependencies("shared.ts")
	assert.Equal(t, []string{"mdx:a", "mdx:b"}, g.GetDirtyNodeKeys("mdx:"))
	assert.Equal(t, []string{"mdx:a", "mdx:b", "ts:c"}, g.GetDirtyNodeKeys(""))
	assert.Empty(t, g.GetDirtyNodeKeys("js:"))
}

func TestTouchDependencies(t *testing.T) {
	g := depgraph.New()
	g.RegisterNode("fa", []string{"file:a"})
	g.RegisterNode("fb", []string{"file:b"})
	g.RegisterNode("dx", []string{"dir:x"})

	n := g.TouchDependencies(func(key string) bool {
		return depgraph.ParseKey(key).Kind == depgraph.KindFile
	})
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"fa", "fb"}, g.GetDirtyNodeKeys(""))

	assert.Equal(t, 0, g.TouchDependencies(func(string) bool { return false }))
}

func TestClear(t *testing.T) {
	g := depgraph.New()
	g.RegisterNode("a", []string{"file:src/a.ts", "node:b"})
	g.RegisterNode("b", []string{"dir:src"})
	g.TouchPathDependencies("src/a.ts")
	require.NotEmpty(t, g.GetDirtyNodeKeys(""))

	g.Clear()
	assert.Equal(t, depgraph.Stats{}, g.Stats())
	assert.Empty(t, g.GetPathDependencyKeys("src/a.ts"))
	assert.False(t, g.HasNode("a"))

	g.RegisterNode("a", []string{"file:src/a.ts"})
	assert.Equal(t, []string{"a"}, g.TouchPathDependencies("src/a.ts"))
}

func TestSetDependencyVersionOnUnreferencedKey(t *testing.T) {
	g := depgraph.New()
	g.SetDependencyVersion("file:lonely", "v1")
	assert.Equal(t, 1, g.GetDependencySignalCount())
	assert.False(t, g.HasDependencyReferences("file:lonely"))

	assert.Equal(t, 1, g.SweepUnreferencedDependencySignals())
	assert.Equal(t, 0, g.GetDependencySignalCount())
}

func TestAutoSweepThreshold(t *testing.T) {
	g := depgraph.New(depgraph.WithSweepThreshold(3))
	for i := range 3 {
		g.RegisterNode(fmt.Sprintf("n%d", i), []string{fmt.Sprintf("file:%d", i)})
	}
	require.Equal(t, 3, g.GetDependencySignalCount())

	g.UnregisterNode("n0")
	g.UnregisterNode("n1")
	assert.Equal(t, 3, g.GetDependencySignalCount())
	assert.Equal(t, 2, g.Stats().PendingCleanup)

	g.UnregisterNode("n2")
	assert.Equal(t, 0, g.GetDependencySignalCount())
	assert.Equal(t, 0, g.Stats().PendingCleanup)
}

func TestDefaultAutoSweepThreshold(t *testing.T) {
	g := depgraph.New()
	n := depgraph.DefaultSweepThreshold
	for i := range n {
		g.RegisterNode(fmt.Sprintf("n%d", i), []string{fmt.Sprintf("file:%d", i)})
	}
	for i := range n - 1 {
		g.UnregisterNode(fmt.Sprintf("n%d", i))
	}
	assert.Equal(t, n, g.GetDependencySignalCount())

	g.UnregisterNode(fmt.Sprintf("n%d", n-1))
	assert.Equal(t, 0, g.GetDependencySignalCount())
}

func TestAutoSweepDisabled(t *testing.T) {
	g := depgraph.New(depgraph.WithSweepThreshold(0))
	g.RegisterNode("n", []string{"file:a"})
	g.UnregisterNode("n")
	assert.Equal(t, 1, g.GetDependencySignalCount())
	assert.Equal(t, 1, g.SweepUnreferencedDependencySignals())
}

func TestStats(t *testing.T) {
	g := depgraph.New()
	g.RegisterNode("a", []string{"file:src/a.ts", "dir:src", "fs:dir:src:v1", "config"})
	g.RegisterNode("b", []string{"node:a"})
	g.TouchPathDependencies("src/a.ts")

	assert.Equal(t, depgraph.Stats{
		Nodes:          2,
		DirtyNodes:     2,
		Signals:        5,
		ReferencedKeys: 5,
		PendingCleanup: 0,
		FileEntries:    1,
		DirEntries:     2,
	}, g.Stats())
}
