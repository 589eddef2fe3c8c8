package script_test

import (
	"testing"

	"github.com/souporserious/renoun-depgraph/depgraph"
	"github.com/souporserious/renoun-depgraph/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAndRun(t *testing.T) {
	s, err := script.Load("testdata/invalidation.yaml")
	require.NoError(t, err)
	require.Len(t, s.Steps, 15)

	g := depgraph.New()
	results, err := s.Run(g)
	require.NoError(t, err)
	require.Len(t, results, 15)

	touch := results[6]
	assert.Equal(t, script.OpTouchPath, touch.Op)
	assert.Equal(t, "src/x.ts", touch.Target)
	assert.Equal(t, []string{"n1", "n2", "outline"}, touch.Keys)
	assert.Equal(t, 3, touch.Count)
	assert.Equal(t, "n1, n2, outline", touch.String())

	assert.Equal(t, "2", results[11].String())
	assert.Equal(t, "ok", results[0].String())
	assert.Equal(t, "-", results[5].String())
	assert.Equal(t, depgraph.Stats{}, g.Stats())
}

func TestParseErrors(t *testing.T) {
	t.Run("unknown op", func(t *testing.T) {
		_, err := script.Parse([]byte("steps:\n  - op: explode\n"))
		assert.ErrorIs(t, err, script.ErrUnknownOp)
	})

	t.Run("missing field", func(t *testing.T) {
		_, err := script.Parse([]byte("steps:\n  - op: set-version\n    key: file:a\n"))
		assert.ErrorIs(t, err, script.ErrMissingField)
	})

	t.Run("bad yaml", func(t *testing.T) {
		_, err := script.Parse([]byte("steps: [\n"))
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := script.Load("testdata/missing.yaml")
		assert.Error(t, err)
	})
}

func TestExpectationFailureStopsRun(t *testing.T) {
	s, err := script.Parse([]byte(`
steps:
  - op: register
    node: n
    deps: [file:a.ts]
  - op: touch-path
    path: a.ts
    expect: [somebody-else]
  - op: clear
`))
	require.NoError(t, err)

	g := depgraph.New()
	results, err := s.Run(g)
	assert.ErrorIs(t, err, script.ErrExpectationFailed)
	assert.Len(t, results, 2)
	assert.True(t, g.HasNode("n"))
}

func TestExpectCountFailure(t *testing.T) {
	s, err := script.Parse([]byte(`
steps:
  - op: sweep
    expect_count: 3
`))
	require.NoError(t, err)

	_, err = s.Run(depgraph.New())
	assert.ErrorIs(t, err, script.ErrExpectationFailed)
}

func TestExpectIsOrderInsensitive(t *testing.T) {
	s, err := script.Parse([]byte(`
steps:
  - op: register
    node: b
    deps: [file:x]
  - op: register
    node: a
    deps: [node:b]
  - op: touch
    key: file:x
    expect: [b, a]
  - op: mark-version
    node: b
    version: v2
  - op: dirty
    expect: [a, b]
`))
	require.NoError(t, err)

	_, err = s.Run(depgraph.New())
	assert.NoError(t, err)
}
