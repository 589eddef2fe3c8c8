// Package script replays a declarative list of graph operations, written in
// YAML, against a dependency graph.
//
//	steps:
//	  - op: register
//	    node: n1
//	    deps: [dir:src]
//	  - op: touch-path
//	    path: src/x.ts
//	    expect: [n1]
package script

import (
	"os"
	"slices"
	"strconv"
	"strings"

	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownOp         = zerr.New("unknown op")
	ErrMissingField      = zerr.New("missing required field")
	ErrExpectationFailed = zerr.New("expectation failed")
)

type Op string

const (
	OpRegister    Op = "register"
	OpUnregister  Op = "unregister"
	OpSetVersion  Op = "set-version"
	OpTouch       Op = "touch"
	OpTouchPath   Op = "touch-path"
	OpAffected    Op = "affected"
	OpKeys        Op = "keys"
	OpMarkDirty   Op = "mark-dirty"
	OpMarkVersion Op = "mark-version"
	OpDirty       Op = "dirty"
	OpSweep       Op = "sweep"
	OpSignals     Op = "signals"
	OpClear       Op = "clear"
)

// required lists the fields each op cannot run without.
var required = map[Op][]string{
	OpRegister:    {"node"},
	OpUnregister:  {"node"},
	OpSetVersion:  {"key", "version"},
	OpTouch:       {"key"},
	OpTouchPath:   {"path"},
	OpAffected:    {"path"},
	OpKeys:        {"path"},
	OpMarkDirty:   {"node"},
	OpMarkVersion: {"node", "version"},
	OpDirty:       nil,
	OpSweep:       nil,
	OpSignals:     nil,
	OpClear:       nil,
}

type Step struct {
	Op      Op       `yaml:"op"`
	Node    string   `yaml:"node,omitempty"`
	Deps    []string `yaml:"deps,omitempty"`
	Key     string   `yaml:"key,omitempty"`
	Version string   `yaml:"version,omitempty"`
	Path    string   `yaml:"path,omitempty"`
	Prefix  string   `yaml:"prefix,omitempty"`

	// Expect is compared with the sorted keys a step returns.
	Expect *[]string `yaml:"expect,omitempty"`
	// ExpectCount is compared with the count a sweep or signals step returns.
	ExpectCount *int `yaml:"expect_count,omitempty"`
}

// Target is the key, node, path or prefix the step acts on.
func (s Step) Target() string {
	switch {
	case s.Node != "":
		return s.Node
	case s.Key != "":
		return s.Key
	case s.Path != "":
		return s.Path
	default:
		return s.Prefix
	}
}

func (s Step) field(name string) string {
	switch name {
	case "node":
		return s.Node
	case "key":
		return s.Key
	case "version":
		return s.Version
	case "path":
		return s.Path
	}
	return ""
}

type Script struct {
	Steps []Step `yaml:"steps"`
}

// Parse decodes and validates a script.
func Parse(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, zerr.Wrap(err, "decode script")
	}
	for i, step := range s.Steps {
		fields, ok := required[step.Op]
		if !ok {
			return nil, zerr.With(zerr.With(zerr.Wrap(ErrUnknownOp, "invalid step"), "step", i), "op", string(step.Op))
		}
		for _, name := range fields {
			if step.field(name) == "" {
				return nil, zerr.With(zerr.With(zerr.Wrap(ErrMissingField, "invalid step"), "step", i), "field", name)
			}
		}
	}
	return &s, nil
}

func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "read script"), "path", path)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, zerr.With(err, "path", path)
	}
	return s, nil
}

// Result is the outcome of one step.
type Result struct {
	Index  int
	Op     Op
	Target string
	// Keys holds node or dependency keys for query and touch steps.
	Keys []string
	// Count holds the number returned by sweep, signals and touch steps.
	Count int
}

func (r Result) String() string {
	switch r.Op {
	case OpSweep, OpSignals:
		return strconv.Itoa(r.Count)
	case OpTouch, OpTouchPath, OpAffected, OpKeys, OpDirty:
		if len(r.Keys) == 0 {
			return "-"
		}
		return strings.Join(r.Keys, ", ")
	}
	return "ok"
}

func checkExpectations(i int, step Step, res Result) error {
	if step.Expect != nil {
		want := slices.Clone(*step.Expect)
		slices.Sort(want)
		got := res.Keys
		if !slices.Equal(want, got) {
			err := zerr.With(zerr.Wrap(ErrExpectationFailed, "unexpected keys"), "step", i)
			err = zerr.With(err, "want", want)
			return zerr.With(err, "got", got)
		}
	}
	if step.ExpectCount != nil && *step.ExpectCount != res.Count {
		err := zerr.With(zerr.Wrap(ErrExpectationFailed, "unexpected count"), "step", i)
		err = zerr.With(err, "want", *step.ExpectCount)
		return zerr.With(err, "got", res.Count)
	}
	return nil
}
