package script

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shapegraph/pkg/config"
	"shapegraph/pkg/errors"
	"shapegraph/pkg/ident"
	"shapegraph/pkg/object"
	"shapegraph/pkg/shape"
)

func newTestHeap(t *testing.T) *object.Heap {
	t.Helper()
	e, err := shape.NewEngine(config.Default(), ident.NewTable(), nil)
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return object.NewHeap(e, 8)
}

func runFile(t *testing.T, name string) (*Result, error) {
	t.Helper()
	doc, err := LoadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return Run(context.Background(), newTestHeap(t), doc)
}

func objectNamed(t *testing.T, r *Result, name string) *object.Object {
	t.Helper()
	for _, n := range r.Objects {
		if n.Name == name {
			return n.Object
		}
	}
	t.Fatalf("no object %q in result", name)
	return nil
}

func TestRunScenarios(t *testing.T) {
	res, err := runFile(t, "scenarios.yaml")
	require.NoError(t, err)
	assert.Equal(t, "scenarios", res.Name)
	assert.Equal(t, 16, res.Steps)
	assert.Positive(t, res.Stats.Hits)

	a := objectNamed(t, res, "a")
	assert.True(t, a.IsFrozen())
	v, _ := a.GetOwn("y")
	assert.Equal(t, 2, v.Interface())

	b := objectNamed(t, res, "b")
	assert.Equal(t, []string{"y"}, b.OwnKeys())
	greet, ok := b.Get("greet")
	require.True(t, ok)
	assert.Equal(t, "hello", greet.Interface())
	assert.Equal(t, shape.DispatchTable(5), b.Shape().DispatchTable())

	child := objectNamed(t, res, "child")
	g, ok := child.GetOwn("g")
	require.True(t, ok)
	assert.Equal(t, 7, g.Interface())
	assert.Equal(t, shape.DispatchTable(2), child.Shape().DispatchTable())
}

func TestRunRecoversPreconditions(t *testing.T) {
	res, err := runFile(t, "precondition.yaml")
	require.Error(t, err)
	var perr *errors.PreconditionError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "ChangeMember", perr.Op)
	assert.Equal(t, errors.Location{Script: "precondition", Step: 2}, perr.Loc())
	assert.Equal(t, 2, res.Steps)
}

func TestRunReportsTypeErrors(t *testing.T) {
	doc, err := Parse([]byte(`
name: frozen
objects: [{name: o}]
steps:
  - {object: o, op: freeze}
  - {object: o, op: add, name: x, value: 1}
`), "inline")
	require.NoError(t, err)

	_, err = Run(context.Background(), newTestHeap(t), doc)
	var terr *errors.TypeError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, 2, terr.Loc().Step)
}

func TestRunFailedExpectation(t *testing.T) {
	doc, err := Parse([]byte(`
objects: [{name: o}]
steps:
  - {object: o, op: add, name: x, expect: {size: 3}}
`), "expect")
	require.NoError(t, err)

	_, err = Run(context.Background(), newTestHeap(t), doc)
	var serr *errors.ScriptError
	require.ErrorAs(t, err, &serr)
	assert.Contains(t, serr.Message(), "size 1, want 3")
	assert.Equal(t, "expect", serr.Loc().Script)
}

func TestRunHonorsContext(t *testing.T) {
	doc, err := Parse([]byte(`
objects: [{name: o}]
steps:
  - {object: o, op: add, name: x}
`), "ctx")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := Run(ctx, newTestHeap(t), doc)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, res.Steps)
}

func TestParseRejectsBadDocuments(t *testing.T) {
	cases := map[string]string{
		"yaml":        "objects: [",
		"unnamed":     "objects: [{proto: x}]",
		"duplicate":   "objects: [{name: o}, {name: o}]",
		"late proto":  "objects: [{name: o, proto: p}, {name: p}]",
		"unknown obj": "objects: [{name: o}]\nsteps: [{object: q, op: seal}]",
		"unknown op":  "objects: [{name: o}]\nsteps: [{object: o, op: explode}]",
		"no name":     "objects: [{name: o}]\nsteps: [{object: o, op: add}]",
		"bad attrs":   "objects: [{name: o}]\nsteps: [{object: o, op: define, name: x, attrs: wxz}]",
		"bad proto":   "objects: [{name: o}]\nsteps: [{object: o, op: proto, proto: nope}]",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(src), name)
			var serr *errors.ScriptError
			require.ErrorAs(t, err, &serr)
		})
	}
}

func TestParseAttributes(t *testing.T) {
	for in, want := range map[string]shape.Attributes{
		"wec": shape.DefaultData,
		"-e-": shape.NewData(false, true, false),
		"":    shape.NewData(false, false, false),
		"aec": shape.NewAccessor(true, true),
		"a-c": shape.NewAccessor(false, true),
	} {
		got, err := ParseAttributes(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
		if in != "" {
			assert.Equal(t, in, got.String())
		}
	}
	_, err := ParseAttributes("awc")
	assert.Error(t, err)
}

func TestDumpFiltersMembers(t *testing.T) {
	res, err := runFile(t, "scenarios.yaml")
	require.NoError(t, err)

	var all, some bytes.Buffer
	res.Dump(&all, nil)
	res.Dump(&some, func(name string) bool { return name != "hidden" })

	assert.Contains(t, all.String(), "== scenarios (16 steps)")
	assert.Contains(t, all.String(), "hidden w--")
	assert.Contains(t, all.String(), "proto=base")
	assert.NotContains(t, some.String(), "hidden")
	assert.Contains(t, some.String(), "[0] g aec")
}
