package shape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shapegraph/pkg/config"
	"shapegraph/pkg/errors"
	"shapegraph/pkg/ident"
)

func newTestEngine(t *testing.T, tweak ...func(*config.Config)) *Engine {
	t.Helper()
	cfg := config.Default()
	for _, f := range tweak {
		f(&cfg)
	}
	e, err := NewEngine(cfg, ident.NewTable(), nil)
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

// requirePrecondition runs fn and expects it to panic with a
// PreconditionError raised by op.
func requirePrecondition(t *testing.T, op string, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected %s to panic", op)
		perr, ok := r.(*errors.PreconditionError)
		require.True(t, ok, "expected *errors.PreconditionError, got %T", r)
		assert.Equal(t, op, perr.Op)
	}()
	fn()
}

func build(t *testing.T, from *Shape, names ...string) *Shape {
	t.Helper()
	s := from
	for _, n := range names {
		s, _ = s.AddMember(s.Engine().Idents().Intern(n), DefaultData)
	}
	return s
}

func memberNames(s *Shape) []string {
	out := []string{}
	for _, m := range s.Members() {
		out = append(out, s.Engine().Idents().Name(m.Name))
	}
	return out
}

type recordingMarker struct {
	marked map[ObjectRef]int
}

func newRecordingMarker() *recordingMarker {
	return &recordingMarker{marked: make(map[ObjectRef]int)}
}

func (m *recordingMarker) MarkObject(ref ObjectRef) { m.marked[ref]++ }

func (m *recordingMarker) set() map[ObjectRef]bool {
	out := make(map[ObjectRef]bool, len(m.marked))
	for k := range m.marked {
		out[k] = true
	}
	return out
}
