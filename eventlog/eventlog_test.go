package eventlog

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ulysseB/Telamon/domain"
	"github.com/ulysseB/Telamon/ir"
	"github.com/ulysseB/Telamon/space"
)

var sideUniverse = domain.NewUniverse([]string{"left", "right"})

func buildSideRegistry() *space.Registry {
	r := space.NewRegistry()
	r.Register(&space.ChoiceDef{
		Name: "Side",
		Instances: func(f *ir.Function) [][]uint32 {
			out := make([][]uint32, 0, len(f.Dimensions()))
			for _, d := range f.Dimensions() {
				out = append(out, []uint32{uint32(d)})
			}
			return out
		},
		InitialDomain: func(st *space.Store, args []uint32) (domain.Value, error) {
			return sideUniverse.Full(), nil
		},
	})
	return r
}

func buildSideCandidate(t *testing.T, dims int) *space.Candidate {
	t.Helper()
	sig := ir.Signature{Name: "f", Params: []ir.Param{{Name: "n", Type: ir.Int(32, false)}}}
	f := ir.NewFunction(sig)
	for i := 0; i < dims; i++ {
		f.AddDimension(ir.Const(4))
	}
	f.Freeze()
	sp, err := space.NewSearchSpace(buildSideRegistry(), f)
	require.NoError(t, err)
	return space.NewCandidate(sp)
}

func TestWriterReaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.Append(Message{Node: &NodeMessage{ID: 1, Parent: 0, Bound: 2.5}}))
	require.NoError(t, w.Append(Message{Evaluation: &EvaluationMessage{ID: 1, Score: 42}}))
	require.NoError(t, w.Append(Message{Trace: &TraceMessage{Cause: "timeout"}}))
	require.NoError(t, w.Close())

	r, err := NewReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	msgs, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	require.Equal(t, uint64(1), msgs[0].Node.ID)
	require.Equal(t, 2.5, msgs[0].Node.Bound)
	require.Equal(t, float64(42), msgs[1].Evaluation.Score)
	require.Equal(t, "timeout", msgs[2].Trace.Cause)
}

func TestActionRecordRoundTrip(t *testing.T) {
	root := buildSideCandidate(t, 1)
	action := space.Restriction(space.NewKey("Side", 0), domain.NewEnumSet(sideUniverse, "left"))

	rec, err := EncodeAction(action)
	require.NoError(t, err)
	require.Equal(t, "Side", rec.Choice)
	require.Equal(t, []string{"left"}, rec.Value.Symbols)

	decoded, err := DecodeAction(rec, root.Space.Store())
	require.NoError(t, err)
	require.Equal(t, action.Key, decoded.Key)
	require.Equal(t, action.Value.String(), decoded.Value.String())
}

func TestRecorderInternsSharedPrefixes(t *testing.T) {
	root := buildSideCandidate(t, 2)
	var buf bytes.Buffer
	w := NewWriter(&buf)
	rec, err := NewRecorder(w, 0)
	require.NoError(t, err)

	left := func(d uint32) space.Action {
		return space.Restriction(space.NewKey("Side", d), domain.NewEnumSet(sideUniverse, "left"))
	}
	right := func(d uint32) space.Action {
		return space.Restriction(space.NewKey("Side", d), domain.NewEnumSet(sideUniverse, "right"))
	}

	a, err := root.Apply(left(0))
	require.NoError(t, err)
	aa, err := a.Apply(left(1))
	require.NoError(t, err)
	ab, err := a.Apply(right(1))
	require.NoError(t, err)

	idAA, err := rec.RecordEvaluation(aa, 10)
	require.NoError(t, err)
	idAB, err := rec.RecordEvaluation(ab, 20)
	require.NoError(t, err)
	require.NotEqual(t, idAA, idAB)
	require.NoError(t, w.Close())

	r, err := NewReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	msgs, err := r.ReadAll()
	require.NoError(t, err)

	// Root + 3 distinct nodes (shared "left(0)" prefix logged once), plus
	// 2 evaluations.
	var nodes, evals int
	for _, m := range msgs {
		if m.Node != nil {
			nodes++
		}
		if m.Evaluation != nil {
			evals++
		}
	}
	require.Equal(t, 4, nodes)
	require.Equal(t, 2, evals)
}

func TestReplayFidelity(t *testing.T) {
	root := buildSideCandidate(t, 2)
	var buf bytes.Buffer
	w := NewWriter(&buf)
	rec, err := NewRecorder(w, 0)
	require.NoError(t, err)

	c, err := root.Apply(space.Restriction(space.NewKey("Side", 0), domain.NewEnumSet(sideUniverse, "left")))
	require.NoError(t, err)
	c, err = c.Apply(space.Restriction(space.NewKey("Side", 1), domain.NewEnumSet(sideUniverse, "right")))
	require.NoError(t, err)

	id, err := rec.RecordEvaluation(c, 7)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := NewReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	msgs, err := r.ReadAll()
	require.NoError(t, err)

	rebuilt, err := Replay(msgs, id, root)
	require.NoError(t, err)
	require.Equal(t, c.Depth, rebuilt.Depth)
	for _, k := range c.Space.Store().Keys() {
		require.Equal(t,
			c.Space.Store().Get(k).String(),
			rebuilt.Space.Store().Get(k).String(),
			"replayed domain mismatch at %s", k)
	}
}
