package monitor

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRecordEvaluationTracksBest(t *testing.T) {
	m := New(Config{})
	require.True(t, m.RecordEvaluation(100, 1))
	require.False(t, m.RecordEvaluation(200, 1))
	require.True(t, m.RecordEvaluation(50, 2))

	best, ok := m.Best()
	require.True(t, ok)
	require.Equal(t, float64(50), best)
	require.Equal(t, uint64(3), m.Evaluations())
}

func TestMaxEvaluationsCancelsContext(t *testing.T) {
	m := New(Config{MaxEvaluations: 2})
	ctx, cancel := m.Context(context.Background())
	defer cancel()

	m.RecordEvaluation(100, 1)
	require.NoError(t, ctx.Err())
	m.RecordEvaluation(90, 1)

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled after evaluation budget")
	}
	require.Equal(t, CauseMaxEvaluations, m.TerminationCause())
}

func TestStopBoundCancelsContext(t *testing.T) {
	m := New(Config{StopBound: 10})
	ctx, cancel := m.Context(context.Background())
	defer cancel()

	m.RecordEvaluation(100, 1)
	require.NoError(t, ctx.Err())
	m.RecordEvaluation(5, 1)

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled after stop bound reached")
	}
	require.Equal(t, CauseStopBound, m.TerminationCause())
}

func TestTimeoutCancelsContext(t *testing.T) {
	m := New(Config{Timeout: 10 * time.Millisecond})
	ctx, cancel := m.Context(context.Background())
	defer cancel()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled after timeout")
	}
	require.Equal(t, CauseTimeout, m.TerminationCause())
}

func TestWatchLogLinesAreStructured(t *testing.T) {
	var buf bytes.Buffer
	m := New(Config{Output: &buf})
	m.RecordEvaluation(123, 4)
	m.Terminate(CauseExhausted)

	out := buf.String()
	require.Contains(t, out, `"event":"new_best"`)
	require.Contains(t, out, `"event":"termination"`)
	require.Contains(t, out, string(CauseExhausted))
	// One JSON object per line.
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		require.True(t, strings.HasPrefix(line, "{"), "line %q", line)
	}
}

func TestFirstCauseWins(t *testing.T) {
	m := New(Config{})
	m.Terminate(CauseExhausted)
	m.Terminate(CauseTimeout)
	require.Equal(t, CauseExhausted, m.TerminationCause())
}
