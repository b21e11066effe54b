package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRangeIntersect(t *testing.T) {
	tests := []struct {
		name    string
		a, b    *Range
		wantMin uint64
		wantMax uint64
		wantHas bool
	}{
		{"half-open both", HalfOpen(2), HalfOpen(5), 5, 0, false},
		{"closed narrows", Closed(1, 10), Closed(4, 6), 4, 6, true},
		{"half-open with closed", HalfOpen(3), Closed(0, 8), 3, 8, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.a.Intersect(tt.b)
			require.NoError(t, err)
			r := got.(*Range)
			require.Equal(t, tt.wantMin, r.Min)
			require.Equal(t, tt.wantHas, r.HasMax)
			if tt.wantHas {
				require.Equal(t, tt.wantMax, r.Max)
			}
		})
	}
}

func TestRangeFailedAndConstrained(t *testing.T) {
	require.True(t, Closed(5, 3).IsFailed())
	require.False(t, HalfOpen(0).IsFailed())
	require.True(t, Closed(4, 4).IsConstrained())
	require.False(t, Closed(4, 5).IsConstrained())
}

func TestRangeIs(t *testing.T) {
	r := Closed(2, 2)
	require.Equal(t, True, r.Is(2))
	require.Equal(t, False, r.Is(3))

	open := Closed(2, 5)
	require.Equal(t, Maybe, open.Is(3))
	require.Equal(t, False, open.Is(1))
}
