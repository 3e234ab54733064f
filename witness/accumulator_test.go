package witness

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEntryAccumulatorExpand(t *testing.T) {
	acc := NewEntryAccumulator("values", 10, -1)
	acc.Push(0, 0)
	acc.Push(9, 9)
	acc.Push(10, 10)
	acc.Push(25, 25)
	require.Equal(t, 25, acc.Last())
	// boundary i sees the last sample strictly before cycle 10*i
	require.Equal(t, []int{-1, 9, 10, 25, 25}, acc.Expand(5))
	require.Panics(t, func() { acc.Push(24, 24) })
	require.Equal(t, "values", acc.Name())
}

func TestEntryAccumulatorEmpty(t *testing.T) {
	acc := NewEntryAccumulator("empty", 4, 7)
	require.Equal(t, 7, acc.Last())
	require.Equal(t, []int{7, 7, 7}, acc.Expand(3))
}

func TestPerCircuitAccumulator(t *testing.T) {
	acc := NewPerCircuitAccumulator[string]("names", 4)
	acc.Push(1, "a")
	acc.Push(3, "b")
	acc.Push(9, "c")
	buckets := acc.Expand(4)
	require.Len(t, buckets, 4)
	require.Equal(t, []CycleValue[string]{{1, "a"}, {3, "b"}}, buckets[0])
	require.Empty(t, buckets[1])
	require.Equal(t, []CycleValue[string]{{9, "c"}}, buckets[2])
	require.Empty(t, buckets[3])

	require.PanicsWithValue(t, "names: 3 circuits worth of samples, expected at most 2", func() { acc.Expand(2) })
	require.Panics(t, func() { acc.Push(8, "d") })
}
