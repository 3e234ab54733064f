package queue

import (
	"testing"

	"github.com/eon-protocol/eonzk/circuits/hasher"
	"github.com/eon-protocol/eonzk/types"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func memoryQueries(n int) []types.MemoryQuery {
	ret := make([]types.MemoryQuery, n)
	for i := range ret {
		ret[i] = types.MemoryQuery{
			Timestamp:  uint32(n - i),
			MemoryPage: 1,
			Index:      uint32(i % 3),
			RwFlag:     i == 0,
			Value:      *uint256.NewInt(uint64(i * 31)),
		}
	}
	return ret
}

func filled(n int) *QueueSimulator[types.MemoryQuery] {
	q := NewQueueSimulator[types.MemoryQuery]()
	for _, item := range memoryQueries(n) {
		q.Push(item)
	}
	return q
}

func TestPushPopInverse(t *testing.T) {
	q := filled(3)
	start := q.Tail
	items := memoryQueries(5)
	for _, item := range items {
		q.Push(item)
	}
	for range 3 {
		q.Pop()
	}
	var popped []types.MemoryQuery
	for q.NumItems > 0 {
		item, _ := q.Pop()
		popped = append(popped, item)
	}
	require.Equal(t, items, popped)
	require.Equal(t, q.Head, q.Tail)
	require.NotEqual(t, start, q.Tail)

	empty := NewQueueSimulator[types.MemoryQuery]()
	before := empty.Tail
	for _, item := range items {
		empty.Push(item)
	}
	for range items {
		empty.Pop()
	}
	require.Equal(t, empty.Head, empty.Tail)
	require.NotEqual(t, before, empty.Tail)
}

func TestPushIntermediateStates(t *testing.T) {
	q := NewQueueSimulator[types.MemoryQuery]()
	items := memoryQueries(2)
	oldTail, states := q.Push(items[0])
	require.True(t, oldTail.IsZero())
	require.Equal(t, q.Tail, states.Tail)
	require.Equal(t, uint32(1), states.NumItems)
	require.Len(t, states.RoundPairs, hasher.NumRounds(types.MEMORY_QUERY_ENCODING_WIDTH+hasher.COMMITMENT_WIDTH))

	_, states = q.Push(items[1])
	require.Equal(t, oldTail, states.Head)
	require.Equal(t, q.TailBefore(1), states.PreviousTail)
}

func TestPopEmptyPanics(t *testing.T) {
	require.Panics(t, func() { NewQueueSimulator[types.MemoryQuery]().Pop() })
}

func TestSplitMergeRoundTrip(t *testing.T) {
	for k := uint32(0); k <= 7; k++ {
		q := filled(6)
		q.Pop()
		want := *q
		wantItems := q.Items()

		first, second := q.Split(k)
		require.Equal(t, first.Tail, second.Head)
		if k >= want.NumItems {
			require.Equal(t, want.Tail, second.Head)
			require.Zero(t, second.NumItems)
		} else {
			require.Equal(t, k, first.NumItems)
		}

		merged := Merge(first, second)
		require.Equal(t, want.Head, merged.Head)
		require.Equal(t, want.Tail, merged.Tail)
		require.Equal(t, want.NumItems, merged.NumItems)
		require.Equal(t, wantItems, merged.Items())
	}
}

func TestMergeRequiresChaining(t *testing.T) {
	a := filled(2)
	b := filled(3)
	require.Panics(t, func() { Merge(a, b) })
}

func TestSplitByBoundaries(t *testing.T) {
	for _, tc := range []struct{ n, c int }{{9, 3}, {10, 3}, {1, 4}, {32, 32}, {33, 32}} {
		q := filled(tc.n)
		head, tail := q.Head, q.Tail
		subs := q.SplitBy(tc.c)
		require.Len(t, subs, (tc.n+tc.c-1)/tc.c)
		require.Equal(t, head, subs[0].Head)
		require.Equal(t, tail, subs[len(subs)-1].Tail)
		for i := range subs {
			if i+1 < len(subs) {
				require.Equal(t, subs[i].Tail, subs[i+1].Head)
				require.Equal(t, uint32(tc.c), subs[i].NumItems)
			}
		}
	}
	require.Nil(t, NewQueueSimulator[types.MemoryQuery]().SplitBy(3))
}

func TestBasicQueue(t *testing.T) {
	q := filled(10)
	full := filled(10)
	q.Pop()
	require.Equal(t, full.TailBefore(1), q.Head)

	subs := q.SplitBy(3)
	require.Len(t, subs, 3)
	for i, sub := range subs {
		require.Equal(t, uint32(3), sub.NumItems)
		require.Equal(t, full.TailBefore(1+3*i), sub.Head)
		require.Equal(t, full.TailBefore(4+3*i), sub.Tail)
	}
	require.Equal(t, full.Tail, subs[2].Tail)
}

func TestStateAfter(t *testing.T) {
	q := filled(5)
	ref := filled(5)
	for k := 0; k <= 5; k++ {
		st := ref.StateAfter(k)
		require.Equal(t, q.Head, st.Head)
		require.Equal(t, q.NumItems, st.Length)
		if k < 5 {
			q.Pop()
		}
	}
}

func TestPrefixState(t *testing.T) {
	ref := filled(4)
	q := NewQueueSimulator[types.MemoryQuery]()
	for k, item := range memoryQueries(4) {
		require.Equal(t, q.State(), ref.PrefixState(k))
		q.Push(item)
	}
	require.Equal(t, q.State(), ref.PrefixState(4))
}

func TestFullWidthQueue(t *testing.T) {
	q := NewFullWidthQueueSimulator[types.MemoryQuery]()
	for _, item := range memoryQueries(4) {
		q.Push(item)
	}
	require.Equal(t, uint32(4), q.State().Length)
	for range 4 {
		q.Pop()
	}
	require.Equal(t, q.Head, q.Tail)
	require.Panics(t, func() { q.Pop() })
}

func TestCallstackSimulator(t *testing.T) {
	cs := NewCallstackSimulator[types.MemoryQuery]()
	items := memoryQueries(3)
	var states []hasher.State
	for _, item := range items {
		states = append(states, cs.State)
		cs.Push(item)
	}
	require.Equal(t, 3, cs.Depth())
	for i := len(items) - 1; i >= 0; i-- {
		item, state, _ := cs.Pop()
		require.Equal(t, items[i], item)
		require.Equal(t, states[i], state)
	}
	require.Equal(t, hasher.InitialState(), cs.State)

	cs.Push(items[0])
	cs.State[0].SetUint64(1)
	require.Panics(t, func() { cs.Pop() })
}

func TestCloneIsIndependent(t *testing.T) {
	q := filled(4)
	c := q.Clone()
	c.SplitBy(2)
	require.Equal(t, uint32(4), q.NumItems)
	require.Equal(t, memoryQueries(4), q.Items())
	require.Equal(t, uint32(0), c.NumItems)
}
