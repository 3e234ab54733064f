package witness

import (
	"context"
	"slices"

	"github.com/eon-protocol/eonzk/queue"
	"github.com/eon-protocol/eonzk/types"
	"golang.org/x/sync/errgroup"
)

const CANCEL_CHECK_INTERVAL = 1 << 12

// MemoryQueues holds both sides of the RAM permutation. States[k] is the
// queue right after its first k pushes.
type MemoryQueues struct {
	Unsorted       []types.MemoryQuery
	Sorted         []types.MemoryQuery
	UnsortedStates []queue.FullWidthQueueState
	SortedStates   []queue.FullWidthQueueState
}

func simulateFullWidth(ctx context.Context, items []types.MemoryQuery) ([]queue.FullWidthQueueState, error) {
	sim := queue.NewFullWidthQueueSimulator[types.MemoryQuery]()
	states := make([]queue.FullWidthQueueState, 0, len(items)+1)
	states = append(states, sim.State())
	for i := range items {
		if i%CANCEL_CHECK_INTERVAL == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		sim.Push(items[i])
		states = append(states, sim.State())
	}
	return states, nil
}

// SimulateMemoryQueues sorts the memory queries by location and timestamp
// and runs the unsorted and sorted queue simulations side by side.
func SimulateMemoryQueues(ctx context.Context, unsorted []types.MemoryQuery) (*MemoryQueues, error) {
	ret := &MemoryQueues{Unsorted: unsorted}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		states, err := simulateFullWidth(ctx, unsorted)
		ret.UnsortedStates = states
		return err
	})
	g.Go(func() error {
		sorted := slices.Clone(unsorted)
		slices.SortStableFunc(sorted, types.CompareMemoryQueries)
		states, err := simulateFullWidth(ctx, sorted)
		ret.Sorted, ret.SortedStates = sorted, states
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ret, nil
}

func (me *MemoryQueues) Len() int {
	return len(me.Unsorted)
}

func prefixState(states []queue.FullWidthQueueState, k int) queue.FullWidthQueueState {
	return queue.FullWidthQueueState{Head: states[0].Tail, Tail: states[k].Tail, Length: uint32(k)}
}

func remainingState(states []queue.FullWidthQueueState, k int) queue.FullWidthQueueState {
	n := len(states) - 1
	return queue.FullWidthQueueState{Head: states[k].Tail, Tail: states[n].Tail, Length: uint32(n - k)}
}

// UnsortedPrefix is the memory queue as seen by the circuit that pushed its
// k-th query.
func (me *MemoryQueues) UnsortedPrefix(k int) queue.FullWidthQueueState {
	return prefixState(me.UnsortedStates, k)
}

func (me *MemoryQueues) UnsortedRemaining(k int) queue.FullWidthQueueState {
	return remainingState(me.UnsortedStates, k)
}

func (me *MemoryQueues) SortedRemaining(k int) queue.FullWidthQueueState {
	return remainingState(me.SortedStates, k)
}
