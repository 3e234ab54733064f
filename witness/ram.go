package witness

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/eon-protocol/eonzk/circuits/definitions"
	"github.com/eon-protocol/eonzk/queue"
	"github.com/eon-protocol/eonzk/types"
	"github.com/holiman/uint256"
)

type RamPermutationFSM struct {
	LHS                GrandProducts
	RHS                GrandProducts
	UnsortedState      queue.FullWidthQueueState
	SortedState        queue.FullWidthQueueState
	PreviousSortingKey fr.Element
	PreviousFullKey    fr.Element
	PreviousValue      uint256.Int
	PreviousIsPointer  bool
}

func (me RamPermutationFSM) Encoding() []fr.Element {
	return types.Enc{}.
		Item(me.LHS).
		Item(me.RHS).
		Item(me.UnsortedState).
		Item(me.SortedState).
		Elements(me.PreviousSortingKey, me.PreviousFullKey).
		U256(&me.PreviousValue).
		Bool(me.PreviousIsPointer)
}

type RamPermutationInput struct {
	UnsortedQueueInitialState queue.FullWidthQueueState
	SortedQueueInitialState   queue.FullWidthQueueState
}

func (me RamPermutationInput) Encoding() []fr.Element {
	return types.Enc{}.Item(me.UnsortedQueueInitialState).Item(me.SortedQueueInitialState)
}

type RamPermutationWitness struct {
	Unsorted []types.MemoryQuery
	Sorted   []types.MemoryQuery
}

type RamPermutationInstance = CircuitInstance[RamPermutationFSM, RamPermutationInput, Empty, RamPermutationWitness]

// checkReadConsistency replays the sorted queue: every read sees the last
// write to its location, or zero.
func checkReadConsistency(sorted []types.MemoryQuery) {
	var last types.MemoryQuery
	for i, q := range sorted {
		sameLocation := i > 0 && last.MemoryPage == q.MemoryPage && last.Index == q.Index
		if !q.RwFlag {
			var expected uint256.Int
			if sameLocation {
				expected = last.Value
			}
			if q.Value != expected {
				panic(fmt.Sprintf("RAM read of page %d index %d at timestamp %d sees %s, expected %s",
					q.MemoryPage, q.Index, q.Timestamp, q.Value.Hex(), expected.Hex()))
			}
		}
		if sameLocation && last.Timestamp == q.Timestamp {
			panic(fmt.Sprintf("two accesses to page %d index %d at timestamp %d", q.MemoryPage, q.Index, q.Timestamp))
		}
		last = q
	}
}

// BuildRamPermutation proves the sorted memory queue is a permutation of the
// unsorted one and chunks the argument into circuit instances.
func BuildRamPermutation(mem *MemoryQueues, capacity int) (MakerResults, []BaseLayerCircuit) {
	maker := NewCircuitMaker[RamPermutationFSM, RamPermutationInput, Empty, RamPermutationWitness](definitions.RAMPermutation, capacity)
	n := mem.Len()
	if n == 0 {
		return maker.IntoResults(), nil
	}
	checkReadConsistency(mem.Sorted)

	unsortedTail, sortedTail := mem.UnsortedStates[n].Tail, mem.SortedStates[n].Tail
	challenges := DeriveChallenges(types.MEMORY_QUERY_ENCODING_WIDTH, append(unsortedTail[:], sortedTail[:]...)...)
	lhs := RunningProducts(mem.Unsorted, challenges)
	rhs := RunningProducts(mem.Sorted, challenges)
	AssertPermutation("RAM permutation", lhs, rhs)

	unsortedChunks := Chunk(mem.Unsorted, capacity)
	sortedChunks := Chunk(mem.Sorted, capacity)
	numInstances := len(sortedChunks)
	fsmAt := func(boundary int) RamPermutationFSM {
		k := min(boundary*capacity, n)
		fsm := RamPermutationFSM{
			LHS:           ProductAt(lhs, k),
			RHS:           ProductAt(rhs, k),
			UnsortedState: mem.UnsortedRemaining(k),
			SortedState:   mem.SortedRemaining(k),
		}
		if k > 0 {
			prev := mem.Sorted[k-1]
			fsm.PreviousSortingKey = prev.SortingKey()
			fsm.PreviousFullKey = prev.FullKey()
			fsm.PreviousValue = prev.Value
			fsm.PreviousIsPointer = prev.IsPointer
		}
		// the last instance pads when it is not full
		if boundary == numInstances && n%capacity != 0 {
			fsm.PreviousSortingKey = fr.Element{}
			fsm.PreviousValue = uint256.Int{}
			fsm.PreviousIsPointer = false
		}
		return fsm
	}

	input := RamPermutationInput{
		UnsortedQueueInitialState: mem.UnsortedRemaining(0),
		SortedQueueInitialState:   mem.SortedRemaining(0),
	}
	forms := threadClosedForms(numInstances, input, Empty{}, fsmAt)
	witnesses := make([]RamPermutationWitness, numInstances)
	for i := range witnesses {
		witnesses[i] = RamPermutationWitness{Unsorted: unsortedChunks[i], Sorted: sortedChunks[i]}
	}
	circuits := makeInstances(maker, forms, witnesses)
	return maker.IntoResults(), circuits
}
