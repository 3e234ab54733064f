package witness

import (
	"fmt"
	"slices"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/eon-protocol/eonzk/circuits/definitions"
	"github.com/eon-protocol/eonzk/queue"
	"github.com/eon-protocol/eonzk/types"
	"github.com/holiman/uint256"
)

// SorterFSM is shared by every sort-and-deduplicate circuit. Previous is the
// last sorted item consumed.
type SorterFSM[T types.Encodable] struct {
	LHS           GrandProducts
	RHS           GrandProducts
	UnsortedState queue.QueueState
	SortedState   queue.QueueState
	OutputState   queue.QueueState
	Previous      T
}

func (me SorterFSM[T]) Encoding() []fr.Element {
	return types.Enc{}.
		Item(me.LHS).
		Item(me.RHS).
		Item(me.UnsortedState).
		Item(me.SortedState).
		Item(me.OutputState).
		Item(me.Previous)
}

type SorterInput struct {
	UnsortedQueueInitialState    queue.QueueState
	IntermediateSortedQueueState queue.QueueState
}

func (me SorterInput) Encoding() []fr.Element {
	return types.Enc{}.Item(me.UnsortedQueueInitialState).Item(me.IntermediateSortedQueueState)
}

type SorterOutput struct {
	FinalQueueState queue.QueueState
}

func (me SorterOutput) Encoding() []fr.Element {
	return me.FinalQueueState.Encoding()
}

type SorterWitness[T any] struct {
	Unsorted []T
	Sorted   []T
}

// dedupFunc reduces a sorted queue. emittedAfter[i] is the number of sorted
// items consumed once output i is known.
type dedupFunc[T any] func(sorted []T) (outputs []T, emittedAfter []int)

type sorter[T types.Encodable] struct {
	kind    definitions.BaseLayerCircuitType
	width   int
	compare func(a, b T) int
	dedup   dedupFunc[T]
}

// build sorts the input queue, proves the sort with a grand product and
// emits the deduplicated output queue.
func (me sorter[T]) build(input *queue.QueueSimulator[T], capacity int) (MakerResults, []BaseLayerCircuit, *queue.QueueSimulator[T]) {
	maker := NewCircuitMaker[SorterFSM[T], SorterInput, SorterOutput, SorterWitness[T]](me.kind, capacity)
	output := queue.NewQueueSimulator[T]()
	unsorted := input.Items()
	n := len(unsorted)
	if n == 0 {
		return maker.IntoResults(), nil, output
	}

	sorted := slices.Clone(unsorted)
	slices.SortStableFunc(sorted, me.compare)
	sortedSim := queue.NewQueueSimulator[T]()
	for _, item := range sorted {
		sortedSim.Push(item)
	}
	challenges := DeriveChallenges(me.width, append(input.Tail[:], sortedSim.Tail[:]...)...)
	lhs := RunningProducts(unsorted, challenges)
	rhs := RunningProducts(sorted, challenges)
	AssertPermutation(me.kind.ShortDescription(), lhs, rhs)

	outputs, emittedAfter := me.dedup(sorted)
	for _, item := range outputs {
		output.Push(item)
	}

	fsmAt := func(boundary int) SorterFSM[T] {
		k := min(boundary*capacity, n)
		emitted, _ := slices.BinarySearch(emittedAfter, k+1)
		fsm := SorterFSM[T]{
			LHS:           ProductAt(lhs, k),
			RHS:           ProductAt(rhs, k),
			UnsortedState: input.StateAfter(k),
			SortedState:   sortedSim.StateAfter(k),
			OutputState:   output.PrefixState(emitted),
		}
		if k > 0 {
			fsm.Previous = sorted[k-1]
		}
		return fsm
	}
	in := SorterInput{UnsortedQueueInitialState: input.State(), IntermediateSortedQueueState: sortedSim.State()}
	unsortedChunks, sortedChunks := Chunk(unsorted, capacity), Chunk(sorted, capacity)
	forms := threadClosedForms(len(sortedChunks), in, SorterOutput{FinalQueueState: output.State()}, fsmAt)
	witnesses := make([]SorterWitness[T], len(forms))
	for i := range witnesses {
		witnesses[i] = SorterWitness[T]{Unsorted: unsortedChunks[i], Sorted: sortedChunks[i]}
	}
	circuits := makeInstances(maker, forms, witnesses)
	return maker.IntoResults(), circuits, output
}

// dedupStorage keeps one query per slot: the value read before the block and
// the latest write that was not rolled back.
func dedupStorage(sorted []types.LogQuery) ([]types.LogQuery, []int) {
	var outputs []types.LogQuery
	var emittedAfter []int
	for start := 0; start < len(sorted); {
		end := start + 1
		for end < len(sorted) && types.CompareStorageKeys(sorted[start], sorted[end]) == 0 {
			end++
		}
		writes := make(map[uint32]types.LogQuery)
		for _, q := range sorted[start:end] {
			switch {
			case q.Rollback:
				if _, ok := writes[q.Timestamp]; !ok {
					panic(fmt.Sprintf("rollback at timestamp %d of %s/%s reverts no write", q.Timestamp, q.Address, q.Key.Hex()))
				}
				delete(writes, q.Timestamp)
			case q.RwFlag:
				writes[q.Timestamp] = q
			}
		}
		first := sorted[start]
		final := types.LogQuery{
			Timestamp:       first.Timestamp,
			TxNumberInBlock: first.TxNumberInBlock,
			AuxByte:         first.AuxByte,
			ShardID:         first.ShardID,
			Address:         first.Address,
			Key:             first.Key,
			ReadValue:       first.ReadValue,
			WrittenValue:    first.ReadValue,
		}
		var latest uint32
		for ts, w := range writes {
			if !final.RwFlag || ts > latest {
				final.RwFlag, latest = true, ts
				final.WrittenValue = w.WrittenValue
			}
		}
		outputs = append(outputs, final)
		emittedAfter = append(emittedAfter, end)
		start = end
	}
	return outputs, emittedAfter
}

// dedupTransient only checks that every rollback reverts a write. Transient
// storage is discarded at the end of each transaction.
func dedupTransient(sorted []types.LogQuery) ([]types.LogQuery, []int) {
	writes := make(map[uint32]bool)
	for i, q := range sorted {
		if i > 0 && types.CompareStorageKeys(sorted[i-1], q) != 0 {
			clear(writes)
		}
		switch {
		case q.Rollback && !writes[q.Timestamp]:
			panic(fmt.Sprintf("transient rollback at timestamp %d reverts no write", q.Timestamp))
		case q.RwFlag && !q.Rollback:
			writes[q.Timestamp] = true
		}
	}
	return nil, nil
}

// dedupRevertible drops every query whose rollback follows it. Used for
// events and L1 messages, which are sorted by timestamp.
func dedupRevertible(sorted []types.LogQuery) ([]types.LogQuery, []int) {
	var outputs []types.LogQuery
	var emittedAfter []int
	for i := 0; i < len(sorted); i++ {
		q := sorted[i]
		if q.Rollback {
			panic(fmt.Sprintf("rollback at timestamp %d without its forward query", q.Timestamp))
		}
		if i+1 < len(sorted) && sorted[i+1].Rollback && sorted[i+1].Timestamp == q.Timestamp {
			i++
			continue
		}
		outputs = append(outputs, q)
		emittedAfter = append(emittedAfter, min(i+2, len(sorted)))
	}
	return outputs, emittedAfter
}

// dedupDecommits keeps the first request per code hash, which must be the
// fresh one. Later requests must hit the same page.
func dedupDecommits(sorted []types.DecommitQuery) ([]types.DecommitQuery, []int) {
	var outputs []types.DecommitQuery
	var emittedAfter []int
	for i, q := range sorted {
		if i > 0 && sorted[i-1].CodeHash == q.CodeHash {
			if q.IsFresh || q.Page != sorted[i-1].Page {
				panic(fmt.Sprintf("decommit of %s at timestamp %d disagrees with the first one", q.CodeHash, q.Timestamp))
			}
			continue
		}
		if !q.IsFresh {
			panic(fmt.Sprintf("first decommit of %s at timestamp %d is not fresh", q.CodeHash, q.Timestamp))
		}
		outputs = append(outputs, q)
		emittedAfter = append(emittedAfter, i+1)
	}
	return outputs, emittedAfter
}

var (
	storageSorter = sorter[types.LogQuery]{
		kind:    definitions.StorageSorter,
		width:   types.LOG_QUERY_ENCODING_WIDTH,
		compare: types.CompareLogQueriesByKey,
		dedup:   dedupStorage,
	}
	transientStorageSorter = sorter[types.LogQuery]{
		kind:    definitions.TransientStorageSorter,
		width:   types.LOG_QUERY_ENCODING_WIDTH,
		compare: types.CompareLogQueriesByKey,
		dedup:   dedupTransient,
	}
	eventsSorter = sorter[types.LogQuery]{
		kind:    definitions.EventsSorter,
		width:   types.LOG_QUERY_ENCODING_WIDTH,
		compare: types.CompareLogQueriesByTimestamp,
		dedup:   dedupRevertible,
	}
	l1MessagesSorter = sorter[types.LogQuery]{
		kind:    definitions.L1MessagesSorter,
		width:   types.LOG_QUERY_ENCODING_WIDTH,
		compare: types.CompareLogQueriesByTimestamp,
		dedup:   dedupRevertible,
	}
	decommitsSorter = sorter[types.DecommitQuery]{
		kind:    definitions.CodeDecommittmentsSorter,
		width:   types.DECOMMIT_QUERY_ENCODING_WIDTH,
		compare: types.CompareDecommitQueries,
		dedup:   dedupDecommits,
	}
)

func BuildStorageSorter(input *LogQueueSimulator, capacity int) (MakerResults, []BaseLayerCircuit, *LogQueueSimulator) {
	return storageSorter.build(input, capacity)
}

func BuildTransientStorageSorter(input *LogQueueSimulator, capacity int) (MakerResults, []BaseLayerCircuit) {
	results, circuits, _ := transientStorageSorter.build(input, capacity)
	return results, circuits
}

func BuildEventsSorter(input *LogQueueSimulator, capacity int) (MakerResults, []BaseLayerCircuit, *LogQueueSimulator) {
	return eventsSorter.build(input, capacity)
}

func BuildL1MessagesSorter(input *LogQueueSimulator, capacity int) (MakerResults, []BaseLayerCircuit, *LogQueueSimulator) {
	return l1MessagesSorter.build(input, capacity)
}

func BuildDecommitmentsSorter(input *queue.QueueSimulator[types.DecommitQuery], capacity int) (MakerResults, []BaseLayerCircuit, *queue.QueueSimulator[types.DecommitQuery]) {
	return decommitsSorter.build(input, capacity)
}

// storageValue is the value a deduplicated storage query leaves behind.
func storageValue(q *types.LogQuery) *uint256.Int {
	if q.RwFlag {
		return &q.WrittenValue
	}
	return &q.ReadValue
}
