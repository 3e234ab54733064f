package witness

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/eon-protocol/eonzk/circuits/definitions"
	"github.com/eon-protocol/eonzk/circuits/hasher"
	"github.com/eon-protocol/eonzk/queue"
	"github.com/eon-protocol/eonzk/tracer"
	"github.com/eon-protocol/eonzk/types"
)

func (me CallstackState) Encoding() []fr.Element {
	return types.Enc{}.State(me.State).U64(uint64(me.Depth))
}

// VmAuxParameters is the state one Main-VM instance hands to the next.
type VmAuxParameters struct {
	Callstack              CallstackState
	DecommitmentQueueState queue.QueueState
	MemoryQueueState       queue.FullWidthQueueState
	LogState               types.FrameLogQueueDetailedState
}

func (me VmAuxParameters) Encoding() []fr.Element {
	return types.Enc{}.
		Item(me.Callstack).
		Item(me.DecommitmentQueueState).
		Item(me.MemoryQueueState).
		Item(me.LogState)
}

type MainVmInput struct {
	RollbackQueueTailForBlock     hasher.Commitment
	MemoryQueueInitialState       queue.FullWidthQueueState
	DecommitmentQueueInitialState queue.QueueState
	BlockNumber                   uint64
	BlockTimestamp                uint64
}

func (me MainVmInput) Encoding() []fr.Element {
	return types.Enc{}.
		Commitment(me.RollbackQueueTailForBlock).
		Item(me.MemoryQueueInitialState).
		Item(me.DecommitmentQueueInitialState).
		U64(me.BlockNumber).
		U64(me.BlockTimestamp)
}

type MainVmOutput struct {
	LogQueueFinalState          queue.QueueState
	MemoryQueueFinalState       queue.FullWidthQueueState
	DecommitmentQueueFinalState queue.QueueState
}

func (me MainVmOutput) Encoding() []fr.Element {
	return types.Enc{}.
		Item(me.LogQueueFinalState).
		Item(me.MemoryQueueFinalState).
		Item(me.DecommitmentQueueFinalState)
}

// MainVmSimulationInput is everything one Main-VM instance replays, grouped
// by cycle range.
type MainVmSimulationInput struct {
	StartCycle       uint32
	EndCycle         uint32
	MemoryQueries    []CycleValue[types.MemoryQuery]
	DecommitRequests []CycleValue[types.DecommitQuery]
	LogQueries       []CycleValue[types.LogQuery]
	RollbackHeads    []CycleValue[hasher.Commitment]
	PoppedEntries    []CycleValue[types.ExtendedCallstackEntry]
	NewFrames        []CycleValue[NewFrameWitness]
	Refunds          []CycleValue[uint32]
	PubdataCosts     []CycleValue[int32]
	PrecompileCalls  []CycleValue[types.DemuxKind]
}

type MainVmInstance = CircuitInstance[VmAuxParameters, MainVmInput, MainVmOutput, MainVmSimulationInput]

func checkLen(name string, got, want int) {
	if got != want {
		panic(fmt.Sprintf("accumulator %s expanded to %d circuits, expected %d", name, got, want))
	}
}

func bucket[T any](name string, cpc uint32, n int, samples []CycleValue[T]) [][]CycleValue[T] {
	acc := NewPerCircuitAccumulator[T](name, cpc)
	for _, s := range samples {
		acc.Push(s.Cycle, s.Value)
	}
	ret := acc.Expand(n)
	checkLen(acc.Name(), len(ret), n)
	return ret
}

func counter(name string, cpc uint32, n int, cycles []uint32) []int {
	acc := NewEntryAccumulator(name, cpc, 0)
	for i, c := range cycles {
		acc.Push(c, i+1)
	}
	ret := acc.Expand(n + 1)
	checkLen(acc.Name(), len(ret), n+1)
	return ret
}

// BuildMainVM repacks every per-cycle artifact into cycle ranges of
// cyclesPerCircuit. The FSM after the last range is checked against the
// final states the other simulators reached.
func BuildMainVM(
	trace *tracer.Trace,
	logs *LogQueueStates,
	callstack *CallstackSimulationResult,
	decommits *DecommitQueueSimulator,
	mem *MemoryQueues,
	cyclesPerCircuit int,
) (MakerResults, []BaseLayerCircuit, MainVmOutput) {
	cpc := uint32(cyclesPerCircuit)
	n := int((trace.TotalCycles + cpc - 1) / cpc)
	maker := NewCircuitMaker[VmAuxParameters, MainVmInput, MainVmOutput, MainVmSimulationInput](definitions.MainVM, cyclesPerCircuit)

	memoryCycles := make([]uint32, len(trace.MemoryQueries))
	memorySamples := make([]CycleValue[types.MemoryQuery], len(trace.MemoryQueries))
	for i, q := range trace.MemoryQueries {
		memoryCycles[i] = q.Cycle
		memorySamples[i] = CycleValue[types.MemoryQuery]{Cycle: q.Cycle, Value: q.Query}
	}
	decommitCycles := make([]uint32, len(trace.DecommitRequests))
	decommitSamples := make([]CycleValue[types.DecommitQuery], len(trace.DecommitRequests))
	for i, q := range trace.DecommitRequests {
		decommitCycles[i] = q.Cycle
		decommitSamples[i] = CycleValue[types.DecommitQuery]{Cycle: q.Cycle, Value: q.Query}
	}
	var logSamples []CycleValue[types.LogQuery]
	for _, idx := range trace.ForwardQueue {
		if e := trace.LogHistory[idx]; e.Kind == tracer.LogQueryEntry && !e.Query.Rollback {
			logSamples = append(logSamples, CycleValue[types.LogQuery]{Cycle: e.Cycle, Value: e.Query})
		}
	}
	refunds := make([]CycleValue[uint32], len(trace.Refunds))
	for i, r := range trace.Refunds {
		refunds[i] = CycleValue[uint32]{Cycle: r.Cycle, Value: r.Refund}
	}
	costs := make([]CycleValue[int32], len(trace.PubdataCosts))
	for i, c := range trace.PubdataCosts {
		costs[i] = CycleValue[int32]{Cycle: c.Cycle, Value: c.Cost}
	}
	calls := make([]CycleValue[types.DemuxKind], len(trace.PrecompileCalls))
	for i, c := range trace.PrecompileCalls {
		calls[i] = CycleValue[types.DemuxKind]{Cycle: c.Cycle, Value: c.Kind}
	}

	memoryCounts := counter("memory queries", cpc, n, memoryCycles)
	decommitCounts := counter("decommitment requests", cpc, n, decommitCycles)

	initialCallstack := CallstackState{State: queue.NewCallstackSimulator[types.ExtendedCallstackEntry]().State}
	callstackAcc := NewEntryAccumulator("callstack sponge", cpc, initialCallstack)
	for _, s := range callstack.EntryStates {
		callstackAcc.Push(s.Cycle, s.Value)
	}
	callstackStates := callstackAcc.Expand(n + 1)
	checkLen(callstackAcc.Name(), len(callstackStates), n+1)

	frameAcc := NewEntryAccumulator("frame log states", cpc, types.FrameLogQueueDetailedState{FrameIdx: -1})
	for _, s := range callstack.FrameStates {
		frameAcc.Push(s.Cycle, s.Value)
	}
	frameStates := frameAcc.Expand(n + 1)
	checkLen(frameAcc.Name(), len(frameStates), n+1)

	memoryBuckets := bucket("memory queries", cpc, n, memorySamples)
	decommitBuckets := bucket("decommitment requests", cpc, n, decommitSamples)
	logBuckets := bucket("log queries", cpc, n, logSamples)
	rollbackBuckets := bucket("rollback heads", cpc, n, logs.RollbackHeads)
	popBuckets := bucket("callstack pops", cpc, n, callstack.PoppedEntries)
	frameBuckets := bucket("new frames", cpc, n, callstack.NewFrames)
	refundBuckets := bucket("refunds", cpc, n, refunds)
	costBuckets := bucket("pubdata costs", cpc, n, costs)
	callBuckets := bucket("precompile calls", cpc, n, calls)

	fsmAt := func(boundary int) VmAuxParameters {
		return VmAuxParameters{
			Callstack:              callstackStates[boundary],
			DecommitmentQueueState: decommits.PrefixState(decommitCounts[boundary]),
			MemoryQueueState:       mem.UnsortedPrefix(memoryCounts[boundary]),
			LogState:               frameStates[boundary],
		}
	}
	final := fsmAt(n)
	if final.LogState != callstack.Final || final.Callstack.Depth != 0 {
		panic(fmt.Sprintf("main vm ends in frame %d at depth %d", final.LogState.FrameIdx, final.Callstack.Depth))
	}
	if memoryCounts[n] != len(trace.MemoryQueries) || decommitCounts[n] != len(trace.DecommitRequests) {
		panic("main vm does not cover every memory query and decommitment request")
	}

	in := MainVmInput{
		RollbackQueueTailForBlock:     logs.FinalTail,
		MemoryQueueInitialState:       mem.UnsortedPrefix(0),
		DecommitmentQueueInitialState: decommits.PrefixState(0),
		BlockNumber:                   trace.Block.Number,
		BlockTimestamp:                trace.Block.Timestamp,
	}
	out := MainVmOutput{
		LogQueueFinalState:          logs.Applied.State(),
		MemoryQueueFinalState:       final.MemoryQueueState,
		DecommitmentQueueFinalState: final.DecommitmentQueueState,
	}
	forms := threadClosedForms(n, in, out, fsmAt)
	witnesses := make([]MainVmSimulationInput, n)
	for i := range witnesses {
		witnesses[i] = MainVmSimulationInput{
			StartCycle:       uint32(i) * cpc,
			EndCycle:         min(uint32(i+1)*cpc, trace.TotalCycles),
			MemoryQueries:    memoryBuckets[i],
			DecommitRequests: decommitBuckets[i],
			LogQueries:       logBuckets[i],
			RollbackHeads:    rollbackBuckets[i],
			PoppedEntries:    popBuckets[i],
			NewFrames:        frameBuckets[i],
			Refunds:          refundBuckets[i],
			PubdataCosts:     costBuckets[i],
			PrecompileCalls:  callBuckets[i],
		}
	}
	circuits := makeInstances(maker, forms, witnesses)
	return maker.IntoResults(), circuits, out
}
