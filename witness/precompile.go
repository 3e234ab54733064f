package witness

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/eon-protocol/eonzk/circuits/definitions"
	"github.com/eon-protocol/eonzk/precompiles"
	"github.com/eon-protocol/eonzk/queue"
	"github.com/eon-protocol/eonzk/tracer"
	"github.com/eon-protocol/eonzk/types"
)

// PrecompileRound is one item of a precompile circuit. A call's reads are
// spread over its rounds and its writes land in the last one.
type PrecompileRound struct {
	Call   types.LogQuery
	Round  int
	Rounds int
	Reads  []types.MemoryQuery
	Writes []types.MemoryQuery
}

type PrecompileFSM struct {
	LogQueueState    queue.QueueState
	MemoryQueueState queue.FullWidthQueueState
	CurrentCall      types.LogQuery
	RoundsDone       uint32
	InProgress       bool
}

func (me PrecompileFSM) Encoding() []fr.Element {
	return types.Enc{}.
		Item(me.LogQueueState).
		Item(me.MemoryQueueState).
		Item(me.CurrentCall).
		U64(uint64(me.RoundsDone)).
		Bool(me.InProgress)
}

type PrecompileInput struct {
	InitialLogQueueState    queue.QueueState
	InitialMemoryQueueState queue.FullWidthQueueState
}

func (me PrecompileInput) Encoding() []fr.Element {
	return types.Enc{}.Item(me.InitialLogQueueState).Item(me.InitialMemoryQueueState)
}

type PrecompileInstance = CircuitInstance[PrecompileFSM, PrecompileInput, MemoryQueueOutput, []PrecompileRound]

// PrecompileMemoryTraffic pairs every demultiplexed call with its recorded
// execution and returns the memory queries in call order.
func PrecompileMemoryTraffic(kind types.DemuxKind, calls []types.LogQuery, executed []tracer.PrecompileCall) []types.MemoryQuery {
	if len(calls) != len(executed) {
		panic(fmt.Sprintf("%s: %d calls in the log queue, %d executed", kind, len(calls), len(executed)))
	}
	var ret []types.MemoryQuery
	for i, call := range calls {
		exec := executed[i]
		abi := types.UnpackPrecompileCallABI(&call.Key)
		if len(exec.Reads) != int(abi.InputLength) || len(exec.Writes) != int(abi.OutputLength) {
			panic(fmt.Sprintf("%s call %d at timestamp %d: %d reads and %d writes for abi %+v",
				kind, i, call.Timestamp, len(exec.Reads), len(exec.Writes), abi))
		}
		for _, r := range exec.Reads {
			if r.MemoryPage != abi.ReadPage || r.Timestamp != call.Timestamp || r.RwFlag {
				panic(fmt.Sprintf("%s call %d at timestamp %d: read %+v out of place", kind, i, call.Timestamp, r))
			}
		}
		for _, w := range exec.Writes {
			if w.MemoryPage != abi.WritePage || !w.RwFlag {
				panic(fmt.Sprintf("%s call %d at timestamp %d: write %+v out of place", kind, i, call.Timestamp, w))
			}
		}
		ret = append(ret, exec.Reads...)
		ret = append(ret, exec.Writes...)
	}
	return ret
}

func splitRounds(call types.LogQuery, exec tracer.PrecompileCall, kind types.DemuxKind) []PrecompileRound {
	abi := types.UnpackPrecompileCallABI(&call.Key)
	n := precompiles.Rounds(kind, abi)
	ret := make([]PrecompileRound, n)
	per := (len(exec.Reads) + n - 1) / n
	for i := range ret {
		ret[i] = PrecompileRound{Call: call, Round: i, Rounds: n}
		lo, hi := min(i*per, len(exec.Reads)), min((i+1)*per, len(exec.Reads))
		ret[i].Reads = exec.Reads[lo:hi]
	}
	ret[n-1].Writes = exec.Writes
	return ret
}

// BuildPrecompile chunks the rounds of every call of one precompile kind.
// memStart is where this kind's traffic begins in the unsorted memory queue.
func BuildPrecompile(
	kind types.DemuxKind,
	calls *LogQueueSimulator,
	executed []tracer.PrecompileCall,
	mem *MemoryQueues,
	memStart int,
	capacity int,
) (MakerResults, []BaseLayerCircuit) {
	circuitKind := definitions.ForDemuxOutput(kind)
	maker := NewCircuitMaker[PrecompileFSM, PrecompileInput, MemoryQueueOutput, []PrecompileRound](circuitKind, capacity)
	items := calls.Items()
	if len(items) == 0 {
		return maker.IntoResults(), nil
	}
	if len(executed) != len(items) {
		panic(fmt.Sprintf("%s: %d calls in the log queue, %d executed", kind, len(items), len(executed)))
	}

	var rounds []PrecompileRound
	// before[i] counts the memory queries of the rounds ahead of round i,
	// callOf[i] is the position of round i's call
	var before, callOf []int
	traffic := 0
	for i, call := range items {
		for _, r := range splitRounds(call, executed[i], kind) {
			rounds = append(rounds, r)
			before = append(before, traffic)
			callOf = append(callOf, i)
			traffic += len(r.Reads) + len(r.Writes)
		}
	}
	before = append(before, traffic)

	n := len(rounds)
	fsmAt := func(boundary int) PrecompileFSM {
		k := min(boundary*capacity, n)
		fsm := PrecompileFSM{MemoryQueueState: mem.UnsortedPrefix(memStart + before[k])}
		switch {
		case k == n:
			fsm.LogQueueState = calls.StateAfter(len(items))
		case rounds[k].Round == 0:
			fsm.LogQueueState = calls.StateAfter(callOf[k])
		default:
			fsm.LogQueueState = calls.StateAfter(callOf[k] + 1)
			fsm.CurrentCall = rounds[k].Call
			fsm.RoundsDone = uint32(rounds[k].Round)
			fsm.InProgress = true
		}
		return fsm
	}
	in := PrecompileInput{
		InitialLogQueueState:    calls.State(),
		InitialMemoryQueueState: mem.UnsortedPrefix(memStart),
	}
	out := MemoryQueueOutput{MemoryQueueFinalState: mem.UnsortedPrefix(memStart + traffic)}
	chunks := Chunk(rounds, capacity)
	forms := threadClosedForms(len(chunks), in, out, fsmAt)
	circuits := makeInstances(maker, forms, chunks)
	return maker.IntoResults(), circuits
}
