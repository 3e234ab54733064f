package witness

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/eon-protocol/eonzk/circuits/hasher"
	"github.com/eon-protocol/eonzk/queue"
	"github.com/eon-protocol/eonzk/tracer"
	"github.com/eon-protocol/eonzk/types"
)

// LogDelta is what one forward log query does to the active frame: Forward
// and Rollback index LogQueueStates.States. Rollback is -1 for queries that
// cannot be reverted.
type LogDelta struct {
	Cycle    uint32
	Frame    int
	Forward  int
	Rollback int
}

// LogQueueStates is the multiplexed log queue replayed from a trace.
type LogQueueStates struct {
	// One entry per simulated query: the applied part, then the root
	// rollback segment.
	States []queue.QueueIntermediateStates
	Deltas []LogDelta
	// Applied queries routed per sub-queue, rollbacks included.
	Demuxed            [types.NUM_DEMUX_OUTPUTS][]types.LogQuery
	FrameForwardTails  map[int]hasher.Commitment
	FrameRollbackTails map[int]hasher.Commitment
	RollbackHeads      []CycleValue[hasher.Commitment]
	// Applied is the queue the log demuxer consumes.
	Applied *queue.QueueSimulator[types.LogQuery]
	// FinalTail closes the root rollback segment.
	FinalTail hasher.Commitment
}

func (me *LogQueueStates) AppliedLength() int {
	return int(me.Applied.NumItems)
}

// forwardRecord is what a reversible forward query left in the sponge.
type forwardRecord struct {
	previousTail hasher.Commitment
	pairs        []hasher.RoundPair
}

type logQueueProcessor struct {
	sim        *queue.QueueSimulator[types.LogQuery]
	out        *LogQueueStates
	forwardAt  map[uint32]int
	forwardQ   map[uint32]forwardRecord
	rollbackAt map[uint32]int
}

// ProcessLogQueue replays the forward queue in order and then the root
// rollback queue backwards through one queue simulator.
func ProcessLogQueue(trace *tracer.Trace) *LogQueueStates {
	me := &logQueueProcessor{
		sim: queue.NewQueueSimulator[types.LogQuery](),
		out: &LogQueueStates{
			FrameForwardTails:  make(map[int]hasher.Commitment),
			FrameRollbackTails: make(map[int]hasher.Commitment),
		},
		forwardAt:  make(map[uint32]int),
		forwardQ:   make(map[uint32]forwardRecord),
		rollbackAt: make(map[uint32]int),
	}

	var forwardCycles []uint32
	var forwardFrames []int
	var forwardReversible []bool
	for _, idx := range trace.ForwardQueue {
		e := trace.LogHistory[idx]
		switch e.Kind {
		case tracer.FrameForwardTailMarker:
			me.captureTail(me.out.FrameForwardTails, e)
		case tracer.FrameRollbackTailMarker:
			me.captureTail(me.out.FrameRollbackTails, e)
		case tracer.LogQueryEntry:
			me.push(e)
			q := e.Query
			me.out.Demuxed[q.DemuxKind()] = append(me.out.Demuxed[q.DemuxKind()], q)
			if !q.Rollback {
				forwardCycles = append(forwardCycles, e.Cycle)
				forwardFrames = append(forwardFrames, e.Frame)
				forwardReversible = append(forwardReversible, q.Reversible())
			}
		default:
			panic(fmt.Sprintf("unknown log entry kind %d at history index %d", e.Kind, idx))
		}
	}

	applied := me.sim.NumItems
	for i := len(trace.RollbackQueue) - 1; i >= 0; i-- {
		e := trace.LogHistory[trace.RollbackQueue[i]]
		switch {
		case e.Kind == tracer.FrameRollbackTailMarker:
			me.captureTail(me.out.FrameRollbackTails, e)
		case e.Kind == tracer.LogQueryEntry && e.Query.Rollback:
			me.push(e)
		default:
			panic(fmt.Sprintf("unexpected entry of kind %d in the rollback queue at cycle %d", e.Kind, e.Cycle))
		}
	}
	me.out.FinalTail = me.sim.Tail

	me.out.Deltas = make([]LogDelta, len(forwardCycles))
	for i, cycle := range forwardCycles {
		rb, ok := me.rollbackAt[cycle]
		switch {
		case !ok && forwardReversible[i]:
			panic(fmt.Sprintf("reversible log query at cycle %d has no rollback", cycle))
		case !ok:
			rb = -1
		}
		me.out.Deltas[i] = LogDelta{Cycle: cycle, Frame: forwardFrames[i], Forward: me.forwardAt[cycle], Rollback: rb}
	}
	slices.SortStableFunc(me.out.RollbackHeads, func(a, b CycleValue[hasher.Commitment]) int {
		return cmp.Compare(a.Cycle, b.Cycle)
	})

	me.out.Applied, _ = me.sim.Split(applied)
	return me.out
}

func (me *logQueueProcessor) captureTail(tails map[int]hasher.Commitment, e tracer.LogHistoryEntry) {
	if e.Frame < 0 {
		panic(fmt.Sprintf("marker without a frame at cycle %d", e.Cycle))
	}
	if _, ok := tails[e.Frame]; ok {
		panic(fmt.Sprintf("frame %d marker captured twice", e.Frame))
	}
	tails[e.Frame] = me.sim.Tail
}

func (me *logQueueProcessor) push(e tracer.LogHistoryEntry) {
	q := e.Query
	if q.Rollback {
		fwd, ok := me.forwardQ[q.Timestamp]
		if !ok {
			panic(fmt.Sprintf("rollbacks always happen after forward case: rollback at timestamp %d has no forward query", q.Timestamp))
		}
		// the rollback must replay the very sponge rounds of its forward query
		pairs := queue.PushRoundPairs(q.Forward().Encoding(), fwd.previousTail)
		if len(pairs) != len(fwd.pairs) {
			panic(fmt.Sprintf("forward and rollback sponge differ at timestamp %d: %d rounds against %d", q.Timestamp, len(fwd.pairs), len(pairs)))
		}
		for i := range pairs {
			if pairs[i] != fwd.pairs[i] {
				panic(fmt.Sprintf("forward and rollback sponge round %d differs at timestamp %d", i, q.Timestamp))
			}
		}
		delete(me.forwardQ, q.Timestamp)
		if _, ok := me.rollbackAt[e.Cycle]; ok {
			panic(fmt.Sprintf("two rollbacks at cycle %d", e.Cycle))
		}
	} else if _, ok := me.forwardAt[e.Cycle]; ok {
		panic(fmt.Sprintf("two forward log queries at cycle %d", e.Cycle))
	}

	_, st := me.sim.Push(q)
	if !q.Rollback && q.Reversible() {
		me.forwardQ[q.Timestamp] = forwardRecord{previousTail: st.PreviousTail, pairs: st.RoundPairs}
	}
	st.RoundPairs = nil
	me.out.States = append(me.out.States, st)
	pos := len(me.out.States) - 1
	if q.Rollback {
		me.rollbackAt[e.Cycle] = pos
		me.out.RollbackHeads = append(me.out.RollbackHeads, CycleValue[hasher.Commitment]{Cycle: e.Cycle, Value: st.PreviousTail})
	} else {
		me.forwardAt[e.Cycle] = pos
	}
}
