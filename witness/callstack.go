package witness

import (
	"fmt"

	"github.com/eon-protocol/eonzk/circuits/hasher"
	"github.com/eon-protocol/eonzk/queue"
	"github.com/eon-protocol/eonzk/tracer"
	"github.com/eon-protocol/eonzk/types"
)

type CallstackState struct {
	State hasher.State
	Depth uint32
}

// NewFrameWitness is the rollback tail a frame starts from.
type NewFrameWitness struct {
	Frame        int
	RollbackTail hasher.Commitment
}

type CallstackSimulationResult struct {
	EntryStates   []CycleValue[CallstackState]
	FrameStates   []CycleValue[types.FrameLogQueueDetailedState]
	PoppedEntries []CycleValue[types.ExtendedCallstackEntry]
	NewFrames     []CycleValue[NewFrameWitness]
	Final         types.FrameLogQueueDetailedState
}

type savedFrame struct {
	state types.FrameLogQueueDetailedState
	entry types.ExtendedCallstackEntry
}

type callstackSimulator struct {
	logs    *LogQueueStates
	sponge  *queue.CallstackSimulator[types.ExtendedCallstackEntry]
	current types.FrameLogQueueDetailedState
	stack   []savedFrame
	exited  *types.FrameLogQueueDetailedState
	panic   bool
	delta   int
	out     *CallstackSimulationResult
}

// SimulateCallstack drives the frame log states through the callstack
// actions, keeping an explicit frame stack and the sponge committed one in
// lockstep.
func SimulateCallstack(trace *tracer.Trace, logs *LogQueueStates) *CallstackSimulationResult {
	me := &callstackSimulator{
		logs:    logs,
		sponge:  queue.NewCallstackSimulator[types.ExtendedCallstackEntry](),
		current: types.FrameLogQueueDetailedState{FrameIdx: -1},
		out:     &CallstackSimulationResult{},
	}
	for _, action := range trace.CallstackActions {
		me.applyDeltas(action.Cycle)
		switch action.Kind {
		case tracer.PushToStack:
			me.pushToStack(action)
		case tracer.OutOfScopeFresh:
			me.fresh(action)
		case tracer.OutOfScopeExited:
			me.exit(action)
		case tracer.PopFromStack:
			me.popFromStack(action)
		default:
			panic(fmt.Sprintf("unknown callstack action %d at cycle %d", action.Kind, action.Cycle))
		}
	}
	me.applyDeltas(trace.TotalCycles)

	if len(me.stack) != 0 || me.exited != nil || me.current.FrameIdx != 0 {
		panic(fmt.Sprintf("execution ended in frame %d with %d suspended frames", me.current.FrameIdx, len(me.stack)))
	}
	if me.delta != len(logs.Deltas) {
		panic(fmt.Sprintf("%d log queries happened outside any frame", len(logs.Deltas)-me.delta))
	}
	if me.current.ForwardTail != logs.Applied.Tail || int(me.current.ForwardLength) != logs.AppliedLength() {
		panic(fmt.Sprintf("root forward queue %s/%d differs from the applied log queue %s/%d",
			me.current.ForwardTail, me.current.ForwardLength, logs.Applied.Tail, logs.AppliedLength()))
	}
	if me.current.RollbackHead != logs.Applied.Tail || me.current.RollbackTail != logs.FinalTail {
		panic("root rollback segment does not close the log queue")
	}
	me.out.Final = me.current
	return me.out
}

func (me *callstackSimulator) sampleFrame(cycle uint32) {
	me.out.FrameStates = append(me.out.FrameStates, CycleValue[types.FrameLogQueueDetailedState]{Cycle: cycle, Value: me.current})
}

func (me *callstackSimulator) sampleSponge(cycle uint32) {
	me.out.EntryStates = append(me.out.EntryStates, CycleValue[CallstackState]{
		Cycle: cycle,
		Value: CallstackState{State: me.sponge.State, Depth: uint32(me.sponge.Depth())},
	})
}

// applyDeltas folds every log query up to and including cycle into the
// active frame.
func (me *callstackSimulator) applyDeltas(cycle uint32) {
	for ; me.delta < len(me.logs.Deltas) && me.logs.Deltas[me.delta].Cycle <= cycle; me.delta++ {
		d := me.logs.Deltas[me.delta]
		if d.Frame != me.current.FrameIdx {
			panic(fmt.Sprintf("log query at cycle %d belongs to frame %d, active frame is %d", d.Cycle, d.Frame, me.current.FrameIdx))
		}
		fwd := me.logs.States[d.Forward]
		if fwd.PreviousTail != me.current.ForwardTail {
			panic(fmt.Sprintf("forward queue diverges at cycle %d in frame %d", d.Cycle, d.Frame))
		}
		me.current.ForwardTail = fwd.Tail
		me.current.ForwardLength++
		if d.Rollback >= 0 {
			rb := me.logs.States[d.Rollback]
			if rb.Tail != me.current.RollbackHead {
				panic(fmt.Sprintf("rollback queue diverges at cycle %d in frame %d", d.Cycle, d.Frame))
			}
			me.current.RollbackHead = rb.PreviousTail
			me.current.RollbackLength++
		}
		me.sampleFrame(d.Cycle)
	}
}

func (me *callstackSimulator) pushToStack(action tracer.CallstackAction) {
	if action.Frame != me.current.FrameIdx {
		panic(fmt.Sprintf("divergence at frame %d: push of frame %d", me.current.FrameIdx, action.Frame))
	}
	entry := types.ExtendedCallstackEntry{
		Entry:          action.Entry,
		RollbackHead:   me.current.RollbackHead,
		RollbackTail:   me.current.RollbackTail,
		RollbackLength: me.current.RollbackLength,
	}
	me.sponge.Push(entry)
	me.stack = append(me.stack, savedFrame{state: me.current, entry: entry})
	me.sampleSponge(action.Cycle)
}

func (me *callstackSimulator) fresh(action tracer.CallstackAction) {
	tail, ok := me.logs.FrameRollbackTails[action.Frame]
	if !ok {
		panic(fmt.Sprintf("no rollback tail for frame %d", action.Frame))
	}
	if fwd, ok := me.logs.FrameForwardTails[action.Frame]; !ok || fwd != me.current.ForwardTail {
		panic(fmt.Sprintf("frame %d starts at a different forward tail than it was recorded with", action.Frame))
	}
	me.current = types.FrameLogQueueDetailedState{
		FrameIdx:      action.Frame,
		ForwardTail:   me.current.ForwardTail,
		ForwardLength: me.current.ForwardLength,
		RollbackHead:  tail,
		RollbackTail:  tail,
	}
	me.out.NewFrames = append(me.out.NewFrames, CycleValue[NewFrameWitness]{
		Cycle: action.Cycle,
		Value: NewFrameWitness{Frame: action.Frame, RollbackTail: tail},
	})
	me.sampleFrame(action.Cycle)
}

func (me *callstackSimulator) exit(action tracer.CallstackAction) {
	if action.Frame != me.current.FrameIdx {
		panic(fmt.Sprintf("divergence at frame %d: exit of frame %d", me.current.FrameIdx, action.Frame))
	}
	if me.exited != nil {
		panic(fmt.Sprintf("frame %d exits while frame %d is pending", action.Frame, me.exited.FrameIdx))
	}
	exited := me.current
	me.exited = &exited
	me.panic = action.Panic
}

func (me *callstackSimulator) popFromStack(action tracer.CallstackAction) {
	if me.exited == nil || me.panic != action.Panic {
		panic(fmt.Sprintf("divergence at frame %d: pop without a matching exit", action.Frame))
	}
	if len(me.stack) == 0 {
		panic(fmt.Sprintf("divergence at frame %d: pop from an empty stack", action.Frame))
	}
	saved := me.stack[len(me.stack)-1]
	me.stack = me.stack[:len(me.stack)-1]
	entry, _, _ := me.sponge.Pop()
	if entry != saved.entry || saved.state.FrameIdx != action.Frame {
		panic(fmt.Sprintf("divergence at frame %d: sponge and frame stack disagree", action.Frame))
	}

	child := *me.exited
	if action.Panic {
		if child.RollbackHead != child.ForwardTail {
			panic(fmt.Sprintf("frame %d reverted but its rollback segment does not start at its forward tail", child.FrameIdx))
		}
	} else if child.RollbackTail != saved.state.RollbackHead {
		panic(fmt.Sprintf("frame %d rollback tail does not meet the rollback head of frame %d", child.FrameIdx, action.Frame))
	}
	me.current = saved.state.MergeChild(child, action.Panic)
	me.exited = nil

	me.out.PoppedEntries = append(me.out.PoppedEntries, CycleValue[types.ExtendedCallstackEntry]{Cycle: action.Cycle, Value: entry})
	me.sampleSponge(action.Cycle)
	me.sampleFrame(action.Cycle)
}
