package witness

import (
	"fmt"
	"testing"

	"github.com/eon-protocol/eonzk/tracer"
	"github.com/eon-protocol/eonzk/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

var (
	alice = common.HexToAddress("0xa11ce")
	bob   = common.HexToAddress("0xb0b")
	carol = common.HexToAddress("0xca201")
)

func word(v uint64) uint256.Int {
	return *uint256.NewInt(v)
}

// nestedTrace calls bob, which calls carol and reverts, then returns
// normally. Bob's own writes survive.
func nestedTrace(bobPanics bool) *tracer.Trace {
	b := tracer.NewBuilder(tracer.BlockMeta{Number: 1})
	b.StorageWrite(alice, word(1), word(10))
	b.FarCall(bob)
	b.StorageWrite(bob, word(1), word(20))
	b.EmitEvent(word(2), word(3))
	b.FarCall(carol)
	b.StorageWrite(carol, word(5), word(50))
	b.SendL1Message(word(6), word(7), false)
	b.Return(true)
	b.StorageRead(bob, word(1))
	b.Return(bobPanics)
	b.StorageWrite(alice, word(2), word(30))
	return b.Finish()
}

func TestProcessLogQueue(t *testing.T) {
	tr := nestedTrace(false)
	logs := ProcessLogQueue(tr)

	// seven forward queries, the two reverted in carol, four root rollbacks
	require.Len(t, logs.Deltas, 7)
	require.Equal(t, 9, logs.AppliedLength())
	require.Len(t, logs.States, 9+4)
	require.Len(t, logs.FrameForwardTails, 3)
	require.Len(t, logs.FrameRollbackTails, 3)
	require.Equal(t, logs.States[8].Tail, logs.Applied.Tail)
	require.Equal(t, logs.States[len(logs.States)-1].Tail, logs.FinalTail)

	require.Len(t, logs.Demuxed[types.DemuxStorage], 6)
	require.Len(t, logs.Demuxed[types.DemuxL1Messages], 2)
	require.Len(t, logs.Demuxed[types.DemuxEvents], 1)
	frames := make([]int, len(logs.Deltas))
	for i, d := range logs.Deltas {
		frames[i] = d.Frame
	}
	require.Equal(t, []int{0, 1, 1, 2, 2, 1, 0}, frames)
	// the read has no rollback, every write has one
	var reads int
	for _, d := range logs.Deltas {
		if d.Rollback < 0 {
			reads++
		}
	}
	require.Equal(t, 1, reads)
	for i := 1; i < len(logs.RollbackHeads); i++ {
		require.LessOrEqual(t, logs.RollbackHeads[i-1].Cycle, logs.RollbackHeads[i].Cycle)
	}
}

func TestSimulateCallstack(t *testing.T) {
	for _, bobPanics := range []bool{false, true} {
		tr := nestedTrace(bobPanics)
		logs := ProcessLogQueue(tr)
		res := SimulateCallstack(tr, logs)

		require.Equal(t, 0, res.Final.FrameIdx)
		require.Equal(t, logs.Applied.Tail, res.Final.ForwardTail)
		require.Equal(t, logs.FinalTail, res.Final.RollbackTail)
		require.Len(t, res.NewFrames, 3)
		require.Len(t, res.PoppedEntries, 2)
		require.Len(t, res.EntryStates, 4)
		require.Equal(t, uint32(0), res.EntryStates[3].Value.Depth)
		require.Equal(t, uint32(2), res.EntryStates[1].Value.Depth)
		for i := 1; i < len(res.FrameStates); i++ {
			require.LessOrEqual(t, res.FrameStates[i-1].Cycle, res.FrameStates[i].Cycle)
		}
		if bobPanics {
			// everything below the root was reverted
			require.Equal(t, uint32(2), res.Final.RollbackLength)
		} else {
			require.Equal(t, uint32(4), res.Final.RollbackLength)
		}
	}
}

func TestSimulateCallstackDetectsDivergence(t *testing.T) {
	tr := nestedTrace(false)
	logs := ProcessLogQueue(tr)
	tr.CallstackActions[len(tr.CallstackActions)-1].Frame = 2
	require.Panics(t, func() { SimulateCallstack(tr, logs) })

	tr = nestedTrace(false)
	logs = ProcessLogQueue(tr)
	require.Equal(t, tracer.OutOfScopeExited, tr.CallstackActions[5].Kind)
	tr.CallstackActions[5].Frame = 5
	require.PanicsWithValue(t, "divergence at frame 2: exit of frame 5", func() { SimulateCallstack(tr, logs) })
}

func TestProcessLogQueueRejectsOrphanRollback(t *testing.T) {
	tr := nestedTrace(true)
	// drop the forward write of carol so its rollback has nothing to revert
	for i, idx := range tr.ForwardQueue {
		e := tr.LogHistory[idx]
		if e.Kind == tracer.LogQueryEntry && e.Query.Address == carol && !e.Query.Rollback {
			tr.ForwardQueue = append(tr.ForwardQueue[:i:i], tr.ForwardQueue[i+1:]...)
			break
		}
	}
	require.Panics(t, func() { ProcessLogQueue(tr) })
}

func TestProcessLogQueueRejectsTamperedRollback(t *testing.T) {
	tr := nestedTrace(true)
	for _, idx := range tr.RollbackQueue {
		e := &tr.LogHistory[idx]
		if e.Kind == tracer.LogQueryEntry && e.Query.Rollback {
			e.Query.WrittenValue.AddUint64(&e.Query.WrittenValue, 1)
			break
		}
	}
	var msg any
	func() {
		defer func() { msg = recover() }()
		ProcessLogQueue(tr)
	}()
	require.Contains(t, fmt.Sprint(msg), "sponge round")
}
