package tracer

import (
	"path/filepath"
	"testing"

	"github.com/eon-protocol/eonzk/precompiles"
	"github.com/eon-protocol/eonzk/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

var (
	alice = common.HexToAddress("0xa11ce")
	bob   = common.HexToAddress("0xb0b")
)

func word(v uint64) uint256.Int {
	return *uint256.NewInt(v)
}

func queriesOf(tr *Trace, idxs []int) []LogHistoryEntry {
	ret := make([]LogHistoryEntry, len(idxs))
	for i, idx := range idxs {
		ret[i] = tr.LogHistory[idx]
	}
	return ret
}

func TestPanicAppendsRollbacksToForwardQueue(t *testing.T) {
	b := NewBuilder(BlockMeta{})
	b.StorageWrite(alice, word(1), word(10))
	b.FarCall(bob)
	b.StorageWrite(bob, word(1), word(20))
	b.EmitEvent(word(2), word(3))
	b.StorageWrite(alice, word(1), word(11))
	b.Return(true)
	require.Equal(t, word(10), b.StorageRead(alice, word(1)))
	require.Equal(t, word(0), b.StorageRead(bob, word(1)))
	tr := b.Finish()

	fwd := queriesOf(tr, tr.ForwardQueue)
	kinds := make([]LogEntryKind, len(fwd))
	for i := range fwd {
		kinds[i] = fwd[i].Kind
	}
	require.Equal(t, []LogEntryKind{
		FrameForwardTailMarker, LogQueryEntry,
		FrameForwardTailMarker, LogQueryEntry, LogQueryEntry, LogQueryEntry,
		LogQueryEntry, LogQueryEntry, LogQueryEntry, FrameRollbackTailMarker,
		LogQueryEntry, LogQueryEntry,
	}, kinds)

	// applied rollbacks come newest first and mirror their forward queries
	for i, fwdIdx := range []int{5, 4, 3} {
		rb := fwd[6+i].Query
		require.True(t, rb.Rollback)
		require.Equal(t, fwd[fwdIdx].Query, rb.Forward())
	}
	require.Equal(t, 1, fwd[9].Frame)

	rbs := queriesOf(tr, tr.RollbackQueue)
	require.Len(t, rbs, 2)
	require.Equal(t, FrameRollbackTailMarker, rbs[0].Kind)
	require.Equal(t, 0, rbs[0].Frame)
	require.True(t, rbs[1].Query.Rollback)
}

func TestSuccessMergesRollbacksIntoParent(t *testing.T) {
	b := NewBuilder(BlockMeta{})
	b.StorageWrite(alice, word(1), word(10))
	b.FarCall(bob)
	b.StorageWrite(bob, word(1), word(20))
	b.Return(false)
	require.Equal(t, word(20), b.StorageRead(bob, word(1)))
	tr := b.Finish()

	rbs := queriesOf(tr, tr.RollbackQueue)
	require.Len(t, rbs, 4)
	require.Equal(t, FrameRollbackTailMarker, rbs[0].Kind)
	require.Equal(t, alice, rbs[1].Query.Address)
	require.Equal(t, FrameRollbackTailMarker, rbs[2].Kind)
	require.Equal(t, 1, rbs[2].Frame)
	require.Equal(t, bob, rbs[3].Query.Address)

	var kinds []CallstackActionKind
	for _, a := range tr.CallstackActions {
		kinds = append(kinds, a.Kind)
	}
	require.Equal(t, []CallstackActionKind{OutOfScopeFresh, PushToStack, OutOfScopeFresh, OutOfScopeExited, PopFromStack}, kinds)
}

func TestReadsAreNotReversible(t *testing.T) {
	b := NewBuilder(BlockMeta{})
	b.StorageRead(alice, word(1))
	b.CallPrecompile(types.DemuxSha256, []uint256.Int{word(1)}, 0)
	tr := b.Finish()
	require.Equal(t, []int{1}, tr.RollbackQueue)
	require.Equal(t, 2, tr.NumLogQueries())
}

func TestPrecompileMemoryTraffic(t *testing.T) {
	b := NewBuilder(BlockMeta{})
	input := []uint256.Int{word(7), word(8)}
	out := b.CallPrecompile(types.DemuxKeccak256, input, 0)
	tr := b.Finish()

	require.Len(t, tr.PrecompileCalls, 1)
	call := tr.PrecompileCalls[0]
	require.Equal(t, types.DemuxKeccak256, call.Kind)
	require.Len(t, call.Reads, 2)
	require.Equal(t, input[1], call.Reads[1].Value)
	require.Len(t, call.Writes, 1)
	require.Equal(t, out[0], call.Writes[0].Value)
	require.Equal(t, precompiles.Keccak256(input, 0), out)
	require.Greater(t, call.Writes[0].Timestamp, call.Reads[0].Timestamp)

	q := tr.LogHistory[tr.ForwardQueue[1]].Query
	require.Equal(t, types.DemuxKeccak256, q.DemuxKind())
	abi := types.UnpackPrecompileCallABI(&q.Key)
	require.Equal(t, uint32(2), abi.InputLength)
	require.Equal(t, abi.InputOffset+2, abi.OutputOffset)
	require.Equal(t, call.Reads[0].MemoryPage, abi.ReadPage)
}

func TestDecommitReusesPage(t *testing.T) {
	b := NewBuilder(BlockMeta{})
	hash := common.HexToHash("0x01")
	code := []uint256.Int{word(1), word(2)}
	p1 := b.Decommit(hash, code)
	p2 := b.Decommit(hash, code)
	tr := b.Finish()
	require.Equal(t, p1, p2)
	require.True(t, tr.DecommitRequests[0].Query.IsFresh)
	require.False(t, tr.DecommitRequests[1].Query.IsFresh)
	require.Equal(t, code, tr.Bytecodes[hash])
}

func TestReturnFromRootPanics(t *testing.T) {
	b := NewBuilder(BlockMeta{})
	require.Panics(t, func() { b.Return(false) })
	b.FarCall(bob)
	require.Panics(t, func() { b.Finish() })
}

func TestSyntheticIsDeterministic(t *testing.T) {
	a := Synthetic(7, 400)
	b := Synthetic(7, 400)
	require.Equal(t, a, b)
	require.NotEqual(t, a.LogHistory, Synthetic(8, 400).LogHistory)

	var last uint32
	for _, q := range a.MemoryQueries {
		require.GreaterOrEqual(t, q.Query.Timestamp, last)
		last = q.Query.Timestamp
	}
	for _, act := range a.CallstackActions {
		require.Less(t, act.Cycle, b.TotalCycles)
	}
}

func TestTraceJSONRoundTrip(t *testing.T) {
	tr := Synthetic(3, 400)
	require.NotEmpty(t, tr.Pubdata)
	path := filepath.Join(t.TempDir(), "trace.json")
	require.NoError(t, tr.Save(path))
	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, tr, loaded)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
