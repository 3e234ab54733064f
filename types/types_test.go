package types

import (
	"math/big"
	"testing"

	"github.com/eon-protocol/eonzk/circuits/hasher"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func commitmentOf(v uint64) hasher.Commitment {
	var c hasher.Commitment
	c[0].SetUint64(v)
	return c
}

func TestMemoryQueryEncodingLayout(t *testing.T) {
	q := MemoryQuery{
		Timestamp:  7,
		MemoryPage: 3,
		Index:      9,
		RwFlag:     true,
		Value:      *uint256.NewInt(0).SetAllOne(),
	}
	enc := q.Encoding()
	require.Len(t, enc, MEMORY_QUERY_ENCODING_WIDTH)

	var lo, hi big.Int
	enc[0].BigInt(&lo)
	enc[1].BigInt(&hi)

	mask128 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	require.Equal(t, 0, new(big.Int).And(&lo, mask128).Cmp(mask128))
	require.Equal(t, uint64(7), new(big.Int).Rsh(&lo, 128).Uint64()&0xffffffff)
	require.Equal(t, uint64(3), new(big.Int).Rsh(&lo, 160).Uint64()&0xffffffff)
	require.Equal(t, uint64(9), new(big.Int).Rsh(&lo, 192).Uint64())
	require.Equal(t, uint64(1), new(big.Int).Rsh(&hi, 128).Uint64())

	q.IsPointer = true
	require.NotEqual(t, enc[1], q.Encoding()[1])
}

func TestLogQueryDemuxKind(t *testing.T) {
	for _, tc := range []struct {
		query LogQuery
		kind  DemuxKind
	}{
		{LogQuery{AuxByte: STORAGE_AUX_BYTE}, DemuxStorage},
		{LogQuery{AuxByte: EVENT_AUX_BYTE}, DemuxEvents},
		{LogQuery{AuxByte: L1_MESSAGE_AUX_BYTE}, DemuxL1Messages},
		{LogQuery{AuxByte: TRANSIENT_STORAGE_AUX_BYTE}, DemuxTransientStorage},
		{LogQuery{AuxByte: PRECOMPILE_AUX_BYTE, Address: PrecompileAddress(DemuxECPairing)}, DemuxECPairing},
		{LogQuery{AuxByte: PRECOMPILE_AUX_BYTE, Address: PrecompileAddress(DemuxKeccak256)}, DemuxKeccak256},
	} {
		t.Run(tc.kind.String(), func(t *testing.T) {
			require.Equal(t, tc.kind, tc.query.DemuxKind())
		})
	}
	require.Panics(t, func() { LogQuery{AuxByte: 77}.DemuxKind() })
	require.Panics(t, func() {
		LogQuery{AuxByte: PRECOMPILE_AUX_BYTE, Address: common.HexToAddress("0x1234")}.DemuxKind()
	})
}

func TestLogQueryRollbackChangesEncoding(t *testing.T) {
	q := LogQuery{Timestamp: 4, RwFlag: true, Key: *uint256.NewInt(5), WrittenValue: *uint256.NewInt(6)}
	r := q
	r.Rollback = true
	require.NotEqual(t, q.Encoding(), r.Encoding())
	require.Equal(t, q, r.Forward())
	require.Equal(t, 1, CompareLogQueriesByTimestamp(r, q))
	require.True(t, q.Reversible())
	require.False(t, LogQuery{AuxByte: PRECOMPILE_AUX_BYTE, RwFlag: true}.Reversible())
}

func TestPrecompileCallABIRoundTrip(t *testing.T) {
	abi := PrecompileCallABI{
		InputOffset: 1, InputLength: 12, OutputOffset: 40, OutputLength: 2,
		ReadPage: 1024, WritePage: 1025, Extra: 1 << 40,
	}
	key := abi.Pack()
	require.Equal(t, abi, UnpackPrecompileCallABI(&key))
}

func TestMergeChild(t *testing.T) {
	parent := FrameLogQueueDetailedState{
		FrameIdx:       1,
		ForwardTail:    commitmentOf(10),
		ForwardLength:  4,
		RollbackHead:   commitmentOf(20),
		RollbackTail:   commitmentOf(21),
		RollbackLength: 2,
	}
	child := FrameLogQueueDetailedState{
		FrameIdx:       2,
		ForwardTail:    commitmentOf(10),
		ForwardLength:  4,
		RollbackHead:   commitmentOf(30),
		RollbackTail:   commitmentOf(20),
		RollbackLength: 3,
	}

	t.Run("no panic prepends to rollback", func(t *testing.T) {
		merged := parent.MergeChild(child, false)
		require.Equal(t, child.RollbackHead, merged.RollbackHead)
		require.Equal(t, parent.RollbackTail, merged.RollbackTail)
		require.Equal(t, uint32(5), merged.RollbackLength)
		require.Equal(t, parent.ForwardTail, merged.ForwardTail)
		require.Equal(t, parent.ForwardLength, merged.ForwardLength)
		require.Equal(t, 1, merged.FrameIdx)
	})

	t.Run("panic appends to forward", func(t *testing.T) {
		merged := parent.MergeChild(child, true)
		require.Equal(t, child.RollbackTail, merged.ForwardTail)
		require.Equal(t, uint32(7), merged.ForwardLength)
		require.Equal(t, parent.RollbackHead, merged.RollbackHead)
		require.Equal(t, parent.RollbackLength, merged.RollbackLength)
	})
}
