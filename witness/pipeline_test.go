package witness

import (
	"context"
	"testing"

	"github.com/eon-protocol/eonzk/circuits/definitions"
	"github.com/eon-protocol/eonzk/tracer"
	"github.com/eon-protocol/eonzk/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

// smallGeometry splits even a short synthetic block into several instances
// per kind.
func smallGeometry() definitions.GeometryConfig {
	g := definitions.DefaultGeometry()
	g.CyclesPerVmSnapshot = 64
	g.CyclesPerLogDemuxer = 16
	g.CyclesPerStorageSorter = 16
	g.CyclesPerEventsOrL1MessagesSorter = 8
	g.CyclesPerRamPermutation = 64
	g.CyclesCodeDecommitterSorter = 4
	g.CyclesPerCodeDecommitter = 8
	g.CyclesPerStorageApplication = 8
	g.CyclesPerKeccak256Circuit = 2
	g.CyclesPerSha256Circuit = 2
	g.CyclesPerTransientStorageSorter = 4
	g.ElementsPerEIP4844Blob = 64
	return g
}

func TestRunSyntheticBlock(t *testing.T) {
	trace := tracer.Synthetic(11, 600)
	geometry := smallGeometry()
	w, err := Run(context.Background(), trace, geometry)
	require.NoError(t, err)

	require.Len(t, w.Results, definitions.NUM_CIRCUIT_TYPES_TO_SCHEDULE)
	perKind := make(map[definitions.BaseLayerCircuitType]int)
	for _, c := range w.Circuits {
		perKind[c.Kind()]++
		require.LessOrEqual(t, c.Capacity(), geometry.CapacityFor(c.Kind()))
	}
	for i, r := range w.Results {
		require.Equal(t, definitions.SCHEDULE_ORDER[i], r.Kind)
		require.Equal(t, perKind[r.Kind], int(r.RecursionQueue.NumItems), "%s", r.Kind)
		require.NotEmpty(t, r.CompactForms)
		require.True(t, r.CompactForms[0].StartFlag)
		require.True(t, r.CompactForms[len(r.CompactForms)-1].CompletionFlag)
	}
	require.Equal(t, int((trace.TotalCycles+63)/64), perKind[definitions.MainVM])
	require.Greater(t, perKind[definitions.MainVM], 1)
	require.Equal(t, 1, perKind[definitions.L1MessagesHasher])

	// the memory queue is handed from kind to kind and ends where the RAM
	// permutation starts
	chain := w.Aux.MemoryChain
	require.Len(t, chain, len(definitions.MEMORY_CHAIN_ORDER))
	for i, link := range chain {
		if i > 0 {
			require.Equal(t, chain[i-1].Output, link.Input, "%s", link.Kind)
		}
		if link.Skipped {
			require.Equal(t, link.Input, link.Output, "%s", link.Kind)
		}
	}
	require.Equal(t, chain[0].Output, w.Aux.MainVm.MemoryQueueFinalState)
	last := chain[len(chain)-1].Output
	require.Equal(t, last.Tail, w.Aux.RamUnsortedState.Tail)
	require.Equal(t, last.Length, w.Aux.RamUnsortedState.Length)

	require.Len(t, w.Aux.BlobVersionedHashes, perKind[definitions.EIP4844Repack])
	for _, h := range w.Aux.BlobVersionedHashes {
		require.Equal(t, byte(BLOB_VERSIONED_HASH_BYTE), h[0])
	}
	require.Equal(t, w.Aux.Block, trace.Block)
	require.Equal(t, w.ResultsFor(definitions.RAMPermutation), w.Results[7])
}

func TestRunIsDeterministic(t *testing.T) {
	a, err := Run(context.Background(), tracer.Synthetic(5, 300), smallGeometry())
	require.NoError(t, err)
	b, err := Run(context.Background(), tracer.Synthetic(5, 300), smallGeometry())
	require.NoError(t, err)
	require.Equal(t, len(a.Circuits), len(b.Circuits))
	for i := range a.Circuits {
		require.Equal(t, a.Circuits[i].PublicInput(), b.Circuits[i].PublicInput())
	}
}

func TestRunGeometryChangesOnlyInstanceCount(t *testing.T) {
	trace := tracer.Synthetic(9, 300)
	small, err := Run(context.Background(), trace, smallGeometry())
	require.NoError(t, err)
	large, err := Run(context.Background(), trace, definitions.DefaultGeometry())
	require.NoError(t, err)
	require.Greater(t, len(small.Circuits), len(large.Circuits))
	require.Equal(t, small.Aux.StorageApplication, large.Aux.StorageApplication)
	require.Equal(t, small.Aux.L1MessagesLinearHash, large.Aux.L1MessagesLinearHash)
	require.Equal(t, small.Aux.RamUnsortedState, large.Aux.RamUnsortedState)
	require.Equal(t, small.Aux.MainVm, large.Aux.MainVm)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, tracer.Synthetic(2, 200), smallGeometry())
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunRejectsBadGeometry(t *testing.T) {
	g := smallGeometry()
	g.CyclesPerEcAddCircuit = 0
	_, err := Run(context.Background(), tracer.Synthetic(2, 50), g)
	require.Error(t, err)
}

func TestRunRejectsMissingBytecode(t *testing.T) {
	b := tracer.NewBuilder(tracer.BlockMeta{})
	b.Decommit(common.HexToHash("0x01"), []uint256.Int{word(1)})
	trace := b.Finish()
	clear(trace.Bytecodes)
	require.Panics(t, func() { Run(context.Background(), trace, smallGeometry()) })
}

func TestRunRejectsTooManyL1Messages(t *testing.T) {
	b := tracer.NewBuilder(tracer.BlockMeta{})
	for range 3 {
		b.SendL1Message(word(1), word(2), false)
	}
	g := smallGeometry()
	g.LimitForL1MessagesPudataHasher = 2
	require.Panics(t, func() { Run(context.Background(), b.Finish(), g) })
}

func TestPrecompileMemoryTrafficMismatch(t *testing.T) {
	b := tracer.NewBuilder(tracer.BlockMeta{})
	b.CallPrecompile(types.DemuxSha256, []uint256.Int{word(1), word(2)}, 0)
	trace := b.Finish()
	logs := ProcessLogQueue(trace)
	calls := logs.Demuxed[types.DemuxSha256]
	require.Len(t, PrecompileMemoryTraffic(types.DemuxSha256, calls, trace.PrecompileCalls), 3)
	require.Panics(t, func() { PrecompileMemoryTraffic(types.DemuxSha256, calls, nil) })
	trace.PrecompileCalls[0].Reads = trace.PrecompileCalls[0].Reads[:1]
	require.Panics(t, func() { PrecompileMemoryTraffic(types.DemuxSha256, calls, trace.PrecompileCalls) })
}

func TestRunCompactFormPerInstance(t *testing.T) {
	w, err := Run(context.Background(), tracer.Synthetic(5, 500), smallGeometry())
	require.NoError(t, err)

	perKind := make(map[definitions.BaseLayerCircuitType][]BaseLayerCircuit)
	for _, c := range w.Circuits {
		perKind[c.Kind()] = append(perKind[c.Kind()], c)
	}
	for _, r := range w.Results {
		circuits := perKind[r.Kind]
		require.Equal(t, len(circuits), int(r.RecursionQueue.NumItems), "%s", r.Kind)
		if len(circuits) == 0 {
			require.Equal(t, []ClosedFormInputCompactForm{PlaceholderCompactForm()}, r.CompactForms, "%s", r.Kind)
			continue
		}
		require.Len(t, r.CompactForms, len(circuits), "%s", r.Kind)
		requests := r.RecursionQueue.Items()
		for i, c := range circuits {
			require.Equal(t, c.CompactForm(), r.CompactForms[i], "%s instance %d", r.Kind, i)
			require.Equal(t, c.PublicInput(), requests[i].PublicInput, "%s instance %d", r.Kind, i)
			require.NotEqual(t, PlaceholderCompactForm(), r.CompactForms[i], "%s instance %d", r.Kind, i)
		}
	}
}

func TestRunThreadsHiddenState(t *testing.T) {
	w, err := Run(context.Background(), tracer.Synthetic(5, 500), smallGeometry())
	require.NoError(t, err)

	for _, kind := range []definitions.BaseLayerCircuitType{definitions.MainVM, definitions.ECAdd} {
		forms := w.ResultsFor(kind).CompactForms
		require.Greater(t, len(forms), 1, "%s", kind)
		for i, f := range forms {
			require.Equal(t, i == 0, f.StartFlag, "%s instance %d", kind, i)
			require.Equal(t, i == len(forms)-1, f.CompletionFlag, "%s instance %d", kind, i)
			require.Equal(t, forms[0].ObservableInputCommitment, f.ObservableInputCommitment, "%s instance %d", kind, i)
			if i > 0 {
				require.Equal(t, forms[i-1].HiddenFSMOutputCommitment, f.HiddenFSMInputCommitment, "%s instance %d", kind, i)
			}
		}
		require.False(t, forms[len(forms)-1].ObservableOutputCommitment.IsZero(), "%s", kind)
	}
}
