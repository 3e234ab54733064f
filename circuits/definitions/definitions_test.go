package definitions

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/eon-protocol/eonzk/types"
	"github.com/stretchr/testify/require"
)

func TestNumericCodes(t *testing.T) {
	require.Equal(t, uint8(1), uint8(MainVM))
	require.Equal(t, uint8(8), uint8(RAMPermutation))
	require.Equal(t, uint8(16), uint8(EIP4844Repack))
	require.Equal(t, uint8(20), uint8(ECPairing))

	require.Equal(t, uint8(1), uint8(SchedulerCircuit))
	require.Equal(t, uint8(2), uint8(NodeLayerCircuit))
	require.Equal(t, uint8(255), uint8(RecursionTipCircuit))
	require.Equal(t, uint8(3), uint8(BaseIntoLeaf(MainVM)))
	require.Equal(t, uint8(22), uint8(BaseIntoLeaf(ECPairing)))
}

func TestLeafMappingIsTotal(t *testing.T) {
	seen := make(map[RecursionLayerStorageType]bool)
	for _, kind := range SCHEDULE_ORDER {
		leaf := BaseIntoLeaf(kind)
		require.True(t, leaf.IsLeaf())
		require.False(t, seen[leaf])
		seen[leaf] = true
		require.Equal(t, kind, LeafIntoBase(leaf))
		require.Equal(t, leaf, RecursionLayerStorageTypeFromNumeric(uint8(leaf)))
		require.NotEmpty(t, leaf.ShortDescription())
	}
	require.Len(t, seen, int(LAST_LEAF_CIRCUIT-FIRST_LEAF_CIRCUIT)+1)
}

func TestUnknownCodesPanic(t *testing.T) {
	require.PanicsWithValue(t, "unknown base layer circuit type 21", func() { BaseLayerCircuitTypeFromNumeric(21) })
	require.Panics(t, func() { BaseLayerCircuitTypeFromNumeric(0) })
	require.Panics(t, func() { BaseIntoLeaf(BaseLayerCircuitType(42)) })
	require.Panics(t, func() { LeafIntoBase(NodeLayerCircuit) })
	require.Panics(t, func() { RecursionLayerStorageTypeFromNumeric(23) })
	require.Panics(t, func() { BaseLayerCircuitType(0).ShortDescription() })
	require.Equal(t, RecursionTipCircuit, RecursionLayerStorageTypeFromNumeric(255))
}

func TestMemoryChainIsScheduled(t *testing.T) {
	require.Equal(t, MainVM, MEMORY_CHAIN_ORDER[0])
	for _, kind := range MEMORY_CHAIN_ORDER {
		require.Contains(t, SCHEDULE_ORDER, kind)
	}
	for kind := types.DemuxKind(0); kind < types.NUM_DEMUX_OUTPUTS; kind++ {
		require.Contains(t, SCHEDULE_ORDER, ForDemuxOutput(kind))
	}
}

func TestGeometry(t *testing.T) {
	geometry := DefaultGeometry()
	require.NoError(t, geometry.Validate())
	for _, kind := range SCHEDULE_ORDER {
		require.Positive(t, geometry.CapacityFor(kind))
	}
	require.Equal(t, geometry.CapacityFor(EventsSorter), geometry.CapacityFor(L1MessagesSorter))

	path := filepath.Join(t.TempDir(), "geometry.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"cycles_per_vm_snapshot": 7, "cycles_per_ram_permutation": 11}`), 0o644))
	loaded, err := LoadGeometry(path)
	require.NoError(t, err)
	require.Equal(t, 7, loaded.CapacityFor(MainVM))
	require.Equal(t, 11, loaded.CapacityFor(RAMPermutation))
	require.Equal(t, geometry.CyclesPerLogDemuxer, loaded.CyclesPerLogDemuxer)

	require.NoError(t, os.WriteFile(path, []byte(`{"cycles_per_ecadd_circuit": 0}`), 0o644))
	_, err = LoadGeometry(path)
	require.ErrorContains(t, err, "ECAdd")
}
