// Package definitions fixes the numeric circuit codes shared by proofs,
// verification keys and the recursion layer, and the per-kind geometry.
package definitions

import (
	"fmt"

	"github.com/eon-protocol/eonzk/types"
)

// BaseLayerCircuitType codes are persisted with keys and proofs and must never
// be renumbered.
type BaseLayerCircuitType uint8

const (
	MainVM                   BaseLayerCircuitType = 1
	CodeDecommittmentsSorter BaseLayerCircuitType = 2
	CodeDecommitter          BaseLayerCircuitType = 3
	LogDemuxer               BaseLayerCircuitType = 4
	KeccakRoundFunction      BaseLayerCircuitType = 5
	Sha256RoundFunction      BaseLayerCircuitType = 6
	ECRecover                BaseLayerCircuitType = 7
	RAMPermutation           BaseLayerCircuitType = 8
	StorageSorter            BaseLayerCircuitType = 9
	StorageApplication       BaseLayerCircuitType = 10
	EventsSorter             BaseLayerCircuitType = 11
	L1MessagesSorter         BaseLayerCircuitType = 12
	L1MessagesHasher         BaseLayerCircuitType = 13
	TransientStorageSorter   BaseLayerCircuitType = 14
	Secp256r1Verify          BaseLayerCircuitType = 15
	EIP4844Repack            BaseLayerCircuitType = 16
	Modexp                   BaseLayerCircuitType = 17
	ECAdd                    BaseLayerCircuitType = 18
	ECMul                    BaseLayerCircuitType = 19
	ECPairing                BaseLayerCircuitType = 20
)

const MAX_BASE_LAYER_CIRCUIT_TYPE = ECPairing

var baseDescriptions = map[BaseLayerCircuitType]string{
	MainVM:                   "Main VM",
	CodeDecommittmentsSorter: "Decommitts sorter",
	CodeDecommitter:          "Code decommitter",
	LogDemuxer:               "Log demuxer",
	KeccakRoundFunction:      "Keccak",
	Sha256RoundFunction:      "SHA256",
	ECRecover:                "ECRecover",
	RAMPermutation:           "RAM permutation",
	StorageSorter:            "Storage sorter",
	StorageApplication:       "Storage application",
	EventsSorter:             "Events sorter",
	L1MessagesSorter:         "L1 messages sorter",
	L1MessagesHasher:         "L1 messages rehasher",
	TransientStorageSorter:   "Transient storage sorter",
	Secp256r1Verify:          "Secp256r1 verify",
	EIP4844Repack:            "EIP4844 repack",
	Modexp:                   "Modexp",
	ECAdd:                    "ECAdd",
	ECMul:                    "ECMul",
	ECPairing:                "ECPairing",
}

// BaseLayerCircuitTypeFromNumeric panics on codes it does not know.
func BaseLayerCircuitTypeFromNumeric(v uint8) BaseLayerCircuitType {
	kind := BaseLayerCircuitType(v)
	if _, ok := baseDescriptions[kind]; !ok {
		panic(fmt.Sprintf("unknown base layer circuit type %d", v))
	}
	return kind
}

func (me BaseLayerCircuitType) ShortDescription() string {
	if d, ok := baseDescriptions[me]; ok {
		return d
	}
	panic(fmt.Sprintf("unknown base layer circuit type %d", uint8(me)))
}

func (me BaseLayerCircuitType) String() string {
	return me.ShortDescription()
}

// RecursionLayerStorageType numbers the recursive circuits. Leaves occupy a
// contiguous block, one per base kind, at base code + 2.
type RecursionLayerStorageType uint8

const (
	SchedulerCircuit    RecursionLayerStorageType = 1
	NodeLayerCircuit    RecursionLayerStorageType = 2
	FIRST_LEAF_CIRCUIT  RecursionLayerStorageType = 3
	LAST_LEAF_CIRCUIT   RecursionLayerStorageType = RecursionLayerStorageType(MAX_BASE_LAYER_CIRCUIT_TYPE) + 2
	RecursionTipCircuit RecursionLayerStorageType = 255
)

const leafOffset = uint8(FIRST_LEAF_CIRCUIT) - uint8(MainVM)

func (me RecursionLayerStorageType) IsLeaf() bool {
	return me >= FIRST_LEAF_CIRCUIT && me <= LAST_LEAF_CIRCUIT
}

func RecursionLayerStorageTypeFromNumeric(v uint8) RecursionLayerStorageType {
	kind := RecursionLayerStorageType(v)
	switch {
	case kind == SchedulerCircuit, kind == NodeLayerCircuit, kind == RecursionTipCircuit, kind.IsLeaf():
		return kind
	default:
		panic(fmt.Sprintf("unknown recursion layer circuit type %d", v))
	}
}

func (me RecursionLayerStorageType) ShortDescription() string {
	switch {
	case me == SchedulerCircuit:
		return "Scheduler"
	case me == NodeLayerCircuit:
		return "Node"
	case me == RecursionTipCircuit:
		return "Recursion tip"
	case me.IsLeaf():
		return "Leaf for " + LeafIntoBase(me).ShortDescription()
	default:
		panic(fmt.Sprintf("unknown recursion layer circuit type %d", uint8(me)))
	}
}

func (me RecursionLayerStorageType) String() string {
	return me.ShortDescription()
}

// BaseIntoLeaf maps a base kind to the leaf that aggregates it.
func BaseIntoLeaf(kind BaseLayerCircuitType) RecursionLayerStorageType {
	return RecursionLayerStorageType(uint8(BaseLayerCircuitTypeFromNumeric(uint8(kind))) + leafOffset)
}

func LeafIntoBase(kind RecursionLayerStorageType) BaseLayerCircuitType {
	if !kind.IsLeaf() {
		panic(fmt.Sprintf("recursion layer circuit type %d is not a leaf", uint8(kind)))
	}
	return BaseLayerCircuitType(uint8(kind) - leafOffset)
}

// SCHEDULE_ORDER is the order in which the recursion tip and the scheduler
// see the per-kind aggregation results.
var SCHEDULE_ORDER = []BaseLayerCircuitType{
	MainVM,
	CodeDecommittmentsSorter,
	CodeDecommitter,
	LogDemuxer,
	KeccakRoundFunction,
	Sha256RoundFunction,
	ECRecover,
	RAMPermutation,
	StorageSorter,
	StorageApplication,
	EventsSorter,
	L1MessagesSorter,
	L1MessagesHasher,
	TransientStorageSorter,
	Secp256r1Verify,
	EIP4844Repack,
	Modexp,
	ECAdd,
	ECMul,
	ECPairing,
}

var NUM_CIRCUIT_TYPES_TO_SCHEDULE = len(SCHEDULE_ORDER)

// MEMORY_CHAIN_ORDER lists the circuits that extend the unsorted memory
// queue, in the order they extend it. The RAM permutation consumes its end.
var MEMORY_CHAIN_ORDER = []BaseLayerCircuitType{
	MainVM,
	CodeDecommitter,
	KeccakRoundFunction,
	Sha256RoundFunction,
	ECRecover,
	Secp256r1Verify,
	Modexp,
	ECAdd,
	ECMul,
	ECPairing,
}

// ForDemuxOutput is the circuit consuming a demultiplexed log sub-queue.
func ForDemuxOutput(kind types.DemuxKind) BaseLayerCircuitType {
	switch kind {
	case types.DemuxStorage:
		return StorageSorter
	case types.DemuxEvents:
		return EventsSorter
	case types.DemuxL1Messages:
		return L1MessagesSorter
	case types.DemuxTransientStorage:
		return TransientStorageSorter
	case types.DemuxKeccak256:
		return KeccakRoundFunction
	case types.DemuxSha256:
		return Sha256RoundFunction
	case types.DemuxECRecover:
		return ECRecover
	case types.DemuxSecp256r1Verify:
		return Secp256r1Verify
	case types.DemuxModexp:
		return Modexp
	case types.DemuxECAdd:
		return ECAdd
	case types.DemuxECMul:
		return ECMul
	case types.DemuxECPairing:
		return ECPairing
	default:
		panic(fmt.Sprintf("no circuit for demux output %s", kind))
	}
}
