package definitions

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// GeometryConfig sizes every base layer circuit. It only decides how many
// instances a block produces, never what they contain.
type GeometryConfig struct {
	CyclesPerVmSnapshot               uint32 `json:"cycles_per_vm_snapshot"`
	CyclesPerLogDemuxer               uint32 `json:"cycles_per_log_demuxer"`
	CyclesPerStorageSorter            uint32 `json:"cycles_per_storage_sorter"`
	CyclesPerEventsOrL1MessagesSorter uint32 `json:"cycles_per_events_or_l1_messages_sorter"`
	CyclesPerRamPermutation           uint32 `json:"cycles_per_ram_permutation"`
	CyclesCodeDecommitterSorter       uint32 `json:"cycles_code_decommitter_sorter"`
	CyclesPerCodeDecommitter          uint32 `json:"cycles_per_code_decommitter"`
	CyclesPerStorageApplication       uint32 `json:"cycles_per_storage_application"`
	CyclesPerKeccak256Circuit         uint32 `json:"cycles_per_keccak256_circuit"`
	CyclesPerSha256Circuit            uint32 `json:"cycles_per_sha256_circuit"`
	CyclesPerEcrecoverCircuit         uint32 `json:"cycles_per_ecrecover_circuit"`
	CyclesPerSecp256r1VerifyCircuit   uint32 `json:"cycles_per_secp256r1_verify_circuit"`
	CyclesPerModexpCircuit            uint32 `json:"cycles_per_modexp_circuit"`
	CyclesPerEcAddCircuit             uint32 `json:"cycles_per_ecadd_circuit"`
	CyclesPerEcMulCircuit             uint32 `json:"cycles_per_ecmul_circuit"`
	CyclesPerEcPairingCircuit         uint32 `json:"cycles_per_ecpairing_circuit"`
	CyclesPerTransientStorageSorter   uint32 `json:"cycles_per_transient_storage_sorter"`
	LimitForL1MessagesPudataHasher    uint32 `json:"limit_for_l1_messages_pudata_hasher"`
	ElementsPerEIP4844Blob            uint32 `json:"elements_per_eip4844_blob"`
	MaxEIP4844Blobs                   uint32 `json:"max_eip4844_blobs"`
}

func DefaultGeometry() GeometryConfig {
	return GeometryConfig{
		CyclesPerVmSnapshot:               5713,
		CyclesPerLogDemuxer:               3922,
		CyclesPerStorageSorter:            16864,
		CyclesPerEventsOrL1MessagesSorter: 36730,
		CyclesPerRamPermutation:           136981,
		CyclesCodeDecommitterSorter:       117500,
		CyclesPerCodeDecommitter:          2048,
		CyclesPerStorageApplication:       33,
		CyclesPerKeccak256Circuit:         293,
		CyclesPerSha256Circuit:            2206,
		CyclesPerEcrecoverCircuit:         2,
		CyclesPerSecp256r1VerifyCircuit:   4,
		CyclesPerModexpCircuit:            25,
		CyclesPerEcAddCircuit:             1,
		CyclesPerEcMulCircuit:             1,
		CyclesPerEcPairingCircuit:         1,
		CyclesPerTransientStorageSorter:   50875,
		LimitForL1MessagesPudataHasher:    774,
		ElementsPerEIP4844Blob:            4096,
		MaxEIP4844Blobs:                   16,
	}
}

// LoadGeometry reads a JSON geometry. Fields absent from the file keep their
// default value.
func LoadGeometry(path string) (GeometryConfig, error) {
	geometry := DefaultGeometry()
	data, err := os.ReadFile(path)
	if err != nil {
		return geometry, fmt.Errorf("read geometry: %w", err)
	}
	if err := json.Unmarshal(data, &geometry); err != nil {
		return geometry, fmt.Errorf("decode geometry %s: %w", path, err)
	}
	if err := geometry.Validate(); err != nil {
		return geometry, fmt.Errorf("geometry %s: %w", path, err)
	}
	return geometry, nil
}

func (me GeometryConfig) Validate() error {
	for _, kind := range SCHEDULE_ORDER {
		if me.CapacityFor(kind) == 0 {
			return fmt.Errorf("zero capacity for %s", kind)
		}
	}
	if me.MaxEIP4844Blobs == 0 {
		return errors.New("zero blob limit")
	}
	return nil
}

// CapacityFor is the number of items one instance of kind processes. For
// EIP4844Repack it is the number of field elements per blob.
func (me GeometryConfig) CapacityFor(kind BaseLayerCircuitType) int {
	switch kind {
	case MainVM:
		return int(me.CyclesPerVmSnapshot)
	case CodeDecommittmentsSorter:
		return int(me.CyclesCodeDecommitterSorter)
	case CodeDecommitter:
		return int(me.CyclesPerCodeDecommitter)
	case LogDemuxer:
		return int(me.CyclesPerLogDemuxer)
	case KeccakRoundFunction:
		return int(me.CyclesPerKeccak256Circuit)
	case Sha256RoundFunction:
		return int(me.CyclesPerSha256Circuit)
	case ECRecover:
		return int(me.CyclesPerEcrecoverCircuit)
	case RAMPermutation:
		return int(me.CyclesPerRamPermutation)
	case StorageSorter:
		return int(me.CyclesPerStorageSorter)
	case StorageApplication:
		return int(me.CyclesPerStorageApplication)
	case EventsSorter, L1MessagesSorter:
		return int(me.CyclesPerEventsOrL1MessagesSorter)
	case L1MessagesHasher:
		return int(me.LimitForL1MessagesPudataHasher)
	case TransientStorageSorter:
		return int(me.CyclesPerTransientStorageSorter)
	case Secp256r1Verify:
		return int(me.CyclesPerSecp256r1VerifyCircuit)
	case EIP4844Repack:
		return int(me.ElementsPerEIP4844Blob)
	case Modexp:
		return int(me.CyclesPerModexpCircuit)
	case ECAdd:
		return int(me.CyclesPerEcAddCircuit)
	case ECMul:
		return int(me.CyclesPerEcMulCircuit)
	case ECPairing:
		return int(me.CyclesPerEcPairingCircuit)
	default:
		panic(fmt.Sprintf("unknown base layer circuit type %d", uint8(kind)))
	}
}
