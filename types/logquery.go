package types

import (
	"bytes"
	"cmp"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type LogQuery struct {
	Timestamp       uint32         `json:"timestamp"`
	TxNumberInBlock uint32         `json:"txNumber"`
	AuxByte         uint8          `json:"aux"`
	ShardID         uint8          `json:"shard"`
	Address         common.Address `json:"address"`
	Key             uint256.Int    `json:"key"`
	ReadValue       uint256.Int    `json:"readValue"`
	WrittenValue    uint256.Int    `json:"writtenValue"`
	RwFlag          bool           `json:"rw"`
	Rollback        bool           `json:"rollback"`
	IsService       bool           `json:"isService"`
}

func (me LogQuery) Encoding() []fr.Element {
	return []fr.Element{
		pack(addressField(me.Address), u8Field(me.ShardID), u8Field(me.AuxByte), u32Field(me.TxNumberInBlock), u32Field(me.Timestamp)),
		pack(lowHalf(&me.Key), boolField(me.RwFlag), boolField(me.Rollback), boolField(me.IsService)),
		pack(highHalf(&me.Key)),
		pack(lowHalf(&me.ReadValue)),
		pack(highHalf(&me.ReadValue)),
		pack(lowHalf(&me.WrittenValue)),
		pack(highHalf(&me.WrittenValue)),
	}
}

// Reversible queries get a rollback copy recorded next to the forward one.
func (me LogQuery) Reversible() bool {
	return me.RwFlag && me.AuxByte != PRECOMPILE_AUX_BYTE
}

// Forward returns the query with the rollback flag cleared.
func (me LogQuery) Forward() LogQuery {
	me.Rollback = false
	return me
}

// CompareStorageKeys orders storage-like queries by (address, key).
func CompareStorageKeys(a, b LogQuery) int {
	if c := bytes.Compare(a.Address[:], b.Address[:]); c != 0 {
		return c
	}
	return a.Key.Cmp(&b.Key)
}

// CompareLogQueriesByKey orders by (address, key, timestamp), forward before rollback.
func CompareLogQueriesByKey(a, b LogQuery) int {
	if c := CompareStorageKeys(a, b); c != 0 {
		return c
	}
	return compareTimestampThenRollback(a, b)
}

// CompareLogQueriesByTimestamp orders by timestamp, forward before rollback.
func CompareLogQueriesByTimestamp(a, b LogQuery) int {
	return compareTimestampThenRollback(a, b)
}

func compareTimestampThenRollback(a, b LogQuery) int {
	if c := cmp.Compare(a.Timestamp, b.Timestamp); c != 0 {
		return c
	}
	switch {
	case a.Rollback == b.Rollback:
		return 0
	case b.Rollback:
		return -1
	default:
		return 1
	}
}

// DemuxKind is the sub-queue a log query is routed to by the demultiplexer.
type DemuxKind uint8

const (
	DemuxStorage DemuxKind = iota
	DemuxEvents
	DemuxL1Messages
	DemuxTransientStorage
	DemuxKeccak256
	DemuxSha256
	DemuxECRecover
	DemuxSecp256r1Verify
	DemuxModexp
	DemuxECAdd
	DemuxECMul
	DemuxECPairing
	NUM_DEMUX_OUTPUTS
)

var demuxNames = [NUM_DEMUX_OUTPUTS]string{
	"storage", "events", "l1_messages", "transient_storage",
	"keccak256", "sha256", "ecrecover", "secp256r1_verify",
	"modexp", "ecadd", "ecmul", "ecpairing",
}

func (me DemuxKind) String() string {
	if me < NUM_DEMUX_OUTPUTS {
		return demuxNames[me]
	}
	return fmt.Sprintf("DemuxKind(%d)", uint8(me))
}

var precompileDemux = map[uint64]DemuxKind{
	KECCAK256_PRECOMPILE_ADDRESS:        DemuxKeccak256,
	SHA256_PRECOMPILE_ADDRESS:           DemuxSha256,
	ECRECOVER_PRECOMPILE_ADDRESS:        DemuxECRecover,
	SECP256R1_VERIFY_PRECOMPILE_ADDRESS: DemuxSecp256r1Verify,
	MODEXP_PRECOMPILE_ADDRESS:           DemuxModexp,
	ECADD_PRECOMPILE_ADDRESS:            DemuxECAdd,
	ECMUL_PRECOMPILE_ADDRESS:            DemuxECMul,
	ECPAIRING_PRECOMPILE_ADDRESS:        DemuxECPairing,
}

// PrecompileAddress returns the address a precompile kind is called at.
func PrecompileAddress(kind DemuxKind) common.Address {
	for addr, k := range precompileDemux {
		if k == kind {
			return common.BigToAddress(new(uint256.Int).SetUint64(addr).ToBig())
		}
	}
	panic(fmt.Sprintf("%s is not a precompile", kind))
}

// DemuxKind classifies the query. Unknown aux bytes or precompile addresses panic.
func (me LogQuery) DemuxKind() DemuxKind {
	switch me.AuxByte {
	case STORAGE_AUX_BYTE:
		return DemuxStorage
	case EVENT_AUX_BYTE:
		return DemuxEvents
	case L1_MESSAGE_AUX_BYTE:
		return DemuxL1Messages
	case TRANSIENT_STORAGE_AUX_BYTE:
		return DemuxTransientStorage
	case PRECOMPILE_AUX_BYTE:
		addr := new(uint256.Int).SetBytes(me.Address[:])
		if addr.IsUint64() {
			if kind, ok := precompileDemux[addr.Uint64()]; ok {
				return kind
			}
		}
		panic(fmt.Sprintf("precompile call to unknown address %s at timestamp %d", me.Address, me.Timestamp))
	default:
		panic(fmt.Sprintf("unknown aux byte %d at timestamp %d", me.AuxByte, me.Timestamp))
	}
}
