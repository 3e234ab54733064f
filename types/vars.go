// Package types holds the zkEVM query records and their fixed-width field encodings.
package types

import "github.com/eon-protocol/eonzk/circuits/hasher"

const MEMORY_QUERY_ENCODING_WIDTH = 2
const LOG_QUERY_ENCODING_WIDTH = 7
const DECOMMIT_QUERY_ENCODING_WIDTH = 2
const CALLSTACK_ENTRY_ENCODING_WIDTH = 3
const INPUT_OUTPUT_COMMITMENT_LENGTH = hasher.COMMITMENT_WIDTH

const (
	STORAGE_AUX_BYTE           uint8 = 0
	EVENT_AUX_BYTE             uint8 = 1
	L1_MESSAGE_AUX_BYTE        uint8 = 2
	PRECOMPILE_AUX_BYTE        uint8 = 3
	TRANSIENT_STORAGE_AUX_BYTE uint8 = 4
)

const (
	ECRECOVER_PRECOMPILE_ADDRESS        uint64 = 0x01
	SHA256_PRECOMPILE_ADDRESS           uint64 = 0x02
	MODEXP_PRECOMPILE_ADDRESS           uint64 = 0x05
	ECADD_PRECOMPILE_ADDRESS            uint64 = 0x06
	ECMUL_PRECOMPILE_ADDRESS            uint64 = 0x07
	ECPAIRING_PRECOMPILE_ADDRESS        uint64 = 0x08
	SECP256R1_VERIFY_PRECOMPILE_ADDRESS uint64 = 0x100
	KECCAK256_PRECOMPILE_ADDRESS        uint64 = 0x8010
)

// Every cycle owns TIMESTAMPS_PER_CYCLE consecutive timestamps; the first
// cycle starts at STARTING_TIMESTAMP.
const STARTING_TIMESTAMP uint32 = 1024
const TIMESTAMPS_PER_CYCLE uint32 = 4

func TimestampAt(cycle uint32, sub uint32) uint32 {
	return STARTING_TIMESTAMP + cycle*TIMESTAMPS_PER_CYCLE + sub
}
