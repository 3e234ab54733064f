package types

import "github.com/holiman/uint256"

// PrecompileCallABI is packed into the key of a precompile call log query.
// Offsets and lengths are in 32-byte words.
type PrecompileCallABI struct {
	InputOffset  uint32
	InputLength  uint32
	OutputOffset uint32
	OutputLength uint32
	ReadPage     uint32
	WritePage    uint32
	Extra        uint64
}

func (me PrecompileCallABI) Pack() uint256.Int {
	return uint256.Int{
		uint64(me.InputOffset) | uint64(me.InputLength)<<32,
		uint64(me.OutputOffset) | uint64(me.OutputLength)<<32,
		uint64(me.ReadPage) | uint64(me.WritePage)<<32,
		me.Extra,
	}
}

func UnpackPrecompileCallABI(key *uint256.Int) PrecompileCallABI {
	return PrecompileCallABI{
		InputOffset:  uint32(key[0]),
		InputLength:  uint32(key[0] >> 32),
		OutputOffset: uint32(key[1]),
		OutputLength: uint32(key[1] >> 32),
		ReadPage:     uint32(key[2]),
		WritePage:    uint32(key[2] >> 32),
		Extra:        key[3],
	}
}
