package tracer

import (
	"math/rand"

	"github.com/eon-protocol/eonzk/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

const MAX_SYNTHETIC_DEPTH = 4

var syntheticPrecompiles = []types.DemuxKind{
	types.DemuxKeccak256, types.DemuxSha256, types.DemuxECRecover, types.DemuxSecp256r1Verify,
	types.DemuxModexp, types.DemuxECAdd, types.DemuxECMul, types.DemuxECPairing,
}

func randomWord(rng *rand.Rand) uint256.Int {
	return uint256.Int{rng.Uint64(), rng.Uint64(), rng.Uint64(), rng.Uint64()}
}

func smallWord(rng *rand.Rand, n int) uint256.Int {
	return *uint256.NewInt(uint64(rng.Intn(n)))
}

func precompileInput(rng *rand.Rand, kind types.DemuxKind) []uint256.Int {
	var n int
	switch kind {
	case types.DemuxKeccak256, types.DemuxSha256:
		n = 1 + rng.Intn(8)
	case types.DemuxECRecover:
		n = 4
	case types.DemuxSecp256r1Verify:
		n = 5
	case types.DemuxModexp:
		n = 3
	case types.DemuxECAdd:
		n = 4
	case types.DemuxECMul:
		n = 3
	case types.DemuxECPairing:
		n = 6 * rng.Intn(3)
	}
	ret := make([]uint256.Int, n)
	for i := range ret {
		ret[i] = randomWord(rng)
	}
	return ret
}

// Synthetic drives a Builder through a random but well formed execution.
// The same seed always yields the same trace.
func Synthetic(seed int64, steps int) *Trace {
	rng := rand.New(rand.NewSource(seed))
	b := NewBuilder(BlockMeta{
		Number:        uint64(seed),
		Timestamp:     1_700_000_000 + uint64(seed),
		PrevStateRoot: crypto.Keccak256Hash(seedBytes(seed), []byte("state")),
		PrevBlockHash: crypto.Keccak256Hash(seedBytes(seed), []byte("block")),
	})
	contracts := make([]common.Address, 8)
	for i := range contracts {
		contracts[i] = common.BigToAddress(uint256.NewInt(0x10000 + uint64(i)).ToBig())
	}

	for i := 0; i < steps; i++ {
		switch op := rng.Intn(20); {
		case op < 4:
			b.MemoryWrite(b.HeapPage(), uint32(rng.Intn(64)), randomWord(rng))
		case op < 7:
			b.MemoryRead(b.HeapPage(), uint32(rng.Intn(64)))
		case op < 9:
			addr := contracts[rng.Intn(len(contracts))]
			key, value := smallWord(rng, 16), randomWord(rng)
			b.StorageWrite(addr, key, value)
			b.AppendPubdata(addr.Bytes())
			b.AppendPubdata(value.PaddedBytes(32))
			b.PubdataCost(int32(len(addr) + 32))
		case op < 10:
			b.StorageRead(contracts[rng.Intn(len(contracts))], smallWord(rng, 16))
		case op < 11:
			addr := contracts[rng.Intn(len(contracts))]
			if rng.Intn(2) == 0 {
				b.TransientWrite(addr, smallWord(rng, 4), randomWord(rng))
			} else {
				b.TransientRead(addr, smallWord(rng, 4))
			}
		case op < 12:
			b.EmitEvent(randomWord(rng), randomWord(rng))
		case op < 13:
			b.SendL1Message(randomWord(rng), randomWord(rng), rng.Intn(4) == 0)
		case op < 15:
			kind := syntheticPrecompiles[rng.Intn(len(syntheticPrecompiles))]
			b.CallPrecompile(kind, precompileInput(rng, kind), 0)
		case op < 16:
			code := make([]uint256.Int, 1+rng.Intn(6))
			for j := range code {
				code[j] = randomWord(rng)
			}
			hash := crypto.Keccak256Hash(seedBytes(int64(rng.Intn(4))))
			if known, ok := b.trace.Bytecodes[hash]; ok {
				code = known
			}
			b.Decommit(hash, code)
		case op < 18:
			if b.Depth() < MAX_SYNTHETIC_DEPTH {
				b.FarCall(contracts[rng.Intn(len(contracts))])
			} else {
				b.Return(rng.Intn(3) == 0)
			}
		case op < 19:
			if b.Depth() > 0 {
				b.Return(rng.Intn(3) == 0)
			} else {
				b.NewTransaction()
			}
		default:
			b.Refund(uint32(rng.Intn(1000)))
		}
	}
	for b.Depth() > 0 {
		b.Return(false)
	}
	return b.Finish()
}

func seedBytes(v int64) []byte {
	return uint256.NewInt(uint64(v)).PaddedBytes(32)
}
