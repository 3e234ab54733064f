package precompiles

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	"github.com/eon-protocol/eonzk/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func word(b []byte) uint256.Int {
	var w uint256.Int
	w.SetBytes(b)
	return w
}

func g1Words(p *bn254.G1Affine) []uint256.Int {
	return []uint256.Int{
		*uint256.MustFromBig(p.X.BigInt(new(big.Int))),
		*uint256.MustFromBig(p.Y.BigInt(new(big.Int))),
	}
}

func g2Words(q *bn254.G2Affine) []uint256.Int {
	return []uint256.Int{
		*uint256.MustFromBig(q.X.A1.BigInt(new(big.Int))),
		*uint256.MustFromBig(q.X.A0.BigInt(new(big.Int))),
		*uint256.MustFromBig(q.Y.A1.BigInt(new(big.Int))),
		*uint256.MustFromBig(q.Y.A0.BigInt(new(big.Int))),
	}
}

func TestHashes(t *testing.T) {
	require.Equal(t, word(common.FromHex("c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470")), Keccak256(nil, 0)[0])
	require.Equal(t, word(common.FromHex("e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855")), Sha256(nil, 0)[0])

	in := []uint256.Int{*uint256.NewInt(0xabcdef)}
	full := Keccak256(in, 0)[0]
	require.Equal(t, full, Keccak256(in, 32)[0])
	require.NotEqual(t, full, Keccak256(in, 31)[0])
}

func TestECRecover(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	hash := crypto.Keccak256([]byte("eonzk"))
	sig, err := crypto.Sign(hash, key)
	require.NoError(t, err)

	in := []uint256.Int{word(hash), *uint256.NewInt(uint64(sig[64]) + 27), word(sig[:32]), word(sig[32:64])}
	out := ECRecover(in)
	require.Equal(t, *uint256.NewInt(1), out[0])
	require.Equal(t, word(crypto.PubkeyToAddress(key.PublicKey).Bytes()), out[1])

	in[1] = *uint256.NewInt(29)
	require.Equal(t, failure(2), ECRecover(in))
}

func TestSecp256r1Verify(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	hash := crypto.Keccak256([]byte("eonzk"))
	r, s, err := ecdsa.Sign(rand.Reader, key, hash)
	require.NoError(t, err)

	in := []uint256.Int{
		word(hash),
		*uint256.MustFromBig(r), *uint256.MustFromBig(s),
		*uint256.MustFromBig(key.X), *uint256.MustFromBig(key.Y),
	}
	require.Equal(t, []uint256.Int{*uint256.NewInt(1), *uint256.NewInt(1)}, Secp256r1Verify(in))

	in[0] = word(crypto.Keccak256([]byte("other")))
	require.Equal(t, []uint256.Int{*uint256.NewInt(1), {}}, Secp256r1Verify(in))

	in[1] = uint256.Int{}
	require.Equal(t, failure(2), Secp256r1Verify(in))
}

func TestModexp(t *testing.T) {
	out := Modexp([]uint256.Int{*uint256.NewInt(3), *uint256.NewInt(5), *uint256.NewInt(7)})
	require.Equal(t, *uint256.NewInt(5), out[0])
	require.Equal(t, failure(1), Modexp([]uint256.Int{*uint256.NewInt(3), *uint256.NewInt(5), {}}))
}

func TestECAddMul(t *testing.T) {
	_, _, g1, _ := bn254.Generators()
	gw := g1Words(&g1)

	sum := ECAdd(append(append([]uint256.Int{}, gw...), gw...))
	double := ECMul(append(append([]uint256.Int{}, gw...), *uint256.NewInt(2)))
	require.Equal(t, *uint256.NewInt(1), sum[0])
	require.Equal(t, sum, double)

	bad := []uint256.Int{*uint256.NewInt(1), *uint256.NewInt(1)}
	require.Equal(t, failure(3), ECAdd(append(bad, gw...)))
	require.Equal(t, failure(3), ECMul(append(bad, *uint256.NewInt(2))))
}

func TestECPairing(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		require.Equal(t, []uint256.Int{*uint256.NewInt(1), *uint256.NewInt(1)}, ECPairing(nil))
	})

	t.Run("modulus coordinates", func(t *testing.T) {
		p := *uint256.MustFromBig(fp.Modulus())
		in := []uint256.Int{p, p, p, p, p, p}
		require.Equal(t, []uint256.Int{{}, {}}, ECPairing(in))
	})

	_, _, g1, g2 := bn254.Generators()
	var neg bn254.G1Affine
	neg.Neg(&g1)

	t.Run("balanced pair", func(t *testing.T) {
		var in []uint256.Int
		in = append(in, g1Words(&g1)...)
		in = append(in, g2Words(&g2)...)
		in = append(in, g1Words(&neg)...)
		in = append(in, g2Words(&g2)...)
		require.Equal(t, []uint256.Int{*uint256.NewInt(1), *uint256.NewInt(1)}, ECPairing(in))
	})

	t.Run("unbalanced pair", func(t *testing.T) {
		var in []uint256.Int
		in = append(in, g1Words(&g1)...)
		in = append(in, g2Words(&g2)...)
		in = append(in, g1Words(&g1)...)
		in = append(in, g2Words(&g2)...)
		require.Equal(t, []uint256.Int{*uint256.NewInt(1), {}}, ECPairing(in))
	})

	t.Run("window exceeded", func(t *testing.T) {
		require.Panics(t, func() { ECPairing(make([]uint256.Int, 6*(MAX_PAIRING_TUPLES+1))) })
	})
}

func TestRounds(t *testing.T) {
	abi := types.PrecompileCallABI{InputLength: 5}
	require.Equal(t, 2, Rounds(types.DemuxKeccak256, abi))
	abi.Extra = 135
	require.Equal(t, 1, Rounds(types.DemuxKeccak256, abi))
	abi.Extra = 55
	require.Equal(t, 1, Rounds(types.DemuxSha256, abi))
	abi.Extra = 56
	require.Equal(t, 2, Rounds(types.DemuxSha256, abi))
	require.Equal(t, 1, Rounds(types.DemuxECPairing, types.PrecompileCallABI{}))
	require.Equal(t, 3, Rounds(types.DemuxECPairing, types.PrecompileCallABI{InputLength: 18}))
	require.Panics(t, func() { Rounds(types.DemuxStorage, abi) })
	require.Equal(t, uint32(3), OutputLength(types.DemuxECMul))
}
