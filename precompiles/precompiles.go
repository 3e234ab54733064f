package precompiles

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/eon-protocol/eonzk/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"
)

var one = *uint256.NewInt(1)

func failure(n int) []uint256.Int {
	return make([]uint256.Int, n)
}

// WordsToBytes concatenates big-endian words and truncates to length bytes
// when length is non-zero.
func WordsToBytes(words []uint256.Int, length uint64) []byte {
	buf := make([]byte, 0, len(words)*WORD_BYTES)
	for i := range words {
		b := words[i].Bytes32()
		buf = append(buf, b[:]...)
	}
	if length != 0 && length < uint64(len(buf)) {
		buf = buf[:length]
	}
	return buf
}

func wordFromBytes(b []byte) uint256.Int {
	var w uint256.Int
	w.SetBytes(b)
	return w
}

func Keccak256(input []uint256.Int, length uint64) []uint256.Int {
	h := sha3.NewLegacyKeccak256()
	h.Write(WordsToBytes(input, length))
	return []uint256.Int{wordFromBytes(h.Sum(nil))}
}

func Sha256(input []uint256.Int, length uint64) []uint256.Int {
	digest := sha256.Sum256(WordsToBytes(input, length))
	return []uint256.Int{wordFromBytes(digest[:])}
}

// ECRecover takes (hash, v, r, s) and returns (success, address).
func ECRecover(input []uint256.Int) []uint256.Int {
	if len(input) != 4 {
		return failure(2)
	}
	hash := input[0].Bytes32()
	v := input[1]
	if !v.IsUint64() || (v.Uint64() != 27 && v.Uint64() != 28) {
		return failure(2)
	}
	if !crypto.ValidateSignatureValues(byte(v.Uint64()-27), input[2].ToBig(), input[3].ToBig(), true) {
		return failure(2)
	}
	r := input[2].Bytes32()
	s := input[3].Bytes32()
	sig := make([]byte, 0, 65)
	sig = append(sig, r[:]...)
	sig = append(sig, s[:]...)
	sig = append(sig, byte(v.Uint64()-27))
	pub, err := crypto.Ecrecover(hash[:], sig)
	if err != nil {
		return failure(2)
	}
	return []uint256.Int{one, wordFromBytes(crypto.Keccak256(pub[1:])[12:])}
}

// Secp256r1Verify takes (hash, r, s, x, y) and returns (success, is_valid).
func Secp256r1Verify(input []uint256.Int) []uint256.Int {
	if len(input) != 5 {
		return failure(2)
	}
	curve := elliptic.P256()
	n := curve.Params().N
	r, s := input[1].ToBig(), input[2].ToBig()
	if r.Sign() == 0 || s.Sign() == 0 || r.Cmp(n) >= 0 || s.Cmp(n) >= 0 {
		return failure(2)
	}
	x, y := input[3].ToBig(), input[4].ToBig()
	if !curve.IsOnCurve(x, y) {
		return failure(2)
	}
	hash := input[0].Bytes32()
	pub := ecdsa.PublicKey{Curve: curve, X: x, Y: y}
	if ecdsa.Verify(&pub, hash[:], r, s) {
		return []uint256.Int{one, one}
	}
	return []uint256.Int{one, {}}
}

// Modexp takes (base, exponent, modulus) and returns base^exponent mod modulus.
func Modexp(input []uint256.Int) []uint256.Int {
	if len(input) != 3 {
		return failure(1)
	}
	mod := input[2].ToBig()
	if mod.Sign() == 0 {
		return failure(1)
	}
	res := new(big.Int).Exp(input[0].ToBig(), input[1].ToBig(), mod)
	return []uint256.Int{*uint256.MustFromBig(res)}
}

// OutputLength is the number of words a precompile writes back.
func OutputLength(kind types.DemuxKind) uint32 {
	switch kind {
	case types.DemuxKeccak256, types.DemuxSha256, types.DemuxModexp:
		return 1
	case types.DemuxECRecover, types.DemuxSecp256r1Verify, types.DemuxECPairing:
		return 2
	case types.DemuxECAdd, types.DemuxECMul:
		return 3
	default:
		panic(fmt.Sprintf("%s is not a precompile", kind))
	}
}

// Rounds is the number of circuit cycles a call occupies.
func Rounds(kind types.DemuxKind, abi types.PrecompileCallABI) int {
	switch kind {
	case types.DemuxKeccak256:
		return int(byteLength(abi)/KECCAK_RATE_BYTES) + 1
	case types.DemuxSha256:
		return int((byteLength(abi)+9+SHA256_BLOCK_BYTES-1)/SHA256_BLOCK_BYTES)
	case types.DemuxECPairing:
		return max(1, int(abi.InputLength)/6)
	case types.DemuxECRecover, types.DemuxSecp256r1Verify, types.DemuxModexp, types.DemuxECAdd, types.DemuxECMul:
		return 1
	default:
		panic(fmt.Sprintf("%s is not a precompile", kind))
	}
}

func byteLength(abi types.PrecompileCallABI) uint64 {
	full := uint64(abi.InputLength) * WORD_BYTES
	if abi.Extra != 0 && abi.Extra < full {
		return abi.Extra
	}
	return full
}

// Execute evaluates a call on the words read from memory.
func Execute(kind types.DemuxKind, abi types.PrecompileCallABI, input []uint256.Int) []uint256.Int {
	switch kind {
	case types.DemuxKeccak256:
		return Keccak256(input, byteLength(abi))
	case types.DemuxSha256:
		return Sha256(input, byteLength(abi))
	case types.DemuxECRecover:
		return ECRecover(input)
	case types.DemuxSecp256r1Verify:
		return Secp256r1Verify(input)
	case types.DemuxModexp:
		return Modexp(input)
	case types.DemuxECAdd:
		return ECAdd(input)
	case types.DemuxECMul:
		return ECMul(input)
	case types.DemuxECPairing:
		return ECPairing(input)
	default:
		panic(fmt.Sprintf("%s is not a precompile", kind))
	}
}
