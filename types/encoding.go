package types

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/eon-protocol/eonzk/circuits/hasher"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Encodable items have a fixed-width encoding absorbed by queue commitments.
type Encodable interface {
	Encoding() []fr.Element
}

// bitField is one little-endian slot of a packed element.
type bitField struct {
	value *big.Int
	bits  uint
}

func u8Field(v uint8) bitField   { return bitField{new(big.Int).SetUint64(uint64(v)), 8} }
func u16Field(v uint16) bitField { return bitField{new(big.Int).SetUint64(uint64(v)), 16} }
func u32Field(v uint32) bitField { return bitField{new(big.Int).SetUint64(uint64(v)), 32} }

func boolField(v bool) bitField {
	if v {
		return bitField{big.NewInt(1), 1}
	}
	return bitField{new(big.Int), 1}
}

func addressField(a common.Address) bitField {
	return bitField{new(big.Int).SetBytes(a[:]), 160}
}

func u128Field(hi, lo uint64) bitField {
	v := new(big.Int).SetUint64(hi)
	v.Lsh(v, 64).Or(v, new(big.Int).SetUint64(lo))
	return bitField{v, 128}
}

func lowHalf(v *uint256.Int) bitField  { return u128Field(v[1], v[0]) }
func highHalf(v *uint256.Int) bitField { return u128Field(v[3], v[2]) }

// pack concatenates fields little-endian into one element. The total width
// must stay below the field size so the packing is injective.
func pack(fields ...bitField) fr.Element {
	var acc, tmp big.Int
	offset := uint(0)
	for _, f := range fields {
		tmp.Lsh(f.value, offset)
		acc.Or(&acc, &tmp)
		offset += f.bits
	}
	if offset >= fr.Bits {
		panic(fmt.Sprintf("packed encoding spans %d bits", offset))
	}
	var e fr.Element
	e.SetBigInt(&acc)
	return e
}

// Enc accumulates the encoding of composite witness structures.
type Enc []fr.Element

func (me Enc) Commitment(c hasher.Commitment) Enc {
	return append(me, c[:]...)
}

func (me Enc) State(s hasher.State) Enc {
	return append(me, s[:]...)
}

func (me Enc) U64(v uint64) Enc {
	var e fr.Element
	e.SetUint64(v)
	return append(me, e)
}

func (me Enc) Bool(v bool) Enc {
	if v {
		return me.U64(1)
	}
	return me.U64(0)
}

func (me Enc) U256(v *uint256.Int) Enc {
	return append(me, pack(lowHalf(v)), pack(highHalf(v)))
}

func (me Enc) Bytes32(b [32]byte) Enc {
	var v uint256.Int
	v.SetBytes32(b[:])
	return me.U256(&v)
}

// Bytes packs b big-endian into 31 byte elements.
func (me Enc) Bytes(b []byte) Enc {
	for i := 0; i < len(b); i += 31 {
		var e fr.Element
		e.SetBytes(b[i:min(i+31, len(b))])
		me = append(me, e)
	}
	return me
}

func (me Enc) Elements(vals ...fr.Element) Enc {
	return append(me, vals...)
}

func (me Enc) Item(item Encodable) Enc {
	return append(me, item.Encoding()...)
}
