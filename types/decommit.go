package types

import (
	"bytes"
	"cmp"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type DecommitQuery struct {
	CodeHash  common.Hash `json:"codeHash"`
	Page      uint32      `json:"page"`
	Timestamp uint32      `json:"timestamp"`
	IsFresh   bool        `json:"isFresh"`
}

func (me DecommitQuery) Encoding() []fr.Element {
	var hash uint256.Int
	hash.SetBytes32(me.CodeHash[:])
	return []fr.Element{
		pack(lowHalf(&hash), u32Field(me.Page), u32Field(me.Timestamp), boolField(me.IsFresh)),
		pack(highHalf(&hash)),
	}
}

// CompareDecommitQueries orders by (code hash, timestamp).
func CompareDecommitQueries(a, b DecommitQuery) int {
	if c := bytes.Compare(a.CodeHash[:], b.CodeHash[:]); c != 0 {
		return c
	}
	return cmp.Compare(a.Timestamp, b.Timestamp)
}
