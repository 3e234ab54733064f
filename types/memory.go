package types

import (
	"cmp"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/holiman/uint256"
)

type MemoryQuery struct {
	Timestamp  uint32      `json:"timestamp"`
	MemoryPage uint32      `json:"page"`
	Index      uint32      `json:"index"`
	RwFlag     bool        `json:"rw"`
	IsPointer  bool        `json:"isPointer"`
	Value      uint256.Int `json:"value"`
}

// Encoding packs the query into two elements:
// [value_lo | timestamp | page | index] and [value_hi | rw | is_pointer].
func (me MemoryQuery) Encoding() []fr.Element {
	return []fr.Element{
		pack(lowHalf(&me.Value), u32Field(me.Timestamp), u32Field(me.MemoryPage), u32Field(me.Index)),
		pack(highHalf(&me.Value), boolField(me.RwFlag), boolField(me.IsPointer)),
	}
}

// CompareMemoryQueries orders by location, then timestamp.
func CompareMemoryQueries(a, b MemoryQuery) int {
	if c := cmp.Compare(a.MemoryPage, b.MemoryPage); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Index, b.Index); c != 0 {
		return c
	}
	return cmp.Compare(a.Timestamp, b.Timestamp)
}

// SortingKey is the packed (timestamp, index, page) key compared by the RAM permutation.
func (me MemoryQuery) SortingKey() fr.Element {
	return pack(u32Field(me.Timestamp), u32Field(me.Index), u32Field(me.MemoryPage))
}

// FullKey is the packed (index, page) location.
func (me MemoryQuery) FullKey() fr.Element {
	return pack(u32Field(me.Index), u32Field(me.MemoryPage))
}
