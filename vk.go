package eonzk

import (
	"fmt"
	"io"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/eon-protocol/eonzk/circuits/hasher"
	"github.com/eon-protocol/eonzk/types"
)

// Vk is the verification key of one circuit kind. The key material is opaque
// here; circuits and the recursion layer only bind to its Address.
type Vk struct {
	IsRecursive bool
	CircuitType uint8
	Elements    []fr.Element
}

func seedElement() fr.Element {
	var ret fr.Element
	ret.SetBytes([]byte(VK_SETUP_SEED))
	return ret
}

// SetupVk derives deterministic key material for a circuit kind. Two setups of
// the same kind always agree.
func SetupVk(isRecursive bool, circuitType uint8) *Vk {
	ret := &Vk{IsRecursive: isRecursive, CircuitType: circuitType, Elements: make([]fr.Element, VK_NUM_ELEMENTS)}
	prefix := types.Enc{seedElement()}.Bool(isRecursive).U64(uint64(circuitType))
	for i := range ret.Elements {
		c := hasher.Commit(prefix.U64(uint64(i))...)
		ret.Elements[i] = c[0]
	}
	return ret
}

// Address commits to the whole key.
func (me *Vk) Address() hasher.Commitment {
	return hasher.Commit(types.Enc{}.Bool(me.IsRecursive).U64(uint64(me.CircuitType)).Elements(me.Elements...)...)
}

func (me *Vk) String() string {
	layer := "base"
	if me.IsRecursive {
		layer = "recursive"
	}
	return fmt.Sprintf("%s vk %d %s", layer, me.CircuitType, me.Address())
}

func (me *Vk) WriteTo(w io.Writer) (int64, error) {
	enc := bls12381.NewEncoder(w)
	if err := enc.Encode(me.IsRecursive); err != nil {
		return enc.BytesWritten(), err
	}
	if err := enc.Encode(me.CircuitType); err != nil {
		return enc.BytesWritten(), err
	}
	if err := enc.Encode(me.Elements); err != nil {
		return enc.BytesWritten(), err
	}
	return enc.BytesWritten(), nil
}

func (me *Vk) ReadFrom(r io.Reader) (int64, error) {
	dec := bls12381.NewDecoder(r)
	if err := dec.Decode(&me.IsRecursive); err != nil {
		return dec.BytesRead(), err
	}
	if err := dec.Decode(&me.CircuitType); err != nil {
		return dec.BytesRead(), err
	}
	if err := dec.Decode(&me.Elements); err != nil {
		return dec.BytesRead(), err
	}
	if len(me.Elements) != VK_NUM_ELEMENTS {
		return dec.BytesRead(), fmt.Errorf("vk has %d elements, want %d", len(me.Elements), VK_NUM_ELEMENTS)
	}
	return dec.BytesRead(), nil
}
