package eonzk

import (
	"fmt"
	"io"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/eon-protocol/eonzk/circuits/hasher"
	"github.com/eon-protocol/eonzk/types"
)

// Proof is a proof artifact as routed between layers: the circuit it belongs
// to, its public input and opaque proof data.
type Proof struct {
	IsRecursive bool
	CircuitType uint8
	PublicInput [types.INPUT_OUTPUT_COMMITMENT_LENGTH]fr.Element
	Data        []fr.Element
}

// PendingProof is the slot a prover fills for an instance with the given
// public input. Data binds the slot to the key it is to be proven under.
func PendingProof(vk *Vk, publicInput [types.INPUT_OUTPUT_COMMITMENT_LENGTH]fr.Element) *Proof {
	var seed fr.Element
	seed.SetBytes([]byte(PROOF_SEED))
	address := vk.Address()
	binding := hasher.Commit(types.Enc{seed}.Commitment(address).Elements(publicInput[:]...)...)
	return &Proof{
		IsRecursive: vk.IsRecursive,
		CircuitType: vk.CircuitType,
		PublicInput: publicInput,
		Data:        binding[:],
	}
}

// IsFor reports whether the proof slot was issued under vk.
func (me *Proof) IsFor(vk *Vk) bool {
	want := PendingProof(vk, me.PublicInput)
	if len(want.Data) != len(me.Data) || want.IsRecursive != me.IsRecursive || want.CircuitType != me.CircuitType {
		return false
	}
	for i := range want.Data {
		if !want.Data[i].Equal(&me.Data[i]) {
			return false
		}
	}
	return true
}

func (me *Proof) WriteTo(w io.Writer) (int64, error) {
	enc := bls12381.NewEncoder(w)
	if err := enc.Encode(me.IsRecursive); err != nil {
		return enc.BytesWritten(), err
	}
	if err := enc.Encode(me.CircuitType); err != nil {
		return enc.BytesWritten(), err
	}
	for i := range me.PublicInput {
		if err := enc.Encode(&me.PublicInput[i]); err != nil {
			return enc.BytesWritten(), err
		}
	}
	if err := enc.Encode(me.Data); err != nil {
		return enc.BytesWritten(), err
	}
	return enc.BytesWritten(), nil
}

func (me *Proof) ReadFrom(r io.Reader) (int64, error) {
	dec := bls12381.NewDecoder(r)
	if err := dec.Decode(&me.IsRecursive); err != nil {
		return dec.BytesRead(), err
	}
	if err := dec.Decode(&me.CircuitType); err != nil {
		return dec.BytesRead(), err
	}
	for i := range me.PublicInput {
		if err := dec.Decode(&me.PublicInput[i]); err != nil {
			return dec.BytesRead(), fmt.Errorf("public input %d: %w", i, err)
		}
	}
	if err := dec.Decode(&me.Data); err != nil {
		return dec.BytesRead(), err
	}
	return dec.BytesRead(), nil
}
