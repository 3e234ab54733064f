package types

import "github.com/consensys/gnark-crypto/ecc/bls12-381/fr"

// RecursionRequest is queued once per base layer circuit instance.
type RecursionRequest struct {
	CircuitType uint8
	PublicInput [INPUT_OUTPUT_COMMITMENT_LENGTH]fr.Element
}

func (me RecursionRequest) Encoding() []fr.Element {
	return Enc{}.U64(uint64(me.CircuitType)).Elements(me.PublicInput[:]...)
}
