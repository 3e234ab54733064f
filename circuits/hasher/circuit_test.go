package hasher

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	frbls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381/fr"

	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/test"
)

// These tests cross-check the circuit sponge against the native one.

type permCircuit struct {
	Input  [STATE_WIDTH]frontend.Variable
	Output [STATE_WIDTH]frontend.Variable `gnark:",public"`
}

func (c *permCircuit) Define(api frontend.API) error {
	perm, err := NewPermutation(api, STATE_WIDTH)
	if err != nil {
		return fmt.Errorf("new poseidon2 perm: %w", err)
	}
	state := c.Input[:]
	if err := perm.Permutation(state); err != nil {
		return fmt.Errorf("permute: %w", err)
	}
	for i := range state {
		api.AssertIsEqual(c.Output[i], state[i])
	}
	return nil
}

func TestPermutation_MatchesNative(t *testing.T) {
	assert := test.NewAssert(t)

	for it := 0; it < 4; it++ {
		var in State
		for i := range in {
			in[i].SetRandom()
		}
		out := in
		RoundFunction(&out)

		var witness permCircuit
		for i := range in {
			witness.Input[i] = in[i].String()
			witness.Output[i] = out[i].String()
		}
		assert.SolvingSucceeded(&permCircuit{}, &witness, test.WithCurves(ecc.BLS12_381))
	}
}

type queuePushCircuit struct {
	Tail     [COMMITMENT_WIDTH]frontend.Variable
	Encoding [5]frontend.Variable
	NewTail  [COMMITMENT_WIDTH]frontend.Variable `gnark:",public"`
}

func (c *queuePushCircuit) Define(api frontend.API) error {
	sponge, err := NewSponge(api)
	if err != nil {
		return err
	}
	got := sponge.QueuePush(c.Tail[:], c.Encoding[:])
	for i := range got {
		api.AssertIsEqual(got[i], c.NewTail[i])
	}
	return nil
}

func TestQueuePush_MatchesNative(t *testing.T) {
	assert := test.NewAssert(t)

	var tail Commitment
	var encoding [5]frbls12381.Element
	for i := range tail {
		tail[i].SetRandom()
	}
	for i := range encoding {
		encoding[i].SetUint64(uint64(1000 + i))
	}
	newTail := Commit(append(encoding[:], tail[:]...)...)

	var witness queuePushCircuit
	for i := range tail {
		witness.Tail[i] = tail[i].String()
		witness.NewTail[i] = newTail[i].String()
	}
	for i := range encoding {
		witness.Encoding[i] = encoding[i].String()
	}
	assert.SolvingSucceeded(&queuePushCircuit{}, &witness, test.WithCurves(ecc.BLS12_381))

	witness.NewTail[0] = tail[0].String()
	assert.SolvingFailed(&queuePushCircuit{}, &witness, test.WithCurves(ecc.BLS12_381))
}

type unpackCircuit struct {
	Packed frontend.Variable
	Fields [4]frontend.Variable `gnark:",public"`
}

func (c *unpackCircuit) Define(api frontend.API) error {
	outs, err := UnpackFields(api, c.Packed, 128, 32, 32, 32)
	if err != nil {
		return err
	}
	for i := range outs {
		api.AssertIsEqual(outs[i], c.Fields[i])
	}
	return nil
}

func TestUnpackFields(t *testing.T) {
	assert := test.NewAssert(t)

	lo := new(big.Int).Lsh(big.NewInt(0xdeadbeef), 90)
	fields := []*big.Int{lo, big.NewInt(7), big.NewInt(0x1000), big.NewInt(42)}
	packed := new(big.Int)
	shift := uint(0)
	for i, w := range []uint{128, 32, 32, 32} {
		packed.Or(packed, new(big.Int).Lsh(fields[i], shift))
		shift += w
	}

	witness := unpackCircuit{Packed: packed}
	for i := range fields {
		witness.Fields[i] = fields[i]
	}
	assert.SolvingSucceeded(&unpackCircuit{}, &witness, test.WithCurves(ecc.BLS12_381))
}
