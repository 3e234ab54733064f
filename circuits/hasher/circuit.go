// Package hasher provides the Poseidon2 sponge used by every queue commitment,
// natively and as a gnark gadget. Currently only supports BLS12-381.
package hasher

import (
	"errors"
	"fmt"
	"math/big"

	poseidonbls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381/fr/poseidon2"
	"github.com/consensys/gnark/frontend"
)

var (
	ErrInvalidSizebuffer = errors.New("the size of the input should match the size of the hash buffer")
)

// In-circuit Poseidon2 permutation implementation.
type Permutation struct {
	api    frontend.API
	params parameters
}

type parameters struct {
	width           int
	degreeSBox      int
	nbFullRounds    int
	nbPartialRounds int
	// Round keys arranged as [round][lane].
	roundKeys [][]big.Int
}

// NewPermutation builds an in-circuit permutation of the given width with the
// ROUND_* and SEED parameters of vars.go. Only widths 2 and 3 are supported.
func NewPermutation(api frontend.API, width int) (*Permutation, error) {
	if width != 2 && width != 3 {
		return nil, fmt.Errorf("unsupported permutation width %d", width)
	}
	params := parameters{
		width:           width,
		degreeSBox:      poseidonbls12381.DegreeSBox(),
		nbFullRounds:    ROUND_FULL,
		nbPartialRounds: ROUND_PARTIAL,
	}

	var concreteParams *poseidonbls12381.Parameters
	if USESEED {
		concreteParams = poseidonbls12381.NewParametersWithSeed(width, ROUND_FULL, ROUND_PARTIAL, SEED)
	} else {
		concreteParams = poseidonbls12381.NewParameters(width, ROUND_FULL, ROUND_PARTIAL)
	}

	params.roundKeys = make([][]big.Int, len(concreteParams.RoundKeys))
	for i := range params.roundKeys {
		params.roundKeys[i] = make([]big.Int, len(concreteParams.RoundKeys[i]))
		for j := range params.roundKeys[i] {
			concreteParams.RoundKeys[i][j].BigInt(&params.roundKeys[i][j])
		}
	}

	return &Permutation{api: api, params: params}, nil
}

func (h *Permutation) sBox(index int, input []frontend.Variable) {
	tmp := input[index]
	switch h.params.degreeSBox {
	case 5:
		input[index] = h.api.Mul(input[index], input[index])
		input[index] = h.api.Mul(input[index], input[index])
		input[index] = h.api.Mul(input[index], tmp)
	default:
		panic("unsupported sBox degree")
	}
}

func (h *Permutation) matMulExternalInPlace(input []frontend.Variable) {
	switch h.params.width {
	case 2:
		tmp := h.api.Add(input[0], input[1])
		input[0] = h.api.Add(tmp, input[0])
		input[1] = h.api.Add(tmp, input[1])
	case 3:
		tmp := h.api.Add(input[0], input[1])
		tmp = h.api.Add(tmp, input[2])
		input[0] = h.api.Add(input[0], tmp)
		input[1] = h.api.Add(input[1], tmp)
		input[2] = h.api.Add(input[2], tmp)
	}
}

// matMulInternalInPlace applies the sparse internal matrix, aligned with gnark-crypto.
func (h *Permutation) matMulInternalInPlace(input []frontend.Variable) {
	switch h.params.width {
	case 2:
		sum := h.api.Add(input[0], input[1])
		input[0] = h.api.Add(input[0], sum)
		input[1] = h.api.Mul(2, input[1])
		input[1] = h.api.Add(input[1], sum)
	case 3:
		sum := h.api.Add(input[0], input[1])
		sum = h.api.Add(sum, input[2])
		input[0] = h.api.Add(input[0], sum)
		input[1] = h.api.Add(input[1], sum)
		input[2] = h.api.Mul(input[2], 2)
		input[2] = h.api.Add(input[2], sum)
	}
}

func (h *Permutation) addRoundKeyInPlace(round int, input []frontend.Variable) {
	for i := 0; i < len(h.params.roundKeys[round]); i++ {
		input[i] = h.api.Add(input[i], h.params.roundKeys[round][i])
	}
}

// Permutation applies the Poseidon2 permutation in place.
func (h *Permutation) Permutation(input []frontend.Variable) error {
	if len(input) != h.params.width {
		return ErrInvalidSizebuffer
	}

	h.matMulExternalInPlace(input)

	rf := h.params.nbFullRounds / 2
	for i := 0; i < rf; i++ {
		h.addRoundKeyInPlace(i, input)
		for j := 0; j < h.params.width; j++ {
			h.sBox(j, input)
		}
		h.matMulExternalInPlace(input)
	}
	for i := rf; i < rf+h.params.nbPartialRounds; i++ {
		h.addRoundKeyInPlace(i, input)
		h.sBox(0, input)
		h.matMulInternalInPlace(input)
	}
	for i := rf + h.params.nbPartialRounds; i < h.params.nbFullRounds+h.params.nbPartialRounds; i++ {
		h.addRoundKeyInPlace(i, input)
		for j := 0; j < h.params.width; j++ {
			h.sBox(j, input)
		}
		h.matMulExternalInPlace(input)
	}
	return nil
}

// Sponge is the in-circuit equivalent of the native AbsorbWithReplacement/Commit pair.
type Sponge struct {
	api  frontend.API
	perm *Permutation
}

func NewSponge(api frontend.API) (*Sponge, error) {
	perm, err := NewPermutation(api, STATE_WIDTH)
	if err != nil {
		return nil, err
	}
	return &Sponge{api: api, perm: perm}, nil
}

// AbsorbWithReplacement overwrites the rate lanes chunk by chunk starting from
// the zero state and returns the final state.
func (me *Sponge) AbsorbWithReplacement(input []frontend.Variable) []frontend.Variable {
	state := make([]frontend.Variable, STATE_WIDTH)
	for i := range state {
		state[i] = 0
	}
	for i := 0; i < len(input); i += RATE {
		for j := 0; j < RATE; j++ {
			if i+j < len(input) {
				state[j] = input[i+j]
			} else {
				state[j] = 0
			}
		}
		if err := me.perm.Permutation(state); err != nil {
			panic(err)
		}
	}
	return state
}

func (me *Sponge) Commit(input ...frontend.Variable) []frontend.Variable {
	return me.AbsorbWithReplacement(input)[:COMMITMENT_WIDTH]
}

// QueuePush returns the new tail after pushing an item encoding onto a queue
// whose current tail is given.
func (me *Sponge) QueuePush(tail, encoding []frontend.Variable) []frontend.Variable {
	if len(tail) != COMMITMENT_WIDTH {
		panic(fmt.Sprintf("queue tail must have %d elements, got %d", COMMITMENT_WIDTH, len(tail)))
	}
	input := make([]frontend.Variable, 0, len(encoding)+len(tail))
	input = append(input, encoding...)
	input = append(input, tail...)
	return me.Commit(input...)
}
