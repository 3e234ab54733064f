// native (off-circuit) sponge functions
package hasher

import (
	"fmt"
	"log"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
)

type AbsorptionMode uint8

const (
	AbsorptionOverwrite AbsorptionMode = iota
	AbsorptionAdd
)

// RoundPair holds the sponge state right before and right after one permutation.
type RoundPair struct {
	Input  State
	Output State
}

func InitialState() State {
	return State{}
}

func AbsorbIntoState(state *State, mode AbsorptionMode, chunk *[RATE]fr.Element) {
	switch mode {
	case AbsorptionOverwrite:
		copy(state[:RATE], chunk[:])
	case AbsorptionAdd:
		for i := range chunk {
			state[i].Add(&state[i], &chunk[i])
		}
	default:
		panic(fmt.Sprintf("unknown absorption mode %d", mode))
	}
}

func RoundFunction(state *State) {
	if err := GetPermutation().Permutation(state[:]); err != nil {
		log.Fatalln(err)
	}
}

// SpecializeForLen binds the total input length into the capacity lane.
func SpecializeForLen(length uint32, state *State) {
	state[RATE].SetUint64(uint64(length))
}

func StateIntoCommitment(state *State) (ret Commitment) {
	copy(ret[:], state[:COMMITMENT_WIDTH])
	return
}

// NumRounds is the number of permutations needed to absorb n elements.
func NumRounds(n int) int {
	return (n + RATE - 1) / RATE
}

// AbsorbChunks absorbs input in RATE sized chunks, zero padding the last one,
// and applies the round function after every chunk.
func AbsorbChunks(state *State, mode AbsorptionMode, input []fr.Element) []RoundPair {
	pairs := make([]RoundPair, 0, NumRounds(len(input)))
	for i := 0; i < len(input); i += RATE {
		var chunk [RATE]fr.Element
		copy(chunk[:], input[i:min(i+RATE, len(input))])
		AbsorbIntoState(state, mode, &chunk)
		pair := RoundPair{Input: *state}
		RoundFunction(state)
		pair.Output = *state
		pairs = append(pairs, pair)
	}
	return pairs
}

// AbsorbWithReplacement hashes input from the initial state in overwrite mode.
func AbsorbWithReplacement(input []fr.Element) (State, []RoundPair) {
	state := InitialState()
	pairs := AbsorbChunks(&state, AbsorptionOverwrite, input)
	return state, pairs
}

func Commit(input ...fr.Element) Commitment {
	state, _ := AbsorbWithReplacement(input)
	return StateIntoCommitment(&state)
}

func (me Commitment) IsZero() bool {
	for i := range me {
		if !me[i].IsZero() {
			return false
		}
	}
	return true
}

func (me Commitment) String() string {
	return joinElements(me[:])
}

func (me State) String() string {
	return joinElements(me[:])
}

func joinElements(vals []fr.Element) string {
	parts := make([]string, len(vals))
	for i := range vals {
		parts[i] = vals[i].String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
