package hasher

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/stretchr/testify/require"
)

func elements(vals ...uint64) []fr.Element {
	ret := make([]fr.Element, len(vals))
	for i, v := range vals {
		ret[i].SetUint64(v)
	}
	return ret
}

func TestCommitIsDeterministic(t *testing.T) {
	a := Commit(elements(1, 2, 3, 4, 5)...)
	b := Commit(elements(1, 2, 3, 4, 5)...)
	require.Equal(t, a, b)
	require.NotEqual(t, a, Commit(elements(1, 2, 3, 4, 6)...))
	require.False(t, a.IsZero())
	require.True(t, Commit().IsZero())
}

func TestAbsorbWithReplacementRoundPairs(t *testing.T) {
	input := elements(9, 8, 7, 6, 5)
	state, pairs := AbsorbWithReplacement(input)
	require.Len(t, pairs, NumRounds(len(input)))
	require.Equal(t, 3, len(pairs))
	require.Equal(t, state, pairs[len(pairs)-1].Output)
	for i := 1; i < len(pairs); i++ {
		// the capacity lane is only touched by the permutation
		require.Equal(t, pairs[i-1].Output[RATE], pairs[i].Input[RATE])
	}
	require.Equal(t, input[4], pairs[2].Input[0])
	require.True(t, pairs[2].Input[1].IsZero())
}

func TestAbsorptionModes(t *testing.T) {
	chunk := [RATE]fr.Element{}
	chunk[0].SetUint64(11)
	chunk[1].SetUint64(12)

	overwrite := InitialState()
	AbsorbIntoState(&overwrite, AbsorptionOverwrite, &chunk)
	add := InitialState()
	AbsorbIntoState(&add, AbsorptionAdd, &chunk)
	require.Equal(t, overwrite, add)

	AbsorbIntoState(&add, AbsorptionAdd, &chunk)
	require.Equal(t, uint64(22), add[0].Uint64())
	AbsorbIntoState(&overwrite, AbsorptionOverwrite, &chunk)
	require.Equal(t, uint64(11), overwrite[0].Uint64())
}

func TestSpecializeForLen(t *testing.T) {
	plain := InitialState()
	specialized := InitialState()
	SpecializeForLen(4, &specialized)
	AbsorbChunks(&plain, AbsorptionOverwrite, elements(1, 2, 3, 4))
	AbsorbChunks(&specialized, AbsorptionOverwrite, elements(1, 2, 3, 4))
	require.NotEqual(t, plain, specialized)
}
