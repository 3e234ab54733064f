// Centralizes the Poseidon2 sponge parameters for both native and circuit code.
package hasher

import (
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr/poseidon2"
)

const STATE_WIDTH = 3
const RATE = 2
const CAPACITY = STATE_WIDTH - RATE
const COMMITMENT_WIDTH = 2
const ROUND_FULL = 8
const ROUND_PARTIAL = 56
const USESEED = true
const SEED = "EON_ZKEVM_SPONGE_SEED"

// State is the full sponge state. Lanes [0, RATE) are the rate part, the rest is capacity.
type State [STATE_WIDTH]fr.Element

// Commitment is the queue head/tail value: the first COMMITMENT_WIDTH lanes of a state.
type Commitment [COMMITMENT_WIDTH]fr.Element

// GetPermutation returns a native Poseidon2 permutation using the parameters above.
var GetPermutation = sync.OnceValue(func() *poseidon2.Permutation {
	if USESEED {
		return poseidon2.NewPermutationWithSeed(STATE_WIDTH, ROUND_FULL, ROUND_PARTIAL, SEED)
	}
	return poseidon2.NewPermutation(STATE_WIDTH, ROUND_FULL, ROUND_PARTIAL)
})
