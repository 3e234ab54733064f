package witness

import (
	"fmt"
	"runtime"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/eon-protocol/eonzk/circuits/hasher"
	"github.com/eon-protocol/eonzk/types"
	"golang.org/x/sync/errgroup"
)

const NUM_PERMUTATION_ARGUMENT_REPETITIONS = 2

// GrandProducts holds one running product per repetition of the argument.
type GrandProducts [NUM_PERMUTATION_ARGUMENT_REPETITIONS]fr.Element

func OneProducts() (ret GrandProducts) {
	for i := range ret {
		ret[i].SetOne()
	}
	return
}

func (me GrandProducts) Encoding() []fr.Element {
	return types.Enc{}.Elements(me[:]...)
}

// Challenges holds, per repetition, width+1 coefficients. The first is
// always one and the last is the additive shift.
type Challenges [NUM_PERMUTATION_ARGUMENT_REPETITIONS][]fr.Element

// DeriveChallenges squeezes the permutation challenges out of a sponge that
// absorbed the transcript with its length bound into the capacity.
func DeriveChallenges(width int, transcript ...fr.Element) Challenges {
	state := hasher.InitialState()
	hasher.SpecializeForLen(uint32(len(transcript)), &state)
	hasher.AbsorbChunks(&state, hasher.AbsorptionOverwrite, transcript)

	need := NUM_PERMUTATION_ARGUMENT_REPETITIONS * width
	squeezed := make([]fr.Element, 0, need+hasher.RATE)
	for len(squeezed) < need {
		squeezed = append(squeezed, state[:hasher.RATE]...)
		hasher.RoundFunction(&state)
	}

	var ret Challenges
	for r := range ret {
		ret[r] = make([]fr.Element, width+1)
		ret[r][0].SetOne()
		copy(ret[r][1:], squeezed[r*width:(r+1)*width])
	}
	return ret
}

func (me *Challenges) term(r int, encoding []fr.Element) fr.Element {
	c := me[r]
	if len(encoding)+1 != len(c) {
		panic(fmt.Sprintf("encoding of width %d against %d challenges", len(encoding), len(c)))
	}
	term := c[len(c)-1]
	var t fr.Element
	for k := range encoding {
		t.Mul(&encoding[k], &c[k])
		term.Add(&term, &t)
	}
	return term
}

// RunningProducts returns, for every item, the product of the terms of all
// items up to and including it. Chunks are multiplied out in parallel, their
// totals folded left to right, then every chunk is rescaled in parallel.
func RunningProducts[T types.Encodable](items []T, challenges Challenges) []GrandProducts {
	n := len(items)
	ret := make([]GrandProducts, n)
	if n == 0 {
		return ret
	}
	chunkSize := (n + runtime.GOMAXPROCS(0) - 1) / runtime.GOMAXPROCS(0)
	var starts []int
	for start := 0; start < n; start += chunkSize {
		starts = append(starts, start)
	}

	var g errgroup.Group
	for _, start := range starts {
		g.Go(func() error {
			acc := OneProducts()
			for i := start; i < min(start+chunkSize, n); i++ {
				encoding := items[i].Encoding()
				for r := range acc {
					term := challenges.term(r, encoding)
					acc[r].Mul(&acc[r], &term)
				}
				ret[i] = acc
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		panic(err)
	}

	carries := make([]GrandProducts, len(starts))
	carry := OneProducts()
	for c, start := range starts {
		carries[c] = carry
		last := ret[min(start+chunkSize, n)-1]
		for r := range carry {
			carry[r].Mul(&carry[r], &last[r])
		}
	}

	var rescale errgroup.Group
	for c, start := range starts[1:] {
		scale := carries[c+1]
		rescale.Go(func() error {
			for i := start; i < min(start+chunkSize, n); i++ {
				for r := range scale {
					ret[i][r].Mul(&ret[i][r], &scale[r])
				}
			}
			return nil
		})
	}
	if err := rescale.Wait(); err != nil {
		panic(err)
	}
	return ret
}

// ProductAt is the running product after the first k items.
func ProductAt(products []GrandProducts, k int) GrandProducts {
	if k == 0 {
		return OneProducts()
	}
	return products[k-1]
}

// AssertPermutation panics unless both sides accumulated the same products.
func AssertPermutation(name string, lhs, rhs []GrandProducts) {
	if len(lhs) != len(rhs) {
		panic(fmt.Sprintf("%s: permutation over %d and %d items", name, len(lhs), len(rhs)))
	}
	if len(lhs) == 0 {
		return
	}
	if l, r := lhs[len(lhs)-1], rhs[len(rhs)-1]; l != r {
		panic(fmt.Sprintf("%s: grand product mismatch, lhs %v rhs %v", name, l, r))
	}
}
