package precompiles

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	"github.com/holiman/uint256"
)

func setCoordinate(dst *fp.Element, w *uint256.Int) bool {
	v := w.ToBig()
	if v.Cmp(fp.Modulus()) >= 0 {
		return false
	}
	dst.SetBigInt(v)
	return true
}

func g1FromWords(x, y *uint256.Int) (bn254.G1Affine, bool) {
	var p bn254.G1Affine
	if !setCoordinate(&p.X, x) || !setCoordinate(&p.Y, y) {
		return p, false
	}
	return p, p.IsOnCurve()
}

// G2 coordinates arrive as (imaginary, real) pairs.
func g2FromWords(w []uint256.Int) (bn254.G2Affine, bool) {
	var q bn254.G2Affine
	if !setCoordinate(&q.X.A1, &w[0]) || !setCoordinate(&q.X.A0, &w[1]) ||
		!setCoordinate(&q.Y.A1, &w[2]) || !setCoordinate(&q.Y.A0, &w[3]) {
		return q, false
	}
	if !q.IsOnCurve() || !q.IsInSubGroup() {
		return q, false
	}
	return q, true
}

func g1IntoWords(p *bn254.G1Affine) []uint256.Int {
	return []uint256.Int{
		one,
		*uint256.MustFromBig(p.X.BigInt(new(big.Int))),
		*uint256.MustFromBig(p.Y.BigInt(new(big.Int))),
	}
}

// ECAdd takes (x1, y1, x2, y2) and returns (success, x, y).
func ECAdd(input []uint256.Int) []uint256.Int {
	if len(input) != 4 {
		return failure(3)
	}
	a, ok := g1FromWords(&input[0], &input[1])
	if !ok {
		return failure(3)
	}
	b, ok := g1FromWords(&input[2], &input[3])
	if !ok {
		return failure(3)
	}
	var res bn254.G1Affine
	res.Add(&a, &b)
	return g1IntoWords(&res)
}

// ECMul takes (x, y, scalar) and returns (success, x, y).
func ECMul(input []uint256.Int) []uint256.Int {
	if len(input) != 3 {
		return failure(3)
	}
	p, ok := g1FromWords(&input[0], &input[1])
	if !ok {
		return failure(3)
	}
	var res bn254.G1Affine
	res.ScalarMultiplication(&p, input[2].ToBig())
	return g1IntoWords(&res)
}

// ECPairing takes tuples (g1.x, g1.y, g2.x_im, g2.x_re, g2.y_im, g2.y_re) and
// returns (success, result). An empty input pairs to one.
func ECPairing(input []uint256.Int) []uint256.Int {
	if len(input)%6 != 0 {
		return failure(2)
	}
	n := len(input) / 6
	if n > MAX_PAIRING_TUPLES {
		panic(fmt.Sprintf("ecpairing call with %d tuples exceeds the window of %d", n, MAX_PAIRING_TUPLES))
	}
	if n == 0 {
		return []uint256.Int{one, one}
	}
	ps := make([]bn254.G1Affine, 0, n)
	qs := make([]bn254.G2Affine, 0, n)
	for i := 0; i < n; i++ {
		t := input[6*i : 6*i+6]
		p, ok := g1FromWords(&t[0], &t[1])
		if !ok {
			return failure(2)
		}
		q, ok := g2FromWords(t[2:])
		if !ok {
			return failure(2)
		}
		if p.IsInfinity() || q.IsInfinity() {
			continue
		}
		ps = append(ps, p)
		qs = append(qs, q)
	}
	if len(ps) == 0 {
		return []uint256.Int{one, one}
	}
	ok, err := bn254.PairingCheck(ps, qs)
	if err != nil {
		return failure(2)
	}
	if ok {
		return []uint256.Int{one, one}
	}
	return []uint256.Int{one, {}}
}
