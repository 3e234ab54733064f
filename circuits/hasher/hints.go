package hasher

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/consensys/gnark/constraint/solver"
	"github.com/consensys/gnark/frontend"
)

// HintUnpackFields splits a packed element into little-endian bit fields.
//
// ins  = [ packed, W_0, ..., W_(k-1) ]
// outs = [ F_0, ..., F_(k-1) ] with packed = sum F_i * 2^(W_0+...+W_(i-1))
func HintUnpackFields(_ *big.Int, ins, outs []*big.Int) error {
	if len(ins) != len(outs)+1 {
		return fmt.Errorf("need %d widths for %d outputs, got %d inputs", len(outs), len(outs), len(ins))
	}
	var rest, mask big.Int
	rest.Set(ins[0])
	for i := range outs {
		w := uint(ins[i+1].Uint64())
		mask.Lsh(big.NewInt(1), w).Sub(&mask, big.NewInt(1))
		outs[i].And(&rest, &mask)
		rest.Rsh(&rest, w)
	}
	if rest.Sign() != 0 {
		return errors.New("packed value is wider than the declared fields")
	}
	return nil
}

// UnpackFields is the in-circuit inverse of the native field packing used by
// item encodings. Every output is range checked to its width and the
// recomposition is asserted equal to packed.
func UnpackFields(api frontend.API, packed frontend.Variable, widths ...int) ([]frontend.Variable, error) {
	total := 0
	for _, w := range widths {
		total += w
	}
	if total >= api.Compiler().FieldBitLen() {
		return nil, fmt.Errorf("fields span %d bits, field has %d", total, api.Compiler().FieldBitLen())
	}
	ins := make([]frontend.Variable, 0, len(widths)+1)
	ins = append(ins, packed)
	for _, w := range widths {
		ins = append(ins, w)
	}
	outs, err := api.Compiler().NewHint(HintUnpackFields, len(widths), ins...)
	if err != nil {
		return nil, fmt.Errorf("unpack hint: %w", err)
	}
	var acc frontend.Variable = 0
	shift := new(big.Int).SetUint64(1)
	for i, w := range widths {
		api.ToBinary(outs[i], w)
		acc = api.Add(acc, api.Mul(outs[i], new(big.Int).Set(shift)))
		shift.Lsh(shift, uint(w))
	}
	api.AssertIsEqual(acc, packed)
	return outs, nil
}

func init() {
	solver.RegisterHint(HintUnpackFields)
}
