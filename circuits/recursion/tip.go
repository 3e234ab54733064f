package recursion

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/eon-protocol/eonzk"
	"github.com/eon-protocol/eonzk/circuits/definitions"
	"github.com/eon-protocol/eonzk/circuits/hasher"
	"github.com/eon-protocol/eonzk/types"
)

type RecursionTipInput struct {
	NodeLayerVkCommitment hasher.Commitment
	LeafLayerParameters   []RecursionLeafParameters
	BranchPublicInputs    []PublicInput
}

func (me RecursionTipInput) Encoding() []fr.Element {
	enc := types.Enc{}.Commitment(me.NodeLayerVkCommitment)
	for i := range me.LeafLayerParameters {
		enc = enc.Item(me.LeafLayerParameters[i])
	}
	for i := range me.BranchPublicInputs {
		enc = enc.Elements(me.BranchPublicInputs[i][:]...)
	}
	return enc
}

// RecursionTipInstance verifies one root per scheduled kind, in
// SCHEDULE_ORDER.
type RecursionTipInstance struct {
	Input       RecursionTipInput
	Branches    []Aggregate
	PublicInput PublicInput
}

func BuildRecursionTip(roots []Aggregate, params []RecursionLeafParameters, nodeVk *eonzk.Vk) *RecursionTipInstance {
	if len(roots) != RECURSION_TIP_ARITY || len(params) != RECURSION_TIP_ARITY {
		panic(fmt.Sprintf("recursion tip takes %d branches, got %d roots and %d leaf parameters", RECURSION_TIP_ARITY, len(roots), len(params)))
	}
	input := RecursionTipInput{
		NodeLayerVkCommitment: nodeVk.Address(),
		LeafLayerParameters:   params,
		BranchPublicInputs:    make([]PublicInput, len(roots)),
	}
	for i, kind := range definitions.SCHEDULE_ORDER {
		if roots[i].BaseKind != kind || params[i].CircuitType != uint8(kind) {
			panic(fmt.Sprintf("recursion tip branch %d is %s, expected %s", i, roots[i].BaseKind, kind))
		}
		input.BranchPublicInputs[i] = roots[i].PublicInput
	}
	return &RecursionTipInstance{
		Input:       input,
		Branches:    roots,
		PublicInput: hasher.Commit(input.Encoding()...),
	}
}
