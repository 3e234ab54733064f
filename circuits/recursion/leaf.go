package recursion

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/eon-protocol/eonzk"
	"github.com/eon-protocol/eonzk/circuits/definitions"
	"github.com/eon-protocol/eonzk/circuits/hasher"
	"github.com/eon-protocol/eonzk/queue"
	"github.com/eon-protocol/eonzk/types"
)

type PublicInput = [types.INPUT_OUTPUT_COMMITMENT_LENGTH]fr.Element

// RecursionLeafParameters binds a base kind to the key its proofs verify
// under and the key of the leaf that verifies them.
type RecursionLeafParameters struct {
	CircuitType              uint8
	BasicCircuitVkCommitment hasher.Commitment
	LeafLayerVkCommitment    hasher.Commitment
}

func (me RecursionLeafParameters) Encoding() []fr.Element {
	return types.Enc{}.
		U64(uint64(me.CircuitType)).
		Commitment(me.BasicCircuitVkCommitment).
		Commitment(me.LeafLayerVkCommitment)
}

func LeafParametersFor(kind definitions.BaseLayerCircuitType, baseVk, leafVk *eonzk.Vk) RecursionLeafParameters {
	if baseVk.IsRecursive || baseVk.CircuitType != uint8(kind) {
		panic(fmt.Sprintf("%s is not the base key of %s", baseVk, kind))
	}
	if !leafVk.IsRecursive || leafVk.CircuitType != uint8(definitions.BaseIntoLeaf(kind)) {
		panic(fmt.Sprintf("%s is not the leaf key of %s", leafVk, kind))
	}
	return RecursionLeafParameters{
		CircuitType:              uint8(kind),
		BasicCircuitVkCommitment: baseVk.Address(),
		LeafLayerVkCommitment:    leafVk.Address(),
	}
}

type RecursionLeafInput struct {
	Params     RecursionLeafParameters
	QueueState queue.QueueState
}

func (me RecursionLeafInput) Encoding() []fr.Element {
	return types.Enc{}.Item(me.Params).Item(me.QueueState)
}

// Aggregate is a recursion layer instance as its parent sees it: the slice
// of its kind's recursion queue it covers and its public input.
type Aggregate struct {
	Layer       definitions.RecursionLayerStorageType
	BaseKind    definitions.BaseLayerCircuitType
	QueueState  queue.QueueState
	PublicInput PublicInput
}

func (me *Aggregate) IsEmpty() bool {
	return me.QueueState.Length == 0
}

type LeafInstance struct {
	Aggregate
	Index    int
	Input    RecursionLeafInput
	Requests []types.RecursionRequest
}

// BuildLeaves cuts the recursion queue of one kind into leaves of at most
// RECURSION_ARITY requests. The queue is left untouched.
func BuildLeaves(kind definitions.BaseLayerCircuitType, requests *queue.QueueSimulator[types.RecursionRequest], params RecursionLeafParameters) []*LeafInstance {
	if params.CircuitType != uint8(kind) {
		panic(fmt.Sprintf("leaf parameters of kind %d used for %s", params.CircuitType, kind))
	}
	subs := requests.Clone().SplitBy(RECURSION_ARITY)
	ret := make([]*LeafInstance, len(subs))
	for i, sub := range subs {
		items := sub.Items()
		for j := range items {
			if items[j].CircuitType != uint8(kind) {
				panic(fmt.Sprintf("%s recursion queue holds a request of kind %d at %d", kind, items[j].CircuitType, i*RECURSION_ARITY+j))
			}
		}
		input := RecursionLeafInput{Params: params, QueueState: sub.State()}
		ret[i] = &LeafInstance{
			Aggregate: Aggregate{
				Layer:       definitions.BaseIntoLeaf(kind),
				BaseKind:    kind,
				QueueState:  input.QueueState,
				PublicInput: hasher.Commit(input.Encoding()...),
			},
			Index:    i,
			Input:    input,
			Requests: items,
		}
	}
	return ret
}
