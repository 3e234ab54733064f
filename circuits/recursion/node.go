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

type RecursionNodeInput struct {
	BranchCircuitType     uint8
	LeafParameters        RecursionLeafParameters
	NodeLayerVkCommitment hasher.Commitment
	QueueState            queue.QueueState
}

func (me RecursionNodeInput) Encoding() []fr.Element {
	return types.Enc{}.
		U64(uint64(me.BranchCircuitType)).
		Item(me.LeafParameters).
		Commitment(me.NodeLayerVkCommitment).
		Item(me.QueueState)
}

// NodeInstance folds up to RECURSION_ARITY children of one kind. SplitPoints
// holds the queue tail where each child but the last ends.
type NodeInstance struct {
	Aggregate
	Depth       int
	Index       int
	Input       RecursionNodeInput
	SplitPoints []hasher.Commitment
	Children    []Aggregate
}

// NumNodeRounds is ceil(log32(n)), the number of node layers above n leaves.
func NumNodeRounds(n int) int {
	rounds := 0
	for width := 1; width < n; width *= RECURSION_ARITY {
		rounds++
	}
	return rounds
}

// EmptyNodeOutput stands in for the root of a kind that produced no proof.
func EmptyNodeOutput(kind definitions.BaseLayerCircuitType, nodeVk *eonzk.Vk) Aggregate {
	input := RecursionNodeInput{BranchCircuitType: uint8(kind), NodeLayerVkCommitment: nodeVk.Address()}
	return Aggregate{
		Layer:       definitions.NodeLayerCircuit,
		BaseKind:    kind,
		PublicInput: hasher.Commit(input.Encoding()...),
	}
}

func buildNode(depth, index int, children []Aggregate, params RecursionLeafParameters, nodeVk *eonzk.Vk) *NodeInstance {
	kind := children[0].BaseKind
	state := queue.QueueState{Head: children[0].QueueState.Head}
	var splitPoints []hasher.Commitment
	for i := range children {
		c := &children[i]
		if c.BaseKind != kind {
			panic(fmt.Sprintf("node %d at depth %d mixes %s and %s", index, depth, kind, c.BaseKind))
		}
		if i > 0 {
			if c.QueueState.Head != state.Tail {
				panic(fmt.Sprintf("node %d at depth %d: child %d does not continue the queue of child %d", index, depth, i, i-1))
			}
			splitPoints = append(splitPoints, state.Tail)
		}
		state.Tail = c.QueueState.Tail
		state.Length += c.QueueState.Length
	}
	input := RecursionNodeInput{
		BranchCircuitType:     uint8(kind),
		LeafParameters:        params,
		NodeLayerVkCommitment: nodeVk.Address(),
		QueueState:            state,
	}
	return &NodeInstance{
		Aggregate: Aggregate{
			Layer:       definitions.NodeLayerCircuit,
			BaseKind:    kind,
			QueueState:  state,
			PublicInput: hasher.Commit(input.Encoding()...),
		},
		Depth:       depth,
		Index:       index,
		Input:       input,
		SplitPoints: splitPoints,
		Children:    children,
	}
}

// BuildNodes folds the leaves of one kind, RECURSION_ARITY at a time, until
// one root is left. A single leaf is its own root.
func BuildNodes(leaves []*LeafInstance, params RecursionLeafParameters, nodeVk *eonzk.Vk) ([][]*NodeInstance, Aggregate) {
	if len(leaves) == 0 {
		panic("no leaves to fold")
	}
	level := make([]Aggregate, len(leaves))
	for i, leaf := range leaves {
		level[i] = leaf.Aggregate
	}
	var rounds [][]*NodeInstance
	for depth := 0; len(level) > 1; depth++ {
		var nodes []*NodeInstance
		var next []Aggregate
		for i := 0; i < len(level); i += RECURSION_ARITY {
			node := buildNode(depth, len(nodes), level[i:min(i+RECURSION_ARITY, len(level))], params, nodeVk)
			nodes = append(nodes, node)
			next = append(next, node.Aggregate)
		}
		rounds = append(rounds, nodes)
		level = next
	}
	if len(rounds) != NumNodeRounds(len(leaves)) {
		panic(fmt.Sprintf("%d leaves folded in %d rounds", len(leaves), len(rounds)))
	}
	return rounds, level[0]
}
