package recursion

import (
	"fmt"

	"github.com/consensys/gnark/frontend"
	"github.com/eon-protocol/eonzk/circuits/hasher"
)

// QueueFoldCircuit re-derives a recursion queue tail from its requests, the
// way a leaf binds the base proofs it verifies to its queue state. Every
// request must carry the u8 code CircuitType.
type QueueFoldCircuit struct {
	CircuitType frontend.Variable                          `gnark:",public"`
	Head        [hasher.COMMITMENT_WIDTH]frontend.Variable `gnark:",public"`
	Tail        [hasher.COMMITMENT_WIDTH]frontend.Variable `gnark:",public"`
	Requests    [][REQUEST_ENCODING_WIDTH]frontend.Variable
}

// NewQueueFoldCircuit returns a circuit for exactly n requests, for compiling.
func NewQueueFoldCircuit(n int) *QueueFoldCircuit {
	if n <= 0 || n > RECURSION_ARITY {
		panic(fmt.Sprintf("a leaf folds 1 to %d requests, not %d", RECURSION_ARITY, n))
	}
	return &QueueFoldCircuit{Requests: make([][REQUEST_ENCODING_WIDTH]frontend.Variable, n)}
}

func (c *QueueFoldCircuit) Define(api frontend.API) error {
	sponge, err := hasher.NewSponge(api)
	if err != nil {
		return fmt.Errorf("new sponge: %w", err)
	}
	tail := c.Head[:]
	for i := range c.Requests {
		code, err := hasher.UnpackFields(api, c.Requests[i][0], 8)
		if err != nil {
			return fmt.Errorf("request %d circuit type: %w", i, err)
		}
		api.AssertIsEqual(code[0], c.CircuitType)
		tail = sponge.QueuePush(tail, c.Requests[i][:])
	}
	for i := range tail {
		api.AssertIsEqual(tail[i], c.Tail[i])
	}
	return nil
}

// LeafAssignment is the fold witness of a leaf.
func LeafAssignment(leaf *LeafInstance) *QueueFoldCircuit {
	ret := NewQueueFoldCircuit(len(leaf.Requests))
	ret.CircuitType = int(leaf.BaseKind)
	for i := range ret.Head {
		ret.Head[i] = leaf.QueueState.Head[i].String()
		ret.Tail[i] = leaf.QueueState.Tail[i].String()
	}
	for i, req := range leaf.Requests {
		enc := req.Encoding()
		if len(enc) != REQUEST_ENCODING_WIDTH {
			panic(fmt.Sprintf("recursion request encodes to %d elements", len(enc)))
		}
		for j := range enc {
			ret.Requests[i][j] = enc[j].String()
		}
	}
	return ret
}
