package recursion

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/scs"
	"github.com/consensys/gnark/test"
	"github.com/eon-protocol/eonzk"
	"github.com/eon-protocol/eonzk/circuits/definitions"
)

func TestQueueFoldMatchesNative(t *testing.T) {
	assert := test.NewAssert(t)
	keys := SetupKeys()
	kind := definitions.ECAdd
	leaves := BuildLeaves(kind, requestQueue(kind, 35), keys.LeafParameters(kind))
	leaf := leaves[1]
	assert.Len(leaf.Requests, 3)

	assert.SolvingSucceeded(NewQueueFoldCircuit(3), LeafAssignment(leaf), test.WithCurves(ecc.BLS12_381))

	bad := LeafAssignment(leaf)
	bad.Tail[0] = leaves[0].QueueState.Tail[0].String()
	assert.SolvingFailed(NewQueueFoldCircuit(3), bad, test.WithCurves(ecc.BLS12_381))
}

func TestQueueFoldChecksCircuitType(t *testing.T) {
	assert := test.NewAssert(t)
	keys := SetupKeys()
	kind := definitions.ECAdd
	leaf := BuildLeaves(kind, requestQueue(kind, 2), keys.LeafParameters(kind))[0]

	other := LeafAssignment(leaf)
	other.CircuitType = int(definitions.ECMul)
	assert.SolvingFailed(NewQueueFoldCircuit(2), other, test.WithCurves(ecc.BLS12_381))
}

func TestQueueFoldCompiles(t *testing.T) {
	ccs, err := frontend.Compile(eonzk.FIELD, scs.NewBuilder, NewQueueFoldCircuit(RECURSION_ARITY))
	if err != nil {
		t.Fatal(err)
	}
	t.Logf("queue fold of %d requests: %d constraints", RECURSION_ARITY, ccs.GetNbConstraints())
}
