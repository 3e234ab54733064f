// Package recursion lays out the recursive aggregation of base layer proofs:
// leaves per kind, nodes over leaves, the recursion tip over one root per
// kind and the scheduler on top. It builds every instance's witness and
// public input; proving is left to the prover.
package recursion

import (
	"github.com/eon-protocol/eonzk/circuits/definitions"
	"github.com/eon-protocol/eonzk/types"
)

const RECURSION_ARITY = 32
const SCHEDULER_CAPACITY = 28000

// REQUEST_ENCODING_WIDTH is the encoding width of a types.RecursionRequest.
const REQUEST_ENCODING_WIDTH = 1 + types.INPUT_OUTPUT_COMMITMENT_LENGTH

var RECURSION_TIP_ARITY = definitions.NUM_CIRCUIT_TYPES_TO_SCHEDULE
