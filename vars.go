// Package eonzk holds the key and proof artifacts shared by the witness
// generator, the recursion layer and artifact storage.
package eonzk

import (
	"github.com/consensys/gnark-crypto/ecc"
)

const VK_NUM_ELEMENTS = 16
const VK_SETUP_SEED = "EON_ZKEVM_VK_SETUP"
const PROOF_SEED = "EON_ZKEVM_PROOF"

var FIELD = ecc.BLS12_381.ScalarField()
