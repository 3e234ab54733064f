// Package precompiles evaluates precompile calls over 32-byte words, the way
// the precompile circuits observe them through memory.
package precompiles

const MAX_PAIRING_TUPLES = 16
const KECCAK_RATE_BYTES = 136
const SHA256_BLOCK_BYTES = 64
const WORD_BYTES = 32
