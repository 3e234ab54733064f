package witness

import (
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/eon-protocol/eonzk/circuits/definitions"
	"github.com/eon-protocol/eonzk/queue"
	"github.com/eon-protocol/eonzk/types"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

type StorageApplicationFSM struct {
	StorageQueueState queue.QueueState
	Root              common.Hash
	StateDiffHash     common.Hash
}

func (me StorageApplicationFSM) Encoding() []fr.Element {
	return types.Enc{}.Item(me.StorageQueueState).Bytes32(me.Root).Bytes32(me.StateDiffHash)
}

type StorageApplicationInput struct {
	InitialRoot              common.Hash
	StorageQueueInitialState queue.QueueState
}

func (me StorageApplicationInput) Encoding() []fr.Element {
	return types.Enc{}.Bytes32(me.InitialRoot).Item(me.StorageQueueInitialState)
}

type StorageApplicationOutput struct {
	NewRoot       common.Hash
	StateDiffHash common.Hash
}

func (me StorageApplicationOutput) Encoding() []fr.Element {
	return types.Enc{}.Bytes32(me.NewRoot).Bytes32(me.StateDiffHash)
}

type StorageApplicationInstance = CircuitInstance[StorageApplicationFSM, StorageApplicationInput, StorageApplicationOutput, []types.LogQuery]

func keccakChain(prev common.Hash, q *types.LogQuery, withRead bool) common.Hash {
	h := sha3.NewLegacyKeccak256()
	h.Write(prev[:])
	h.Write(q.Address[:])
	h.Write(q.Key.PaddedBytes(32))
	if withRead {
		h.Write(q.ReadValue.PaddedBytes(32))
	}
	h.Write(storageValue(q).PaddedBytes(32))
	var ret common.Hash
	h.Sum(ret[:0])
	return ret
}

// ApplyStorage folds the final writes into the state commitment chain and the
// state diff hash. roots[k] and diffs[k] hold the values after k queries.
func ApplyStorage(initialRoot common.Hash, final []types.LogQuery) (roots, diffs []common.Hash) {
	roots = make([]common.Hash, len(final)+1)
	diffs = make([]common.Hash, len(final)+1)
	roots[0] = initialRoot
	for i := range final {
		roots[i+1], diffs[i+1] = roots[i], diffs[i]
		if q := &final[i]; q.RwFlag {
			roots[i+1] = keccakChain(roots[i], q, false)
			diffs[i+1] = keccakChain(diffs[i], q, true)
		}
	}
	return roots, diffs
}

// BuildStorageApplication applies the deduplicated storage queue on top of
// the previous state root.
func BuildStorageApplication(final *LogQueueSimulator, initialRoot common.Hash, capacity int) (MakerResults, []BaseLayerCircuit, StorageApplicationOutput) {
	maker := NewCircuitMaker[StorageApplicationFSM, StorageApplicationInput, StorageApplicationOutput, []types.LogQuery](definitions.StorageApplication, capacity)
	items := final.Items()
	roots, diffs := ApplyStorage(initialRoot, items)
	n := len(items)
	out := StorageApplicationOutput{NewRoot: roots[n], StateDiffHash: diffs[n]}
	if n == 0 {
		return maker.IntoResults(), nil, out
	}
	fsmAt := func(boundary int) StorageApplicationFSM {
		k := min(boundary*capacity, n)
		return StorageApplicationFSM{StorageQueueState: final.StateAfter(k), Root: roots[k], StateDiffHash: diffs[k]}
	}
	in := StorageApplicationInput{InitialRoot: initialRoot, StorageQueueInitialState: final.State()}
	chunks := Chunk(items, capacity)
	forms := threadClosedForms(len(chunks), in, out, fsmAt)
	circuits := makeInstances(maker, forms, chunks)
	return maker.IntoResults(), circuits, out
}
