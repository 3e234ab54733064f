package recursion

import (
	"encoding/binary"
	"fmt"
	"hash"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/eon-protocol/eonzk"
	"github.com/eon-protocol/eonzk/circuits/definitions"
	"github.com/eon-protocol/eonzk/circuits/hasher"
	"github.com/eon-protocol/eonzk/queue"
	"github.com/eon-protocol/eonzk/tracer"
	"github.com/eon-protocol/eonzk/witness"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// KindSummary is what the scheduler sees of one circuit kind: how many
// instances it ran and what it consumed and produced.
type KindSummary struct {
	Kind                       definitions.BaseLayerCircuitType
	NumInstances               uint32
	RecursionQueueState        queue.QueueState
	ObservableInputCommitment  hasher.Commitment
	ObservableOutputCommitment hasher.Commitment
}

type SchedulerInput struct {
	Block                    tracer.BlockMeta
	NewStateRoot             common.Hash
	StateDiffHash            common.Hash
	L1MessagesLinearHash     common.Hash
	EventsQueueState         queue.QueueState
	BlobVersionedHashes      []common.Hash
	NodeLayerVkCommitment    hasher.Commitment
	RecursionTipVkCommitment hasher.Commitment
	LeafLayerParameters      []RecursionLeafParameters
	Kinds                    []KindSummary
	RecursionTipPublicInput  PublicInput
}

type SchedulerInstance struct {
	Input          SchedulerInput
	TotalInstances int
	Digest         common.Hash
	PublicInput    PublicInput
}

func summarize(r witness.MakerResults) KindSummary {
	first, last := r.CompactForms[0], r.CompactForms[len(r.CompactForms)-1]
	return KindSummary{
		Kind:                       r.Kind,
		NumInstances:               r.RecursionQueue.NumItems,
		RecursionQueueState:        r.RecursionQueue.State(),
		ObservableInputCommitment:  first.ObservableInputCommitment,
		ObservableOutputCommitment: last.ObservableOutputCommitment,
	}
}

// memoryOutputCommitment is the observable output a memory queue extending
// kind reports when it ends the chain at state.
func memoryOutputCommitment(block *witness.BlockWitness, kind definitions.BaseLayerCircuitType, state queue.FullWidthQueueState) hasher.Commitment {
	if kind == definitions.MainVM {
		out := block.Aux.MainVm
		if out.MemoryQueueFinalState != state {
			panic("main vm memory queue output is not the start of the memory chain")
		}
		return hasher.Commit(out.Encoding()...)
	}
	return hasher.Commit(witness.MemoryQueueOutput{MemoryQueueFinalState: state}.Encoding()...)
}

// chainMemory walks the memory chain and gives every skipped kind the output
// of the kind before it.
func chainMemory(block *witness.BlockWitness, summaries map[definitions.BaseLayerCircuitType]*KindSummary) {
	chain := block.Aux.MemoryChain
	if len(chain) != len(definitions.MEMORY_CHAIN_ORDER) {
		panic(fmt.Sprintf("memory chain has %d links, expected %d", len(chain), len(definitions.MEMORY_CHAIN_ORDER)))
	}
	var prev queue.FullWidthQueueState
	for i, link := range chain {
		if link.Kind != definitions.MEMORY_CHAIN_ORDER[i] {
			panic(fmt.Sprintf("memory chain link %d is %s, expected %s", i, link.Kind, definitions.MEMORY_CHAIN_ORDER[i]))
		}
		if link.Input != prev {
			panic(fmt.Sprintf("%s does not continue the memory queue", link.Kind))
		}
		summary := summaries[link.Kind]
		want := memoryOutputCommitment(block, link.Kind, link.Output)
		switch {
		case link.Skipped != (summary.NumInstances == 0):
			panic(fmt.Sprintf("%s is marked skipped=%t with %d instances", link.Kind, link.Skipped, summary.NumInstances))
		case link.Skipped:
			if link.Output != link.Input {
				panic(fmt.Sprintf("skipped %s moves the memory queue", link.Kind))
			}
			summary.ObservableOutputCommitment = want
		case summary.ObservableOutputCommitment != want:
			panic(fmt.Sprintf("%s reports a memory queue output other than its chain link", link.Kind))
		}
		prev = link.Output
	}
	ram := block.Aux.RamUnsortedState
	if ram.Tail != prev.Tail || ram.Length != prev.Length {
		panic("ram permutation does not consume the end of the memory chain")
	}
}

type digest struct {
	h hash.Hash
}

func (me digest) bytes(b []byte) digest {
	me.h.Write(b)
	return me
}

func (me digest) u64(v uint64) digest {
	return me.bytes(binary.BigEndian.AppendUint64(nil, v))
}

func (me digest) elements(vals ...fr.Element) digest {
	for i := range vals {
		b := vals[i].Bytes()
		me.h.Write(b[:])
	}
	return me
}

func (me digest) queueState(s queue.QueueState) digest {
	return me.elements(s.Head[:]...).elements(s.Tail[:]...).u64(uint64(s.Length))
}

// Digest is the keccak hash everything the scheduler proves is bound to.
func (me *SchedulerInput) Digest() common.Hash {
	d := digest{h: sha3.NewLegacyKeccak256()}.
		u64(me.Block.Number).
		u64(me.Block.Timestamp).
		bytes(me.Block.PrevStateRoot[:]).
		bytes(me.Block.PrevBlockHash[:]).
		bytes(me.NewStateRoot[:]).
		bytes(me.StateDiffHash[:]).
		bytes(me.L1MessagesLinearHash[:]).
		queueState(me.EventsQueueState).
		u64(uint64(len(me.BlobVersionedHashes)))
	for _, h := range me.BlobVersionedHashes {
		d = d.bytes(h[:])
	}
	d = d.elements(me.NodeLayerVkCommitment[:]...).elements(me.RecursionTipVkCommitment[:]...)
	for _, p := range me.LeafLayerParameters {
		d = d.elements(p.Encoding()...)
	}
	for _, k := range me.Kinds {
		d = d.u64(uint64(k.Kind)).
			u64(uint64(k.NumInstances)).
			queueState(k.RecursionQueueState).
			elements(k.ObservableInputCommitment[:]...).
			elements(k.ObservableOutputCommitment[:]...)
	}
	d = d.elements(me.RecursionTipPublicInput[:]...)
	var ret common.Hash
	d.h.Sum(ret[:0])
	return ret
}

// DigestPublicInput splits a digest into two 128 bit field elements.
func DigestPublicInput(d common.Hash) PublicInput {
	var ret PublicInput
	ret[0].SetBytes(d[:16])
	ret[1].SetBytes(d[16:])
	return ret
}

// BuildScheduler checks the recursion tip against the block witness and
// commits the block level outputs.
func BuildScheduler(block *witness.BlockWitness, tip *RecursionTipInstance, tipVk *eonzk.Vk) *SchedulerInstance {
	if !tipVk.IsRecursive || tipVk.CircuitType != uint8(definitions.RecursionTipCircuit) {
		panic(fmt.Sprintf("%s is not the recursion tip key", tipVk))
	}
	if len(block.Results) != definitions.NUM_CIRCUIT_TYPES_TO_SCHEDULE {
		panic(fmt.Sprintf("block witness has results for %d kinds, expected %d", len(block.Results), definitions.NUM_CIRCUIT_TYPES_TO_SCHEDULE))
	}
	if len(block.Aux.BlobVersionedHashes) > int(block.Geometry.MaxEIP4844Blobs) {
		panic(fmt.Sprintf("%d blobs exceed the limit of %d", len(block.Aux.BlobVersionedHashes), block.Geometry.MaxEIP4844Blobs))
	}

	summaries := make([]KindSummary, len(block.Results))
	byKind := make(map[definitions.BaseLayerCircuitType]*KindSummary, len(block.Results))
	total := 0
	for i, kind := range definitions.SCHEDULE_ORDER {
		r := block.Results[i]
		if r.Kind != kind {
			panic(fmt.Sprintf("block witness result %d is %s, expected %s", i, r.Kind, kind))
		}
		summaries[i] = summarize(r)
		byKind[kind] = &summaries[i]
		total += int(r.RecursionQueue.NumItems)

		branch := tip.Branches[i]
		switch {
		case r.RecursionQueue.NumItems == 0 && !branch.IsEmpty():
			panic(fmt.Sprintf("recursion tip has proofs for absent kind %s", kind))
		case r.RecursionQueue.NumItems != 0 && branch.QueueState != summaries[i].RecursionQueueState:
			panic(fmt.Sprintf("recursion tip branch of %s does not cover its recursion queue", kind))
		}
	}
	if total > SCHEDULER_CAPACITY {
		panic(fmt.Sprintf("%d base layer instances exceed the scheduler capacity of %d", total, SCHEDULER_CAPACITY))
	}
	chainMemory(block, byKind)

	input := SchedulerInput{
		Block:                    block.Aux.Block,
		NewStateRoot:             block.Aux.StorageApplication.NewRoot,
		StateDiffHash:            block.Aux.StorageApplication.StateDiffHash,
		L1MessagesLinearHash:     block.Aux.L1MessagesLinearHash,
		EventsQueueState:         block.Aux.EventsQueueState,
		BlobVersionedHashes:      block.Aux.BlobVersionedHashes,
		NodeLayerVkCommitment:    tip.Input.NodeLayerVkCommitment,
		RecursionTipVkCommitment: tipVk.Address(),
		LeafLayerParameters:      tip.Input.LeafLayerParameters,
		Kinds:                    summaries,
		RecursionTipPublicInput:  tip.PublicInput,
	}
	d := input.Digest()
	return &SchedulerInstance{
		Input:          input,
		TotalInstances: total,
		Digest:         d,
		PublicInput:    DigestPublicInput(d),
	}
}
