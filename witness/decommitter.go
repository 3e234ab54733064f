package witness

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/eon-protocol/eonzk/circuits/definitions"
	"github.com/eon-protocol/eonzk/queue"
	"github.com/eon-protocol/eonzk/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type DecommitQueueSimulator = queue.QueueSimulator[types.DecommitQuery]

// DecommitterMemoryWrites lays every deduplicated request's bytecode onto its
// page, one word per memory query, stamped with the request's timestamp.
func DecommitterMemoryWrites(requests []types.DecommitQuery, bytecodes map[common.Hash][]uint256.Int) []types.MemoryQuery {
	var ret []types.MemoryQuery
	for _, req := range requests {
		code, ok := bytecodes[req.CodeHash]
		if !ok {
			panic(fmt.Sprintf("bytecode %s requested at timestamp %d is missing", req.CodeHash, req.Timestamp))
		}
		if len(code) == 0 {
			panic(fmt.Sprintf("bytecode %s is empty", req.CodeHash))
		}
		for i := range code {
			ret = append(ret, types.MemoryQuery{
				Timestamp:  req.Timestamp,
				MemoryPage: req.Page,
				Index:      uint32(i),
				RwFlag:     true,
				Value:      code[i],
			})
		}
	}
	return ret
}

type CodeDecommitterFSM struct {
	RequestsQueueState queue.QueueState
	MemoryQueueState   queue.FullWidthQueueState
	CurrentRequest     types.DecommitQuery
	WordIndex          uint32
	InProgress         bool
}

func (me CodeDecommitterFSM) Encoding() []fr.Element {
	return types.Enc{}.
		Item(me.RequestsQueueState).
		Item(me.MemoryQueueState).
		Item(me.CurrentRequest).
		U64(uint64(me.WordIndex)).
		Bool(me.InProgress)
}

type CodeDecommitterInput struct {
	SortedRequestsQueueInitialState queue.QueueState
	MemoryQueueInitialState         queue.FullWidthQueueState
}

func (me CodeDecommitterInput) Encoding() []fr.Element {
	return types.Enc{}.Item(me.SortedRequestsQueueInitialState).Item(me.MemoryQueueInitialState)
}

type MemoryQueueOutput struct {
	MemoryQueueFinalState queue.FullWidthQueueState
}

func (me MemoryQueueOutput) Encoding() []fr.Element {
	return me.MemoryQueueFinalState.Encoding()
}

type CodeDecommitterInstance = CircuitInstance[CodeDecommitterFSM, CodeDecommitterInput, MemoryQueueOutput, []types.MemoryQuery]

// BuildCodeDecommitter chunks the words written by DecommitterMemoryWrites.
// memStart is where those writes begin in the unsorted memory queue.
func BuildCodeDecommitter(
	requests *DecommitQueueSimulator,
	bytecodes map[common.Hash][]uint256.Int,
	mem *MemoryQueues,
	memStart int,
	capacity int,
) (MakerResults, []BaseLayerCircuit) {
	maker := NewCircuitMaker[CodeDecommitterFSM, CodeDecommitterInput, MemoryQueueOutput, []types.MemoryQuery](definitions.CodeDecommitter, capacity)
	reqs := requests.Items()
	// firstWord[r] is the position of request r's first word, firstWord[len] the total
	firstWord := make([]int, len(reqs)+1)
	for r, req := range reqs {
		firstWord[r+1] = firstWord[r] + len(bytecodes[req.CodeHash])
	}
	n := firstWord[len(reqs)]
	if n == 0 {
		return maker.IntoResults(), nil
	}
	words := mem.Unsorted[memStart : memStart+n]

	fsmAt := func(boundary int) CodeDecommitterFSM {
		k := min(boundary*capacity, n)
		fsm := CodeDecommitterFSM{MemoryQueueState: mem.UnsortedPrefix(memStart + k)}
		// the request owning word k, or the next one when k starts it
		r := 0
		for firstWord[r+1] <= k && r+1 < len(reqs) {
			r++
		}
		switch {
		case k == n:
			fsm.RequestsQueueState = requests.StateAfter(len(reqs))
		case k == firstWord[r]:
			fsm.RequestsQueueState = requests.StateAfter(r)
		default:
			fsm.RequestsQueueState = requests.StateAfter(r + 1)
			fsm.CurrentRequest = reqs[r]
			fsm.WordIndex = uint32(k - firstWord[r])
			fsm.InProgress = true
		}
		return fsm
	}
	in := CodeDecommitterInput{
		SortedRequestsQueueInitialState: requests.State(),
		MemoryQueueInitialState:         mem.UnsortedPrefix(memStart),
	}
	out := MemoryQueueOutput{MemoryQueueFinalState: mem.UnsortedPrefix(memStart + n)}
	chunks := Chunk(words, capacity)
	forms := threadClosedForms(len(chunks), in, out, fsmAt)
	circuits := makeInstances(maker, forms, chunks)
	return maker.IntoResults(), circuits
}
