// Package tracer records what the zkEVM did during a block in the form the
// witness generator consumes.
package tracer

import (
	"github.com/eon-protocol/eonzk/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

type CycleMemoryQuery struct {
	Cycle uint32            `json:"cycle"`
	Query types.MemoryQuery `json:"query"`
}

type CycleDecommitQuery struct {
	Cycle uint32              `json:"cycle"`
	Query types.DecommitQuery `json:"query"`
}

type LogEntryKind uint8

const (
	LogQueryEntry LogEntryKind = iota
	// Markers are not queries. They capture the queue tail when reached.
	FrameForwardTailMarker
	FrameRollbackTailMarker
)

type LogHistoryEntry struct {
	Kind  LogEntryKind   `json:"kind"`
	Cycle uint32         `json:"cycle"`
	Frame int            `json:"frame"`
	Query types.LogQuery `json:"query"`
}

type CallstackActionKind uint8

const (
	PushToStack CallstackActionKind = iota
	OutOfScopeFresh
	OutOfScopeExited
	PopFromStack
)

func (me CallstackActionKind) String() string {
	switch me {
	case PushToStack:
		return "push_to_stack"
	case OutOfScopeFresh:
		return "out_of_scope_fresh"
	case OutOfScopeExited:
		return "out_of_scope_exited"
	case PopFromStack:
		return "pop_from_stack"
	default:
		return "unknown"
	}
}

// CallstackAction is one far call or return edge. Entry is the frame being
// suspended (push), started (fresh) or resumed (pop).
type CallstackAction struct {
	Kind  CallstackActionKind  `json:"kind"`
	Cycle uint32               `json:"cycle"`
	Frame int                  `json:"frame"`
	Entry types.CallstackEntry `json:"entry"`
	Panic bool                 `json:"panic"`
}

type CycleRefund struct {
	Cycle  uint32 `json:"cycle"`
	Refund uint32 `json:"refund"`
}

type CyclePubdataCost struct {
	Cycle uint32 `json:"cycle"`
	Cost  int32  `json:"cost"`
}

// PrecompileCall is the memory traffic of one precompile invocation. Reads
// carry the call timestamp, writes the one right after it.
type PrecompileCall struct {
	Cycle  uint32              `json:"cycle"`
	Kind   types.DemuxKind     `json:"kind"`
	Reads  []types.MemoryQuery `json:"reads"`
	Writes []types.MemoryQuery `json:"writes"`
}

type BlockMeta struct {
	Number        uint64      `json:"number"`
	Timestamp     uint64      `json:"timestamp"`
	PrevStateRoot common.Hash `json:"prevStateRoot"`
	PrevBlockHash common.Hash `json:"prevBlockHash"`
}

// Trace is a complete block execution. LogHistory holds every log query and
// frame marker in creation order; ForwardQueue and RollbackQueue index into it.
// ForwardQueue is in chain order. RollbackQueue is the root frame's rollback
// segment in creation order, starting with the root tail marker; its chain is
// built by walking it backwards after the forward queue.
type Trace struct {
	Block            BlockMeta                     `json:"block"`
	TotalCycles      uint32                        `json:"totalCycles"`
	MemoryQueries    []CycleMemoryQuery            `json:"memoryQueries"`
	DecommitRequests []CycleDecommitQuery          `json:"decommitRequests"`
	Bytecodes        map[common.Hash][]uint256.Int `json:"bytecodes"`
	LogHistory       []LogHistoryEntry             `json:"logHistory"`
	ForwardQueue     []int                         `json:"forwardQueue"`
	RollbackQueue    []int                         `json:"rollbackQueue"`
	CallstackActions []CallstackAction             `json:"callstackActions"`
	PrecompileCalls  []PrecompileCall              `json:"precompileCalls"`
	Refunds          []CycleRefund                 `json:"refunds"`
	PubdataCosts     []CyclePubdataCost            `json:"pubdataCosts"`
	Pubdata          hexutil.Bytes                 `json:"pubdata"`
}

// NumLogQueries counts real queries, markers excluded.
func (me *Trace) NumLogQueries() int {
	n := 0
	for i := range me.LogHistory {
		if me.LogHistory[i].Kind == LogQueryEntry {
			n++
		}
	}
	return n
}
