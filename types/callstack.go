package types

import (
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/eon-protocol/eonzk/circuits/hasher"
	"github.com/ethereum/go-ethereum/common"
)

// CallstackEntry is the saved execution context of a suspended frame.
type CallstackEntry struct {
	ThisAddress      common.Address `json:"this"`
	CallerAddress    common.Address `json:"caller"`
	CodeAddress      common.Address `json:"code"`
	CodePage         uint32         `json:"codePage"`
	BasePage         uint32         `json:"basePage"`
	HeapBound        uint32         `json:"heapBound"`
	PC               uint16         `json:"pc"`
	SP               uint16         `json:"sp"`
	ExceptionHandler uint16         `json:"exceptionHandler"`
	ErgsRemaining    uint32         `json:"ergsRemaining"`
	IsStatic         bool           `json:"isStatic"`
}

func (me CallstackEntry) Encoding() []fr.Element {
	return []fr.Element{
		pack(addressField(me.ThisAddress), u32Field(me.CodePage), u32Field(me.BasePage), u16Field(me.PC)),
		pack(addressField(me.CallerAddress), u32Field(me.HeapBound), u16Field(me.SP), u16Field(me.ExceptionHandler)),
		pack(addressField(me.CodeAddress), u32Field(me.ErgsRemaining), boolField(me.IsStatic)),
	}
}

// ExtendedCallstackEntry is what the callstack sponge absorbs on a far call:
// the suspended frame plus the state of its rollback queue.
type ExtendedCallstackEntry struct {
	Entry          CallstackEntry
	RollbackHead   hasher.Commitment
	RollbackTail   hasher.Commitment
	RollbackLength uint32
}

func (me ExtendedCallstackEntry) Encoding() []fr.Element {
	return Enc(me.Entry.Encoding()).
		Commitment(me.RollbackHead).
		Commitment(me.RollbackTail).
		U64(uint64(me.RollbackLength))
}

// FrameLogQueueDetailedState is the log queue view of the active frame.
// The forward queue is global, the rollback queue is per frame.
type FrameLogQueueDetailedState struct {
	FrameIdx       int
	ForwardTail    hasher.Commitment
	ForwardLength  uint32
	RollbackHead   hasher.Commitment
	RollbackTail   hasher.Commitment
	RollbackLength uint32
}

func (me FrameLogQueueDetailedState) Encoding() []fr.Element {
	return Enc{}.
		Commitment(me.ForwardTail).
		U64(uint64(me.ForwardLength)).
		Commitment(me.RollbackHead).
		Commitment(me.RollbackTail).
		U64(uint64(me.RollbackLength))
}

// MergeChild folds an exited child frame into its parent. Without a panic the
// child's rollback segment is prepended to the parent's rollback queue; with a
// panic it is appended to the forward queue instead.
func (me FrameLogQueueDetailedState) MergeChild(child FrameLogQueueDetailedState, panicked bool) FrameLogQueueDetailedState {
	ret := me
	ret.ForwardTail = child.ForwardTail
	ret.ForwardLength = child.ForwardLength
	if panicked {
		ret.ForwardTail = child.RollbackTail
		ret.ForwardLength += child.RollbackLength
	} else {
		ret.RollbackHead = child.RollbackHead
		ret.RollbackLength += child.RollbackLength
	}
	return ret
}
