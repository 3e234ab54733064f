package queue

import (
	"fmt"

	"github.com/eon-protocol/eonzk/circuits/hasher"
	"github.com/eon-protocol/eonzk/types"
)

type callstackFrame[T types.Encodable] struct {
	previous hasher.State
	item     T
}

// CallstackSimulator is a sponge committed stack. Push absorbs the entry into
// the running state; pop restores the saved state after checking that
// re-absorbing the entry reproduces the current one.
type CallstackSimulator[T types.Encodable] struct {
	State hasher.State
	stack []callstackFrame[T]
}

func NewCallstackSimulator[T types.Encodable]() *CallstackSimulator[T] {
	return &CallstackSimulator[T]{State: hasher.InitialState()}
}

func (me *CallstackSimulator[T]) Depth() int {
	return len(me.stack)
}

func (me *CallstackSimulator[T]) Push(item T) (hasher.State, []hasher.RoundPair) {
	prev := me.State
	pairs := hasher.AbsorbChunks(&me.State, hasher.AbsorptionOverwrite, item.Encoding())
	me.stack = append(me.stack, callstackFrame[T]{previous: prev, item: item})
	return me.State, pairs
}

func (me *CallstackSimulator[T]) Pop() (T, hasher.State, []hasher.RoundPair) {
	if len(me.stack) == 0 {
		panic("pop from an empty callstack")
	}
	top := me.stack[len(me.stack)-1]
	me.stack = me.stack[:len(me.stack)-1]
	replay := top.previous
	pairs := hasher.AbsorbChunks(&replay, hasher.AbsorptionOverwrite, top.item.Encoding())
	if replay != me.State {
		panic(fmt.Sprintf("callstack state mismatch at depth %d: %s != %s", len(me.stack), replay, me.State))
	}
	me.State = top.previous
	return top.item, me.State, pairs
}
