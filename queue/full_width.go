package queue

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/eon-protocol/eonzk/circuits/hasher"
	"github.com/eon-protocol/eonzk/types"
)

// FullWidthQueueState commits with the whole sponge state instead of a
// truncated commitment.
type FullWidthQueueState struct {
	Head   hasher.State
	Tail   hasher.State
	Length uint32
}

func (me FullWidthQueueState) Encoding() []fr.Element {
	return types.Enc{}.State(me.Head).State(me.Tail).U64(uint64(me.Length))
}

// FullWidthQueueSimulator absorbs each encoding directly into the running
// tail state, one permutation per RATE elements.
type FullWidthQueueSimulator[T types.Encodable] struct {
	Head     hasher.State
	Tail     hasher.State
	NumItems uint32
	items    []T
}

func NewFullWidthQueueSimulator[T types.Encodable]() *FullWidthQueueSimulator[T] {
	return &FullWidthQueueSimulator[T]{Head: hasher.InitialState(), Tail: hasher.InitialState()}
}

func (me *FullWidthQueueSimulator[T]) Push(item T) (hasher.State, []hasher.RoundPair) {
	old := me.Tail
	pairs := hasher.AbsorbChunks(&me.Tail, hasher.AbsorptionOverwrite, item.Encoding())
	me.items = append(me.items, item)
	me.NumItems++
	return old, pairs
}

func (me *FullWidthQueueSimulator[T]) Pop() (T, []hasher.RoundPair) {
	if me.NumItems == 0 {
		panic("pop from an empty full width queue")
	}
	item := me.items[0]
	me.items = me.items[1:]
	pairs := hasher.AbsorbChunks(&me.Head, hasher.AbsorptionOverwrite, item.Encoding())
	me.NumItems--
	if me.NumItems == 0 && me.Head != me.Tail {
		panic(fmt.Sprintf("full width queue drained but head %s != tail %s", me.Head, me.Tail))
	}
	return item, pairs
}

func (me *FullWidthQueueSimulator[T]) State() FullWidthQueueState {
	return FullWidthQueueState{Head: me.Head, Tail: me.Tail, Length: me.NumItems}
}
