// Package queue simulates the sponge-committed queues that circuits consume.
package queue

import (
	"fmt"
	"slices"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/eon-protocol/eonzk/circuits/hasher"
	"github.com/eon-protocol/eonzk/types"
)

type QueueState struct {
	Head   hasher.Commitment
	Tail   hasher.Commitment
	Length uint32
}

func (me QueueState) Encoding() []fr.Element {
	return types.Enc{}.Commitment(me.Head).Commitment(me.Tail).U64(uint64(me.Length))
}

// EmptyQueueStateAt is the state of an empty queue positioned at tail.
func EmptyQueueStateAt(tail hasher.Commitment) QueueState {
	return QueueState{Head: tail, Tail: tail}
}

// QueueIntermediateStates snapshots a queue after one push or pop.
type QueueIntermediateStates struct {
	Head         hasher.Commitment
	Tail         hasher.Commitment
	PreviousHead hasher.Commitment
	PreviousTail hasher.Commitment
	NumItems     uint32
	RoundPairs   []hasher.RoundPair
}

type witnessEntry[T types.Encodable] struct {
	encoding     []fr.Element
	previousTail hasher.Commitment
	item         T
}

// QueueSimulator mirrors an in-circuit queue: push absorbs encoding||tail into
// the tail, pop absorbs encoding||head into the head.
type QueueSimulator[T types.Encodable] struct {
	Head     hasher.Commitment
	Tail     hasher.Commitment
	NumItems uint32
	witness  []witnessEntry[T]
}

func NewQueueSimulator[T types.Encodable]() *QueueSimulator[T] {
	return &QueueSimulator[T]{}
}

func chain(encoding []fr.Element, prev hasher.Commitment) (hasher.Commitment, []hasher.RoundPair) {
	input := make([]fr.Element, 0, len(encoding)+hasher.COMMITMENT_WIDTH)
	input = append(input, encoding...)
	input = append(input, prev[:]...)
	state, pairs := hasher.AbsorbWithReplacement(input)
	return hasher.StateIntoCommitment(&state), pairs
}

// PushRoundPairs are the sponge rounds of pushing encoding onto a queue whose
// tail is prev.
func PushRoundPairs(encoding []fr.Element, prev hasher.Commitment) []hasher.RoundPair {
	_, pairs := chain(encoding, prev)
	return pairs
}

// Push appends item and returns the tail before the push.
func (me *QueueSimulator[T]) Push(item T) (hasher.Commitment, QueueIntermediateStates) {
	oldTail := me.Tail
	encoding := item.Encoding()
	newTail, pairs := chain(encoding, oldTail)
	me.witness = append(me.witness, witnessEntry[T]{encoding: encoding, previousTail: oldTail, item: item})
	me.NumItems++
	me.Tail = newTail
	return oldTail, QueueIntermediateStates{
		Head:         me.Head,
		Tail:         newTail,
		PreviousHead: me.Head,
		PreviousTail: oldTail,
		NumItems:     me.NumItems,
		RoundPairs:   pairs,
	}
}

func (me *QueueSimulator[T]) Pop() (T, QueueIntermediateStates) {
	if me.NumItems == 0 {
		panic("pop from an empty queue")
	}
	oldHead := me.Head
	entry := me.witness[0]
	me.witness = me.witness[1:]
	newHead, pairs := chain(entry.encoding, oldHead)
	me.NumItems--
	me.Head = newHead
	if me.NumItems == 0 && me.Head != me.Tail {
		panic(fmt.Sprintf("queue drained but head %s != tail %s", me.Head, me.Tail))
	}
	return entry.item, QueueIntermediateStates{
		Head:         newHead,
		Tail:         me.Tail,
		PreviousHead: oldHead,
		PreviousTail: me.Tail,
		NumItems:     me.NumItems,
		RoundPairs:   pairs,
	}
}

func (me *QueueSimulator[T]) State() QueueState {
	return QueueState{Head: me.Head, Tail: me.Tail, Length: me.NumItems}
}

// Items returns the buffered items in queue order.
func (me *QueueSimulator[T]) Items() []T {
	ret := make([]T, len(me.witness))
	for i := range me.witness {
		ret[i] = me.witness[i].item
	}
	return ret
}

// TailBefore is the tail right before the i-th buffered item was pushed,
// which is also the head once the first i items are popped.
func (me *QueueSimulator[T]) TailBefore(i int) hasher.Commitment {
	if i == len(me.witness) {
		return me.Tail
	}
	return me.witness[i].previousTail
}

// StateAfter is the state of the queue once its first k items are popped.
func (me *QueueSimulator[T]) StateAfter(k int) QueueState {
	return QueueState{Head: me.TailBefore(k), Tail: me.Tail, Length: me.NumItems - uint32(k)}
}

// PrefixState is the state the queue had right after its first m pushes.
func (me *QueueSimulator[T]) PrefixState(m int) QueueState {
	return QueueState{Head: me.Head, Tail: me.TailBefore(m), Length: uint32(m)}
}

// Split partitions the queue at item index at. The receiver must not be used
// afterwards. If at >= NumItems the second queue is empty and positioned at
// the current tail.
func (me *QueueSimulator[T]) Split(at uint32) (*QueueSimulator[T], *QueueSimulator[T]) {
	if at >= me.NumItems {
		return me, &QueueSimulator[T]{Head: me.Tail, Tail: me.Tail}
	}
	first := &QueueSimulator[T]{
		Head:     me.Head,
		Tail:     me.witness[at].previousTail,
		NumItems: at,
		witness:  slices.Clone(me.witness[:at]),
	}
	second := &QueueSimulator[T]{
		Head:     first.Tail,
		Tail:     me.Tail,
		NumItems: me.NumItems - at,
		witness:  slices.Clone(me.witness[at:]),
	}
	return first, second
}

// Merge concatenates two queues. first.Tail must equal second.Head.
func Merge[T types.Encodable](first, second *QueueSimulator[T]) *QueueSimulator[T] {
	if first.Tail != second.Head {
		panic(fmt.Sprintf("merge: first tail %s != second head %s", first.Tail, second.Head))
	}
	witness := make([]witnessEntry[T], 0, len(first.witness)+len(second.witness))
	witness = append(witness, first.witness...)
	witness = append(witness, second.witness...)
	return &QueueSimulator[T]{
		Head:     first.Head,
		Tail:     second.Tail,
		NumItems: first.NumItems + second.NumItems,
		witness:  witness,
	}
}

// SplitBy drains the queue into subqueues of at most chunkSize items by
// popping and re-pushing, so every boundary is a point on the original chain.
func (me *QueueSimulator[T]) SplitBy(chunkSize int) []*QueueSimulator[T] {
	if chunkSize <= 0 {
		panic(fmt.Sprintf("invalid chunk size %d", chunkSize))
	}
	if me.NumItems == 0 {
		return nil
	}
	if int(me.NumItems) != len(me.witness) {
		panic(fmt.Sprintf("queue has %d items but %d witnesses", me.NumItems, len(me.witness)))
	}
	var ret []*QueueSimulator[T]
	for me.NumItems > 0 {
		sub := &QueueSimulator[T]{Head: me.Head, Tail: me.Head}
		for i := 0; i < chunkSize && me.NumItems > 0; i++ {
			item, _ := me.Pop()
			sub.Push(item)
		}
		ret = append(ret, sub)
	}
	if last := ret[len(ret)-1]; last.Tail != me.Tail {
		panic(fmt.Sprintf("split_by: last subqueue tail %s != queue tail %s", last.Tail, me.Tail))
	}
	return ret
}

// Clone copies the queue so that draining the copy leaves me intact.
func (me *QueueSimulator[T]) Clone() *QueueSimulator[T] {
	ret := *me
	ret.witness = slices.Clone(me.witness)
	return &ret
}
