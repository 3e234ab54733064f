package witness

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/eon-protocol/eonzk/circuits/definitions"
	"github.com/eon-protocol/eonzk/queue"
	"github.com/eon-protocol/eonzk/types"
)

type RecursionQueueSimulator = queue.QueueSimulator[types.RecursionRequest]

// BaseLayerCircuit is one synthesized base layer circuit instance of any kind.
type BaseLayerCircuit interface {
	Kind() definitions.BaseLayerCircuitType
	ShortDescription() string
	NumericCircuitType() uint8
	Capacity() int
	CompactForm() ClosedFormInputCompactForm
	PublicInput() [types.INPUT_OUTPUT_COMMITMENT_LENGTH]fr.Element
}

// CircuitInstance pairs a closed form input with the per-cycle witness the
// circuit consumes.
type CircuitInstance[FSM, IN, OUT types.Encodable, W any] struct {
	kind        definitions.BaseLayerCircuitType
	capacity    int
	compact     ClosedFormInputCompactForm
	publicInput [types.INPUT_OUTPUT_COMMITMENT_LENGTH]fr.Element
	ClosedForm  ClosedFormInput[FSM, IN, OUT]
	Witness     W
}

func (me *CircuitInstance[FSM, IN, OUT, W]) Kind() definitions.BaseLayerCircuitType {
	return me.kind
}

func (me *CircuitInstance[FSM, IN, OUT, W]) ShortDescription() string {
	return me.kind.ShortDescription()
}

func (me *CircuitInstance[FSM, IN, OUT, W]) NumericCircuitType() uint8 {
	return uint8(me.kind)
}

func (me *CircuitInstance[FSM, IN, OUT, W]) Capacity() int {
	return me.capacity
}

func (me *CircuitInstance[FSM, IN, OUT, W]) CompactForm() ClosedFormInputCompactForm {
	return me.compact
}

func (me *CircuitInstance[FSM, IN, OUT, W]) PublicInput() [types.INPUT_OUTPUT_COMMITMENT_LENGTH]fr.Element {
	return me.publicInput
}

// CircuitMaker collects the instances of one kind, keeps the observable input
// identical across them and queues a recursion request per instance.
type CircuitMaker[FSM, IN, OUT types.Encodable, W any] struct {
	kind            definitions.BaseLayerCircuitType
	capacity        int
	observableInput *IN
	compactForms    []ClosedFormInputCompactForm
	recursionQueue  *RecursionQueueSimulator
	closed          bool
}

func NewCircuitMaker[FSM, IN, OUT types.Encodable, W any](kind definitions.BaseLayerCircuitType, capacity int) *CircuitMaker[FSM, IN, OUT, W] {
	return &CircuitMaker[FSM, IN, OUT, W]{
		kind:           kind,
		capacity:       capacity,
		recursionQueue: queue.NewQueueSimulator[types.RecursionRequest](),
	}
}

func (me *CircuitMaker[FSM, IN, OUT, W]) Process(closedForm ClosedFormInput[FSM, IN, OUT], witness W) *CircuitInstance[FSM, IN, OUT, W] {
	if me.closed {
		panic(fmt.Sprintf("%s instance %d processed after the maker was closed", me.kind, len(me.compactForms)))
	}
	if me.observableInput == nil {
		in := closedForm.ObservableInput
		me.observableInput = &in
	} else {
		closedForm.ObservableInput = *me.observableInput
	}
	if closedForm.StartFlag != (len(me.compactForms) == 0) {
		panic(fmt.Sprintf("%s instance %d has start flag %t", me.kind, len(me.compactForms), closedForm.StartFlag))
	}
	compact := closedForm.CompactForm()
	publicInput := compact.PublicInput()
	me.recursionQueue.Push(types.RecursionRequest{CircuitType: uint8(me.kind), PublicInput: publicInput})
	me.compactForms = append(me.compactForms, compact)
	return &CircuitInstance[FSM, IN, OUT, W]{
		kind:        me.kind,
		capacity:    me.capacity,
		compact:     compact,
		publicInput: publicInput,
		ClosedForm:  closedForm,
		Witness:     witness,
	}
}

// MakerResults is what a circuit kind hands to the recursion layer.
type MakerResults struct {
	Kind           definitions.BaseLayerCircuitType
	RecursionQueue *RecursionQueueSimulator
	CompactForms   []ClosedFormInputCompactForm
}

// IntoResults closes the maker. A kind without instances yields exactly one
// placeholder compact form. Instances must all be processed before.
func (me *CircuitMaker[FSM, IN, OUT, W]) IntoResults() MakerResults {
	me.closed = true
	forms := me.compactForms
	if len(forms) == 0 {
		forms = []ClosedFormInputCompactForm{PlaceholderCompactForm()}
	} else if !forms[len(forms)-1].CompletionFlag {
		panic(fmt.Sprintf("%s: last of %d instances is not complete", me.kind, len(forms)))
	}
	return MakerResults{Kind: me.kind, RecursionQueue: me.recursionQueue, CompactForms: forms}
}

// Chunk splits items into consecutive groups of at most capacity items.
func Chunk[T any](items []T, capacity int) [][]T {
	if capacity <= 0 {
		panic(fmt.Sprintf("invalid capacity %d", capacity))
	}
	var ret [][]T
	for i := 0; i < len(items); i += capacity {
		ret = append(ret, items[i:min(i+capacity, len(items))])
	}
	return ret
}

// threadClosedForms builds n closed form inputs whose FSM states are read
// off fsmAt at the instance boundaries, so the output of instance i is the
// input of instance i+1 by construction.
func threadClosedForms[FSM, IN, OUT types.Encodable](n int, input IN, output OUT, fsmAt func(boundary int) FSM) []ClosedFormInput[FSM, IN, OUT] {
	ret := make([]ClosedFormInput[FSM, IN, OUT], n)
	next := fsmAt(0)
	for i := range ret {
		ret[i].StartFlag = i == 0
		ret[i].CompletionFlag = i == n-1
		ret[i].ObservableInput = input
		ret[i].HiddenFSMInput = next
		next = fsmAt(i + 1)
		ret[i].HiddenFSMOutput = next
		if ret[i].CompletionFlag {
			ret[i].ObservableOutput = output
		}
	}
	return ret
}

// makeInstances runs chunks through a maker and returns the circuits.
func makeInstances[FSM, IN, OUT types.Encodable, W any](
	maker *CircuitMaker[FSM, IN, OUT, W],
	forms []ClosedFormInput[FSM, IN, OUT],
	witnesses []W,
) []BaseLayerCircuit {
	if len(forms) != len(witnesses) {
		panic(fmt.Sprintf("%s: %d closed forms for %d witnesses", maker.kind, len(forms), len(witnesses)))
	}
	ret := make([]BaseLayerCircuit, len(forms))
	for i := range forms {
		ret[i] = maker.Process(forms[i], witnesses[i])
	}
	return ret
}
