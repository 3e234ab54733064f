// Package witness turns an execution trace into per-circuit closed form
// inputs, their public inputs and the queues the recursion layer folds.
package witness

import (
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/eon-protocol/eonzk/circuits/hasher"
	"github.com/eon-protocol/eonzk/types"
)

// ClosedFormInput is the witness shape shared by every base layer circuit.
// Consecutive instances of one kind thread HiddenFSMOutput into the next
// HiddenFSMInput.
type ClosedFormInput[FSM, IN, OUT types.Encodable] struct {
	StartFlag        bool
	CompletionFlag   bool
	ObservableInput  IN
	ObservableOutput OUT
	HiddenFSMInput   FSM
	HiddenFSMOutput  FSM
}

// ClosedFormInputCompactForm commits to each part of a closed form input.
// The FSM input is masked on the first instance, the FSM output on the last,
// and the observable output is only set on the last.
type ClosedFormInputCompactForm struct {
	StartFlag                  bool
	CompletionFlag             bool
	ObservableInputCommitment  hasher.Commitment
	ObservableOutputCommitment hasher.Commitment
	HiddenFSMInputCommitment   hasher.Commitment
	HiddenFSMOutputCommitment  hasher.Commitment
}

func commitItem(item types.Encodable) hasher.Commitment {
	return hasher.Commit(item.Encoding()...)
}

func (me *ClosedFormInput[FSM, IN, OUT]) CompactForm() ClosedFormInputCompactForm {
	ret := ClosedFormInputCompactForm{
		StartFlag:                 me.StartFlag,
		CompletionFlag:            me.CompletionFlag,
		ObservableInputCommitment: commitItem(me.ObservableInput),
	}
	if !me.StartFlag {
		ret.HiddenFSMInputCommitment = commitItem(me.HiddenFSMInput)
	}
	if me.CompletionFlag {
		ret.ObservableOutputCommitment = commitItem(me.ObservableOutput)
	} else {
		ret.HiddenFSMOutputCommitment = commitItem(me.HiddenFSMOutput)
	}
	return ret
}

func (me ClosedFormInputCompactForm) Encoding() []fr.Element {
	return types.Enc{}.
		Bool(me.StartFlag).
		Bool(me.CompletionFlag).
		Commitment(me.ObservableInputCommitment).
		Commitment(me.ObservableOutputCommitment).
		Commitment(me.HiddenFSMInputCommitment).
		Commitment(me.HiddenFSMOutputCommitment)
}

// PublicInput is the only value a base layer proof exposes.
func (me ClosedFormInputCompactForm) PublicInput() [types.INPUT_OUTPUT_COMMITMENT_LENGTH]fr.Element {
	return hasher.Commit(me.Encoding()...)
}

// PlaceholderCompactForm stands in for a circuit kind that produced no
// instance in a block.
func PlaceholderCompactForm() ClosedFormInputCompactForm {
	return ClosedFormInputCompactForm{StartFlag: true, CompletionFlag: true}
}

// Empty is the observable part of circuits that expose nothing on one side.
type Empty struct{}

func (Empty) Encoding() []fr.Element { return nil }
