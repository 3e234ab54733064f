package witness

import (
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/eon-protocol/eonzk/circuits/definitions"
	"github.com/eon-protocol/eonzk/queue"
	"github.com/eon-protocol/eonzk/types"
)

type LogQueueSimulator = queue.QueueSimulator[types.LogQuery]

type DemuxOutputStates [types.NUM_DEMUX_OUTPUTS]queue.QueueState

func (me DemuxOutputStates) Encoding() []fr.Element {
	enc := types.Enc{}
	for i := range me {
		enc = enc.Item(me[i])
	}
	return enc
}

type LogDemuxerFSM struct {
	InitialLogQueueState queue.QueueState
	OutputQueueStates    DemuxOutputStates
}

func (me LogDemuxerFSM) Encoding() []fr.Element {
	return types.Enc{}.Item(me.InitialLogQueueState).Item(me.OutputQueueStates)
}

type LogDemuxerInput struct {
	InitialLogQueueState queue.QueueState
}

func (me LogDemuxerInput) Encoding() []fr.Element {
	return me.InitialLogQueueState.Encoding()
}

type LogDemuxerOutput struct {
	OutputQueueStates DemuxOutputStates
}

func (me LogDemuxerOutput) Encoding() []fr.Element {
	return me.OutputQueueStates.Encoding()
}

type LogDemuxerInstance = CircuitInstance[LogDemuxerFSM, LogDemuxerInput, LogDemuxerOutput, []types.LogQuery]

// BuildLogDemuxer routes the applied log queue into one sub-queue per
// consumer. The returned sub-queues feed the sorters and the precompiles.
func BuildLogDemuxer(applied *LogQueueSimulator, capacity int) (MakerResults, []BaseLayerCircuit, [types.NUM_DEMUX_OUTPUTS]*LogQueueSimulator) {
	var outputs [types.NUM_DEMUX_OUTPUTS]*LogQueueSimulator
	for i := range outputs {
		outputs[i] = queue.NewQueueSimulator[types.LogQuery]()
	}
	items := applied.Items()
	// emitted[k][kind] counts the items of kind among the first k
	emitted := make([][types.NUM_DEMUX_OUTPUTS]int, len(items)+1)
	for k, q := range items {
		kind := q.DemuxKind()
		outputs[kind].Push(q)
		emitted[k+1] = emitted[k]
		emitted[k+1][kind]++
	}

	maker := NewCircuitMaker[LogDemuxerFSM, LogDemuxerInput, LogDemuxerOutput, []types.LogQuery](definitions.LogDemuxer, capacity)
	if len(items) == 0 {
		return maker.IntoResults(), nil, outputs
	}
	fsmAt := func(boundary int) LogDemuxerFSM {
		k := min(boundary*capacity, len(items))
		fsm := LogDemuxerFSM{InitialLogQueueState: applied.StateAfter(k)}
		for i := range outputs {
			fsm.OutputQueueStates[i] = outputs[i].PrefixState(emitted[k][i])
		}
		return fsm
	}
	var output LogDemuxerOutput
	for i := range outputs {
		output.OutputQueueStates[i] = outputs[i].State()
	}
	chunks := Chunk(items, capacity)
	forms := threadClosedForms(len(chunks), LogDemuxerInput{InitialLogQueueState: applied.State()}, output, fsmAt)
	circuits := makeInstances(maker, forms, chunks)
	return maker.IntoResults(), circuits, outputs
}
