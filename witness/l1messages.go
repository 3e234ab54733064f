package witness

import (
	"encoding/binary"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/eon-protocol/eonzk/circuits/definitions"
	"github.com/eon-protocol/eonzk/queue"
	"github.com/eon-protocol/eonzk/types"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

const L1_MESSAGE_PACKED_BYTES = 88

type L1MessagesHasherInput struct {
	InitialQueueState queue.QueueState
}

func (me L1MessagesHasherInput) Encoding() []fr.Element {
	return me.InitialQueueState.Encoding()
}

type L1MessagesHasherOutput struct {
	LinearHash common.Hash
}

func (me L1MessagesHasherOutput) Encoding() []fr.Element {
	return types.Enc{}.Bytes32(me.LinearHash)
}

type L1MessagesHasherInstance = CircuitInstance[Empty, L1MessagesHasherInput, L1MessagesHasherOutput, []types.LogQuery]

// PackL1Message is the layout messages are published in: shard, service
// flag, transaction number, sender, key and value.
func PackL1Message(q *types.LogQuery) [L1_MESSAGE_PACKED_BYTES]byte {
	var ret [L1_MESSAGE_PACKED_BYTES]byte
	ret[0] = q.ShardID
	if q.IsService {
		ret[1] = 1
	}
	binary.BigEndian.PutUint16(ret[2:4], uint16(q.TxNumberInBlock))
	copy(ret[4:24], q.Address[:])
	q.Key.WriteToSlice(ret[24:56])
	q.WrittenValue.WriteToSlice(ret[56:88])
	return ret
}

// L1MessagesLinearHash hashes every packed message in one pass.
func L1MessagesLinearHash(messages []types.LogQuery) common.Hash {
	h := sha3.NewLegacyKeccak256()
	for i := range messages {
		packed := PackL1Message(&messages[i])
		h.Write(packed[:])
	}
	var ret common.Hash
	h.Sum(ret[:0])
	return ret
}

// BuildL1MessagesHasher always produces exactly one instance. More messages
// than the instance can hash abort the block.
func BuildL1MessagesHasher(messages *LogQueueSimulator, limit int) (MakerResults, []BaseLayerCircuit, L1MessagesHasherOutput) {
	maker := NewCircuitMaker[Empty, L1MessagesHasherInput, L1MessagesHasherOutput, []types.LogQuery](definitions.L1MessagesHasher, limit)
	items := messages.Items()
	if len(items) > limit {
		panic(fmt.Sprintf("%d L1 messages exceed the hasher limit of %d", len(items), limit))
	}
	out := L1MessagesHasherOutput{LinearHash: L1MessagesLinearHash(items)}
	forms := threadClosedForms(1, L1MessagesHasherInput{InitialQueueState: messages.State()}, out, func(int) Empty { return Empty{} })
	circuits := makeInstances(maker, forms, [][]types.LogQuery{items})
	return maker.IntoResults(), circuits, out
}
