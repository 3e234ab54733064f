package witness

import (
	"testing"

	"github.com/eon-protocol/eonzk/queue"
	"github.com/eon-protocol/eonzk/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func logQueue(items ...types.LogQuery) *LogQueueSimulator {
	q := queue.NewQueueSimulator[types.LogQuery]()
	for _, item := range items {
		q.Push(item)
	}
	return q
}

func storageQuery(ts uint32, addr common.Address, key, read, written uint64, write bool) types.LogQuery {
	return types.LogQuery{
		Timestamp:    ts,
		AuxByte:      types.STORAGE_AUX_BYTE,
		Address:      addr,
		Key:          word(key),
		ReadValue:    word(read),
		WrittenValue: word(written),
		RwFlag:       write,
	}
}

func rollbackOf(q types.LogQuery) types.LogQuery {
	q.Rollback = true
	return q
}

func TestStorageSorterDeduplicates(t *testing.T) {
	w1 := storageQuery(10, bob, 1, 0, 5, true)
	w2 := storageQuery(20, bob, 1, 5, 6, true)
	r := storageQuery(15, alice, 3, 0, 0, false)
	w3 := storageQuery(30, alice, 4, 0, 9, true)
	input := logQueue(w1, r, w2, w3, rollbackOf(w3), rollbackOf(w2))

	results, circuits, output := BuildStorageSorter(input, 4)
	require.Len(t, circuits, 2)
	require.Equal(t, uint32(2), results.RecursionQueue.NumItems)

	final := output.Items()
	require.Len(t, final, 3)
	// 0x0b0b sorts before 0x0a11ce byte-wise
	require.Equal(t, bob, final[0].Address)
	require.True(t, final[0].RwFlag)
	require.Equal(t, word(0), final[0].ReadValue)
	require.Equal(t, word(5), final[0].WrittenValue)
	require.Equal(t, alice, final[1].Address)
	require.Equal(t, word(3), final[1].Key)
	require.False(t, final[1].RwFlag)
	require.Equal(t, word(4), final[2].Key)
	require.False(t, final[2].RwFlag)
	require.Equal(t, word(0), final[2].WrittenValue)

	last := circuits[1].(*CircuitInstance[SorterFSM[types.LogQuery], SorterInput, SorterOutput, SorterWitness[types.LogQuery]])
	require.Equal(t, output.State(), last.ClosedForm.ObservableOutput.FinalQueueState)
	require.Equal(t, output.State(), last.ClosedForm.HiddenFSMOutput.OutputState)
	require.Equal(t, last.ClosedForm.HiddenFSMOutput.LHS, last.ClosedForm.HiddenFSMOutput.RHS)
}

func TestStorageSorterRejectsOrphanRollback(t *testing.T) {
	w := storageQuery(10, bob, 1, 0, 5, true)
	other := storageQuery(11, bob, 1, 5, 7, true)
	require.Panics(t, func() { BuildStorageSorter(logQueue(w, rollbackOf(other)), 4) })
}

func TestEventsSorterDropsRevertedEvents(t *testing.T) {
	event := func(ts uint32) types.LogQuery {
		return types.LogQuery{Timestamp: ts, AuxByte: types.EVENT_AUX_BYTE, Address: bob, Key: word(uint64(ts)), RwFlag: true}
	}
	e1, e2, e3 := event(3), event(1), event(2)
	_, circuits, output := BuildEventsSorter(logQueue(e1, e2, e3, rollbackOf(e2)), 2)
	require.Len(t, circuits, 2)
	require.Equal(t, []types.LogQuery{e3, e1}, output.Items())

	first := circuits[0].(*CircuitInstance[SorterFSM[types.LogQuery], SorterInput, SorterOutput, SorterWitness[types.LogQuery]])
	// after the dropped pair only e3 is known to survive
	require.Equal(t, uint32(0), first.ClosedForm.HiddenFSMOutput.OutputState.Length)
}

func TestDecommitmentsSorter(t *testing.T) {
	h1, h2 := common.HexToHash("0x01"), common.HexToHash("0x02")
	requests := queue.NewQueueSimulator[types.DecommitQuery]()
	requests.Push(types.DecommitQuery{CodeHash: h2, Page: 9, Timestamp: 5, IsFresh: true})
	requests.Push(types.DecommitQuery{CodeHash: h1, Page: 7, Timestamp: 6, IsFresh: true})
	requests.Push(types.DecommitQuery{CodeHash: h2, Page: 9, Timestamp: 8})

	_, circuits, output := BuildDecommitmentsSorter(requests, 8)
	require.Len(t, circuits, 1)
	deduped := output.Items()
	require.Len(t, deduped, 2)
	require.Equal(t, h1, deduped[0].CodeHash)
	require.Equal(t, h2, deduped[1].CodeHash)
	require.Equal(t, uint32(5), deduped[1].Timestamp)

	bad := queue.NewQueueSimulator[types.DecommitQuery]()
	bad.Push(types.DecommitQuery{CodeHash: h1, Page: 7, Timestamp: 1, IsFresh: true})
	bad.Push(types.DecommitQuery{CodeHash: h1, Page: 8, Timestamp: 2})
	require.Panics(t, func() { BuildDecommitmentsSorter(bad, 8) })
}

func TestTransientSorterHasNoOutput(t *testing.T) {
	w := storageQuery(4, bob, 1, 0, 3, true)
	w.AuxByte = types.TRANSIENT_STORAGE_AUX_BYTE
	results, circuits := BuildTransientStorageSorter(logQueue(w, rollbackOf(w)), 8)
	require.Len(t, circuits, 1)
	require.Len(t, results.CompactForms, 1)
}
