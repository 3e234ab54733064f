package tracer

import (
	"fmt"
	"slices"

	"github.com/eon-protocol/eonzk/precompiles"
	"github.com/eon-protocol/eonzk/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const PAGES_PER_FRAME = 4
const FIRST_FRAME_PAGE = 8
const HEAP_PAGE_OFFSET = 2
const ROOT_ERGS = 1 << 30

const (
	MEMORY_READ_SUB  = 0
	MEMORY_WRITE_SUB = 1
	LOG_QUERY_SUB    = 2
	IMPLICIT_SUB     = 3
)

var BootloaderAddress = common.HexToAddress("0x8001")

type slotKey struct {
	address common.Address
	key     uint256.Int
}

type undoEntry struct {
	transient bool
	slot      slotKey
	previous  uint256.Int
}

type frame struct {
	idx        int
	entry      types.CallstackEntry
	rollbacks  []int
	undo       []undoEntry
	heapCursor uint32
}

func (me *frame) heapPage() uint32 {
	return me.entry.BasePage + HEAP_PAGE_OFFSET
}

// Builder records a trace while a caller drives a toy execution. Every
// operation takes one cycle, so the result is internally consistent by
// construction.
type Builder struct {
	trace     Trace
	cycle     uint32
	txNumber  uint32
	frames    []*frame
	numFrames int
	nextPage  uint32
	memory    map[[2]uint32]uint256.Int
	storage   map[slotKey]uint256.Int
	transient map[slotKey]uint256.Int
	codePages map[common.Hash]uint32
}

func NewBuilder(block BlockMeta) *Builder {
	me := &Builder{
		nextPage:  FIRST_FRAME_PAGE,
		memory:    make(map[[2]uint32]uint256.Int),
		storage:   make(map[slotKey]uint256.Int),
		transient: make(map[slotKey]uint256.Int),
		codePages: make(map[common.Hash]uint32),
	}
	me.trace.Block = block
	me.trace.Bytecodes = make(map[common.Hash][]uint256.Int)
	me.openFrame(0, BootloaderAddress, common.Address{}, ROOT_ERGS)
	me.cycle = 1
	return me
}

func (me *Builder) current() *frame {
	return me.frames[len(me.frames)-1]
}

func (me *Builder) step() uint32 {
	c := me.cycle
	me.cycle++
	f := me.current()
	f.entry.PC = uint16(c)
	if f.entry.ErgsRemaining > 0 {
		f.entry.ErgsRemaining--
	}
	return c
}

func (me *Builder) Cycle() uint32 { return me.cycle }
func (me *Builder) Depth() int    { return len(me.frames) - 1 }
func (me *Builder) Frame() int    { return me.current().idx }

// HeapPage is the heap of the active frame.
func (me *Builder) HeapPage() uint32 {
	return me.current().heapPage()
}

func (me *Builder) openFrame(cycle uint32, this, caller common.Address, ergs uint32) {
	idx := me.numFrames
	me.numFrames++
	base := me.nextPage
	me.nextPage += PAGES_PER_FRAME
	f := &frame{
		idx: idx,
		entry: types.CallstackEntry{
			ThisAddress:   this,
			CallerAddress: caller,
			CodeAddress:   this,
			CodePage:      base,
			BasePage:      base,
			HeapBound:     1 << 16,
			ErgsRemaining: ergs,
		},
	}
	me.trace.ForwardQueue = append(me.trace.ForwardQueue, len(me.trace.LogHistory))
	me.trace.LogHistory = append(me.trace.LogHistory, LogHistoryEntry{Kind: FrameForwardTailMarker, Cycle: cycle, Frame: idx})
	f.rollbacks = []int{len(me.trace.LogHistory)}
	me.trace.LogHistory = append(me.trace.LogHistory, LogHistoryEntry{Kind: FrameRollbackTailMarker, Cycle: cycle, Frame: idx})
	me.trace.CallstackActions = append(me.trace.CallstackActions, CallstackAction{
		Kind: OutOfScopeFresh, Cycle: cycle, Frame: idx, Entry: f.entry,
	})
	me.frames = append(me.frames, f)
}

// NewTransaction starts the next transaction of the block, which clears
// transient storage.
func (me *Builder) NewTransaction() {
	me.txNumber++
	clear(me.transient)
}

func (me *Builder) recordLog(c uint32, q types.LogQuery) {
	f := me.current()
	q.Timestamp = types.TimestampAt(c, LOG_QUERY_SUB)
	q.TxNumberInBlock = me.txNumber
	me.trace.ForwardQueue = append(me.trace.ForwardQueue, len(me.trace.LogHistory))
	me.trace.LogHistory = append(me.trace.LogHistory, LogHistoryEntry{Kind: LogQueryEntry, Cycle: c, Frame: f.idx, Query: q})
	if q.Reversible() {
		rb := q
		rb.Rollback = true
		f.rollbacks = append(f.rollbacks, len(me.trace.LogHistory))
		me.trace.LogHistory = append(me.trace.LogHistory, LogHistoryEntry{Kind: LogQueryEntry, Cycle: c, Frame: f.idx, Query: rb})
	}
}

func (me *Builder) MemoryWrite(page, index uint32, value uint256.Int) {
	c := me.step()
	me.memory[[2]uint32{page, index}] = value
	me.trace.MemoryQueries = append(me.trace.MemoryQueries, CycleMemoryQuery{Cycle: c, Query: types.MemoryQuery{
		Timestamp:  types.TimestampAt(c, MEMORY_WRITE_SUB),
		MemoryPage: page,
		Index:      index,
		RwFlag:     true,
		Value:      value,
	}})
}

func (me *Builder) MemoryRead(page, index uint32) uint256.Int {
	c := me.step()
	value := me.memory[[2]uint32{page, index}]
	me.trace.MemoryQueries = append(me.trace.MemoryQueries, CycleMemoryQuery{Cycle: c, Query: types.MemoryQuery{
		Timestamp:  types.TimestampAt(c, MEMORY_READ_SUB),
		MemoryPage: page,
		Index:      index,
		Value:      value,
	}})
	return value
}

func (me *Builder) slotAccess(transient bool, address common.Address, key uint256.Int, value *uint256.Int) uint256.Int {
	c := me.step()
	slots, aux := me.storage, types.STORAGE_AUX_BYTE
	if transient {
		slots, aux = me.transient, types.TRANSIENT_STORAGE_AUX_BYTE
	}
	slot := slotKey{address: address, key: key}
	prev := slots[slot]
	q := types.LogQuery{AuxByte: aux, Address: address, Key: key, ReadValue: prev, WrittenValue: prev}
	if value != nil {
		q.RwFlag = true
		q.WrittenValue = *value
		f := me.current()
		f.undo = append(f.undo, undoEntry{transient: transient, slot: slot, previous: prev})
		slots[slot] = *value
	}
	me.recordLog(c, q)
	return prev
}

func (me *Builder) StorageRead(address common.Address, key uint256.Int) uint256.Int {
	return me.slotAccess(false, address, key, nil)
}

// StorageWrite returns the value it replaced.
func (me *Builder) StorageWrite(address common.Address, key, value uint256.Int) uint256.Int {
	return me.slotAccess(false, address, key, &value)
}

func (me *Builder) TransientRead(address common.Address, key uint256.Int) uint256.Int {
	return me.slotAccess(true, address, key, nil)
}

func (me *Builder) TransientWrite(address common.Address, key, value uint256.Int) uint256.Int {
	return me.slotAccess(true, address, key, &value)
}

func (me *Builder) EmitEvent(key, value uint256.Int) {
	c := me.step()
	me.recordLog(c, types.LogQuery{
		AuxByte:      types.EVENT_AUX_BYTE,
		Address:      me.current().entry.ThisAddress,
		Key:          key,
		WrittenValue: value,
		RwFlag:       true,
	})
}

func (me *Builder) SendL1Message(key, value uint256.Int, isService bool) {
	c := me.step()
	me.recordLog(c, types.LogQuery{
		AuxByte:      types.L1_MESSAGE_AUX_BYTE,
		Address:      me.current().entry.ThisAddress,
		Key:          key,
		WrittenValue: value,
		RwFlag:       true,
		IsService:    isService,
	})
}

// CallPrecompile writes the input onto the active heap, records the call and
// the precompile's own memory traffic, and returns its output words.
func (me *Builder) CallPrecompile(kind types.DemuxKind, input []uint256.Int, extra uint64) []uint256.Int {
	f := me.current()
	heap := f.heapPage()
	outLen := precompiles.OutputLength(kind)
	abi := types.PrecompileCallABI{
		InputOffset:  f.heapCursor,
		InputLength:  uint32(len(input)),
		OutputOffset: f.heapCursor + uint32(len(input)),
		OutputLength: outLen,
		ReadPage:     heap,
		WritePage:    heap,
		Extra:        extra,
	}
	f.heapCursor += abi.InputLength + outLen
	for i := range input {
		me.MemoryWrite(heap, abi.InputOffset+uint32(i), input[i])
	}

	c := me.step()
	me.recordLog(c, types.LogQuery{
		AuxByte: types.PRECOMPILE_AUX_BYTE,
		Address: types.PrecompileAddress(kind),
		Key:     abi.Pack(),
	})
	call := PrecompileCall{Cycle: c, Kind: kind}
	for i := range input {
		call.Reads = append(call.Reads, types.MemoryQuery{
			Timestamp:  types.TimestampAt(c, LOG_QUERY_SUB),
			MemoryPage: abi.ReadPage,
			Index:      abi.InputOffset + uint32(i),
			Value:      me.memory[[2]uint32{abi.ReadPage, abi.InputOffset + uint32(i)}],
		})
	}
	output := precompiles.Execute(kind, abi, input)
	for i := range output {
		loc := [2]uint32{abi.WritePage, abi.OutputOffset + uint32(i)}
		me.memory[loc] = output[i]
		call.Writes = append(call.Writes, types.MemoryQuery{
			Timestamp:  types.TimestampAt(c, IMPLICIT_SUB),
			MemoryPage: loc[0],
			Index:      loc[1],
			RwFlag:     true,
			Value:      output[i],
		})
	}
	me.trace.PrecompileCalls = append(me.trace.PrecompileCalls, call)
	return output
}

// Decommit requests code by hash and returns the page it lives on. Code that
// was already decommitted in this block keeps its page.
func (me *Builder) Decommit(hash common.Hash, code []uint256.Int) uint32 {
	c := me.step()
	page, seen := me.codePages[hash]
	if !seen {
		page = me.nextPage
		me.nextPage++
		me.codePages[hash] = page
		me.trace.Bytecodes[hash] = slices.Clone(code)
		for i := range code {
			me.memory[[2]uint32{page, uint32(i)}] = code[i]
		}
	}
	me.trace.DecommitRequests = append(me.trace.DecommitRequests, CycleDecommitQuery{Cycle: c, Query: types.DecommitQuery{
		CodeHash:  hash,
		Page:      page,
		Timestamp: types.TimestampAt(c, IMPLICIT_SUB),
		IsFresh:   !seen,
	}})
	return page
}

func (me *Builder) FarCall(callee common.Address) {
	c := me.step()
	parent := me.current()
	me.trace.CallstackActions = append(me.trace.CallstackActions, CallstackAction{
		Kind: PushToStack, Cycle: c, Frame: parent.idx, Entry: parent.entry,
	})
	me.openFrame(c, callee, parent.entry.ThisAddress, parent.entry.ErgsRemaining/2)
}

// Return exits the active frame. A panic reverts its storage effects and
// appends its rollback segment to the forward queue, newest first.
func (me *Builder) Return(panicked bool) {
	if len(me.frames) == 1 {
		panic("return from the root frame")
	}
	c := me.step()
	child := me.current()
	me.frames = me.frames[:len(me.frames)-1]
	parent := me.current()
	me.trace.CallstackActions = append(me.trace.CallstackActions,
		CallstackAction{Kind: OutOfScopeExited, Cycle: c, Frame: child.idx, Entry: child.entry, Panic: panicked},
		CallstackAction{Kind: PopFromStack, Cycle: c, Frame: parent.idx, Entry: parent.entry, Panic: panicked},
	)
	if !panicked {
		parent.rollbacks = append(parent.rollbacks, child.rollbacks...)
		parent.undo = append(parent.undo, child.undo...)
		return
	}
	for i := len(child.rollbacks) - 1; i >= 0; i-- {
		me.trace.ForwardQueue = append(me.trace.ForwardQueue, child.rollbacks[i])
	}
	for i := len(child.undo) - 1; i >= 0; i-- {
		u := child.undo[i]
		if u.transient {
			me.transient[u.slot] = u.previous
		} else {
			me.storage[u.slot] = u.previous
		}
	}
}

func (me *Builder) Refund(refund uint32) {
	c := me.step()
	me.trace.Refunds = append(me.trace.Refunds, CycleRefund{Cycle: c, Refund: refund})
}

func (me *Builder) PubdataCost(cost int32) {
	c := me.step()
	me.trace.PubdataCosts = append(me.trace.PubdataCosts, CyclePubdataCost{Cycle: c, Cost: cost})
}

func (me *Builder) AppendPubdata(data []byte) {
	me.trace.Pubdata = append(me.trace.Pubdata, data...)
}

// Finish closes the root frame and returns the trace. The builder must not
// be used afterwards.
func (me *Builder) Finish() *Trace {
	if len(me.frames) != 1 {
		panic(fmt.Sprintf("finish with %d frames still open", len(me.frames)-1))
	}
	me.trace.RollbackQueue = slices.Clone(me.frames[0].rollbacks)
	me.trace.TotalCycles = me.cycle
	me.frames = nil
	return &me.trace
}
