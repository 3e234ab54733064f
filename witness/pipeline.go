package witness

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/consensys/gnark/logger"
	"github.com/eon-protocol/eonzk/circuits/definitions"
	"github.com/eon-protocol/eonzk/queue"
	"github.com/eon-protocol/eonzk/tracer"
	"github.com/eon-protocol/eonzk/types"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

// MemoryChainLink is what one memory queue extending kind did to the queue.
// Skipped kinds hand the state they received straight on.
type MemoryChainLink struct {
	Kind    definitions.BaseLayerCircuitType
	Input   queue.FullWidthQueueState
	Output  queue.FullWidthQueueState
	Skipped bool
}

// BlockAux is the block level data the scheduler commits to.
type BlockAux struct {
	Block                tracer.BlockMeta
	MemoryChain          []MemoryChainLink
	RamUnsortedState     queue.FullWidthQueueState
	MainVm               MainVmOutput
	StorageApplication   StorageApplicationOutput
	L1MessagesLinearHash common.Hash
	EventsQueueState     queue.QueueState
	BlobVersionedHashes  []common.Hash
}

// BlockWitness is every base layer circuit of a block and, per kind in
// schedule order, what the recursion layer needs.
type BlockWitness struct {
	Geometry definitions.GeometryConfig
	Circuits []BaseLayerCircuit
	Results  []MakerResults
	Aux      BlockAux
}

// ResultsFor returns the maker results of kind.
func (me *BlockWitness) ResultsFor(kind definitions.BaseLayerCircuitType) MakerResults {
	for _, r := range me.Results {
		if r.Kind == kind {
			return r
		}
	}
	panic(fmt.Sprintf("no results for %s", kind))
}

type stagePanic struct {
	value any
}

func (me stagePanic) Error() string {
	return fmt.Sprint(me.value)
}

// recovering turns a panic on a worker goroutine into an error so the caller
// can raise it again on its own goroutine.
func recovering(f func()) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = stagePanic{value: r}
			}
		}()
		f()
		return nil
	}
}

func repanic(err error) error {
	var p stagePanic
	if errors.As(err, &p) {
		panic(p.value)
	}
	return err
}

type pipeline struct {
	trace    *tracer.Trace
	geometry definitions.GeometryConfig
	out      *BlockWitness
	results  map[definitions.BaseLayerCircuitType]MakerResults
}

func (me *pipeline) collect(results MakerResults, circuits []BaseLayerCircuit) {
	me.results[results.Kind] = results
	me.out.Circuits = append(me.out.Circuits, circuits...)
}

func (me *pipeline) capacity(kind definitions.BaseLayerCircuitType) int {
	return me.geometry.CapacityFor(kind)
}

// Run turns one block trace into its base layer circuits. Invariant
// violations in the trace panic; only cancellation and KZG setup failures
// are returned as errors.
func Run(ctx context.Context, trace *tracer.Trace, geometry definitions.GeometryConfig) (*BlockWitness, error) {
	if err := geometry.Validate(); err != nil {
		return nil, fmt.Errorf("geometry: %w", err)
	}
	log := logger.Logger().With().Uint64("block", trace.Block.Number).Uint32("cycles", trace.TotalCycles).Logger()
	me := &pipeline{
		trace:    trace,
		geometry: geometry,
		out:      &BlockWitness{Geometry: geometry},
		results:  make(map[definitions.BaseLayerCircuitType]MakerResults),
	}
	me.out.Aux.Block = trace.Block
	start := time.Now()

	stage := time.Now()
	logs := ProcessLogQueue(trace)
	log.Debug().Str("stage", "log queue").Int("queries", len(logs.States)).Dur("took", time.Since(stage)).Msg("simulated")

	var callstack *CallstackSimulationResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(recovering(func() {
		stage := time.Now()
		callstack = SimulateCallstack(trace, logs)
		log.Debug().Str("stage", "callstack").Int("frames", len(callstack.NewFrames)).Dur("took", time.Since(stage)).Msg("simulated")
	}))

	decommitRequests := queue.NewQueueSimulator[types.DecommitQuery]()
	for _, r := range trace.DecommitRequests {
		decommitRequests.Push(r.Query)
	}
	results, circuits, dedupedDecommits := BuildDecommitmentsSorter(decommitRequests, me.capacity(definitions.CodeDecommittmentsSorter))
	me.collect(results, circuits)

	results, circuits, demuxed := BuildLogDemuxer(logs.Applied, me.capacity(definitions.LogDemuxer))
	me.collect(results, circuits)
	for kind := range demuxed {
		if int(demuxed[kind].NumItems) != len(logs.Demuxed[kind]) {
			panic(fmt.Sprintf("%s: demuxer emitted %d queries, the log queue routed %d", types.DemuxKind(kind), demuxed[kind].NumItems, len(logs.Demuxed[kind])))
		}
	}

	// the unsorted memory queue, in MEMORY_CHAIN_ORDER
	vmQueries := make([]types.MemoryQuery, len(trace.MemoryQueries))
	for i := range trace.MemoryQueries {
		vmQueries[i] = trace.MemoryQueries[i].Query
	}
	unsorted := slices.Clone(vmQueries)
	memStart := map[definitions.BaseLayerCircuitType]int{definitions.MainVM: 0}
	memStart[definitions.CodeDecommitter] = len(unsorted)
	unsorted = append(unsorted, DecommitterMemoryWrites(dedupedDecommits.Items(), trace.Bytecodes)...)
	executed := make(map[types.DemuxKind][]tracer.PrecompileCall)
	for _, call := range trace.PrecompileCalls {
		executed[call.Kind] = append(executed[call.Kind], call)
	}
	precompileKinds := precompileDemuxKinds()
	for _, kind := range precompileKinds {
		memStart[definitions.ForDemuxOutput(kind)] = len(unsorted)
		unsorted = append(unsorted, PrecompileMemoryTraffic(kind, demuxed[kind].Items(), executed[kind])...)
	}

	stage = time.Now()
	mem, err := SimulateMemoryQueues(gctx, unsorted)
	if err != nil {
		if werr := repanic(g.Wait()); werr != nil {
			return nil, werr
		}
		return nil, fmt.Errorf("memory queues: %w", err)
	}
	log.Debug().Str("stage", "memory queues").Int("queries", mem.Len()).Dur("took", time.Since(stage)).Msg("simulated")
	if err := repanic(g.Wait()); err != nil {
		return nil, fmt.Errorf("callstack: %w", err)
	}

	stage = time.Now()
	results, circuits, vmOutput := BuildMainVM(trace, logs, callstack, decommitRequests, mem, me.capacity(definitions.MainVM))
	me.collect(results, circuits)
	me.out.Aux.MainVm = vmOutput
	log.Debug().Str("stage", "main vm").Int("instances", len(circuits)).Dur("took", time.Since(stage)).Msg("repacked")

	results, circuits = BuildCodeDecommitter(dedupedDecommits, trace.Bytecodes, mem, memStart[definitions.CodeDecommitter], me.capacity(definitions.CodeDecommitter))
	me.collect(results, circuits)
	for _, kind := range precompileKinds {
		circuitKind := definitions.ForDemuxOutput(kind)
		results, circuits := BuildPrecompile(kind, demuxed[kind], executed[kind], mem, memStart[circuitKind], me.capacity(circuitKind))
		me.collect(results, circuits)
	}

	stage = time.Now()
	results, circuits = BuildRamPermutation(mem, me.capacity(definitions.RAMPermutation))
	me.collect(results, circuits)
	me.out.Aux.RamUnsortedState = mem.UnsortedRemaining(0)
	log.Debug().Str("stage", "ram permutation").Int("instances", len(circuits)).Dur("took", time.Since(stage)).Msg("built")

	results, circuits, finalStorage := BuildStorageSorter(demuxed[types.DemuxStorage], me.capacity(definitions.StorageSorter))
	me.collect(results, circuits)
	results, circuits, storageOutput := BuildStorageApplication(finalStorage, trace.Block.PrevStateRoot, me.capacity(definitions.StorageApplication))
	me.collect(results, circuits)
	me.out.Aux.StorageApplication = storageOutput

	results, circuits = BuildTransientStorageSorter(demuxed[types.DemuxTransientStorage], me.capacity(definitions.TransientStorageSorter))
	me.collect(results, circuits)
	results, circuits, events := BuildEventsSorter(demuxed[types.DemuxEvents], me.capacity(definitions.EventsSorter))
	me.collect(results, circuits)
	me.out.Aux.EventsQueueState = events.State()
	results, circuits, messages := BuildL1MessagesSorter(demuxed[types.DemuxL1Messages], me.capacity(definitions.L1MessagesSorter))
	me.collect(results, circuits)
	results, circuits, l1Output := BuildL1MessagesHasher(messages, me.capacity(definitions.L1MessagesHasher))
	me.collect(results, circuits)
	me.out.Aux.L1MessagesLinearHash = l1Output.LinearHash

	stage = time.Now()
	results, circuits, blobHashes, err := BuildEIP4844Repack(trace.Pubdata, int(geometry.ElementsPerEIP4844Blob), int(geometry.MaxEIP4844Blobs))
	if err != nil {
		return nil, fmt.Errorf("eip4844: %w", err)
	}
	me.collect(results, circuits)
	me.out.Aux.BlobVersionedHashes = blobHashes
	log.Debug().Str("stage", "eip4844").Int("blobs", len(blobHashes)).Dur("took", time.Since(stage)).Msg("committed")

	me.out.Aux.MemoryChain = me.memoryChain(mem, memStart)
	for _, kind := range definitions.SCHEDULE_ORDER {
		r, ok := me.results[kind]
		if !ok {
			panic(fmt.Sprintf("%s produced no results", kind))
		}
		me.out.Results = append(me.out.Results, r)
	}
	log.Info().Int("circuits", len(me.out.Circuits)).Dur("took", time.Since(start)).Msg("block witness ready")
	return me.out, nil
}

// memoryChain links every kind of MEMORY_CHAIN_ORDER to the memory queue
// states it started and ended with.
func (me *pipeline) memoryChain(mem *MemoryQueues, memStart map[definitions.BaseLayerCircuitType]int) []MemoryChainLink {
	links := make([]MemoryChainLink, len(definitions.MEMORY_CHAIN_ORDER))
	for i, kind := range definitions.MEMORY_CHAIN_ORDER {
		end := mem.Len()
		if i+1 < len(definitions.MEMORY_CHAIN_ORDER) {
			end = memStart[definitions.MEMORY_CHAIN_ORDER[i+1]]
		}
		links[i] = MemoryChainLink{
			Kind:    kind,
			Input:   mem.UnsortedPrefix(memStart[kind]),
			Output:  mem.UnsortedPrefix(end),
			Skipped: me.results[kind].RecursionQueue.NumItems == 0,
		}
	}
	return links
}

func precompileDemuxKinds() []types.DemuxKind {
	var ret []types.DemuxKind
	for _, kind := range definitions.MEMORY_CHAIN_ORDER {
		for d := types.DemuxKind(0); d < types.NUM_DEMUX_OUTPUTS; d++ {
			if d >= types.DemuxKeccak256 && definitions.ForDemuxOutput(d) == kind {
				ret = append(ret, d)
			}
		}
	}
	return ret
}
