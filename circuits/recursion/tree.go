package recursion

import (
	"context"
	"fmt"
	"time"

	"github.com/consensys/gnark/logger"
	"github.com/eon-protocol/eonzk"
	"github.com/eon-protocol/eonzk/circuits/definitions"
	"github.com/eon-protocol/eonzk/storage"
	"github.com/eon-protocol/eonzk/witness"
	"golang.org/x/sync/errgroup"
)

// Keys is every verification key the recursion layer binds to.
type Keys struct {
	Base      map[definitions.BaseLayerCircuitType]*eonzk.Vk
	Leaf      map[definitions.BaseLayerCircuitType]*eonzk.Vk
	Node      *eonzk.Vk
	Tip       *eonzk.Vk
	Scheduler *eonzk.Vk
}

// KeyList enumerates the keys of every circuit, base kinds first.
func KeyList() []storage.Key {
	var ret []storage.Key
	for _, kind := range definitions.SCHEDULE_ORDER {
		ret = append(ret, storage.BaseKey(kind))
	}
	for _, kind := range definitions.SCHEDULE_ORDER {
		ret = append(ret, storage.RecursiveKey(definitions.BaseIntoLeaf(kind)))
	}
	return append(ret,
		storage.RecursiveKey(definitions.NodeLayerCircuit),
		storage.RecursiveKey(definitions.RecursionTipCircuit),
		storage.RecursiveKey(definitions.SchedulerCircuit),
	)
}

func newKeys() *Keys {
	return &Keys{
		Base: make(map[definitions.BaseLayerCircuitType]*eonzk.Vk),
		Leaf: make(map[definitions.BaseLayerCircuitType]*eonzk.Vk),
	}
}

func (me *Keys) set(key storage.Key, vk *eonzk.Vk) {
	switch kind := definitions.RecursionLayerStorageType(key.CircuitType); {
	case !key.IsRecursive:
		me.Base[definitions.BaseLayerCircuitTypeFromNumeric(key.CircuitType)] = vk
	case kind.IsLeaf():
		me.Leaf[definitions.LeafIntoBase(kind)] = vk
	case kind == definitions.NodeLayerCircuit:
		me.Node = vk
	case kind == definitions.RecursionTipCircuit:
		me.Tip = vk
	case kind == definitions.SchedulerCircuit:
		me.Scheduler = vk
	default:
		panic(fmt.Sprintf("unknown recursion layer circuit type %d", key.CircuitType))
	}
}

// SetupKeys derives every key with eonzk.SetupVk.
func SetupKeys() *Keys {
	ret := newKeys()
	for _, key := range KeyList() {
		ret.set(key, eonzk.SetupVk(key.IsRecursive, key.CircuitType))
	}
	return ret
}

// LoadKeys reads every key from store. A missing key is reported wrapping
// storage.ErrNotFound.
func LoadKeys(store storage.Store) (*Keys, error) {
	ret := newKeys()
	for _, key := range KeyList() {
		vk, err := storage.GetVk(store, key)
		if err != nil {
			return nil, fmt.Errorf("load keys: %w", err)
		}
		if vk.IsRecursive != key.IsRecursive || vk.CircuitType != key.CircuitType {
			return nil, fmt.Errorf("load keys: %s holds %s", key, vk)
		}
		ret.set(key, vk)
	}
	return ret, nil
}

func (me *Keys) LeafParameters(kind definitions.BaseLayerCircuitType) RecursionLeafParameters {
	return LeafParametersFor(kind, me.Base[kind], me.Leaf[kind])
}

// Branch is the recursion subtree of one kind. Leaves and Nodes are empty
// for a kind without instances.
type Branch struct {
	Kind   definitions.BaseLayerCircuitType
	Leaves []*LeafInstance
	Nodes  [][]*NodeInstance
	Root   Aggregate
}

type Tree struct {
	Branches  []Branch
	Tip       *RecursionTipInstance
	Scheduler *SchedulerInstance
}

// NumInstances counts the recursion layer instances to prove.
func (me *Tree) NumInstances() int {
	n := 2
	for _, b := range me.Branches {
		n += len(b.Leaves)
		for _, round := range b.Nodes {
			n += len(round)
		}
	}
	return n
}

// BuildTree folds a block witness into the recursion tree. Kinds are folded
// concurrently.
func BuildTree(ctx context.Context, block *witness.BlockWitness, keys *Keys) (*Tree, error) {
	log := logger.Logger().With().Uint64("block", block.Aux.Block.Number).Str("stage", "recursion").Logger()
	start := time.Now()
	tree := &Tree{Branches: make([]Branch, len(definitions.SCHEDULE_ORDER))}
	params := make([]RecursionLeafParameters, len(definitions.SCHEDULE_ORDER))

	// invariant violations on a worker are raised again on the caller
	panics := make([]any, len(definitions.SCHEDULE_ORDER))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range definitions.SCHEDULE_ORDER {
		params[i] = keys.LeafParameters(kind)
		results := block.ResultsFor(kind)
		g.Go(func() error {
			defer func() {
				panics[i] = recover()
			}()
			if err := gctx.Err(); err != nil {
				return err
			}
			b := Branch{Kind: kind}
			if results.RecursionQueue.NumItems == 0 {
				b.Root = EmptyNodeOutput(kind, keys.Node)
			} else {
				b.Leaves = BuildLeaves(kind, results.RecursionQueue, params[i])
				b.Nodes, b.Root = BuildNodes(b.Leaves, params[i], keys.Node)
			}
			tree.Branches[i] = b
			log.Debug().Str("kind", kind.ShortDescription()).Int("leaves", len(b.Leaves)).Int("node rounds", len(b.Nodes)).Msg("folded")
			return nil
		})
	}
	err := g.Wait()
	for _, p := range panics {
		if p != nil {
			panic(p)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("fold branches: %w", err)
	}

	roots := make([]Aggregate, len(tree.Branches))
	for i := range tree.Branches {
		roots[i] = tree.Branches[i].Root
	}
	tree.Tip = BuildRecursionTip(roots, params, keys.Node)
	tree.Scheduler = BuildScheduler(block, tree.Tip, keys.Tip)
	log.Info().Int("instances", tree.NumInstances()).Str("digest", tree.Scheduler.Digest.Hex()).Dur("took", time.Since(start)).Msg("recursion tree built")
	return tree, nil
}
