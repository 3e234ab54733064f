package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/consensys/gnark/logger"
	"github.com/eon-protocol/eonzk"
	"github.com/eon-protocol/eonzk/circuits/definitions"
	"github.com/eon-protocol/eonzk/circuits/recursion"
	"github.com/eon-protocol/eonzk/storage"
	"github.com/eon-protocol/eonzk/tracer"
	"github.com/eon-protocol/eonzk/witness"
	"github.com/pkg/profile"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"
)

type kindSummary struct {
	Kind      string `json:"kind"`
	Instances int    `json:"instances"`
	Leaves    int    `json:"leaves"`
	Nodes     int    `json:"nodes"`
}

type summary struct {
	Block               uint64        `json:"block"`
	Digest              string        `json:"digest"`
	PublicInput         [2]string     `json:"public_input"`
	BaseCircuits        int           `json:"base_circuits"`
	RecursionInstances  int           `json:"recursion_instances"`
	BlobVersionedHashes []string      `json:"blob_versioned_hashes"`
	Kinds               []kindSummary `json:"kinds"`
}

func loadTrace(c *cli.Context) (*tracer.Trace, error) {
	if path := c.String("trace"); path != "" {
		return tracer.Load(path)
	}
	if !c.IsSet("synthetic-seed") {
		return nil, errors.New("either --trace or --synthetic-seed is required")
	}
	return tracer.Synthetic(c.Int64("synthetic-seed"), c.Int("synthetic-steps")), nil
}

func loadGeometry(c *cli.Context) (definitions.GeometryConfig, error) {
	if path := c.String("geometry"); path != "" {
		return definitions.LoadGeometry(path)
	}
	return definitions.DefaultGeometry(), nil
}

// storeSlots records a pending proof for every instance of the tree, each
// bound to the key of the circuit it belongs to.
func storeSlots(store storage.Store, block *witness.BlockWitness, tree *recursion.Tree, keys *recursion.Keys) error {
	bar := progressbar.Default(int64(len(block.Circuits)+tree.NumInstances()), "Storing proof slots")
	defer bar.Finish()
	put := func(key storage.Key, proof *eonzk.Proof) error {
		if err := store.Set(key, &storage.Artifact{Proof: proof}); err != nil {
			return fmt.Errorf("store %s: %w", key, err)
		}
		return bar.Add(1)
	}

	seen := make(map[definitions.BaseLayerCircuitType]int)
	for _, circuit := range block.Circuits {
		kind := circuit.Kind()
		key := storage.BaseKey(kind).Instance(seen[kind])
		seen[kind]++
		if err := put(key, eonzk.PendingProof(keys.Base[kind], circuit.PublicInput())); err != nil {
			return err
		}
	}

	var node int
	for _, b := range tree.Branches {
		leafKey := storage.RecursiveKey(definitions.BaseIntoLeaf(b.Kind))
		for _, leaf := range b.Leaves {
			if err := put(leafKey.Instance(leaf.Index), eonzk.PendingProof(keys.Leaf[b.Kind], leaf.PublicInput)); err != nil {
				return err
			}
		}
		for _, round := range b.Nodes {
			for _, n := range round {
				if err := put(storage.RecursiveKey(definitions.NodeLayerCircuit).Instance(node), eonzk.PendingProof(keys.Node, n.PublicInput)); err != nil {
					return err
				}
				node++
			}
		}
	}
	if err := put(storage.RecursiveKey(definitions.RecursionTipCircuit).Instance(0), eonzk.PendingProof(keys.Tip, tree.Tip.PublicInput)); err != nil {
		return err
	}
	return put(storage.RecursiveKey(definitions.SchedulerCircuit).Instance(0), eonzk.PendingProof(keys.Scheduler, tree.Scheduler.PublicInput))
}

func summarize(block *witness.BlockWitness, tree *recursion.Tree) summary {
	ret := summary{
		Block:              block.Aux.Block.Number,
		Digest:             tree.Scheduler.Digest.Hex(),
		BaseCircuits:       len(block.Circuits),
		RecursionInstances: tree.NumInstances(),
	}
	for i, e := range tree.Scheduler.PublicInput {
		ret.PublicInput[i] = e.String()
	}
	for _, h := range block.Aux.BlobVersionedHashes {
		ret.BlobVersionedHashes = append(ret.BlobVersionedHashes, h.Hex())
	}
	for _, b := range tree.Branches {
		k := kindSummary{
			Kind:      b.Kind.ShortDescription(),
			Instances: int(block.ResultsFor(b.Kind).RecursionQueue.NumItems),
			Leaves:    len(b.Leaves),
		}
		for _, round := range b.Nodes {
			k.Nodes += len(round)
		}
		ret.Kinds = append(ret.Kinds, k)
	}
	return ret
}

func run(c *cli.Context) error {
	level := zerolog.InfoLevel
	if c.Bool("verbose") {
		level = zerolog.DebugLevel
	}
	logger.Set(zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).Level(level).With().Timestamp().Logger())
	if c.Bool("pprof.cpu") {
		defer profile.Start(profile.NoShutdownHook, profile.ProfilePath("."), profile.CPUProfile).Stop()
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	trace, err := loadTrace(c)
	if err != nil {
		return err
	}
	geometry, err := loadGeometry(c)
	if err != nil {
		return err
	}
	store, err := storage.NewFileStore(c.String("artifacts"))
	if err != nil {
		return err
	}
	keys, err := recursion.LoadKeys(store)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w (run generate_verification_keys --artifacts %s first)", err, c.String("artifacts"))
	} else if err != nil {
		return err
	}

	block, err := witness.Run(ctx, trace, geometry)
	if err != nil {
		return err
	}
	tree, err := recursion.BuildTree(ctx, block, keys)
	if err != nil {
		return err
	}
	if err := storeSlots(store, block, tree, keys); err != nil {
		return err
	}

	out := os.Stdout
	if path := c.String("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(summarize(block, tree))
}

func main() {
	app := &cli.App{
		Name:  "generate_witness",
		Usage: "Builds the base layer witness and recursion tree of a block",
		Flags: []cli.Flag{
			&cli.PathFlag{
				Name:  "trace",
				Usage: "JSON execution trace of the block",
			},
			&cli.Int64Flag{
				Name:  "synthetic-seed",
				Usage: "Generate a synthetic trace from this seed instead of reading one",
			},
			&cli.IntFlag{
				Name:  "synthetic-steps",
				Usage: "Number of operations in the synthetic trace",
				Value: 2000,
			},
			&cli.PathFlag{
				Name:  "geometry",
				Usage: "JSON geometry overriding the default circuit capacities",
			},
			&cli.PathFlag{
				Name:  "artifacts",
				Usage: "Directory holding the verification keys, proof slots are written next to them",
				Value: "artifacts",
			},
			&cli.PathFlag{
				Name:  "output",
				Usage: "Where the JSON summary goes, stdout when empty",
			},
			&cli.BoolFlag{
				Name:  "pprof.cpu",
				Usage: "Write a CPU profile to the working directory",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log every stage at debug level",
			},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatalln(err)
	}
}
