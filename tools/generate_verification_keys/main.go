package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/consensys/gnark/logger"
	"github.com/eon-protocol/eonzk"
	"github.com/eon-protocol/eonzk/circuits/recursion"
	"github.com/eon-protocol/eonzk/storage"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"
)

// generate stores the key of every circuit missing from store, or of every
// circuit when overwrite is set, and returns how many it wrote.
func generate(store storage.Store, overwrite bool) (int, error) {
	keys := recursion.KeyList()
	bar := progressbar.Default(int64(len(keys)), "Generating verification keys")
	defer bar.Finish()
	var written int
	for _, key := range keys {
		if !overwrite {
			if _, err := storage.GetVk(store, key); err == nil {
				bar.Add(1)
				continue
			}
		}
		vk := eonzk.SetupVk(key.IsRecursive, key.CircuitType)
		if err := storage.SetVk(store, key, vk); err != nil {
			return written, fmt.Errorf("store %s: %w", key, err)
		}
		written++
		bar.Add(1)
	}
	return written, nil
}

func main() {
	app := &cli.App{
		Name:  "generate_verification_keys",
		Usage: "Writes the verification key of every base and recursion layer circuit",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "artifacts",
				Usage: "Directory the keys are written to",
				Value: "artifacts",
			},
			&cli.BoolFlag{
				Name:  "overwrite",
				Usage: "Replace keys that are already stored",
			},
		},
		Action: func(c *cli.Context) error {
			logger.Set(zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).With().Timestamp().Logger())
			store, err := storage.NewFileStore(c.String("artifacts"))
			if err != nil {
				return err
			}
			written, err := generate(store, c.Bool("overwrite"))
			if err != nil {
				return err
			}
			log := logger.Logger()
			log.Info().Int("written", written).Int("total", len(recursion.KeyList())).Str("dir", c.String("artifacts")).Msg("verification keys ready")
			return nil
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatalln(err)
	}
}
