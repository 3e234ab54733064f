package storage

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/eon-protocol/eonzk"
)

const (
	hasVk uint8 = 1 << iota
	hasHint
	hasProof
)

// FileStore keeps one file per key under a directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (me *FileStore) path(key Key) string {
	layer := "base"
	if key.IsRecursive {
		layer = "recursive"
	}
	return filepath.Join(me.dir, fmt.Sprintf("%s_%d_%d.bin", layer, key.CircuitType, key.Index))
}

func (me *FileStore) Get(key Key) (*Artifact, error) {
	f, err := os.Open(me.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	defer f.Close()
	a, err := readArtifact(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return a, nil
}

// Set writes to a temporary file first so readers never see a partial
// artifact.
func (me *FileStore) Set(key Key, artifact *Artifact) error {
	path := me.path(key)
	f, err := os.CreateTemp(me.dir, filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create %s: %w", key, err)
	}
	defer os.Remove(f.Name())
	w := bufio.NewWriter(f)
	if err := writeArtifact(w, artifact); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", key, err)
	}
	return os.Rename(f.Name(), path)
}

func writeArtifact(w io.Writer, a *Artifact) error {
	var flags uint8
	if a.Vk != nil {
		flags |= hasVk
	}
	if a.FinalizationHint != nil {
		flags |= hasHint
	}
	if a.Proof != nil {
		flags |= hasProof
	}
	enc := bls12381.NewEncoder(w)
	if err := enc.Encode(flags); err != nil {
		return err
	}
	if a.Vk != nil {
		if _, err := a.Vk.WriteTo(w); err != nil {
			return fmt.Errorf("vk: %w", err)
		}
	}
	if a.FinalizationHint != nil {
		if err := enc.Encode(uint32(len(a.FinalizationHint))); err != nil {
			return err
		}
		if _, err := w.Write(a.FinalizationHint); err != nil {
			return fmt.Errorf("finalization hint: %w", err)
		}
	}
	if a.Proof != nil {
		if _, err := a.Proof.WriteTo(w); err != nil {
			return fmt.Errorf("proof: %w", err)
		}
	}
	return nil
}

func readArtifact(r io.Reader) (*Artifact, error) {
	dec := bls12381.NewDecoder(r)
	var flags uint8
	if err := dec.Decode(&flags); err != nil {
		return nil, err
	}
	a := &Artifact{}
	if flags&hasVk != 0 {
		a.Vk = &eonzk.Vk{}
		if _, err := a.Vk.ReadFrom(r); err != nil {
			return nil, fmt.Errorf("vk: %w", err)
		}
	}
	if flags&hasHint != 0 {
		var n uint32
		if err := dec.Decode(&n); err != nil {
			return nil, err
		}
		a.FinalizationHint = make([]byte, n)
		if _, err := io.ReadFull(r, a.FinalizationHint); err != nil {
			return nil, fmt.Errorf("finalization hint: %w", err)
		}
	}
	if flags&hasProof != 0 {
		a.Proof = &eonzk.Proof{}
		if _, err := a.Proof.ReadFrom(r); err != nil {
			return nil, fmt.Errorf("proof: %w", err)
		}
	}
	return a, nil
}
