// Package storage keeps verification keys, finalization hints and proofs
// keyed by circuit kind.
package storage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/eon-protocol/eonzk"
	"github.com/eon-protocol/eonzk/circuits/definitions"
)

// ErrNotFound is returned for keys that were never stored.
var ErrNotFound = errors.New("artifact not found")

// Key addresses an artifact. CircuitType is a base layer code when
// IsRecursive is false and a recursion layer code otherwise. Index 0 holds
// the artifacts of the kind itself, index i+1 those of its instance i.
type Key struct {
	IsRecursive bool
	CircuitType uint8
	Index       uint32
}

func BaseKey(kind definitions.BaseLayerCircuitType) Key {
	return Key{CircuitType: uint8(kind)}
}

func RecursiveKey(kind definitions.RecursionLayerStorageType) Key {
	return Key{IsRecursive: true, CircuitType: uint8(kind)}
}

// Instance is the key of instance i of the kind.
func (me Key) Instance(i int) Key {
	me.Index = uint32(i) + 1
	return me
}

func (me Key) String() string {
	if me.IsRecursive {
		return fmt.Sprintf("%s #%d", definitions.RecursionLayerStorageTypeFromNumeric(me.CircuitType), me.Index)
	}
	return fmt.Sprintf("%s #%d", definitions.BaseLayerCircuitTypeFromNumeric(me.CircuitType), me.Index)
}

// Artifact groups what is stored under one key. Any part may be nil.
type Artifact struct {
	Vk               *eonzk.Vk
	FinalizationHint []byte
	Proof            *eonzk.Proof
}

type Store interface {
	Get(key Key) (*Artifact, error)
	Set(key Key, artifact *Artifact) error
}

// GetVk returns the key stored under key or an error wrapping ErrNotFound.
func GetVk(store Store, key Key) (*eonzk.Vk, error) {
	a, err := store.Get(key)
	if err != nil {
		return nil, err
	}
	if a.Vk == nil {
		return nil, fmt.Errorf("vk for %s: %w", key, ErrNotFound)
	}
	return a.Vk, nil
}

// SetVk stores vk under key, keeping whatever else is stored there.
func SetVk(store Store, key Key, vk *eonzk.Vk) error {
	a, err := store.Get(key)
	switch {
	case errors.Is(err, ErrNotFound):
		a = &Artifact{}
	case err != nil:
		return err
	}
	a.Vk = vk
	return store.Set(key, a)
}

type MemoryStore struct {
	mu        sync.RWMutex
	artifacts map[Key]Artifact
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{artifacts: make(map[Key]Artifact)}
}

func (me *MemoryStore) Get(key Key) (*Artifact, error) {
	me.mu.RLock()
	defer me.mu.RUnlock()
	a, ok := me.artifacts[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return &a, nil
}

func (me *MemoryStore) Set(key Key, artifact *Artifact) error {
	me.mu.Lock()
	defer me.mu.Unlock()
	me.artifacts[key] = *artifact
	return nil
}
