package storage

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/eon-protocol/eonzk"
	"github.com/eon-protocol/eonzk/circuits/definitions"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]Store {
	fileStore, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	return map[string]Store{"memory": NewMemoryStore(), "file": fileStore}
}

func TestStoreRoundTrip(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			key := RecursiveKey(definitions.BaseIntoLeaf(definitions.MainVM))
			_, err := store.Get(key)
			require.ErrorIs(t, err, ErrNotFound)
			_, err = GetVk(store, key)
			require.ErrorIs(t, err, ErrNotFound)

			vk := eonzk.SetupVk(true, key.CircuitType)
			require.NoError(t, SetVk(store, key, vk))
			got, err := GetVk(store, key)
			require.NoError(t, err)
			require.Equal(t, vk.Address(), got.Address())

			proof := eonzk.PendingProof(vk, [2]fr.Element{fr.NewElement(1), fr.NewElement(2)})
			slot := key.Instance(2)
			require.Equal(t, uint32(3), slot.Index)
			require.NoError(t, store.Set(slot, &Artifact{Proof: proof, FinalizationHint: []byte("hint")}))
			a, err := store.Get(slot)
			require.NoError(t, err)
			require.Nil(t, a.Vk)
			require.Equal(t, []byte("hint"), a.FinalizationHint)
			require.True(t, a.Proof.IsFor(vk))

			// setting the key again keeps the other parts
			require.NoError(t, store.Set(key, &Artifact{Vk: vk, FinalizationHint: []byte{7}}))
			require.NoError(t, SetVk(store, key, vk))
			a, err = store.Get(key)
			require.NoError(t, err)
			require.Equal(t, []byte{7}, a.FinalizationHint)
		})
	}
}

func TestKeyString(t *testing.T) {
	require.Equal(t, "Main VM #0", BaseKey(definitions.MainVM).String())
	require.Equal(t, "Recursion tip #0", RecursiveKey(definitions.RecursionTipCircuit).String())
	require.Panics(t, func() { _ = Key{CircuitType: 99}.String() })
}
