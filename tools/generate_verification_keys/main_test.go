package main

import (
	"testing"

	"github.com/eon-protocol/eonzk/circuits/recursion"
	"github.com/eon-protocol/eonzk/storage"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	store, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)

	written, err := generate(store, false)
	require.NoError(t, err)
	require.Equal(t, len(recursion.KeyList()), written)
	_, err = recursion.LoadKeys(store)
	require.NoError(t, err)

	written, err = generate(store, false)
	require.NoError(t, err)
	require.Zero(t, written)

	written, err = generate(store, true)
	require.NoError(t, err)
	require.Equal(t, len(recursion.KeyList()), written)
}
