package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "42/abc.pdf", []byte("%PDF-1.4"), "application/pdf"))
	got, err := store.Get(ctx, "42/abc.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(got))

	// Content-addressed keys are written once.
	require.NoError(t, store.Put(ctx, "42/abc.pdf", []byte("changed"), "application/pdf"))
	got, err = store.Get(ctx, "42/abc.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(got))

	_, err = store.Get(ctx, "42/missing.pdf")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStoreKeepsKeysInsideBaseDir(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	require.NoError(t, err)

	path, err := store.path("../../etc/passwd")
	require.NoError(t, err)
	assert.Contains(t, path, dir)

	_, err = store.path("  ")
	assert.Error(t, err)
}
