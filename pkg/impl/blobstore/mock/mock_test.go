package mock

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/adammck/sstprops/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockPutAndOpen(t *testing.T) {
	ctx := context.Background()
	store := New()

	data := []byte("abcdefghijklmnopqrstuvwxyz")
	err := store.Put(ctx, "testkey", bytes.NewReader(data))
	require.NoError(t, err)

	b, err := store.Open(ctx, "testkey")
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), b.Size())

	buf := make([]byte, 5)
	_, err = b.ReadAt(buf, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte("defgh"), buf)

	// reading past the end.
	n, err := b.ReadAt(buf, 24)
	assert.Equal(t, 2, n)
	assert.ErrorIs(t, err, io.EOF)
}

func TestMockPutExisting(t *testing.T) {
	ctx := context.Background()
	store := New()

	require.NoError(t, store.Put(ctx, "k", bytes.NewReader([]byte("a"))))
	require.Error(t, store.Put(ctx, "k", bytes.NewReader([]byte("b"))))
}

func TestMockNotFound(t *testing.T) {
	ctx := context.Background()
	store := New()

	_, err := store.Open(ctx, "nope")
	require.ErrorIs(t, err, &api.NotFound{})

	err = store.Delete(ctx, "nope")
	require.ErrorIs(t, err, &api.NotFound{})
}

func TestMockListAndDelete(t *testing.T) {
	ctx := context.Background()
	store := New()

	for _, k := range []string{"b", "a", "c"} {
		require.NoError(t, store.Put(ctx, k, bytes.NewReader(nil)))
	}

	keys, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, keys)

	require.NoError(t, store.Delete(ctx, "b"))
	keys, err = store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, keys)
}
