package sstable

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/adammck/sstprops/pkg/types"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupManager(t *testing.T) (context.Context, *Manager, *clockwork.FakeClock) {
	ctx := context.Background()
	c := clockwork.NewFakeClockAt(time.Unix(nowUnix, 0))
	mgr := NewManager(t.TempDir(), NewFactory(c))
	return ctx, mgr, c
}

func flush(t *testing.T, ctx context.Context, mgr *Manager, entries ...*types.Entry) (*Meta, error) {
	ch := make(chan *types.Entry)
	go func() {
		defer close(ch)
		for _, e := range entries {
			ch <- e
		}
	}()
	return mgr.Flush(ctx, ch)
}

func TestManagerFlushEmpty(t *testing.T) {
	ctx, mgr, _ := setupManager(t)

	_, err := flush(t, ctx, mgr)
	require.ErrorIs(t, err, ErrNoRecords)

	// no temp files left behind.
	des, err := os.ReadDir(mgr.dir)
	require.NoError(t, err)
	assert.Empty(t, des)
}

func TestManagerFlush(t *testing.T) {
	ctx, mgr, _ := setupManager(t)

	meta, err := flush(t, ctx, mgr, put("k2", 1), put("k1", 2))
	require.NoError(t, err)
	require.Equal(t, 2, meta.Count)
	require.Equal(t, []byte("k1"), meta.MinKey)
	require.Equal(t, []byte("k2"), meta.MaxKey)

	r, err := mgr.Open(meta.Filename())
	require.NoError(t, err)
	defer r.Close()

	got := tableToSlice(t, r)
	require.Len(t, got, 2)
	assert.Equal(t, []byte("k12"), got[0].Value)
	assert.Equal(t, []byte("k21"), got[1].Value)

	des, err := os.ReadDir(mgr.dir)
	require.NoError(t, err)
	require.Len(t, des, 1)
	assert.Equal(t, meta.Filename(), des[0].Name())
}

func TestManagerFlushCancelled(t *testing.T) {
	_, mgr, _ := setupManager(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// never closed, so only the context can end the flush.
	ch := make(chan *types.Entry)
	_, err := mgr.Flush(ctx, ch)
	require.ErrorIs(t, err, context.Canceled)
}

func TestManagerFlushCancelledAfterClose(t *testing.T) {
	_, mgr, _ := setupManager(t)
	ctx, cancel := context.WithCancel(context.Background())

	// the producer closed the channel, then failed.
	ch := make(chan *types.Entry, 1)
	ch <- put("a", 1)
	close(ch)
	cancel()

	_, err := mgr.Flush(ctx, ch)
	require.ErrorIs(t, err, context.Canceled)

	des, err := os.ReadDir(mgr.dir)
	require.NoError(t, err)
	assert.Empty(t, des)
}

func TestManagerList(t *testing.T) {
	ctx, mgr, c := setupManager(t)

	m1, err := flush(t, ctx, mgr, put("a", 1))
	require.NoError(t, err)
	c.Advance(time.Second)
	m2, err := flush(t, ctx, mgr, put("b", 1))
	require.NoError(t, err)

	// not an sstable.
	require.NoError(t, os.WriteFile(filepath.Join(mgr.dir, "README"), []byte("hi"), 0o644))

	metas, err := mgr.List(ctx)
	require.NoError(t, err)
	require.Len(t, metas, 2)

	ids := []string{metas[0].ID, metas[1].ID}
	assert.ElementsMatch(t, []string{m1.ID, m2.ID}, ids)
}

func TestManagerListCorrupt(t *testing.T) {
	ctx, mgr, _ := setupManager(t)
	require.NoError(t, os.WriteFile(filepath.Join(mgr.dir, "1.sstable"), []byte("garbage"), 0o644))

	_, err := mgr.List(ctx)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestManagerDelete(t *testing.T) {
	ctx, mgr, _ := setupManager(t)

	meta, err := flush(t, ctx, mgr, put("a", 1))
	require.NoError(t, err)
	require.NoError(t, mgr.Delete(meta.Filename()))

	_, err = mgr.ReadMeta(meta.Filename())
	require.ErrorIs(t, err, os.ErrNotExist)
}
