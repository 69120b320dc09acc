// Package catalog publishes finished sstables to a blobstore and records
// their properties in a metadata store, so that compaction candidates can be
// found with a query rather than by reading every file.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/adammck/sstprops/pkg/api"
	"github.com/adammck/sstprops/pkg/metadata"
	"github.com/adammck/sstprops/pkg/sstable"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// MetaStore is the subset of metadata.Store which the catalog needs.
type MetaStore interface {
	Init(ctx context.Context) error
	Insert(ctx context.Context, key string, meta *sstable.Meta) error
	Delete(ctx context.Context, key string) error
	GetDue(ctx context.Context, now time.Time) ([]*metadata.Record, error)
	GetAll(ctx context.Context) ([]*metadata.Record, error)
}

type Catalog struct {
	bs     api.BlobStore
	ms     MetaStore
	clock  clockwork.Clock
	logger *zap.Logger
}

func New(bs api.BlobStore, ms MetaStore, clock clockwork.Clock, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Catalog{
		bs:     bs,
		ms:     ms,
		clock:  clock,
		logger: logger,
	}
}

// Init prepares the metadata store. It only needs to be called once.
func (c *Catalog) Init(ctx context.Context) error {
	if err := c.ms.Init(ctx); err != nil {
		return fmt.Errorf("MetaStore.Init: %w", err)
	}

	return nil
}

// Publish uploads an sstable under key, then records it. The properties are
// read back from the blobstore rather than from r, so a record always
// describes what was actually stored.
func (c *Catalog) Publish(ctx context.Context, key string, r io.ReadSeeker) (*sstable.Meta, error) {
	err := c.bs.Put(ctx, key, r)
	if err != nil {
		return nil, fmt.Errorf("BlobStore.Put: %w", err)
	}

	b, err := c.bs.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("BlobStore.Open: %w", err)
	}

	meta, err := sstable.ReadMeta(b, b.Size())
	if err != nil {
		c.discard(ctx, key)
		return nil, fmt.Errorf("ReadMeta: %w", err)
	}

	err = c.ms.Insert(ctx, key, meta)
	if err != nil {
		c.discard(ctx, key)
		return nil, fmt.Errorf("MetaStore.Insert: %w", err)
	}

	earliest, latest := meta.TimePoints()
	c.logger.Info("published sstable",
		zap.String("key", key),
		zap.Int("count", meta.Count),
		zap.Uint64("earliest", earliest),
		zap.Uint64("latest", latest))

	return meta, nil
}

// discard removes a blob which couldn't be recorded. Failure is only logged,
// since the caller already has an error to return.
func (c *Catalog) discard(ctx context.Context, key string) {
	if err := c.bs.Delete(ctx, key); err != nil {
		c.logger.Warn("failed to delete unrecorded blob",
			zap.String("key", key),
			zap.Error(err))
	}
}

// Due returns the records whose compaction time has passed, soonest first.
func (c *Catalog) Due(ctx context.Context) ([]*metadata.Record, error) {
	recs, err := c.ms.GetDue(ctx, c.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("MetaStore.GetDue: %w", err)
	}

	return recs, nil
}

func (c *Catalog) All(ctx context.Context) ([]*metadata.Record, error) {
	recs, err := c.ms.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("MetaStore.GetAll: %w", err)
	}

	return recs, nil
}

// Open returns a reader over the entries of the sstable under key.
func (c *Catalog) Open(ctx context.Context, key string) (*sstable.Reader, error) {
	b, err := c.bs.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("BlobStore.Open: %w", err)
	}

	r, err := sstable.NewReader(b, b.Size())
	if err != nil {
		return nil, fmt.Errorf("NewReader: %w", err)
	}

	return r, nil
}

// Remove forgets the sstable under key, then deletes it. The record goes
// first so that nothing is ever recorded without a blob behind it. A blob
// which is already gone is not an error.
func (c *Catalog) Remove(ctx context.Context, key string) error {
	err := c.ms.Delete(ctx, key)
	if err != nil {
		return fmt.Errorf("MetaStore.Delete: %w", err)
	}

	err = c.bs.Delete(ctx, key)
	if err != nil && !errors.Is(err, &api.NotFound{}) {
		return fmt.Errorf("BlobStore.Delete: %w", err)
	}

	c.logger.Info("removed sstable", zap.String("key", key))
	return nil
}
