package compactor

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/adammck/sstprops/pkg/api"
	"github.com/adammck/sstprops/pkg/sstable"
	"github.com/adammck/sstprops/pkg/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Compactor rewrites the sstables chosen by a Picker, dropping every entry
// which the TTL extractor says has expired.
type Compactor struct {
	mgr    *sstable.Manager
	picker *Picker
	ef     api.TtlExtractorFactory
	cf     api.TtlExtractorContext
	logger *zap.Logger
}

type Option func(*Compactor)

func WithLogger(l *zap.Logger) Option {
	return func(c *Compactor) {
		c.logger = l
	}
}

// WithColumnFamily sets the column family passed to the extractor factory.
func WithColumnFamily(id uint32) Option {
	return func(c *Compactor) {
		c.cf = api.TtlExtractorContext{ColumnFamilyID: id}
	}
}

func New(mgr *sstable.Manager, picker *Picker, ef api.TtlExtractorFactory, opts ...Option) *Compactor {
	c := &Compactor{
		mgr:    mgr,
		picker: picker,
		ef:     ef,
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type CompactionStats struct {
	Inputs  []*sstable.Meta
	Outputs []*sstable.Meta

	// Dropped is the number of expired entries which were not rewritten.
	Dropped int

	// Contains an error if the compaction failed.
	Error error
}

type Compaction struct {
	Inputs []*sstable.Meta
}

func (c *Compactor) Run(ctx context.Context) ([]*CompactionStats, error) {
	metas, err := c.mgr.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("Manager.List: %w", err)
	}

	stats := []*CompactionStats{}
	for _, cc := range c.GetCompactions(metas) {
		s := c.Compact(ctx, cc)
		if s.Error != nil {
			c.logger.Error("compaction failed", zap.Int("inputs", len(cc.Inputs)), zap.Error(s.Error))
		}
		stats = append(stats, s)
	}

	return stats, nil
}

// GetCompactions returns the compactions which are due now. For now, every
// due file is compacted into a single output.
func (c *Compactor) GetCompactions(metas []*sstable.Meta) []*Compaction {
	picks := c.picker.Pick(metas)
	if len(picks) == 0 {
		return []*Compaction{}
	}

	r := &Compaction{}
	for _, p := range picks {
		c.logger.Debug("picked sstable",
			zap.String("file", p.Meta.Filename()),
			zap.String("reason", p.Reason),
			zap.Uint64("due", p.Due))
		r.Inputs = append(r.Inputs, p.Meta)
	}

	return []*Compaction{r}
}

func (c *Compactor) Compact(ctx context.Context, cc *Compaction) *CompactionStats {
	stats := &CompactionStats{
		Inputs: cc.Inputs,
	}

	ext, err := c.ef.CreateTtlExtractor(c.cf)
	if err != nil {
		stats.Error = fmt.Errorf("CreateTtlExtractor: %w", err)
		return stats
	}
	if cl, ok := ext.(io.Closer); ok {
		defer cl.Close()
	}

	readers := make([]*sstable.Reader, 0, len(cc.Inputs))
	defer func() {
		for _, r := range readers {
			r.Close()
		}
	}()

	for _, m := range cc.Inputs {
		r, err := c.mgr.Open(m.Filename())
		if err != nil {
			stats.Error = fmt.Errorf("Manager.Open(%s): %w", m.Filename(), err)
			return stats
		}
		readers = append(readers, r)
	}

	ch := make(chan *types.Entry)
	g, ctx2 := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		// only a complete stream ends the flush normally. On error the channel
		// stays open, and the flush is aborted by the cancelled context.
		defer func() {
			if err == nil {
				close(ch)
			}
		}()

		mr, err := sstable.NewMergeReader(readers)
		if err != nil {
			return fmt.Errorf("NewMergeReader: %w", err)
		}

		for {
			e, err := mr.Next()
			if err != nil {
				return fmt.Errorf("MergeReader.Next: %w", err)
			}
			if e == nil {
				break
			}

			expired, err := isExpired(ext, c.ef.Name(), e)
			if err != nil {
				return err
			}
			if expired {
				stats.Dropped++
				continue
			}

			select {
			case ch <- e:
			case <-ctx2.Done():
				return ctx2.Err()
			}
		}

		return nil
	})

	var meta *sstable.Meta

	g.Go(func() error {
		var err error
		meta, err = c.mgr.Flush(ctx2, ch)
		if err != nil && !errors.Is(err, sstable.ErrNoRecords) {
			return fmt.Errorf("Manager.Flush: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		if meta != nil {
			if derr := c.mgr.Delete(meta.Filename()); derr != nil {
				c.logger.Warn("failed to delete output of failed compaction",
					zap.String("file", meta.Filename()),
					zap.Error(derr))
			}
		}
		stats.Error = err
		return stats
	}

	// everything expired, so there's no output.
	if meta != nil {
		stats.Outputs = []*sstable.Meta{meta}
	}

	for _, m := range cc.Inputs {
		name := m.Filename()
		if err := c.mgr.Delete(name); err != nil {
			stats.Error = fmt.Errorf("Manager.Delete(%s): %w", name, err)
			return stats
		}
		c.picker.Forget(name)
	}

	c.logger.Info("compacted sstables",
		zap.Int("inputs", len(stats.Inputs)),
		zap.Int("outputs", len(stats.Outputs)),
		zap.Int("dropped", stats.Dropped))

	return stats
}

// isExpired returns true if e carries data whose TTL has run out. Tombstones
// are never dropped, since they may shadow entries in other files.
func isExpired(ext api.TtlExtractor, name string, e *types.Entry) (bool, error) {
	pk, err := types.ParseInternalKey(e.Key)
	if err != nil {
		return false, err
	}

	typ := types.GetEntryType(pk.Type)
	if !typ.HasValue() {
		return false, nil
	}

	v := e.Value
	if typ.IsIndex() {
		v = types.DecodeValueMeta(v)
	}

	ttl, ok, err := ext.Extract(typ, pk.UserKey, v)
	if err != nil {
		return false, &api.ExtractorError{Extractor: name, Err: err}
	}

	return ok && ttl <= 0, nil
}
