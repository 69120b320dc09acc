package sstable

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/adammck/sstprops/pkg/api"
	"github.com/adammck/sstprops/pkg/collector"
	"github.com/adammck/sstprops/pkg/types"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

const (
	magicBytes = "sstprops"

	// footerLen is the length of the trailing offset of the properties block.
	footerLen = 8
)

type Writer struct {
	entries   []*types.Entry
	mu        sync.Mutex
	clock     clockwork.Clock
	factories []api.IntTblPropCollectorFactory
	cf        api.CollectorContext
	logger    *zap.Logger
}

type WriterOption func(*Writer)

// WithCollectorFactory adds a collector to every table written. Collectors run
// in the order they were added, after the built-in internal key collector.
func WithCollectorFactory(f api.IntTblPropCollectorFactory) WriterOption {
	return func(w *Writer) {
		w.factories = append(w.factories, f)
	}
}

// WithUserCollectorFactory is like WithCollectorFactory, for collectors which
// want parsed user keys.
func WithUserCollectorFactory(f api.TablePropertiesCollectorFactory) WriterOption {
	return WithCollectorFactory(collector.NewUserKeyTablePropertiesCollectorFactory(f))
}

// WithColumnFamily sets the column family passed to collector factories.
func WithColumnFamily(id uint32, name string) WriterOption {
	return func(w *Writer) {
		w.cf = api.CollectorContext{
			ColumnFamilyID:   id,
			ColumnFamilyName: name,
		}
	}
}

func WithLogger(l *zap.Logger) WriterOption {
	return func(w *Writer) {
		w.logger = l
	}
}

func NewWriter(clock clockwork.Clock, opts ...WriterOption) *Writer {
	w := &Writer{
		clock:  clock,
		logger: zap.NewNop(),
		factories: []api.IntTblPropCollectorFactory{
			collector.InternalKeyPropertiesCollectorFactory{},
		},
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Add buffers an entry. The key must be a valid internal key. Both slices are
// copied, so the caller may reuse them.
func (w *Writer) Add(key, value []byte) error {
	if _, err := types.ParseInternalKey(key); err != nil {
		return fmt.Errorf("Writer.Add: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = append(w.entries, &types.Entry{
		Key:   bytes.Clone(key),
		Value: bytes.Clone(value),
	})

	return nil
}

// Write sorts the buffered entries and writes them to out, followed by the
// properties block and the footer. If any collector fails, nothing after the
// entries is written.
func (w *Writer) Write(out io.Writer) (*Meta, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	sort.SliceStable(w.entries, func(i, j int) bool {
		return types.CompareInternalKeys(w.entries[i].Key, w.entries[j].Key) < 0
	})

	collectors := make([]api.IntTblPropCollector, 0, len(w.factories))
	defer func() {
		for _, c := range collectors {
			if err := c.Close(); err != nil {
				w.logger.Warn("error closing collector", zap.String("collector", c.Name()), zap.Error(err))
			}
		}
	}()

	for _, f := range w.factories {
		c, err := f.CreateIntTblPropCollector(w.cf)
		if err != nil {
			return nil, fmt.Errorf("%s.CreateIntTblPropCollector: %w", f.Name(), err)
		}
		collectors = append(collectors, c)
	}

	n, err := out.Write([]byte(magicBytes))
	if err != nil {
		return nil, err
	}

	m := &Meta{
		ID:      uuid.NewString(),
		Created: w.clock.Now(),
		Size:    n,
	}

	for _, e := range w.entries {
		n, err := e.Write(out)
		if err != nil {
			return nil, fmt.Errorf("Entry.Write: %w", err)
		}

		m.Count++
		m.Size += n

		uk := types.ExtractUserKey(e.Key)

		if m.MinKey == nil || bytes.Compare(uk, m.MinKey) < 0 {
			m.MinKey = uk
		}

		if m.MaxKey == nil || bytes.Compare(uk, m.MaxKey) > 0 {
			m.MaxKey = uk
		}

		for _, c := range collectors {
			if err := c.InternalAdd(e.Key, e.Value, uint64(m.Size)); err != nil {
				return nil, fmt.Errorf("%s.InternalAdd: %w", c.Name(), err)
			}
		}
	}

	m.Properties = api.UserCollectedProperties{}
	m.Readable = map[string]string{}

	for _, c := range collectors {
		if err := c.Finish(m.Properties); err != nil {
			return nil, fmt.Errorf("%s.Finish: %w", c.Name(), err)
		}

		for k, v := range c.ReadableProperties() {
			m.Readable[k] = string(v)
		}
	}

	block, err := bson.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("bson.Marshal(meta): %w", err)
	}

	if _, err := out.Write(block); err != nil {
		return nil, fmt.Errorf("write properties: %w", err)
	}

	if _, err := out.Write(binary.LittleEndian.AppendUint64(nil, uint64(m.Size))); err != nil {
		return nil, fmt.Errorf("write footer: %w", err)
	}

	w.logger.Debug("wrote sstable",
		zap.String("id", m.ID),
		zap.Int("count", m.Count),
		zap.Int("size", m.Size))

	return m, nil
}
