package collector

import (
	"io"
	"math"
	"time"

	"github.com/adammck/sstprops/pkg/api"
	"github.com/adammck/sstprops/pkg/metrics"
	"github.com/adammck/sstprops/pkg/props"
	"github.com/adammck/sstprops/pkg/types"
	"github.com/adammck/sstprops/pkg/window"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// TtlCollector derives two compaction time points from the TTLs of the entries
// in a table:
//
//   - earliest_time_begin_compact: now plus the GCRatio percentile of TTLs, if
//     at least GCRatio of the entries have one. Bounded by MandatoryCompaction.
//   - latest_time_end_compact: now plus the smallest window minimum TTL, over
//     every run of ScanCap consecutive entries with a TTL or a tombstone.
//
// An entry without a TTL restarts the window, since no run containing it will
// ever expire entirely.
type TtlCollector struct {
	name      string
	extractor api.TtlExtractor
	clock     clockwork.Clock
	opts      TtlOptions
	hist      api.Histogram
	window    *window.MinTracker
	logger    *zap.Logger
	metrics   *metrics.CollectorMetrics

	totalEntries uint64
	ttlEntries   uint64

	finished bool
	closed   bool
}

var _ api.IntTblPropCollector = (*TtlCollector)(nil)

// NewTtlCollector returns a collector which owns extractor until it's closed.
// Most callers should use a TtlCollectorFactory instead.
func NewTtlCollector(name string, extractor api.TtlExtractor, clock clockwork.Clock, opts TtlOptions, o ...Option) *TtlCollector {
	oo := buildOptions(o)
	return &TtlCollector{
		name:      name,
		extractor: extractor,
		clock:     clock,
		opts:      opts,
		hist:      oo.newHistogram(),
		window:    window.NewMinTracker(opts.ScanCap),
		logger:    oo.logger,
		metrics:   oo.metrics,
	}
}

func (c *TtlCollector) Name() string {
	return c.name
}

func (c *TtlCollector) InternalAdd(key, value []byte, fileSize uint64) error {
	c.totalEntries++

	if len(key) < 8 {
		err := &api.InvalidArgument{Msg: "invalid internal key"}
		c.metrics.RecordFailure(err)
		return err
	}

	typ := types.GetEntryType(types.ExtractValueType(key))
	switch {
	case typ.HasValue():
		v := value
		if typ.IsIndex() {
			v = types.DecodeValueMeta(value)
		}

		ttl, ok, err := c.extractor.Extract(typ, types.ExtractUserKey(key), v)
		if err != nil {
			xerr := &api.ExtractorError{Extractor: c.name, Err: err}
			c.metrics.RecordFailure(xerr)
			return xerr
		}

		if !ok {
			c.window.Reset()
			return nil
		}

		c.ttlEntries++
		secs := capTTL(ttl)
		c.hist.Add(secs)
		c.window.Push(secs)

	case typ.IsTombstone():
		// deleted keys are never returned by a scan, so count as expired.
		c.window.Push(0)
	}

	return nil
}

func (c *TtlCollector) Finish(p api.UserCollectedProperties) error {
	if c.finished {
		return ErrFinished
	}
	c.finished = true

	now := c.nowSeconds()

	earliest := props.Unknown
	if !c.hist.Empty() && float64(c.ttlEntries) >= c.opts.GCRatio*float64(c.totalEntries) {
		pct := c.hist.Percentile(c.opts.GCRatio * 100.0)
		earliest = addSeconds(now, uint64(pct))
	}
	if m := c.opts.mandatorySeconds(); m > 0 {
		earliest = min(earliest, addSeconds(now, m))
	}

	latest := props.Unknown
	if m, ok := c.window.Result(); ok {
		latest = addSeconds(now, m)
	}

	props.PutUint64(p, props.EarliestTimeBeginCompact, earliest)
	props.PutUint64(p, props.LatestTimeEndCompact, latest)

	c.metrics.RecordFinish(c.totalEntries, c.ttlEntries, earliest != props.Unknown, latest != props.Unknown)
	c.logger.Debug("ttl properties collected",
		zap.String("collector", c.name),
		zap.Uint64("total_entries", c.totalEntries),
		zap.Uint64("ttl_entries", c.ttlEntries),
		zap.Uint64("earliest_time_begin_compact", earliest),
		zap.Uint64("latest_time_end_compact", latest),
	)

	return nil
}

func (c *TtlCollector) ReadableProperties() api.UserCollectedProperties {
	return api.UserCollectedProperties{}
}

// Close releases the extractor, if it needs releasing. It's safe to call more
// than once.
func (c *TtlCollector) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	ext := c.extractor
	c.extractor = nil
	if cl, ok := ext.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}

func (c *TtlCollector) nowSeconds() uint64 {
	s := c.clock.Now().Unix()
	if s < 0 {
		return 0
	}
	return uint64(s)
}

// capTTL converts ttl to whole seconds, capped at fifty years.
func capTTL(ttl time.Duration) uint64 {
	if ttl <= 0 {
		return 0
	}
	return min(uint64(ttl/time.Second), FiftyYearSeconds)
}

func addSeconds(now, d uint64) uint64 {
	if d > math.MaxUint64-now {
		return math.MaxUint64
	}
	return now + d
}
