package collector

import (
	"errors"
	"fmt"
	"time"

	"github.com/adammck/sstprops/pkg/api"
	"github.com/adammck/sstprops/pkg/histogram"
	"github.com/adammck/sstprops/pkg/metrics"
	"go.uber.org/zap"
)

// FiftyYearSeconds caps every TTL fed to the statistics. Anything longer is as
// good as forever for scheduling purposes.
const FiftyYearSeconds uint64 = 1576800000

var (
	ErrFinished            = errors.New("collector already finished")
	ErrInvalidGCRatio      = errors.New("gc ratio must be in [0, 1]")
	ErrNegativeMandatory   = errors.New("mandatory compaction must not be negative")
	ErrNilExtractorFactory = errors.New("ttl extractor factory is nil")
)

// TtlOptions configures the TTL collector. It's immutable once a factory has
// been created with it.
type TtlOptions struct {
	// ScanCap is the number of consecutive entries in the window used to
	// compute latest_time_end_compact. Zero disables it.
	ScanCap uint64

	// GCRatio is the fraction of entries which must carry a TTL before
	// earliest_time_begin_compact is computed. It's also the percentile (as a
	// fraction) of TTLs which will have expired by that time.
	GCRatio float64

	// MandatoryCompaction bounds earliest_time_begin_compact to at most this
	// long after the table is written. Zero disables it. Only whole seconds
	// count.
	MandatoryCompaction time.Duration
}

func (o TtlOptions) Validate() error {
	if o.GCRatio < 0 || o.GCRatio > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidGCRatio, o.GCRatio)
	}
	if o.MandatoryCompaction < 0 {
		return fmt.Errorf("%w: %v", ErrNegativeMandatory, o.MandatoryCompaction)
	}
	return nil
}

func (o TtlOptions) mandatorySeconds() uint64 {
	return uint64(o.MandatoryCompaction / time.Second)
}

type options struct {
	logger       *zap.Logger
	metrics      *metrics.CollectorMetrics
	newHistogram func() api.Histogram
}

// Option configures collectors and factories.
type Option func(*options)

// WithLogger sets the logger. Collectors log once per finished table, at debug
// level. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics records collector outcomes into m.
func WithMetrics(m *metrics.CollectorMetrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithHistogram replaces the percentile estimator. f is called once per
// collector.
func WithHistogram(f func() api.Histogram) Option {
	return func(o *options) {
		o.newHistogram = f
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger: zap.NewNop(),
		newHistogram: func() api.Histogram {
			return histogram.New(FiftyYearSeconds)
		},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
