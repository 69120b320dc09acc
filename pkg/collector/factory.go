package collector

import (
	"fmt"

	"github.com/adammck/sstprops/pkg/api"
	"github.com/jonboulle/clockwork"
)

// TtlCollectorFactory creates one TtlCollector, with its own extractor, per
// table build. It's safe for concurrent use, since nothing in it changes after
// construction.
type TtlCollectorFactory struct {
	extractors api.TtlExtractorFactory
	clock      clockwork.Clock
	opts       TtlOptions
	o          []Option
	name       string
}

var _ api.IntTblPropCollectorFactory = (*TtlCollectorFactory)(nil)

func NewTtlCollectorFactory(ef api.TtlExtractorFactory, clock clockwork.Clock, opts TtlOptions, o ...Option) (*TtlCollectorFactory, error) {
	if ef == nil {
		return nil, ErrNilExtractorFactory
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("TtlOptions.Validate: %w", err)
	}

	return &TtlCollectorFactory{
		extractors: ef,
		clock:      clock,
		opts:       opts,
		o:          o,
		name:       "TtlCollectorFactory." + ef.Name(),
	}, nil
}

func (f *TtlCollectorFactory) Name() string {
	return f.name
}

func (f *TtlCollectorFactory) Options() TtlOptions {
	return f.opts
}

func (f *TtlCollectorFactory) CreateIntTblPropCollector(ctx api.CollectorContext) (api.IntTblPropCollector, error) {
	ext, err := f.extractors.CreateTtlExtractor(api.TtlExtractorContext{
		ColumnFamilyID: ctx.ColumnFamilyID,
	})
	if err != nil {
		return nil, fmt.Errorf("%s.CreateTtlExtractor: %w", f.extractors.Name(), err)
	}

	c := NewTtlCollector("TtlCollector."+f.extractors.Name(), ext, f.clock, f.opts, f.o...)
	c.metrics.RecordCreated()
	return c, nil
}

// NeedSerialize is false, because the options only affect the collected
// properties, which are persisted anyway.
func (f *TtlCollectorFactory) NeedSerialize() bool {
	return false
}
