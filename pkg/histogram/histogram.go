// Package histogram provides the percentile estimator used by collectors.
package histogram

import (
	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/adammck/sstprops/pkg/api"
)

// Two significant figures keeps each histogram to a few kilobytes, which is
// enough for an estimate that only feeds a scheduling hint.
const sigFigs = 2

// Histogram wraps an HDR histogram. Samples larger than the configured maximum
// are recorded as the maximum.
type Histogram struct {
	h   *hdrhistogram.Histogram
	max uint64
}

var _ api.Histogram = (*Histogram)(nil)

// New returns an empty histogram which can track samples in [0, max].
func New(max uint64) *Histogram {
	if max < 2 {
		max = 2
	}
	return &Histogram{
		h:   hdrhistogram.New(1, int64(max), sigFigs),
		max: max,
	}
}

func (h *Histogram) Add(v uint64) {
	if v > h.max {
		v = h.max
	}

	// can't fail, since v is within the trackable range.
	_ = h.h.RecordValue(int64(v))
}

func (h *Histogram) Empty() bool {
	return h.h.TotalCount() == 0
}

func (h *Histogram) Count() int64 {
	return h.h.TotalCount()
}

// Percentile returns the (approximate) p'th percentile of the samples, where p
// is in [0, 100]. It returns zero if the histogram is empty.
func (h *Histogram) Percentile(p float64) float64 {
	if h.Empty() {
		return 0
	}
	if p <= 0 {
		return float64(h.h.Min())
	}
	if p > 100 {
		p = 100
	}
	return float64(h.h.ValueAtQuantile(p))
}
