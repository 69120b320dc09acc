package api

// Histogram is an approximate streaming percentile estimator.
type Histogram interface {
	Add(v uint64)
	Empty() bool

	// Percentile estimates the value below which p percent of the samples
	// fall. p is in [0, 100].
	Percentile(p float64) float64
}
