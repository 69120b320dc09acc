// Package metrics exposes Prometheus metrics for table property collectors.
//
// Everything here is recorded once per table build, never once per entry, so
// it stays off the hot path of table writes. All methods are safe to call on
// a nil *CollectorMetrics, which records nothing.
package metrics

import (
	"errors"

	"github.com/adammck/sstprops/pkg/api"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sstprops"

// Failure reasons.
const (
	ReasonInvalidArgument = "invalid_argument"
	ReasonExtractor       = "extractor"
	ReasonOther           = "other"
)

// CollectorMetrics holds metrics related to TTL property collection.
type CollectorMetrics struct {
	// CollectorsCreated counts collectors created by factories.
	CollectorsCreated prometheus.Counter

	// FilesFinished counts collectors which finished successfully.
	FilesFinished prometheus.Counter

	// EntriesObserved counts entries seen by finished collectors.
	EntriesObserved prometheus.Counter

	// TTLEntriesObserved counts entries which carried a TTL, in finished
	// collectors.
	TTLEntriesObserved prometheus.Counter

	// AddFailures counts builds aborted by a collector error.
	// Labels: reason (invalid_argument, extractor, other)
	AddFailures *prometheus.CounterVec

	// UnknownTimePoints counts finished files whose time point is unknown.
	// Labels: point (earliest, latest)
	UnknownTimePoints *prometheus.CounterVec
}

// NewCollectorMetrics creates the metrics and registers them with reg. If reg
// is nil, they're created but not registered.
func NewCollectorMetrics(reg prometheus.Registerer) *CollectorMetrics {
	m := &CollectorMetrics{
		CollectorsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ttl_collectors_created_total",
			Help:      "Number of TTL property collectors created.",
		}),
		FilesFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ttl_files_finished_total",
			Help:      "Number of tables whose TTL properties were written.",
		}),
		EntriesObserved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ttl_entries_observed_total",
			Help:      "Number of entries observed by finished TTL collectors.",
		}),
		TTLEntriesObserved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ttl_entries_with_ttl_total",
			Help:      "Number of observed entries which carried a TTL.",
		}),
		AddFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ttl_add_failures_total",
			Help:      "Number of table builds aborted by a TTL collector error.",
		}, []string{"reason"}),
		UnknownTimePoints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ttl_unknown_time_points_total",
			Help:      "Number of finished tables with an unknown compaction time point.",
		}, []string{"point"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.CollectorsCreated,
			m.FilesFinished,
			m.EntriesObserved,
			m.TTLEntriesObserved,
			m.AddFailures,
			m.UnknownTimePoints,
		)
	}

	return m
}

func (m *CollectorMetrics) RecordCreated() {
	if m == nil {
		return
	}
	m.CollectorsCreated.Inc()
}

// RecordFinish records the outcome of one finished table. earliestKnown and
// latestKnown report whether each time point could be determined.
func (m *CollectorMetrics) RecordFinish(entries, ttlEntries uint64, earliestKnown, latestKnown bool) {
	if m == nil {
		return
	}

	m.FilesFinished.Inc()
	m.EntriesObserved.Add(float64(entries))
	m.TTLEntriesObserved.Add(float64(ttlEntries))

	if !earliestKnown {
		m.UnknownTimePoints.WithLabelValues("earliest").Inc()
	}
	if !latestKnown {
		m.UnknownTimePoints.WithLabelValues("latest").Inc()
	}
}

// RecordFailure records a table build aborted by err.
func (m *CollectorMetrics) RecordFailure(err error) {
	if m == nil {
		return
	}
	m.AddFailures.WithLabelValues(Reason(err)).Inc()
}

// Reason classifies a collector error into one of the failure reasons.
func Reason(err error) string {
	switch {
	case errors.Is(err, &api.InvalidArgument{}):
		return ReasonInvalidArgument
	case errors.Is(err, &api.ExtractorError{}):
		return ReasonExtractor
	default:
		return ReasonOther
	}
}
