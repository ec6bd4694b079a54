package nerdgo

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; see package
// metrics/prometheus for a Prometheus implementation.
//
// A MetricsCollector also satisfies merge.Observer and can be passed to
// merge.WithObserver.
type MetricsCollector interface {
	// RecordPredict is called after each prediction.
	// k is the effective k, results the number of predictions returned.
	RecordPredict(k, results int, duration time.Duration, err error)

	// RecordMerge is called after each merge run.
	// added is the batch size, total the entity count after the merge.
	RecordMerge(added, total int, duration time.Duration, err error)

	// RecordLoad is called after a (store, catalog) pair is loaded.
	RecordLoad(count int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordPredict(int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordMerge(int, int, time.Duration, error)   {}
func (NoopMetricsCollector) RecordLoad(int, time.Duration, error)         {}

// BasicMetricsCollector provides simple in-memory metrics collection.
type BasicMetricsCollector struct {
	PredictCount      atomic.Int64
	PredictErrors     atomic.Int64
	PredictTotalNanos atomic.Int64
	PredictResults    atomic.Int64
	MergeCount        atomic.Int64
	MergeErrors       atomic.Int64
	MergeAdded        atomic.Int64
	Entities          atomic.Int64
	LoadCount         atomic.Int64
	LoadErrors        atomic.Int64
}

// RecordPredict implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPredict(k, results int, duration time.Duration, err error) {
	b.PredictCount.Add(1)
	b.PredictTotalNanos.Add(duration.Nanoseconds())
	b.PredictResults.Add(int64(results))
	if err != nil {
		b.PredictErrors.Add(1)
	}
}

// RecordMerge implements MetricsCollector.
func (b *BasicMetricsCollector) RecordMerge(added, total int, duration time.Duration, err error) {
	b.MergeCount.Add(1)
	if err != nil {
		b.MergeErrors.Add(1)
		return
	}
	b.MergeAdded.Add(int64(added))
	b.Entities.Store(int64(total))
}

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(count int, duration time.Duration, err error) {
	b.LoadCount.Add(1)
	if err != nil {
		b.LoadErrors.Add(1)
		return
	}
	b.Entities.Store(int64(count))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		PredictCount:    b.PredictCount.Load(),
		PredictErrors:   b.PredictErrors.Load(),
		PredictAvgNanos: b.getAvgPredictNanos(),
		PredictResults:  b.PredictResults.Load(),
		MergeCount:      b.MergeCount.Load(),
		MergeErrors:     b.MergeErrors.Load(),
		MergeAdded:      b.MergeAdded.Load(),
		Entities:        b.Entities.Load(),
		LoadCount:       b.LoadCount.Load(),
		LoadErrors:      b.LoadErrors.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgPredictNanos() int64 {
	count := b.PredictCount.Load()
	if count == 0 {
		return 0
	}
	return b.PredictTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	PredictCount    int64
	PredictErrors   int64
	PredictAvgNanos int64
	PredictResults  int64
	MergeCount      int64
	MergeErrors     int64
	MergeAdded      int64
	Entities        int64
	LoadCount       int64
	LoadErrors      int64
}
