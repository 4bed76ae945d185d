package faceindex

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordAppend is called after each append operation.
	// count is the number of descriptors appended (1 for single appends),
	// duration is the total time taken, err is nil if successful.
	RecordAppend(count int, duration time.Duration, err error)

	// RecordSearch is called after each search operation.
	// maxCount is the result limit requested, duration is the time taken,
	// err is nil if successful.
	RecordSearch(maxCount int, duration time.Duration, err error)

	// RecordRemove is called after each removal.
	RecordRemove(duration time.Duration, err error)

	// RecordBuild is called after each index build.
	// count is the number of descriptors compiled.
	RecordBuild(count int, duration time.Duration, err error)

	// RecordSave is called after each save operation.
	RecordSave(kind IndexType, duration time.Duration, err error)

	// RecordLoad is called after each load operation.
	RecordLoad(kind IndexType, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAppend(int, time.Duration, error)     {}
func (NoopMetricsCollector) RecordSearch(int, time.Duration, error)     {}
func (NoopMetricsCollector) RecordRemove(time.Duration, error)          {}
func (NoopMetricsCollector) RecordBuild(int, time.Duration, error)      {}
func (NoopMetricsCollector) RecordSave(IndexType, time.Duration, error) {}
func (NoopMetricsCollector) RecordLoad(IndexType, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AppendCount      atomic.Int64
	AppendItems      atomic.Int64
	AppendErrors     atomic.Int64
	SearchCount      atomic.Int64
	SearchErrors     atomic.Int64
	SearchTotalNanos atomic.Int64
	RemoveCount      atomic.Int64
	RemoveErrors     atomic.Int64
	BuildCount       atomic.Int64
	BuildErrors      atomic.Int64
	SaveCount        atomic.Int64
	SaveErrors       atomic.Int64
	SaveTotalNanos   atomic.Int64
	LoadCount        atomic.Int64
	LoadErrors       atomic.Int64
}

// RecordAppend implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAppend(count int, duration time.Duration, err error) {
	b.AppendCount.Add(1)
	b.AppendItems.Add(int64(count))
	if err != nil {
		b.AppendErrors.Add(1)
	}
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(maxCount int, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
	}
}

// RecordRemove implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRemove(duration time.Duration, err error) {
	b.RemoveCount.Add(1)
	if err != nil {
		b.RemoveErrors.Add(1)
	}
}

// RecordBuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBuild(count int, duration time.Duration, err error) {
	b.BuildCount.Add(1)
	if err != nil {
		b.BuildErrors.Add(1)
	}
}

// RecordSave implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSave(kind IndexType, duration time.Duration, err error) {
	b.SaveCount.Add(1)
	b.SaveTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SaveErrors.Add(1)
	}
}

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(kind IndexType, duration time.Duration, err error) {
	b.LoadCount.Add(1)
	if err != nil {
		b.LoadErrors.Add(1)
	}
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector counters.
type BasicMetricsStats struct {
	AppendCount     int64
	AppendItems     int64
	AppendErrors    int64
	SearchCount     int64
	SearchErrors    int64
	SearchAvgNanos  int64
	RemoveCount     int64
	RemoveErrors    int64
	BuildCount      int64
	BuildErrors     int64
	SaveCount       int64
	SaveErrors      int64
	LoadCount       int64
	LoadErrors      int64
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	var searchAvg int64
	if n := b.SearchCount.Load(); n > 0 {
		searchAvg = b.SearchTotalNanos.Load() / n
	}
	return BasicMetricsStats{
		AppendCount:    b.AppendCount.Load(),
		AppendItems:    b.AppendItems.Load(),
		AppendErrors:   b.AppendErrors.Load(),
		SearchCount:    b.SearchCount.Load(),
		SearchErrors:   b.SearchErrors.Load(),
		SearchAvgNanos: searchAvg,
		RemoveCount:    b.RemoveCount.Load(),
		RemoveErrors:   b.RemoveErrors.Load(),
		BuildCount:     b.BuildCount.Load(),
		BuildErrors:    b.BuildErrors.Load(),
		SaveCount:      b.SaveCount.Load(),
		SaveErrors:     b.SaveErrors.Load(),
		LoadCount:      b.LoadCount.Load(),
		LoadErrors:     b.LoadErrors.Load(),
	}
}
