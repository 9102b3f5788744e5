package e57go

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus;
// see package promcollector for a ready-made one.
type MetricsCollector interface {
	// RecordPointRead is called after each reader Transfer.
	// records is the number of records moved, err is nil if successful.
	RecordPointRead(records int, duration time.Duration, err error)

	// RecordPointWrite is called after each writer Transfer.
	RecordPointWrite(records int, duration time.Duration, err error)

	// RecordImageRead is called after each image byte range read.
	RecordImageRead(bytes int, duration time.Duration, err error)

	// RecordImageWrite is called after each image byte range write.
	RecordImageWrite(bytes int, duration time.Duration, err error)

	// RecordPageDecode is called after a column page has been decoded.
	// bytes is the decoded in-memory size.
	RecordPageDecode(bytes int64, duration time.Duration)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordPointRead(int, time.Duration, error)  {}
func (NoopMetricsCollector) RecordPointWrite(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordImageRead(int, time.Duration, error)  {}
func (NoopMetricsCollector) RecordImageWrite(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordPageDecode(int64, time.Duration)      {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	PointReadCalls   atomic.Int64
	PointReadRecords atomic.Int64
	PointReadErrors  atomic.Int64
	PointReadNanos   atomic.Int64

	PointWriteCalls   atomic.Int64
	PointWriteRecords atomic.Int64
	PointWriteErrors  atomic.Int64
	PointWriteNanos   atomic.Int64

	ImageReadBytes   atomic.Int64
	ImageReadErrors  atomic.Int64
	ImageWriteBytes  atomic.Int64
	ImageWriteErrors atomic.Int64

	PagesDecoded     atomic.Int64
	PageDecodedBytes atomic.Int64
	PageDecodeNanos  atomic.Int64
}

// RecordPointRead implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPointRead(records int, duration time.Duration, err error) {
	b.PointReadCalls.Add(1)
	b.PointReadRecords.Add(int64(records))
	b.PointReadNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.PointReadErrors.Add(1)
	}
}

// RecordPointWrite implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPointWrite(records int, duration time.Duration, err error) {
	b.PointWriteCalls.Add(1)
	b.PointWriteRecords.Add(int64(records))
	b.PointWriteNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.PointWriteErrors.Add(1)
	}
}

// RecordImageRead implements MetricsCollector.
func (b *BasicMetricsCollector) RecordImageRead(bytes int, _ time.Duration, err error) {
	b.ImageReadBytes.Add(int64(bytes))
	if err != nil {
		b.ImageReadErrors.Add(1)
	}
}

// RecordImageWrite implements MetricsCollector.
func (b *BasicMetricsCollector) RecordImageWrite(bytes int, _ time.Duration, err error) {
	b.ImageWriteBytes.Add(int64(bytes))
	if err != nil {
		b.ImageWriteErrors.Add(1)
	}
}

// RecordPageDecode implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPageDecode(bytes int64, duration time.Duration) {
	b.PagesDecoded.Add(1)
	b.PageDecodedBytes.Add(bytes)
	b.PageDecodeNanos.Add(duration.Nanoseconds())
}

// Stats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) Stats() BasicMetricsStats {
	return BasicMetricsStats{
		PointReadCalls:    b.PointReadCalls.Load(),
		PointReadRecords:  b.PointReadRecords.Load(),
		PointReadErrors:   b.PointReadErrors.Load(),
		PointReadAvgNanos: avg(b.PointReadNanos.Load(), b.PointReadCalls.Load()),

		PointWriteCalls:    b.PointWriteCalls.Load(),
		PointWriteRecords:  b.PointWriteRecords.Load(),
		PointWriteErrors:   b.PointWriteErrors.Load(),
		PointWriteAvgNanos: avg(b.PointWriteNanos.Load(), b.PointWriteCalls.Load()),

		ImageReadBytes:   b.ImageReadBytes.Load(),
		ImageReadErrors:  b.ImageReadErrors.Load(),
		ImageWriteBytes:  b.ImageWriteBytes.Load(),
		ImageWriteErrors: b.ImageWriteErrors.Load(),

		PagesDecoded:       b.PagesDecoded.Load(),
		PageDecodedBytes:   b.PageDecodedBytes.Load(),
		PageDecodeAvgNanos: avg(b.PageDecodeNanos.Load(), b.PagesDecoded.Load()),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	PointReadCalls    int64
	PointReadRecords  int64
	PointReadErrors   int64
	PointReadAvgNanos int64

	PointWriteCalls    int64
	PointWriteRecords  int64
	PointWriteErrors   int64
	PointWriteAvgNanos int64

	ImageReadBytes   int64
	ImageReadErrors  int64
	ImageWriteBytes  int64
	ImageWriteErrors int64

	PagesDecoded       int64
	PageDecodedBytes   int64
	PageDecodeAvgNanos int64
}
