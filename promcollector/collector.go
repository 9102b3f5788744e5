// Package promcollector exports e57go transfer metrics to Prometheus.
package promcollector

import (
	"time"

	"github.com/hupe1980/e57go"
	"github.com/prometheus/client_golang/prometheus"
)

// Collector implements e57go.MetricsCollector with Prometheus counters and
// histograms.
type Collector struct {
	transfers      *prometheus.HistogramVec
	records        *prometheus.CounterVec
	imageBytes     *prometheus.CounterVec
	imageOps       *prometheus.CounterVec
	pagesDecoded   prometheus.Counter
	pageBytes      prometheus.Counter
	pageDecodeTime prometheus.Histogram
}

var _ e57go.MetricsCollector = (*Collector)(nil)

// New creates a Collector and registers its metrics on reg. A nil reg
// registers on prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer, namespace string) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		transfers: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "point_transfer_duration_seconds",
			Help:      "Latency of point transfer calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"direction", "status"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "point_records_total",
			Help:      "Point records transferred",
		}, []string{"direction"}),
		imageBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_bytes_total",
			Help:      "Image bytes transferred",
		}, []string{"direction"}),
		imageOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_operations_total",
			Help:      "Image byte range operations",
		}, []string{"direction", "status"}),
		pagesDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_decoded_total",
			Help:      "Column pages decoded",
		}),
		pageBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "page_decoded_bytes_total",
			Help:      "Decoded in-memory size of column pages",
		}),
		pageDecodeTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "page_decode_duration_seconds",
			Help:      "Time to read, verify and decode a column page",
			Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 10),
		}),
	}
	for _, m := range []prometheus.Collector{
		c.transfers, c.records, c.imageBytes, c.imageOps,
		c.pagesDecoded, c.pageBytes, c.pageDecodeTime,
	} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordPointRead implements e57go.MetricsCollector.
func (c *Collector) RecordPointRead(records int, d time.Duration, err error) {
	c.transfers.WithLabelValues("read", status(err)).Observe(d.Seconds())
	if err == nil {
		c.records.WithLabelValues("read").Add(float64(records))
	}
}

// RecordPointWrite implements e57go.MetricsCollector.
func (c *Collector) RecordPointWrite(records int, d time.Duration, err error) {
	c.transfers.WithLabelValues("write", status(err)).Observe(d.Seconds())
	if err == nil {
		c.records.WithLabelValues("write").Add(float64(records))
	}
}

// RecordImageRead implements e57go.MetricsCollector.
func (c *Collector) RecordImageRead(bytes int, _ time.Duration, err error) {
	c.imageOps.WithLabelValues("read", status(err)).Inc()
	c.imageBytes.WithLabelValues("read").Add(float64(bytes))
}

// RecordImageWrite implements e57go.MetricsCollector.
func (c *Collector) RecordImageWrite(bytes int, _ time.Duration, err error) {
	c.imageOps.WithLabelValues("write", status(err)).Inc()
	c.imageBytes.WithLabelValues("write").Add(float64(bytes))
}

// RecordPageDecode implements e57go.MetricsCollector.
func (c *Collector) RecordPageDecode(bytes int64, d time.Duration) {
	c.pagesDecoded.Inc()
	c.pageBytes.Add(float64(bytes))
	c.pageDecodeTime.Observe(d.Seconds())
}
