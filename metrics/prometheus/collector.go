// Package prometheus exports service metrics to Prometheus.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "nerdgo"

// Collector implements nerdgo.MetricsCollector and merge.Observer.
type Collector struct {
	opLatency   *prometheus.HistogramVec
	ops         *prometheus.CounterVec
	predictions prometheus.Histogram
	merged      prometheus.Counter
	entities    prometheus.Gauge
}

// New creates a collector and registers it with reg.
// A nil reg registers with the default registry.
func New(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_latency_seconds",
			Help:      "Latency of predict, merge and load operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "status"}),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Operations by type and outcome.",
		}, []string{"op", "status"}),
		predictions: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "predict_results",
			Help:      "Number of candidates returned per prediction.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		}),
		merged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "merged_entities_total",
			Help:      "Entities appended by successful merges.",
		}),
		entities: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "entities",
			Help:      "Entities in the most recently loaded or merged generation.",
		}),
	}

	for _, col := range []prometheus.Collector{c.opLatency, c.ops, c.predictions, c.merged, c.entities} {
		if err := reg.Register(col); err != nil {
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

func (c *Collector) observe(op string, d time.Duration, err error) {
	s := status(err)
	c.opLatency.WithLabelValues(op, s).Observe(d.Seconds())
	c.ops.WithLabelValues(op, s).Inc()
}

// RecordPredict records one prediction.
func (c *Collector) RecordPredict(_ int, results int, d time.Duration, err error) {
	c.observe("predict", d, err)
	if err == nil {
		c.predictions.Observe(float64(results))
	}
}

// RecordMerge records one merge run.
func (c *Collector) RecordMerge(added, total int, d time.Duration, err error) {
	c.observe("merge", d, err)
	if err == nil {
		c.merged.Add(float64(added))
		c.entities.Set(float64(total))
	}
}

// RecordLoad records the loading of a generation.
func (c *Collector) RecordLoad(count int, d time.Duration, err error) {
	c.observe("load", d, err)
	if err == nil {
		c.entities.Set(float64(count))
	}
}
