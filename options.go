package nerdgo

import (
	"log/slog"

	"github.com/hupe1980/nerdgo/blobstore"
)

type options struct {
	metricsCollector      MetricsCollector
	logger                *Logger
	blobStore             blobstore.BlobStore
	generation            uint64
	maxConcurrentPredicts int
	parallelism           int
	shardSize             int
}

// Option configures Init and New.
type Option func(*options)

// WithMetricsCollector configures a metrics collector.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &nerdgo.BasicMetricsCollector{}
//	svc, _ := nerdgo.Init(ctx, cfg, nerdgo.WithMetricsCollector(metrics))
//	// ... use svc ...
//	stats := metrics.GetStats()
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithBlobStore makes Init load a published generation from bs instead of
// the paths in the configuration.
func WithBlobStore(bs blobstore.BlobStore) Option {
	return func(o *options) {
		o.blobStore = bs
	}
}

// WithGeneration selects the generation Init loads from the blob store.
// 0, the default, means the current generation.
func WithGeneration(id uint64) Option {
	return func(o *options) {
		o.generation = id
	}
}

// WithMaxConcurrentPredicts bounds the number of in-flight predictions.
// Further callers wait until a slot frees up or their context is done.
func WithMaxConcurrentPredicts(n int) Option {
	return func(o *options) {
		o.maxConcurrentPredicts = n
	}
}

// WithParallelism sets the number of scan workers per prediction.
// It overrides the configured value.
func WithParallelism(n int) Option {
	return func(o *options) {
		o.parallelism = n
	}
}

// WithShardSize sets the number of rows a scan worker handles at a time.
func WithShardSize(rows int) Option {
	return func(o *options) {
		o.shardSize = rows
	}
}

func applyOptions(optFns []Option) options {
	opts := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.metricsCollector == nil {
		opts.metricsCollector = NoopMetricsCollector{}
	}
	if opts.logger == nil {
		opts.logger = NoopLogger()
	}
	return opts
}

type predictOptions struct {
	types []string
}

// PredictOption configures a single prediction.
type PredictOption func(*predictOptions)

// WithTypes restricts candidates to entities carrying any of the labels.
func WithTypes(labels ...string) PredictOption {
	return func(o *predictOptions) {
		o.types = append(o.types, labels...)
	}
}
