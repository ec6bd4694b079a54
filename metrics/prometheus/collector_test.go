package prometheus

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/nerdgo"
	"github.com/hupe1980/nerdgo/merge"
)

var (
	_ nerdgo.MetricsCollector = (*Collector)(nil)
	_ merge.Observer          = (*Collector)(nil)
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	require.NoError(t, err)

	c.RecordLoad(10, time.Millisecond, nil)
	assert.InDelta(t, 10, promtest.ToFloat64(c.entities), 0)

	c.RecordPredict(5, 5, time.Millisecond, nil)
	c.RecordPredict(5, 0, time.Millisecond, errors.New("boom"))
	assert.InDelta(t, 1, promtest.ToFloat64(c.ops.WithLabelValues("predict", "success")), 0)
	assert.InDelta(t, 1, promtest.ToFloat64(c.ops.WithLabelValues("predict", "error")), 0)

	c.RecordMerge(3, 13, time.Second, nil)
	c.RecordMerge(2, 0, time.Second, errors.New("conflict"))
	assert.InDelta(t, 3, promtest.ToFloat64(c.merged), 0)
	assert.InDelta(t, 13, promtest.ToFloat64(c.entities), 0)

	n, err := promtest.GatherAndCount(reg, "nerdgo_operation_latency_seconds")
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestCollector_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	require.Error(t, err)
}
