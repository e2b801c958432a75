package monitoring

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RegisterAndCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.AnalysisFinished("complete")
	m.AnalysisFinished("complete")
	m.AnalysisFinished("cancelled")
	m.CacheEvent("landprice", true)
	m.CacheEvent("landprice", false)
	m.InvariantViolations(3)
	m.ProviderError("overpass")
	m.ObserveStage("ranking", 50*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.analyses.WithLabelValues("complete")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.analyses.WithLabelValues("cancelled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheEvents.WithLabelValues("landprice", "hit")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.invariants))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.providerErrors.WithLabelValues("overpass")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	// A disabled metrics handle must be safe everywhere.
	m.AnalysisFinished("complete")
	m.ObserveStage("ranking", time.Second)
	m.CacheEvent("zones", false)
	m.InvariantViolations(1)
	m.ProviderError("landapi")
}

func TestMetrics_ZeroViolationsNotCounted(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.InvariantViolations(0)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.invariants))
}
