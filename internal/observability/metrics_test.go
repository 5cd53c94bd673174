package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.Autosave("debounce", ResultSuccess, 0.02)
	m.Autosave("debounce", ResultSuccess, 0.03)
	m.Autosave("forced", ResultError, 0.5)
	m.Snapshot("auto", ResultSkipped)
	m.Restore(ResultSuccess)
	m.Poll("generating")
	m.GenerationJob(ResultError)
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.autosaves.WithLabelValues("debounce", ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.autosaves.WithLabelValues("forced", ResultError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.snapshots.WithLabelValues("auto", ResultSkipped)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.restores.WithLabelValues(ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.polls.WithLabelValues("generating")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.generationJobs.WithLabelValues(ResultError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.activeSessions))

	count, err := testutil.GatherAndCount(reg, "smartdoc_save_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Autosave("debounce", ResultSuccess, 1)
		m.Snapshot("auto", ResultSuccess)
		m.Restore(ResultError)
		m.Poll("failed")
		m.GenerationJob(ResultSuccess)
		m.SessionOpened()
		m.SessionClosed()
	})
}
