package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetrics_AllVariablesNonNil(t *testing.T) {
	t.Parallel()

	vars := []struct {
		name string
		val  any
	}{
		{"RunsTotal", RunsTotal},
		{"RunErrors", RunErrors},
		{"RunDuration", RunDuration},
		{"TrialsSimulated", TrialsSimulated},
		{"NonTerminatingTrials", NonTerminatingTrials},
		{"BatchesCompleted", BatchesCompleted},
		{"BatchDuration", BatchDuration},
		{"CacheHits", CacheHits},
		{"CacheMisses", CacheMisses},
		{"CacheEntries", CacheEntries},
		{"UniformityTests", UniformityTests},
		{"AlertsSentTotal", AlertsSentTotal},
		{"AlertsCooldownSkipped", AlertsCooldownSkipped},
	}

	for _, v := range vars {
		assert.NotNilf(t, v.val, "%s should not be nil", v.name)
	}
}

func TestMetrics_IncrementNoPanic(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() { RunsTotal.WithLabelValues("sequential").Inc() })
	assert.NotPanics(t, func() { RunErrors.WithLabelValues("parallel").Inc() })
	assert.NotPanics(t, func() { RunDuration.WithLabelValues("parallel").Observe(0.25) })
	assert.NotPanics(t, func() { TrialsSimulated.WithLabelValues("sequential").Add(100) })
	assert.NotPanics(t, func() { NonTerminatingTrials.Inc() })
	assert.NotPanics(t, func() { BatchesCompleted.Inc() })
	assert.NotPanics(t, func() { BatchDuration.Observe(1.5) })
	assert.NotPanics(t, func() { CacheHits.Inc() })
	assert.NotPanics(t, func() { CacheMisses.Inc() })
	assert.NotPanics(t, func() { CacheEntries.Set(3) })
	assert.NotPanics(t, func() { UniformityTests.WithLabelValues("defined").Inc() })
	assert.NotPanics(t, func() { AlertsSentTotal.WithLabelValues("webhook", "RUN_FAILED").Inc() })
	assert.NotPanics(t, func() { AlertsCooldownSkipped.WithLabelValues("webhook", "RUN_FAILED").Inc() })
}
