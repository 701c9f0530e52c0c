package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveEvaluation(t *testing.T) {
	m := NewMetrics("regform", prometheus.NewRegistry())

	m.ObserveEvaluation(true, 85)
	m.ObserveEvaluation(false, 12)
	m.ObserveEvaluation(false, 40)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.PasswordEvaluations.WithLabelValues("valid")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.PasswordEvaluations.WithLabelValues("invalid")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.PasswordStrength))
}

func TestObserveMatch(t *testing.T) {
	m := NewMetrics("regform", prometheus.NewRegistry())

	m.ObserveMatch(true)
	m.ObserveMatch(false)
	m.ObserveMatch(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.PasswordMatches.WithLabelValues("match")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.PasswordMatches.WithLabelValues("mismatch")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveEvaluation(true, 100)
		m.ObserveMatch(false)
	})
}
