package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Password evaluation metrics
	PasswordEvaluations *prometheus.CounterVec
	PasswordStrength    prometheus.Histogram
	PasswordMatches     *prometheus.CounterVec

	// Key generation metrics
	KeysGenerated  *prometheus.CounterVec
	KeyFallbacks   prometheus.Counter
	QRCodesPrinted prometheus.Counter

	// Outbound request metrics
	RequesterCalls   *prometheus.CounterVec
	RequesterLatency *prometheus.HistogramVec

	// HTTP metrics
	RequestDuration *prometheus.HistogramVec
	RequestTotal    *prometheus.CounterVec
	ErrorTotal      *prometheus.CounterVec
}

// NewMetrics creates all application metrics and registers them with reg.
// A nil reg uses the default registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		PasswordEvaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "password",
			Name:      "evaluations_total",
			Help:      "Total number of password evaluations by outcome",
		}, []string{"outcome"}),
		PasswordStrength: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "password",
			Name:      "strength_score",
			Help:      "Distribution of password strength scores",
			Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}),
		PasswordMatches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "password",
			Name:      "match_checks_total",
			Help:      "Total number of password match checks by result",
		}, []string{"result"}),

		KeysGenerated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "keygen",
			Name:      "keys_generated_total",
			Help:      "Total number of encryption keys generated by source",
		}, []string{"source"}),
		KeyFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "keygen",
			Name:      "remote_fallbacks_total",
			Help:      "Total number of times the remote word service failed and local sampling was used",
		}),
		QRCodesPrinted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "keygen",
			Name:      "qr_codes_total",
			Help:      "Total number of encryption key QR codes rendered",
		}),

		RequesterCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "requester",
			Name:      "calls_total",
			Help:      "Total number of outbound requests",
		}, []string{"method", "status"}),
		RequesterLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "requester",
			Name:      "call_duration_seconds",
			Help:      "Duration of outbound requests",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"method"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		RequestTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		ErrorTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "errors_total",
			Help:      "Total number of HTTP errors",
		}, []string{"method", "path", "status"}),
	}
}

// ObserveEvaluation records one password evaluation.
func (m *Metrics) ObserveEvaluation(valid bool, score int) {
	if m == nil {
		return
	}
	outcome := "invalid"
	if valid {
		outcome = "valid"
	}
	m.PasswordEvaluations.WithLabelValues(outcome).Inc()
	m.PasswordStrength.Observe(float64(score))
}

// ObserveMatch records one match check.
func (m *Metrics) ObserveMatch(matched bool) {
	if m == nil {
		return
	}
	result := "mismatch"
	if matched {
		result = "match"
	}
	m.PasswordMatches.WithLabelValues(result).Inc()
}
