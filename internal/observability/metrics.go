package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	requestsTotal         *prometheus.CounterVec
	requestLatencySeconds *prometheus.HistogramVec
	submissionsGraded     *prometheus.CounterVec
	incidentsRecorded     *prometheus.CounterVec
	cheatingLogsFlushed   prometheus.Counter
	accessDenials         *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "proctor_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		requestLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "proctor_request_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		submissionsGraded = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "proctor_submissions_graded_total",
			Help: "Total number of exam submissions graded, by outcome.",
		}, []string{"status"})

		incidentsRecorded = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "proctor_incidents_recorded_total",
			Help: "Total number of proctoring incidents recorded, by type.",
		}, []string{"type"})

		cheatingLogsFlushed = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "proctor_cheating_logs_flushed_total",
			Help: "Total number of cheating logs persisted at submission time.",
		})

		accessDenials = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "proctor_access_denials_total",
			Help: "Total number of exam access denials, by reason.",
		}, []string{"reason"})

		prometheus.MustRegister(
			requestsTotal,
			requestLatencySeconds,
			submissionsGraded,
			incidentsRecorded,
			cheatingLogsFlushed,
			accessDenials,
		)
	})
}

// Requests exposes the request counter.
func Requests() *prometheus.CounterVec {
	RegisterMetrics()
	return requestsTotal
}

// RequestLatency exposes the request latency histogram.
func RequestLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return requestLatencySeconds
}

// SubmissionsGraded exposes the graded submission counter.
func SubmissionsGraded() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsGraded
}

// IncidentsRecorded exposes the incident counter.
func IncidentsRecorded() *prometheus.CounterVec {
	RegisterMetrics()
	return incidentsRecorded
}

// CheatingLogsFlushed exposes the flushed log counter.
func CheatingLogsFlushed() prometheus.Counter {
	RegisterMetrics()
	return cheatingLogsFlushed
}

// AccessDenials exposes the access denial counter.
func AccessDenials() *prometheus.CounterVec {
	RegisterMetrics()
	return accessDenials
}
