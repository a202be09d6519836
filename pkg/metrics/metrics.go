package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RoutesTotal is the number of path rules in the currently installed
	// routing snapshot, across all hosts, plus one for its default route
	// if it has one.
	RoutesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "aether_ingress_routes_total",
			Help: "Total number of routes in the current routing snapshot",
		},
	)

	// CertificatesTotal is the number of SNI hosts currently bound to a
	// certificate in the cert store.
	CertificatesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "aether_ingress_certificates_total",
			Help: "Total number of hosts with a bound TLS certificate",
		},
	)

	// RequestsTotal counts dispatched requests by response status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aether_ingress_requests_total",
			Help: "Total number of proxied requests by status class",
		},
		[]string{"status"},
	)

	// RequestDuration observes end-to-end dispatch latency.
	RequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aether_ingress_request_duration_seconds",
			Help:    "Request dispatch duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// WatchErrorsTotal counts parse/apply failures observed by the
	// control-plane watchers, labeled by resource kind.
	WatchErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aether_ingress_watch_errors_total",
			Help: "Total number of watch events dropped due to a parse or apply error",
		},
		[]string{"resource"},
	)
)

func init() {
	prometheus.MustRegister(RoutesTotal)
	prometheus.MustRegister(CertificatesTotal)
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(WatchErrorsTotal)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
