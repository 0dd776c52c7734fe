package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "gotour"

// Metrics groups the collectors exported by the bookings service. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	BookingFetchFailures *prometheus.CounterVec
	BookingFetchRetries  *prometheus.CounterVec
	BookingTransitions   *prometheus.CounterVec

	HTTPRequestDuration *prometheus.HistogramVec

	MessagesPublished *prometheus.CounterVec
	PublishDuration   prometheus.Histogram

	FlightLookups *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. Pass
// prometheus.NewRegistry() in tests to keep them isolated.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BookingFetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_fetch_failures_total",
			Help:      "Per-kind booking fetches that failed and were replaced with an empty result.",
		}, []string{"kind"}),
		BookingFetchRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_fetch_retries_total",
			Help:      "Retried per-kind booking fetches.",
		}, []string{"kind"}),
		BookingTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_transitions_total",
			Help:      "Applied booking mutations by kind and operation.",
		}, []string{"kind", "operation"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "status"}),
		MessagesPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_messages_published_total",
			Help:      "Kafka publish attempts by topic and result.",
		}, []string{"topic", "result"}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_duration_seconds",
			Help:      "Kafka publish latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		FlightLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flight_lookups_total",
			Help:      "Flight provider lookups by source (cache, upstream) and result.",
		}, []string{"source", "result"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.BookingFetchFailures,
			m.BookingFetchRetries,
			m.BookingTransitions,
			m.HTTPRequestDuration,
			m.MessagesPublished,
			m.PublishDuration,
			m.FlightLookups,
		)
	}
	return m
}

func (m *Metrics) FetchFailed(kind string) {
	if m == nil {
		return
	}
	m.BookingFetchFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) FetchRetried(kind string) {
	if m == nil {
		return
	}
	m.BookingFetchRetries.WithLabelValues(kind).Inc()
}

func (m *Metrics) Transition(kind, operation string) {
	if m == nil {
		return
	}
	m.BookingTransitions.WithLabelValues(kind, operation).Inc()
}

func (m *Metrics) ObserveRequest(method, status string, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestDuration.WithLabelValues(method, status).Observe(seconds)
}

func (m *Metrics) Published(topic string, err error, seconds float64) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.MessagesPublished.WithLabelValues(topic, result).Inc()
	m.PublishDuration.Observe(seconds)
}

func (m *Metrics) FlightLookup(source, result string) {
	if m == nil {
		return
	}
	m.FlightLookups.WithLabelValues(source, result).Inc()
}
