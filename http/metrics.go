package http

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/paylink-foundation/paylink/go/relay"
)

// Metrics records relay endpoint and submission metrics.
type Metrics struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	attempts        *prometheus.CounterVec
	outcomes        *prometheus.CounterVec
	relayDuration   prometheus.Histogram
}

// NewMetrics registers metrics with the provided registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_http_requests_total",
			Help: "Total number of relay HTTP requests by route and status code",
		}, []string{"route", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "relay_http_request_duration_seconds",
			Help:    "Latency of relay HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_submission_attempts_total",
			Help: "Total number of transaction submission attempts by result",
		}, []string{"result"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_outcomes_total",
			Help: "Total number of relay outcomes by transaction type and status",
		}, []string{"type", "status"}),
		relayDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "relay_duration_seconds",
			Help:    "Time from validation to outcome for relayed intents",
			Buckets: prometheus.DefBuckets,
		}),
	}

	if reg != nil {
		reg.MustRegister(m.requests, m.requestDuration, m.attempts, m.outcomes, m.relayDuration)
	}
	return m
}

// ObserveRequest records a finished HTTP request
func (m *Metrics) ObserveRequest(route string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// Instrument attaches attempt and outcome hooks to a relay.
func (m *Metrics) Instrument(r *relay.Relay) {
	if m == nil || r == nil {
		return
	}
	r.OnAttempt(func(ctx relay.AttemptContext) {
		result := "sent"
		if ctx.Error != nil {
			result = "failed"
		}
		m.attempts.WithLabelValues(result).Inc()
	})
	r.OnAfterRelay(func(ctx relay.RelayResultContext) error {
		m.outcomes.WithLabelValues(ctx.Intent.Type, strconv.FormatBool(ctx.Outcome.Succeeded)).Inc()
		m.relayDuration.Observe(ctx.Duration.Seconds())
		return nil
	})
}
