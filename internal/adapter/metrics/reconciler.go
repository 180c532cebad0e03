package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/threadpulse/internal/domain"
	"github.com/pscheid92/threadpulse/internal/vote"
)

// ReconcilerMetrics records client-side optimistic vote traffic. It
// implements vote.Recorder.
type ReconcilerMetrics struct {
	InFlight        *prometheus.GaugeVec
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	CoalescedClicks *prometheus.CounterVec
}

var _ vote.Recorder = (*ReconcilerMetrics)(nil)

func NewReconcilerMetrics(reg prometheus.Registerer) *ReconcilerMetrics {
	m := &ReconcilerMetrics{
		InFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reconciler",
			Name:      "in_flight_requests",
			Help:      "Vote requests currently awaiting a server answer.",
		}, []string{"kind"}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconciler",
			Name:      "requests_total",
			Help:      "Settled vote requests, by entity kind and outcome.",
		}, []string{"kind", "outcome"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reconciler",
			Name:      "request_duration_seconds",
			Help:      "Time from sending a vote until it settled.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		CoalescedClicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconciler",
			Name:      "coalesced_clicks_total",
			Help:      "Clicks that arrived while a request was in flight.",
		}, []string{"kind"}),
	}

	reg.MustRegister(m.InFlight, m.Requests, m.RequestDuration, m.CoalescedClicks)
	return m
}

func (m *ReconcilerMetrics) RequestStarted(kind domain.EntityKind) {
	m.InFlight.WithLabelValues(string(kind)).Inc()
}

func (m *ReconcilerMetrics) RequestSettled(kind domain.EntityKind, outcome vote.Outcome, elapsed time.Duration) {
	m.InFlight.WithLabelValues(string(kind)).Dec()
	m.Requests.WithLabelValues(string(kind), string(outcome)).Inc()
	m.RequestDuration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
}

func (m *ReconcilerMetrics) Coalesced(kind domain.EntityKind) {
	m.CoalescedClicks.WithLabelValues(string(kind)).Inc()
}
