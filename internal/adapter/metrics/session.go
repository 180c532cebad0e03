package metrics

import "github.com/prometheus/client_golang/prometheus"

// SessionMetrics holds Prometheus metrics for bearer sessions.
type SessionMetrics struct {
	Issued  prometheus.Counter
	Revoked prometheus.Counter
	Lookups *prometheus.CounterVec
	// RemoteRevocations counts revocations received from other instances.
	RemoteRevocations prometheus.Counter
}

// NewSessionMetrics creates and registers session metrics on the given registry.
func NewSessionMetrics(reg prometheus.Registerer) *SessionMetrics {
	m := &SessionMetrics{
		Issued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "issued_total",
			Help:      "Total number of issued session tokens.",
		}),
		Revoked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "revoked_total",
			Help:      "Total number of revoked session tokens.",
		}),
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "lookups_total",
			Help:      "Token lookups, by result (hit or miss).",
		}, []string{"result"}),
		RemoteRevocations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "remote_revocations_total",
			Help:      "Total number of revocations received over pub/sub.",
		}),
	}

	reg.MustRegister(m.Issued, m.Revoked, m.Lookups, m.RemoteRevocations)
	return m
}
