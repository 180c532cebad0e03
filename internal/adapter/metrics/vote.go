package metrics

import "github.com/prometheus/client_golang/prometheus"

// VoteMetrics holds server-side metrics for stored votes.
type VoteMetrics struct {
	VotesCast     *prometheus.CounterVec
	VotesRejected *prometheus.CounterVec
	StoreDuration prometheus.Histogram
}

// NewVoteMetrics creates and registers vote metrics on the given registry.
func NewVoteMetrics(reg prometheus.Registerer) *VoteMetrics {
	m := &VoteMetrics{
		VotesCast: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_cast_total",
			Help:      "Total number of stored votes, by entity kind and target.",
		}, []string{"kind", "target"}),
		VotesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_rejected_total",
			Help:      "Total number of rejected votes, by reason.",
		}, []string{"reason"}),
		StoreDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "votes_store_duration_seconds",
			Help:      "Duration of the vote transaction including the recount.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
	}

	reg.MustRegister(m.VotesCast, m.VotesRejected, m.StoreDuration)
	return m
}
