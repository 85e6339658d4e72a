package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Matches       *prometheus.CounterVec
	Candidates    prometheus.Histogram
	MatchDuration prometheus.Histogram
	Requests      *prometheus.CounterVec
}

// New registers emergency metrics with the default registry. Call it once per process.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers emergency metrics with reg.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Matches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodlink_matches_total",
			Help: "Matching runs, by outcome (matched, empty, error)",
		}, []string{"outcome"}),
		Candidates: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bloodlink_match_candidates",
			Help:    "Number of candidate donors considered per matching run",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		MatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bloodlink_match_duration_seconds",
			Help:    "Time spent loading candidates, resolving location and ranking donors",
			Buckets: prometheus.DefBuckets,
		}),
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodlink_emergency_requests_total",
			Help: "Emergency request lifecycle events, by transition",
		}, []string{"transition"}),
	}
}

func (m *Metrics) ObserveMatch(outcome string, considered int, started time.Time) {
	m.Matches.WithLabelValues(outcome).Inc()
	m.Candidates.Observe(float64(considered))
	m.MatchDuration.Observe(time.Since(started).Seconds())
}

func (m *Metrics) IncrementTransition(transition string) {
	m.Requests.WithLabelValues(transition).Inc()
}
