package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	DonorsRegistered   *prometheus.CounterVec
	StatusTransitions  *prometheus.CounterVec
	DonationsRecorded  prometheus.Counter
	CandidatesReturned prometheus.Histogram
}

// New registers donor metrics with the default registry. Call it once per process.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers donor metrics with reg. Tests pass a fresh registry.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		DonorsRegistered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodlink_donors_registered_total",
			Help: "Total number of donors registered, by blood group",
		}, []string{"blood_group"}),
		StatusTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodlink_donor_status_transitions_total",
			Help: "Donor activation changes, by transition",
		}, []string{"transition"}),
		DonationsRecorded: factory.NewCounter(prometheus.CounterOpts{
			Name: "bloodlink_donations_recorded_total",
			Help: "Total number of donations recorded against donors",
		}),
		CandidatesReturned: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bloodlink_donor_candidates_loaded",
			Help:    "Number of active compatible donors loaded per candidate lookup",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
	}
}

func (m *Metrics) IncrementRegistered(bloodGroup string) {
	m.DonorsRegistered.WithLabelValues(bloodGroup).Inc()
}

func (m *Metrics) IncrementTransition(transition string) {
	m.StatusTransitions.WithLabelValues(transition).Inc()
}

func (m *Metrics) IncrementDonations() {
	m.DonationsRecorded.Inc()
}

func (m *Metrics) ObserveCandidates(n int) {
	m.CandidatesReturned.Observe(float64(n))
}
