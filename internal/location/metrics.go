package location

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	CacheLookups *prometheus.CounterVec
	Resolutions  *prometheus.CounterVec
}

// NewMetrics registers location metrics with the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodlink_location_cache_lookups_total",
			Help: "Location cache lookups, by result (hit, miss, error)",
		}, []string{"result"}),
		Resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodlink_location_resolutions_total",
			Help: "Guarded location resolutions, by outcome (resolved, unknown, failed, rejected)",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) cacheLookup(result string) {
	if m != nil {
		m.CacheLookups.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) resolution(outcome string) {
	if m != nil {
		m.Resolutions.WithLabelValues(outcome).Inc()
	}
}
