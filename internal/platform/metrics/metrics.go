// Package metrics publishes process-wide infrastructure gauges.
// Domain metrics live next to their module.
package metrics

import (
	"context"
	"database/sql"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DBStatsSource is satisfied by *database.Pool.
type DBStatsSource interface {
	Stats() sql.DBStats
}

// PoolStatsRecorder is satisfied by *redis.Client.
type PoolStatsRecorder interface {
	RecordPoolStats()
}

type Infra struct {
	DBOpenConns  prometheus.Gauge
	DBInUseConns prometheus.Gauge
	DBIdleConns  prometheus.Gauge
	DBWaitCount  prometheus.Gauge
	BuildInfo    *prometheus.GaugeVec
}

func NewInfra() *Infra {
	return &Infra{
		DBOpenConns: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "bloodlink_db_open_connections",
			Help: "Open connections in the database pool",
		}),
		DBInUseConns: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "bloodlink_db_in_use_connections",
			Help: "Connections currently in use",
		}),
		DBIdleConns: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "bloodlink_db_idle_connections",
			Help: "Idle connections in the database pool",
		}),
		DBWaitCount: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "bloodlink_db_wait_count",
			Help: "Total number of connections waited for",
		}),
		BuildInfo: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bloodlink_build_info",
			Help: "Build metadata; value is always 1",
		}, []string{"version", "environment"}),
	}
}

func (m *Infra) RecordDBStats(stats sql.DBStats) {
	m.DBOpenConns.Set(float64(stats.OpenConnections))
	m.DBInUseConns.Set(float64(stats.InUse))
	m.DBIdleConns.Set(float64(stats.Idle))
	m.DBWaitCount.Set(float64(stats.WaitCount))
}

// Run samples pool statistics every interval until ctx is done. Either
// source may be nil.
func (m *Infra) Run(ctx context.Context, interval time.Duration, db DBStatsSource, cache PoolStatsRecorder) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if db != nil {
				m.RecordDBStats(db.Stats())
			}
			if cache != nil {
				cache.RecordPoolStats()
			}
		}
	}
}
