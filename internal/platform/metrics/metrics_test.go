package metrics

import (
	"context"
	"database/sql"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

// Infra registers with the default registry, so the package shares one instance.
var infra = NewInfra()

type fakeDB struct{ stats sql.DBStats }

func (f fakeDB) Stats() sql.DBStats { return f.stats }

type fakeCache struct{ calls atomic.Int32 }

func (f *fakeCache) RecordPoolStats() { f.calls.Add(1) }

func TestRecordDBStats(t *testing.T) {
	infra.RecordDBStats(sql.DBStats{OpenConnections: 7, InUse: 3, Idle: 4, WaitCount: 11})

	assert.Equal(t, 7.0, testutil.ToFloat64(infra.DBOpenConns))
	assert.Equal(t, 3.0, testutil.ToFloat64(infra.DBInUseConns))
	assert.Equal(t, 4.0, testutil.ToFloat64(infra.DBIdleConns))
	assert.Equal(t, 11.0, testutil.ToFloat64(infra.DBWaitCount))
}

func TestRunSamplesUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cache := &fakeCache{}
	done := make(chan struct{})

	go func() {
		infra.Run(ctx, time.Millisecond, fakeDB{stats: sql.DBStats{OpenConnections: 2}}, cache)
		close(done)
	}()

	assert.Eventually(t, func() bool { return cache.calls.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, 2.0, testutil.ToFloat64(infra.DBOpenConns))
}
