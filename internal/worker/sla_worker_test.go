package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/did4510/Nexon/internal/clock"
	"github.com/did4510/Nexon/internal/config"
	"github.com/did4510/Nexon/internal/observability"
	"github.com/did4510/Nexon/internal/repository"
	"github.com/did4510/Nexon/internal/service"
)

type fakeLease struct {
	mu    sync.Mutex
	grant bool
	err   error
	keys  []string
	ttls  []time.Duration
}

func (l *fakeLease) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys = append(l.keys, key)
	l.ttls = append(l.ttls, ttl)
	return l.grant, l.err
}

func (l *fakeLease) calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}

func newTestWorker(t *testing.T, lease Lease, metrics *observability.Metrics) *SLAWorker {
	t.Helper()
	logger := zaptest.NewLogger(t)
	repo := repository.NewMemory()
	store := service.NewTicketStore(service.StoreDependencies{
		Repo:   repo,
		Clock:  clock.NewManual(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)),
		Logger: logger,
	})
	return NewSLAWorker(SLAWorkerDependencies{
		Scheduler: service.NewEscalationScheduler(service.EscalationDependencies{Store: store, Logger: logger}),
		Workload:  service.NewWorkloadTracker(service.WorkloadDependencies{Repo: repo, Logger: logger}),
		Lease:     lease,
		Metrics:   metrics,
		Config: config.SLAConfig{
			TickInterval:      time.Hour,
			FollowupInterval:  time.Hour,
			ReconcileInterval: time.Hour,
			TickLeaseTTL:      2 * time.Hour,
		},
		Logger: logger,
	})
}

func TestWorkerRunsEveryJobOnStart(t *testing.T) {
	lease := &fakeLease{grant: true}
	metrics := observability.NewMetrics()
	w := newTestWorker(t, lease, metrics)

	w.Start(context.Background())
	defer w.Stop()

	require.Eventually(t, func() bool {
		sla := metrics.Snapshot().SLA
		return sla.Ticks == 1 && sla.Reconciles == 1 && lease.calls() == 3
	}, time.Second, 10*time.Millisecond)

	lease.mu.Lock()
	defer lease.mu.Unlock()
	assert.ElementsMatch(t, []string{tickLeaseKey, followupLeaseKey, reconcileLeaseKey}, lease.keys)
	for _, ttl := range lease.ttls {
		assert.Equal(t, time.Hour, ttl, "lease never outlives the interval")
	}
}

func TestWorkerSkipsJobsWhenLeaseIsHeld(t *testing.T) {
	lease := &fakeLease{grant: false}
	metrics := observability.NewMetrics()
	w := newTestWorker(t, lease, metrics)

	w.Start(context.Background())
	require.Eventually(t, func() bool { return lease.calls() == 3 }, time.Second, 10*time.Millisecond)
	w.Stop()

	sla := metrics.Snapshot().SLA
	assert.Zero(t, sla.Ticks)
	assert.Zero(t, sla.Reconciles)
}

func TestWorkerRunsWithoutLeaseOnLeaseError(t *testing.T) {
	lease := &fakeLease{err: errors.New("redis down")}
	metrics := observability.NewMetrics()
	w := newTestWorker(t, lease, metrics)

	w.Start(context.Background())
	defer w.Stop()

	require.Eventually(t, func() bool {
		return metrics.Snapshot().SLA.Ticks == 1
	}, time.Second, 10*time.Millisecond)
}

func TestWorkerStopsOnContextAndStopIsIdempotent(t *testing.T) {
	metrics := observability.NewMetrics()
	w := newTestWorker(t, nil, metrics)

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	require.Eventually(t, func() bool {
		return metrics.Snapshot().SLA.Ticks == 1
	}, time.Second, 10*time.Millisecond)
	cancel()

	w.Stop()
	w.Stop()
}
