package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/did4510/Nexon/internal/config"
	"github.com/did4510/Nexon/internal/observability"
	"github.com/did4510/Nexon/internal/service"
)

const (
	tickLeaseKey      = "nexon:lease:escalation-tick"
	followupLeaseKey  = "nexon:lease:followups"
	reconcileLeaseKey = "nexon:lease:reconcile"
)

// Lease lets only one replica run a periodic job per interval.
type Lease interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// SLAWorker drives the escalation tick, follow-up processing and workload
// reconciliation on fixed intervals. The sweeps themselves are idempotent, so a
// missed or doubled run only delays or repeats work that is safe to repeat.
type SLAWorker struct {
	scheduler *service.EscalationScheduler
	workload  *service.WorkloadTracker
	lease     Lease
	metrics   *observability.Metrics
	cfg       config.SLAConfig
	logger    *zap.Logger
	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// SLAWorkerDependencies bundles worker collaborators. Lease and Metrics may be nil.
type SLAWorkerDependencies struct {
	Scheduler *service.EscalationScheduler
	Workload  *service.WorkloadTracker
	Lease     Lease
	Metrics   *observability.Metrics
	Config    config.SLAConfig
	Logger    *zap.Logger
}

// NewSLAWorker constructs the worker.
func NewSLAWorker(deps SLAWorkerDependencies) *SLAWorker {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SLAWorker{
		scheduler: deps.Scheduler,
		workload:  deps.Workload,
		lease:     deps.Lease,
		metrics:   deps.Metrics,
		cfg:       deps.Config,
		logger:    logger,
		stopChan:  make(chan struct{}),
	}
}

// Start launches the loops and returns immediately.
func (w *SLAWorker) Start(ctx context.Context) {
	w.logger.Info("starting sla worker",
		zap.Duration("tick_interval", w.cfg.TickInterval),
		zap.Duration("followup_interval", w.cfg.FollowupInterval),
		zap.Duration("reconcile_interval", w.cfg.ReconcileInterval))

	w.loop(ctx, "escalation tick", tickLeaseKey, w.cfg.TickInterval, func(ctx context.Context) error {
		report, err := w.scheduler.RunTick(ctx)
		w.metrics.RecordTick(report.Warnings, report.Breaches, report.Failures, err)
		return err
	})
	w.loop(ctx, "follow-up sweep", followupLeaseKey, w.cfg.FollowupInterval, func(ctx context.Context) error {
		report, err := w.scheduler.ProcessDueFollowups(ctx)
		w.metrics.RecordFollowups(report.Notified)
		return err
	})
	if w.workload != nil {
		w.loop(ctx, "workload reconciliation", reconcileLeaseKey, w.cfg.ReconcileInterval, func(ctx context.Context) error {
			report, err := w.workload.Reconcile(ctx)
			w.metrics.RecordReconcile(len(report.Corrections))
			return err
		})
	}
}

// Stop stops every loop and waits for in-flight runs. Safe to call more than once.
func (w *SLAWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopChan)
		w.wg.Wait()
		w.logger.Info("sla worker stopped")
	})
}

func (w *SLAWorker) loop(ctx context.Context, name, leaseKey string, interval time.Duration, job func(context.Context) error) {
	if interval <= 0 {
		w.logger.Warn("periodic job disabled", zap.String("job", name))
		return
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		// catch up on anything that came due while the process was down
		w.runOnce(ctx, name, leaseKey, interval, job)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.stopChan:
				return
			case <-ticker.C:
				w.runOnce(ctx, name, leaseKey, interval, job)
			}
		}
	}()
}

func (w *SLAWorker) runOnce(ctx context.Context, name, leaseKey string, interval time.Duration, job func(context.Context) error) {
	if w.lease != nil {
		ttl := w.cfg.TickLeaseTTL
		if ttl <= 0 || ttl > interval {
			ttl = interval
		}
		ok, err := w.lease.Acquire(ctx, leaseKey, ttl)
		if err != nil {
			w.logger.Warn("lease unavailable; running without it", zap.String("job", name), zap.Error(err))
		} else if !ok {
			w.logger.Debug("another replica holds the lease", zap.String("job", name))
			return
		}
	}

	started := time.Now()
	if err := job(ctx); err != nil {
		w.logger.Error("periodic job failed",
			zap.String("job", name),
			zap.Duration("duration", time.Since(started)),
			zap.Error(err))
	}
}
