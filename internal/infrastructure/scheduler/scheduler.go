package scheduler

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	portsin "paymasterhub/internal/application/ports/in"
	portsout "paymasterhub/internal/application/ports/out"
)

type Config struct {
	Enabled                bool
	WorkerID               string
	BalanceRefreshInterval time.Duration
	LowBalanceScanInterval time.Duration
	HealthCheckInterval    time.Duration
	RetryInterval          time.Duration
	RetryBatchSize         int
	RetryLeaseDuration     time.Duration
	AlertCooldown          time.Duration
}

type Dependencies struct {
	RefreshAllBalancesUseCase         portsin.RefreshAllBalancesUseCase
	ScanLowBalancesUseCase            portsin.ScanLowBalancesUseCase
	GetDeploymentHealthSummaryUseCase portsin.GetDeploymentHealthSummaryUseCase
	RetryDueDeploymentsUseCase        portsin.RetryDueDeploymentsUseCase
	AlertNotifier                     portsout.AlertNotifier
}

// Scheduler owns the periodic balance, alert, health and retry workers. It
// keeps no state beyond whether it is running and the in-memory alert signals.
type Scheduler struct {
	cfg          Config
	deps         Dependencies
	alertMonitor *balanceAlertMonitor
	workers      []*Worker
	running      atomic.Bool
	now          func() time.Time
	logger       *log.Logger
}

func New(cfg Config, deps Dependencies, logger *log.Logger) *Scheduler {
	s := &Scheduler{
		cfg:          cfg,
		deps:         deps,
		alertMonitor: newBalanceAlertMonitor(cfg.AlertCooldown),
		now:          time.Now,
		logger:       logger,
	}

	if deps.RefreshAllBalancesUseCase != nil {
		s.workers = append(s.workers, newWorker("balance refresh", cfg.BalanceRefreshInterval, s.runBalanceRefreshCycle, logger))
	}
	if deps.ScanLowBalancesUseCase != nil {
		s.workers = append(s.workers, newWorker("low balance scan", cfg.LowBalanceScanInterval, s.runLowBalanceScanCycle, logger))
	}
	if deps.GetDeploymentHealthSummaryUseCase != nil {
		s.workers = append(s.workers, newWorker("deployment health", cfg.HealthCheckInterval, s.runHealthSummaryCycle, logger))
	}
	if deps.RetryDueDeploymentsUseCase != nil {
		s.workers = append(s.workers, newWorker("deployment retry", cfg.RetryInterval, s.runRetryCycle, logger))
	}

	return s
}

func (s *Scheduler) Enabled() bool {
	return s != nil && s.cfg.Enabled && len(s.workers) > 0
}

func (s *Scheduler) Running() bool {
	return s != nil && s.running.Load()
}

// Start blocks until ctx is cancelled and every worker has returned.
func (s *Scheduler) Start(ctx context.Context) {
	if !s.Enabled() {
		return
	}
	if !s.running.CompareAndSwap(false, true) {
		s.logf("paymaster scheduler already running worker_id=%s", s.cfg.WorkerID)
		return
	}
	defer s.running.Store(false)

	s.logf("paymaster scheduler started worker_id=%s workers=%d", s.cfg.WorkerID, len(s.workers))

	var wg sync.WaitGroup
	for _, worker := range s.workers {
		wg.Add(1)
		go func(worker *Worker) {
			defer wg.Done()
			worker.Start(ctx)
		}(worker)
	}
	wg.Wait()

	s.logf("paymaster scheduler stopped worker_id=%s", s.cfg.WorkerID)
}

func (s *Scheduler) nowUTC() time.Time {
	if s.now == nil {
		return time.Now().UTC()
	}
	return s.now().UTC()
}

func (s *Scheduler) logf(format string, args ...any) {
	if s.logger == nil {
		return
	}
	s.logger.Printf(format, args...)
}
