//go:build !integration

package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"paymasterhub/internal/application/dto"
	apperrors "paymasterhub/internal/shared_kernel/errors"
)

type fakeRefreshAllUseCase struct {
	mu    sync.Mutex
	count int
}

func (f *fakeRefreshAllUseCase) Execute(context.Context, dto.RefreshAllBalancesCommand) (dto.RefreshAllBalancesOutput, *apperrors.AppError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
	return dto.RefreshAllBalancesOutput{Paymasters: 1, Updated: 2}, nil
}

func (f *fakeRefreshAllUseCase) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

type fakeScanUseCase struct {
	mu           sync.Mutex
	observations []dto.BalanceObservation
}

func (f *fakeScanUseCase) Execute(context.Context, dto.ScanLowBalancesCommand) (dto.ScanLowBalancesOutput, *apperrors.AppError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return dto.ScanLowBalancesOutput{Observations: f.observations}, nil
}

type fakeHealthUseCase struct {
	summary dto.DeploymentHealthSummary
	err     *apperrors.AppError
}

func (f *fakeHealthUseCase) Execute(context.Context, dto.GetDeploymentHealthSummaryQuery) (dto.DeploymentHealthSummary, *apperrors.AppError) {
	return f.summary, f.err
}

type fakeRetryDueUseCase struct {
	mu       sync.Mutex
	commands []dto.RetryDueDeploymentsCommand
}

func (f *fakeRetryDueUseCase) Execute(_ context.Context, command dto.RetryDueDeploymentsCommand) (dto.RetryDueDeploymentsOutput, *apperrors.AppError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, command)
	return dto.RetryDueDeploymentsOutput{Claimed: 1, Deployed: 1}, nil
}

func (f *fakeRetryDueUseCase) lastCommand() (dto.RetryDueDeploymentsCommand, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.commands) == 0 {
		return dto.RetryDueDeploymentsCommand{}, false
	}
	return f.commands[len(f.commands)-1], true
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []dto.AlertEvent
}

func (f *fakeNotifier) Notify(_ context.Context, event dto.AlertEvent) *apperrors.AppError {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeNotifier) snapshot() []dto.AlertEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]dto.AlertEvent(nil), f.events...)
}

func testConfig() Config {
	return Config{
		Enabled:                true,
		WorkerID:               "worker-a",
		BalanceRefreshInterval: 10 * time.Millisecond,
		LowBalanceScanInterval: time.Hour,
		HealthCheckInterval:    time.Hour,
		RetryInterval:          time.Hour,
		RetryBatchSize:         5,
		RetryLeaseDuration:     time.Minute,
		AlertCooldown:          time.Hour,
	}
}

func TestSchedulerDisabled(t *testing.T) {
	refresh := &fakeRefreshAllUseCase{}
	cfg := testConfig()
	cfg.Enabled = false
	scheduler := New(cfg, Dependencies{RefreshAllBalancesUseCase: refresh}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	scheduler.Start(ctx)

	if refresh.calls() != 0 {
		t.Fatalf("expected no calls for disabled scheduler, got %d", refresh.calls())
	}
	if scheduler.Running() {
		t.Fatalf("expected disabled scheduler not to be running")
	}
}

func TestSchedulerRunsWorkersUntilCancelled(t *testing.T) {
	refresh := &fakeRefreshAllUseCase{}
	scan := &fakeScanUseCase{observations: []dto.BalanceObservation{{
		ProjectID:  "proj1",
		Chain:      "base",
		Category:   "EVM",
		Level:      "critical",
		BalanceUSD: "4.00",
	}}}
	health := &fakeHealthUseCase{summary: dto.DeploymentHealthSummary{Total: 3, Deployed: 2, Failed: 1}}
	retry := &fakeRetryDueUseCase{}
	notifier := &fakeNotifier{}

	scheduler := New(testConfig(), Dependencies{
		RefreshAllBalancesUseCase:         refresh,
		ScanLowBalancesUseCase:            scan,
		GetDeploymentHealthSummaryUseCase: health,
		RetryDueDeploymentsUseCase:        retry,
		AlertNotifier:                     notifier,
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		scheduler.Start(ctx)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for refresh.calls() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !scheduler.Running() {
		t.Fatalf("expected scheduler to report running")
	}
	cancel()
	<-done

	if scheduler.Running() {
		t.Fatalf("expected scheduler to stop running after cancel")
	}
	if refresh.calls() < 2 {
		t.Fatalf("expected balance refresh to tick, got %d calls", refresh.calls())
	}

	command, ok := retry.lastCommand()
	if !ok {
		t.Fatalf("expected retry cycle to run at start")
	}
	if command.WorkerID != "worker-a" || command.BatchSize != 5 || command.LeaseDuration != time.Minute {
		t.Fatalf("unexpected retry command %+v", command)
	}

	events := notifier.snapshot()
	types := map[string]dto.AlertEvent{}
	for _, event := range events {
		types[event.Type] = event
	}
	critical, ok := types[alertTypeBalanceCritical]
	if !ok || critical.State != "triggered" || critical.Chain != "base" {
		t.Fatalf("expected critical balance alert, got %+v", events)
	}
	if _, ok := types[alertTypeDeploymentHealth]; !ok {
		t.Fatalf("expected deployment health alert, got %+v", events)
	}
}

func TestHealthCycleSkipsAlertWhenHealthy(t *testing.T) {
	notifier := &fakeNotifier{}
	scheduler := New(testConfig(), Dependencies{
		GetDeploymentHealthSummaryUseCase: &fakeHealthUseCase{summary: dto.DeploymentHealthSummary{Total: 2, Deployed: 2}},
		AlertNotifier:                     notifier,
	}, nil)

	scheduler.runHealthSummaryCycle(context.Background())
	if len(notifier.snapshot()) != 0 {
		t.Fatalf("expected no alert for healthy deployments")
	}

	scheduler.deps.GetDeploymentHealthSummaryUseCase = &fakeHealthUseCase{err: apperrors.NewInternal("paymaster_query_failed", "boom", nil)}
	scheduler.runHealthSummaryCycle(context.Background())
	if len(notifier.snapshot()) != 0 {
		t.Fatalf("expected no alert when the summary fails")
	}
}
