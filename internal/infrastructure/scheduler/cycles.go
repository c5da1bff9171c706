package scheduler

import (
	"context"
	"time"

	"paymasterhub/internal/application/dto"
	valueobjects "paymasterhub/internal/domain/value_objects"
)

const (
	alertTypeBalanceLow       = "paymaster_balance_low"
	alertTypeBalanceCritical  = "paymaster_balance_critical"
	alertTypeDeploymentHealth = "paymaster_deployment_health"
)

func (s *Scheduler) runBalanceRefreshCycle(ctx context.Context) {
	startedAt := time.Now()
	output, appErr := s.deps.RefreshAllBalancesUseCase.Execute(ctx, dto.RefreshAllBalancesCommand{})
	if appErr != nil {
		s.logf(
			"balance refresh cycle failed code=%s message=%s details=%v",
			appErr.Code,
			appErr.Message,
			appErr.Details,
		)
		return
	}

	s.logf(
		"balance refresh cycle completed worker_id=%s paymasters=%d updated=%d failed=%d latency_ms=%d",
		s.cfg.WorkerID,
		output.Paymasters,
		output.Updated,
		output.Failed,
		time.Since(startedAt).Milliseconds(),
	)
}

func (s *Scheduler) runLowBalanceScanCycle(ctx context.Context) {
	now := s.nowUTC()
	output, appErr := s.deps.ScanLowBalancesUseCase.Execute(ctx, dto.ScanLowBalancesCommand{})
	if appErr != nil {
		s.logf(
			"low balance scan cycle failed code=%s message=%s details=%v",
			appErr.Code,
			appErr.Message,
			appErr.Details,
		)
		return
	}

	alerts := s.alertMonitor.evaluate(now, output.Observations)
	for _, alert := range alerts {
		observation := alert.Observation
		s.logf(
			"paymaster balance alert %s project_id=%s chain=%s level=%s balance_usd=%s low_threshold_usd=%s critical_threshold_usd=%s",
			alert.State,
			observation.ProjectID,
			observation.Chain,
			alert.Level,
			observation.BalanceUSD,
			observation.LowThresholdUSD,
			observation.CriticalThresholdUSD,
		)
		s.notify(ctx, balanceAlertEvent(now, alert))
	}

	s.logf(
		"low balance scan cycle completed worker_id=%s observed=%d alerts=%d",
		s.cfg.WorkerID,
		len(output.Observations),
		len(alerts),
	)
}

func (s *Scheduler) runHealthSummaryCycle(ctx context.Context) {
	summary, appErr := s.deps.GetDeploymentHealthSummaryUseCase.Execute(ctx, dto.GetDeploymentHealthSummaryQuery{})
	if appErr != nil {
		s.logf(
			"deployment health cycle failed code=%s message=%s details=%v",
			appErr.Code,
			appErr.Message,
			appErr.Details,
		)
		return
	}

	s.logf(
		"deployment health cycle completed worker_id=%s total=%d deployed=%d pending_funding=%d failed=%d created=%d dead_lettered=%d",
		s.cfg.WorkerID,
		summary.Total,
		summary.Deployed,
		summary.PendingFunding,
		summary.Failed,
		summary.Created,
		summary.DeadLettered,
	)

	if summary.Failed == 0 && summary.DeadLettered == 0 {
		return
	}
	s.notify(ctx, dto.AlertEvent{
		Type:     alertTypeDeploymentHealth,
		Severity: "warning",
		State:    alertStateOngoing,
		Message:  "paymaster deployments need operator attention",
		Details: map[string]any{
			"total":           summary.Total,
			"deployed":        summary.Deployed,
			"pending_funding": summary.PendingFunding,
			"failed":          summary.Failed,
			"created":         summary.Created,
			"dead_lettered":   summary.DeadLettered,
		},
		OccurredAt: s.nowUTC(),
	})
}

func (s *Scheduler) runRetryCycle(ctx context.Context) {
	startedAt := s.nowUTC()
	output, appErr := s.deps.RetryDueDeploymentsUseCase.Execute(ctx, dto.RetryDueDeploymentsCommand{
		Now:           startedAt,
		WorkerID:      s.cfg.WorkerID,
		BatchSize:     s.cfg.RetryBatchSize,
		LeaseDuration: s.cfg.RetryLeaseDuration,
	})
	if appErr != nil {
		s.logf(
			"deployment retry cycle failed code=%s message=%s details=%v",
			appErr.Code,
			appErr.Message,
			appErr.Details,
		)
		return
	}

	s.logf(
		"deployment retry cycle completed worker_id=%s claimed=%d deployed=%d pending_funding=%d rescheduled=%d failed=%d dead_lettered=%d errors=%d latency_ms=%d",
		s.cfg.WorkerID,
		output.Claimed,
		output.Deployed,
		output.PendingFunding,
		output.Rescheduled,
		output.Failed,
		output.DeadLettered,
		output.Errors,
		s.nowUTC().Sub(startedAt).Milliseconds(),
	)
}

func (s *Scheduler) notify(ctx context.Context, event dto.AlertEvent) {
	if s.deps.AlertNotifier == nil {
		return
	}
	if appErr := s.deps.AlertNotifier.Notify(ctx, event); appErr != nil {
		s.logf("alert notify failed type=%s project_id=%s chain=%s code=%s", event.Type, event.ProjectID, event.Chain, appErr.Code)
	}
}

func balanceAlertEvent(now time.Time, alert balanceAlert) dto.AlertEvent {
	observation := alert.Observation
	event := dto.AlertEvent{
		Type:      alertTypeBalanceLow,
		Severity:  "warning",
		State:     alert.State,
		ProjectID: observation.ProjectID,
		Category:  observation.Category,
		Chain:     observation.Chain,
		Message:   "paymaster balance below low threshold",
		Details: map[string]any{
			"address":                observation.Address,
			"symbol":                 observation.Symbol,
			"level":                  alert.Level.String(),
			"balance_native":         observation.BalanceNative,
			"balance_usd":            observation.BalanceUSD,
			"low_threshold_usd":      observation.LowThresholdUSD,
			"critical_threshold_usd": observation.CriticalThresholdUSD,
			"triggered_at":           alert.TriggeredAt,
			"last_updated":           observation.LastUpdated,
		},
		OccurredAt: now,
	}

	switch alert.Level {
	case valueobjects.BalanceLevelCritical:
		event.Type = alertTypeBalanceCritical
		event.Severity = "critical"
		event.Message = "paymaster balance below critical threshold"
	case valueobjects.BalanceLevelOK:
		event.Severity = "info"
		event.Message = "paymaster balance recovered"
	}
	return event
}
