//go:build !integration

package scheduler

import (
	"testing"
	"time"

	"paymasterhub/internal/application/dto"
)

func observation(projectID string, chain string, level string) dto.BalanceObservation {
	return dto.BalanceObservation{ProjectID: projectID, Chain: chain, Category: "EVM", Level: level}
}

func TestBalanceAlertMonitorLifecycle(t *testing.T) {
	monitor := newBalanceAlertMonitor(60 * time.Second)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	alerts := monitor.evaluate(now, []dto.BalanceObservation{observation("proj1", "base", "low")})
	assertSingleBalanceAlert(t, alerts, "triggered", "low")

	alerts = monitor.evaluate(now.Add(30*time.Second), []dto.BalanceObservation{observation("proj1", "base", "low")})
	if len(alerts) != 0 {
		t.Fatalf("expected no alert before cooldown, got %+v", alerts)
	}

	alerts = monitor.evaluate(now.Add(61*time.Second), []dto.BalanceObservation{observation("proj1", "base", "low")})
	assertSingleBalanceAlert(t, alerts, "ongoing", "low")

	alerts = monitor.evaluate(now.Add(90*time.Second), []dto.BalanceObservation{observation("proj1", "base", "ok")})
	assertSingleBalanceAlert(t, alerts, "resolved", "ok")
	if !alerts[0].TriggeredAt.Equal(now) {
		t.Fatalf("expected resolved alert to carry trigger time %s, got %s", now, alerts[0].TriggeredAt)
	}

	alerts = monitor.evaluate(now.Add(120*time.Second), []dto.BalanceObservation{observation("proj1", "base", "ok")})
	if len(alerts) != 0 {
		t.Fatalf("expected no alert for healthy balance, got %+v", alerts)
	}
}

func TestBalanceAlertMonitorEscalatesWithinCooldown(t *testing.T) {
	monitor := newBalanceAlertMonitor(time.Hour)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assertSingleBalanceAlert(t, monitor.evaluate(now, []dto.BalanceObservation{observation("proj1", "solana", "low")}), "triggered", "low")

	alerts := monitor.evaluate(now.Add(time.Minute), []dto.BalanceObservation{observation("proj1", "solana", "critical")})
	assertSingleBalanceAlert(t, alerts, "triggered", "critical")
	if !alerts[0].TriggeredAt.Equal(now) {
		t.Fatalf("expected escalation to keep the original trigger time")
	}

	alerts = monitor.evaluate(now.Add(2*time.Minute), []dto.BalanceObservation{observation("proj1", "solana", "low")})
	if len(alerts) != 0 {
		t.Fatalf("expected de-escalation to wait for cooldown, got %+v", alerts)
	}
}

func TestBalanceAlertMonitorTracksSignalsIndependently(t *testing.T) {
	monitor := newBalanceAlertMonitor(time.Hour)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	alerts := monitor.evaluate(now, []dto.BalanceObservation{
		observation("proj1", "base", "low"),
		observation("proj1", "ethereum", "ok"),
		observation("proj2", "base", "critical"),
	})
	if len(alerts) != 2 {
		t.Fatalf("expected two triggered alerts, got %+v", alerts)
	}

	alerts = monitor.evaluate(now.Add(time.Minute), []dto.BalanceObservation{observation("proj2", "base", "critical")})
	if len(alerts) != 0 {
		t.Fatalf("expected no alerts, got %+v", alerts)
	}
	if _, ok := monitor.states["proj1|base"]; ok {
		t.Fatalf("expected signal of vanished paymaster to be dropped")
	}
}

func assertSingleBalanceAlert(t *testing.T, alerts []balanceAlert, expectedState string, expectedLevel string) {
	t.Helper()
	if len(alerts) != 1 {
		t.Fatalf("expected exactly one alert, got %+v", alerts)
	}
	if alerts[0].State != expectedState {
		t.Fatalf("expected state %s, got %s", expectedState, alerts[0].State)
	}
	if alerts[0].Level.String() != expectedLevel {
		t.Fatalf("expected level %s, got %s", expectedLevel, alerts[0].Level)
	}
}
