package scheduler

import (
	"time"

	"paymasterhub/internal/application/dto"
	valueobjects "paymasterhub/internal/domain/value_objects"
)

const (
	alertStateTriggered = "triggered"
	alertStateOngoing   = "ongoing"
	alertStateResolved  = "resolved"

	defaultAlertCooldown = 30 * time.Minute
)

type balanceAlertMonitor struct {
	cooldown time.Duration
	states   map[string]balanceSignalState
}

type balanceSignalState struct {
	level          valueobjects.BalanceLevel
	triggeredAt    time.Time
	lastNotifiedAt time.Time
}

type balanceAlert struct {
	State       string
	Level       valueobjects.BalanceLevel
	Observation dto.BalanceObservation
	TriggeredAt time.Time
}

func newBalanceAlertMonitor(cooldown time.Duration) *balanceAlertMonitor {
	if cooldown <= 0 {
		cooldown = defaultAlertCooldown
	}
	return &balanceAlertMonitor{
		cooldown: cooldown,
		states:   map[string]balanceSignalState{},
	}
}

// evaluate keeps one signal per (project, chain). A low signal that turns
// critical is re-triggered immediately; the cooldown only throttles repeats
// at the same or a lower level.
func (m *balanceAlertMonitor) evaluate(now time.Time, observations []dto.BalanceObservation) []balanceAlert {
	alerts := []balanceAlert{}
	seen := make(map[string]struct{}, len(observations))

	for _, observation := range observations {
		signal := observation.ProjectID + "|" + observation.Chain
		seen[signal] = struct{}{}
		alerts = append(alerts, m.evaluateSignal(now, signal, observation)...)
	}

	// paymasters deactivated or removed since the last scan drop silently
	for signal := range m.states {
		if _, ok := seen[signal]; !ok {
			delete(m.states, signal)
		}
	}

	return alerts
}

func (m *balanceAlertMonitor) evaluateSignal(now time.Time, signal string, observation dto.BalanceObservation) []balanceAlert {
	level := valueobjects.BalanceLevel(observation.Level)
	state, active := m.states[signal]

	if level == valueobjects.BalanceLevelOK {
		if !active {
			return nil
		}
		delete(m.states, signal)
		return []balanceAlert{{
			State:       alertStateResolved,
			Level:       level,
			Observation: observation,
			TriggeredAt: state.triggeredAt,
		}}
	}

	if !active || escalated(state.level, level) {
		if !active {
			state.triggeredAt = now
		}
		state.level = level
		state.lastNotifiedAt = now
		m.states[signal] = state
		return []balanceAlert{{
			State:       alertStateTriggered,
			Level:       level,
			Observation: observation,
			TriggeredAt: state.triggeredAt,
		}}
	}

	state.level = level
	if now.Sub(state.lastNotifiedAt) < m.cooldown {
		m.states[signal] = state
		return nil
	}
	state.lastNotifiedAt = now
	m.states[signal] = state
	return []balanceAlert{{
		State:       alertStateOngoing,
		Level:       level,
		Observation: observation,
		TriggeredAt: state.triggeredAt,
	}}
}

func escalated(previous valueobjects.BalanceLevel, current valueobjects.BalanceLevel) bool {
	return previous == valueobjects.BalanceLevelLow && current == valueobjects.BalanceLevelCritical
}
