package dto

import "time"

type AlertEvent struct {
	Type       string         `json:"type"`
	Severity   string         `json:"severity"`
	State      string         `json:"state"`
	ProjectID  string         `json:"project_id,omitempty"`
	Category   string         `json:"category,omitempty"`
	Chain      string         `json:"chain,omitempty"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}
