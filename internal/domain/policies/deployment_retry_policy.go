package policies

import "time"

type DeploymentRetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Backoff doubles from InitialBackoff for each prior attempt and caps at MaxBackoff.
func (p DeploymentRetryPolicy) Backoff(attempts int) time.Duration {
	if attempts <= 1 {
		return p.InitialBackoff
	}

	backoff := p.InitialBackoff
	for i := 1; i < attempts; i++ {
		if backoff >= p.MaxBackoff {
			return p.MaxBackoff
		}
		backoff *= 2
		if backoff > p.MaxBackoff {
			return p.MaxBackoff
		}
	}

	return backoff
}

func (p DeploymentRetryPolicy) Exhausted(attempts int) bool {
	return p.MaxAttempts > 0 && attempts >= p.MaxAttempts
}

func (p DeploymentRetryPolicy) NextRetryAt(now time.Time, attempts int) time.Time {
	return now.Add(p.Backoff(attempts))
}
