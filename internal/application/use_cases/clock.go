package use_cases

import "time"

type Clock interface {
	NowUTC() time.Time
}

type systemClock struct{}

func NewSystemClock() Clock {
	return systemClock{}
}

// NowUTC is truncated to the microsecond precision Postgres stores, so values
// compare equal after a round trip through the registry.
func (systemClock) NowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
