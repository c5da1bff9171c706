package valueobjects

type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "ok"
	HealthStatusDegraded HealthStatus = "degraded"

	ComponentStatusOK          = "ok"
	ComponentStatusUnavailable = "unavailable"
)

func NewHealthyStatus() HealthStatus {
	return HealthStatusOK
}

// HealthStatusFromFailures degrades the service status once any probed
// dependency is unreachable.
func HealthStatusFromFailures(failures int) HealthStatus {
	if failures > 0 {
		return HealthStatusDegraded
	}
	return HealthStatusOK
}

func (h HealthStatus) String() string {
	return string(h)
}
