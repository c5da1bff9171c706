package use_cases

import (
	"context"
	"time"

	"paymasterhub/internal/application/dto"
	portsin "paymasterhub/internal/application/ports/in"
	portsout "paymasterhub/internal/application/ports/out"
	"paymasterhub/internal/domain/value_objects"
	apperrors "paymasterhub/internal/shared_kernel/errors"
)

const defaultProbeTimeout = 2 * time.Second

type getHealthUseCase struct {
	probes       []portsout.DependencyProbe
	probeTimeout time.Duration
}

// NewGetHealthUseCase reports liveness. Probes are optional; a failing probe
// degrades the status but never fails the call.
func NewGetHealthUseCase(probes ...portsout.DependencyProbe) portsin.GetHealthUseCase {
	return &getHealthUseCase{
		probes:       probes,
		probeTimeout: defaultProbeTimeout,
	}
}

func (u *getHealthUseCase) Execute(ctx context.Context, _ dto.GetHealthCommand) (dto.HealthOutput, *apperrors.AppError) {
	if len(u.probes) == 0 {
		return dto.HealthOutput{
			Status: valueobjects.NewHealthyStatus().String(),
		}, nil
	}

	components := make(map[string]string, len(u.probes))
	failures := 0
	for _, probe := range u.probes {
		probeCtx, cancel := context.WithTimeout(ctx, u.probeTimeout)
		err := probe.Ping(probeCtx)
		cancel()

		if err != nil {
			failures++
			components[probe.Name()] = valueobjects.ComponentStatusUnavailable
			continue
		}
		components[probe.Name()] = valueobjects.ComponentStatusOK
	}

	return dto.HealthOutput{
		Status:     valueobjects.HealthStatusFromFailures(failures).String(),
		Components: components,
	}, nil
}
