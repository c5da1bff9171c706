package in

import (
	"context"

	"paymasterhub/internal/application/dto"
	apperrors "paymasterhub/internal/shared_kernel/errors"
)

type GetDeploymentHealthSummaryUseCase interface {
	Execute(ctx context.Context, query dto.GetDeploymentHealthSummaryQuery) (dto.DeploymentHealthSummary, *apperrors.AppError)
}
