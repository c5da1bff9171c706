package in

import (
	"context"

	"paymasterhub/internal/application/dto"
	apperrors "paymasterhub/internal/shared_kernel/errors"
)

type RetryFailedDeploymentsUseCase interface {
	Execute(ctx context.Context, command dto.RetryFailedDeploymentsCommand) (dto.RetryFailedDeploymentsOutput, *apperrors.AppError)
}
