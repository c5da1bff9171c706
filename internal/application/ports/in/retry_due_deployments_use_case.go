package in

import (
	"context"

	"paymasterhub/internal/application/dto"
	apperrors "paymasterhub/internal/shared_kernel/errors"
)

type RetryDueDeploymentsUseCase interface {
	Execute(ctx context.Context, command dto.RetryDueDeploymentsCommand) (dto.RetryDueDeploymentsOutput, *apperrors.AppError)
}
