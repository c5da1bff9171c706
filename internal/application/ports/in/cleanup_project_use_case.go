package in

import (
	"context"

	"paymasterhub/internal/application/dto"
	apperrors "paymasterhub/internal/shared_kernel/errors"
)

type CleanupProjectUseCase interface {
	Execute(ctx context.Context, command dto.CleanupProjectCommand) (dto.CleanupProjectOutput, *apperrors.AppError)
}
