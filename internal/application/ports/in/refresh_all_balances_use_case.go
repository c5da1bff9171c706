package in

import (
	"context"

	"paymasterhub/internal/application/dto"
	apperrors "paymasterhub/internal/shared_kernel/errors"
)

type RefreshAllBalancesUseCase interface {
	Execute(ctx context.Context, command dto.RefreshAllBalancesCommand) (dto.RefreshAllBalancesOutput, *apperrors.AppError)
}
