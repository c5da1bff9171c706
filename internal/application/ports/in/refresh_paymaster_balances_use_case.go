package in

import (
	"context"

	"paymasterhub/internal/application/dto"
	apperrors "paymasterhub/internal/shared_kernel/errors"
)

type RefreshPaymasterBalancesUseCase interface {
	Execute(ctx context.Context, command dto.RefreshBalancesCommand) (dto.BalancesOutput, *apperrors.AppError)
}
