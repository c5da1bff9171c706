package in

import (
	"context"

	"paymasterhub/internal/application/dto"
	apperrors "paymasterhub/internal/shared_kernel/errors"
)

type GetPaymasterBalancesUseCase interface {
	Execute(ctx context.Context, query dto.GetBalancesQuery) (dto.BalancesOutput, *apperrors.AppError)
}
