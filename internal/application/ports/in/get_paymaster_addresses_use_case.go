package in

import (
	"context"

	"paymasterhub/internal/application/dto"
	apperrors "paymasterhub/internal/shared_kernel/errors"
)

type GetPaymasterAddressesUseCase interface {
	Execute(ctx context.Context, query dto.GetAddressesQuery) (dto.GetAddressesOutput, *apperrors.AppError)
}
