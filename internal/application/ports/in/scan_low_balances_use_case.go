package in

import (
	"context"

	"paymasterhub/internal/application/dto"
	apperrors "paymasterhub/internal/shared_kernel/errors"
)

type ScanLowBalancesUseCase interface {
	Execute(ctx context.Context, command dto.ScanLowBalancesCommand) (dto.ScanLowBalancesOutput, *apperrors.AppError)
}
