package in

import (
	"context"

	"paymasterhub/internal/application/dto"
	apperrors "paymasterhub/internal/shared_kernel/errors"
)

type FundPaymasterUseCase interface {
	Execute(ctx context.Context, command dto.FundPaymasterCommand) (dto.FundingInstructions, *apperrors.AppError)
}
