package in

import (
	"context"

	"paymasterhub/internal/application/dto"
	apperrors "paymasterhub/internal/shared_kernel/errors"
)

type SetPaymasterActiveUseCase interface {
	Execute(ctx context.Context, command dto.SetPaymasterActiveCommand) (dto.PaymasterSummary, *apperrors.AppError)
}
