package in

import (
	"context"

	"paymasterhub/internal/application/dto"
	apperrors "paymasterhub/internal/shared_kernel/errors"
)

type CreatePaymastersUseCase interface {
	Execute(ctx context.Context, command dto.ProvisionPaymastersCommand) (dto.ProvisionPaymastersOutput, *apperrors.AppError)
}
