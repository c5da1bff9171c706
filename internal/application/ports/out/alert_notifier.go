package out

import (
	"context"

	"paymasterhub/internal/application/dto"
	apperrors "paymasterhub/internal/shared_kernel/errors"
)

type AlertNotifier interface {
	Notify(ctx context.Context, event dto.AlertEvent) *apperrors.AppError
}
