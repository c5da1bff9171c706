package out

import (
	"context"

	"paymasterhub/internal/domain/entities"
	apperrors "paymasterhub/internal/shared_kernel/errors"
)

type PaymasterBalanceRepository interface {
	EnsureRows(ctx context.Context, rows []entities.PaymasterBalance) *apperrors.AppError
	Upsert(ctx context.Context, balance entities.PaymasterBalance) *apperrors.AppError
	ListByProject(ctx context.Context, projectID string) ([]entities.PaymasterBalance, *apperrors.AppError)
	ListAll(ctx context.Context) ([]entities.PaymasterBalance, *apperrors.AppError)
}
