package out

import (
	"context"

	valueobjects "paymasterhub/internal/domain/value_objects"
	apperrors "paymasterhub/internal/shared_kernel/errors"
)

type RecordLocker interface {
	Lock(ctx context.Context, key string) (func(), *apperrors.AppError)
}

type DeployerLock interface {
	Acquire(ctx context.Context, category valueobjects.ChainCategory) (func(), *apperrors.AppError)
}
