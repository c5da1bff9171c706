package out

import (
	"paymasterhub/internal/application/dto"
	valueobjects "paymasterhub/internal/domain/value_objects"
	apperrors "paymasterhub/internal/shared_kernel/errors"
)

type KeyDeriver interface {
	Derive(projectID string, category valueobjects.ChainCategory) (dto.DerivedKey, *apperrors.AppError)
}
