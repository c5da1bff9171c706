package deterministic

import (
	"paymasterhub/internal/application/dto"
	portsout "paymasterhub/internal/application/ports/out"
	valueobjects "paymasterhub/internal/domain/value_objects"
	"paymasterhub/internal/infrastructure/walletkeys"
	apperrors "paymasterhub/internal/shared_kernel/errors"
)

type KeyDeriver struct {
	masterSeed []byte
}

var _ portsout.KeyDeriver = (*KeyDeriver)(nil)

func NewKeyDeriver(masterSeed []byte) *KeyDeriver {
	seed := make([]byte, len(masterSeed))
	copy(seed, masterSeed)
	return &KeyDeriver{masterSeed: seed}
}

func (d *KeyDeriver) Derive(projectID string, category valueobjects.ChainCategory) (dto.DerivedKey, *apperrors.AppError) {
	derived, keyErr := walletkeys.Derive(projectID, category, d.masterSeed)
	if keyErr != nil {
		return dto.DerivedKey{}, mapKeyError(keyErr, projectID, category)
	}

	return dto.DerivedKey{
		Address:    derived.Address,
		PrivateKey: derived.PrivateKey,
	}, nil
}

func mapKeyError(keyErr *walletkeys.KeyError, projectID string, category valueobjects.ChainCategory) *apperrors.AppError {
	details := map[string]any{
		"project_id": projectID,
		"category":   category.String(),
	}

	switch keyErr.Code {
	case walletkeys.CodeUnsupportedCategory:
		return apperrors.NewValidation(string(keyErr.Code), keyErr.Message, details)
	default:
		return apperrors.NewInternal(string(keyErr.Code), keyErr.Message, details)
	}
}
