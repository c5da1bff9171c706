package use_cases

import (
	"context"

	"paymasterhub/internal/application/dto"
	portsin "paymasterhub/internal/application/ports/in"
	portsout "paymasterhub/internal/application/ports/out"
	apperrors "paymasterhub/internal/shared_kernel/errors"
)

type getPaymasterAddressesUseCase struct {
	repository portsout.PaymasterRepository
}

func NewGetPaymasterAddressesUseCase(repository portsout.PaymasterRepository) portsin.GetPaymasterAddressesUseCase {
	return &getPaymasterAddressesUseCase{
		repository: repository,
	}
}

func (u *getPaymasterAddressesUseCase) Execute(
	ctx context.Context,
	query dto.GetAddressesQuery,
) (dto.GetAddressesOutput, *apperrors.AppError) {
	if u.repository == nil {
		return dto.GetAddressesOutput{}, apperrors.NewInternal(
			"paymaster_repository_missing",
			"paymaster repository is required",
			nil,
		)
	}
	projectID, appErr := validateProjectID(query.ProjectID)
	if appErr != nil {
		return dto.GetAddressesOutput{}, appErr
	}

	paymasters, appErr := u.repository.FindByProject(ctx, projectID)
	if appErr != nil {
		return dto.GetAddressesOutput{}, appErr
	}

	addresses := map[string]string{}
	for _, paymaster := range paymasters {
		for _, chain := range paymaster.SupportedChains {
			addresses[chain] = paymaster.Address
		}
	}

	return dto.GetAddressesOutput{
		ProjectID: projectID,
		Addresses: addresses,
	}, nil
}
