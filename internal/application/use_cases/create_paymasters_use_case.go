package use_cases

import (
	"context"

	"paymasterhub/internal/application/dto"
	portsin "paymasterhub/internal/application/ports/in"
	apperrors "paymasterhub/internal/shared_kernel/errors"
)

type createPaymastersUseCase struct {
	provisioner *provisioner
}

func NewCreatePaymastersUseCase(deps ProvisionerDeps) portsin.CreatePaymastersUseCase {
	return &createPaymastersUseCase{
		provisioner: newProvisioner(deps),
	}
}

func (u *createPaymastersUseCase) Execute(
	ctx context.Context,
	command dto.ProvisionPaymastersCommand,
) (dto.ProvisionPaymastersOutput, *apperrors.AppError) {
	return u.provisioner.provision(ctx, command, provisionModeCreate)
}
