package use_cases

import (
	"context"

	"paymasterhub/internal/application/dto"
	portsin "paymasterhub/internal/application/ports/in"
	apperrors "paymasterhub/internal/shared_kernel/errors"
)

type addChainSupportUseCase struct {
	provisioner *provisioner
}

// NewAddChainSupportUseCase extends existing paymasters. Unlike creation it never
// deletes records when deployment fails.
func NewAddChainSupportUseCase(deps ProvisionerDeps) portsin.AddChainSupportUseCase {
	return &addChainSupportUseCase{
		provisioner: newProvisioner(deps),
	}
}

func (u *addChainSupportUseCase) Execute(
	ctx context.Context,
	command dto.ProvisionPaymastersCommand,
) (dto.ProvisionPaymastersOutput, *apperrors.AppError) {
	return u.provisioner.provision(ctx, command, provisionModeAddChain)
}
