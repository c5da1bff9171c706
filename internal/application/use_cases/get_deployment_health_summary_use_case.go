package use_cases

import (
	"context"

	"paymasterhub/internal/application/dto"
	portsin "paymasterhub/internal/application/ports/in"
	portsout "paymasterhub/internal/application/ports/out"
	apperrors "paymasterhub/internal/shared_kernel/errors"
)

type getDeploymentHealthSummaryUseCase struct {
	repository portsout.PaymasterRepository
}

func NewGetDeploymentHealthSummaryUseCase(repository portsout.PaymasterRepository) portsin.GetDeploymentHealthSummaryUseCase {
	return &getDeploymentHealthSummaryUseCase{
		repository: repository,
	}
}

func (u *getDeploymentHealthSummaryUseCase) Execute(
	ctx context.Context,
	_ dto.GetDeploymentHealthSummaryQuery,
) (dto.DeploymentHealthSummary, *apperrors.AppError) {
	if u.repository == nil {
		return dto.DeploymentHealthSummary{}, apperrors.NewInternal("paymaster_repository_missing", "paymaster repository is required", nil)
	}

	summary, appErr := u.repository.CountByStatus(ctx)
	if appErr != nil {
		return dto.DeploymentHealthSummary{}, appErr
	}
	summary.Total = summary.Created + summary.PendingFunding + summary.Deployed + summary.Failed
	return summary, nil
}
