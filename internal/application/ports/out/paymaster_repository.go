package out

import (
	"context"
	"time"

	"paymasterhub/internal/application/dto"
	"paymasterhub/internal/domain/entities"
	valueobjects "paymasterhub/internal/domain/value_objects"
	apperrors "paymasterhub/internal/shared_kernel/errors"
)

type PaymasterRepository interface {
	Create(ctx context.Context, paymaster entities.Paymaster) *apperrors.AppError
	FindByProjectAndCategory(
		ctx context.Context,
		projectID string,
		category valueobjects.ChainCategory,
	) (entities.Paymaster, bool, *apperrors.AppError)
	FindByProject(ctx context.Context, projectID string) ([]entities.Paymaster, *apperrors.AppError)
	UpdateChains(
		ctx context.Context,
		projectID string,
		category valueobjects.ChainCategory,
		add []string,
		updatedAt time.Time,
	) ([]string, *apperrors.AppError)
	RecordChainResult(ctx context.Context, update dto.ChainResultUpdate) *apperrors.AppError
	SetCanonicalDeploymentIfUnset(ctx context.Context, canonical dto.CanonicalDeployment) (bool, *apperrors.AppError)
	TransitionStatusIfCurrent(ctx context.Context, command dto.TransitionDeploymentStatusCommand) (bool, *apperrors.AppError)
	Delete(ctx context.Context, projectID string) (dto.DeleteProjectResult, *apperrors.AppError)
	ListActive(ctx context.Context) ([]entities.Paymaster, *apperrors.AppError)
	ClaimRetryDue(ctx context.Context, command dto.ClaimRetryDueCommand) ([]entities.Paymaster, *apperrors.AppError)
	ReleaseRetryLease(ctx context.Context, id string, leaseOwner string) *apperrors.AppError
	CountByStatus(ctx context.Context) (dto.DeploymentHealthSummary, *apperrors.AppError)
	SetActive(
		ctx context.Context,
		projectID string,
		category valueobjects.ChainCategory,
		active bool,
		updatedAt time.Time,
	) (bool, *apperrors.AppError)
}
