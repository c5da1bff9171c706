package use_cases

import (
	"context"
	"log"

	"paymasterhub/internal/application/dto"
	portsin "paymasterhub/internal/application/ports/in"
	portsout "paymasterhub/internal/application/ports/out"
	"paymasterhub/internal/domain/entities"
	valueobjects "paymasterhub/internal/domain/value_objects"
	apperrors "paymasterhub/internal/shared_kernel/errors"
)

type cleanupProjectUseCase struct {
	repository portsout.PaymasterRepository
	locker     portsout.RecordLocker
	logger     *log.Logger
}

func NewCleanupProjectUseCase(
	repository portsout.PaymasterRepository,
	locker portsout.RecordLocker,
	logger *log.Logger,
) portsin.CleanupProjectUseCase {
	return &cleanupProjectUseCase{
		repository: repository,
		locker:     locker,
		logger:     logger,
	}
}

func (u *cleanupProjectUseCase) Execute(
	ctx context.Context,
	command dto.CleanupProjectCommand,
) (dto.CleanupProjectOutput, *apperrors.AppError) {
	if u.repository == nil {
		return dto.CleanupProjectOutput{}, apperrors.NewInternal("paymaster_repository_missing", "paymaster repository is required", nil)
	}
	if u.locker == nil {
		return dto.CleanupProjectOutput{}, apperrors.NewInternal("record_locker_missing", "record locker is required", nil)
	}
	projectID, appErr := validateProjectID(command.ProjectID)
	if appErr != nil {
		return dto.CleanupProjectOutput{}, appErr
	}

	// Every category stays locked, in a fixed order, until the delete commits.
	for _, category := range valueobjects.ChainCategories() {
		release, appErr := u.locker.Lock(ctx, entities.RecordKey(projectID, category))
		if appErr != nil {
			return dto.CleanupProjectOutput{}, appErr
		}
		defer release()
	}

	deleted, appErr := u.repository.Delete(ctx, projectID)
	if appErr != nil {
		return dto.CleanupProjectOutput{}, appErr
	}

	logf(
		u.logger,
		"paymaster project cleaned up project_id=%s paymasters_deleted=%d balances_deleted=%d",
		projectID,
		deleted.PaymastersDeleted,
		deleted.BalancesDeleted,
	)
	return dto.CleanupProjectOutput{
		ProjectID:         projectID,
		PaymastersDeleted: deleted.PaymastersDeleted,
		BalancesDeleted:   deleted.BalancesDeleted,
	}, nil
}
