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

type setPaymasterActiveUseCase struct {
	repository portsout.PaymasterRepository
	locker     portsout.RecordLocker
	clock      Clock
	logger     *log.Logger
}

func NewSetPaymasterActiveUseCase(
	repository portsout.PaymasterRepository,
	locker portsout.RecordLocker,
	clock Clock,
	logger *log.Logger,
) portsin.SetPaymasterActiveUseCase {
	if clock == nil {
		clock = NewSystemClock()
	}

	return &setPaymasterActiveUseCase{
		repository: repository,
		locker:     locker,
		clock:      clock,
		logger:     logger,
	}
}

func (u *setPaymasterActiveUseCase) Execute(
	ctx context.Context,
	command dto.SetPaymasterActiveCommand,
) (dto.PaymasterSummary, *apperrors.AppError) {
	if u.repository == nil {
		return dto.PaymasterSummary{}, apperrors.NewInternal("paymaster_repository_missing", "paymaster repository is required", nil)
	}
	if u.locker == nil {
		return dto.PaymasterSummary{}, apperrors.NewInternal("record_locker_missing", "record locker is required", nil)
	}
	projectID, appErr := validateProjectID(command.ProjectID)
	if appErr != nil {
		return dto.PaymasterSummary{}, appErr
	}
	category, appErr := valueobjects.ParseChainCategory(command.Category)
	if appErr != nil {
		return dto.PaymasterSummary{}, appErr
	}

	release, appErr := u.locker.Lock(ctx, entities.RecordKey(projectID, category))
	if appErr != nil {
		return dto.PaymasterSummary{}, appErr
	}
	defer release()

	updated, appErr := u.repository.SetActive(ctx, projectID, category, command.Active, u.clock.NowUTC())
	if appErr != nil {
		return dto.PaymasterSummary{}, appErr
	}
	if !updated {
		return dto.PaymasterSummary{}, apperrors.NewNotFound(
			"paymaster_not_found",
			"paymaster not found",
			map[string]any{"project_id": projectID, "category": category.String()},
		)
	}

	paymaster, found, appErr := u.repository.FindByProjectAndCategory(ctx, projectID, category)
	if appErr != nil {
		return dto.PaymasterSummary{}, appErr
	}
	if !found {
		return dto.PaymasterSummary{}, apperrors.NewNotFound(
			"paymaster_not_found",
			"paymaster not found",
			map[string]any{"project_id": projectID, "category": category.String()},
		)
	}

	logf(u.logger, "paymaster active flag set category=%s project_id=%s active=%t", category, projectID, command.Active)
	return toPaymasterSummary(paymaster), nil
}
