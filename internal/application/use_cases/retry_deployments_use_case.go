package use_cases

import (
	"context"
	"log"
	"time"

	"paymasterhub/internal/application/dto"
	portsin "paymasterhub/internal/application/ports/in"
	portsout "paymasterhub/internal/application/ports/out"
	"paymasterhub/internal/domain/entities"
	valueobjects "paymasterhub/internal/domain/value_objects"
	apperrors "paymasterhub/internal/shared_kernel/errors"
)

const (
	defaultRetryBatchSize     = 20
	defaultRetryLeaseDuration = 5 * time.Minute
)

type RetryDeploymentsDeps struct {
	Repository portsout.PaymasterRepository
	Locker     portsout.RecordLocker
	Deployer   *PaymasterDeployer
	Clock      Clock
	Logger     *log.Logger
}

type retryFailedDeploymentsUseCase struct {
	repository portsout.PaymasterRepository
	locker     portsout.RecordLocker
	deployer   *PaymasterDeployer
	logger     *log.Logger
}

func NewRetryFailedDeploymentsUseCase(deps RetryDeploymentsDeps) portsin.RetryFailedDeploymentsUseCase {
	return &retryFailedDeploymentsUseCase{
		repository: deps.Repository,
		locker:     deps.Locker,
		deployer:   deps.Deployer,
		logger:     deps.Logger,
	}
}

func (u *retryFailedDeploymentsUseCase) Execute(
	ctx context.Context,
	command dto.RetryFailedDeploymentsCommand,
) (dto.RetryFailedDeploymentsOutput, *apperrors.AppError) {
	if appErr := validateRetryDeps(u.repository, u.locker, u.deployer); appErr != nil {
		return dto.RetryFailedDeploymentsOutput{}, appErr
	}
	projectID, appErr := validateProjectID(command.ProjectID)
	if appErr != nil {
		return dto.RetryFailedDeploymentsOutput{}, appErr
	}

	paymasters, appErr := u.repository.FindByProject(ctx, projectID)
	if appErr != nil {
		return dto.RetryFailedDeploymentsOutput{}, appErr
	}
	if len(paymasters) == 0 {
		return dto.RetryFailedDeploymentsOutput{}, apperrors.NewNotFound(
			"paymaster_not_found",
			"project has no paymasters",
			map[string]any{"project_id": projectID},
		)
	}

	output := dto.RetryFailedDeploymentsOutput{
		ProjectID: projectID,
		Results:   []dto.RetryCategoryResult{},
	}
	for _, paymaster := range paymasters {
		if !paymaster.DeploymentStatus.Retryable() {
			continue
		}

		retried, retryErr := u.retryOne(ctx, paymaster)
		result := dto.RetryCategoryResult{
			Category: retried.ChainCategory.String(),
			Status:   retried.DeploymentStatus.String(),
			Health:   string(retried.Health()),
			Summary:  toPaymasterSummary(retried),
		}
		if retryErr != nil {
			result.Error = &dto.ErrorView{Code: retryErr.Code, Message: retryErr.Message}
		} else if retried.DeploymentStatus == valueobjects.DeploymentStatusFailed && retried.NextRetryAt == nil {
			result.Error = &dto.ErrorView{Code: "deployment_failed", Message: "paymaster deployment failed on every target chain"}
		}
		output.Results = append(output.Results, result)

		logf(
			u.logger,
			"paymaster retry category=%s project_id=%s status=%s",
			retried.ChainCategory,
			projectID,
			retried.DeploymentStatus,
		)
	}

	return output, nil
}

func (u *retryFailedDeploymentsUseCase) retryOne(
	ctx context.Context,
	paymaster entities.Paymaster,
) (entities.Paymaster, *apperrors.AppError) {
	release, appErr := u.locker.Lock(ctx, paymaster.RecordKey())
	if appErr != nil {
		return paymaster, appErr
	}
	defer release()

	current, found, appErr := u.repository.FindByProjectAndCategory(ctx, paymaster.ProjectID, paymaster.ChainCategory)
	if appErr != nil {
		return paymaster, appErr
	}
	if !found || !current.DeploymentStatus.Retryable() {
		return current, nil
	}

	return u.deployer.Deploy(ctx, current, current.DeploymentTargets(), DeployOptions{ResetAttempts: true})
}

type retryDueDeploymentsUseCase struct {
	repository portsout.PaymasterRepository
	locker     portsout.RecordLocker
	deployer   *PaymasterDeployer
	clock      Clock
	logger     *log.Logger
}

// NewRetryDueDeploymentsUseCase drives the automatic retry of records with a
// scheduled retry: those waiting for funding and those whose chain calls timed
// out. Terminally failed records are left for an explicit retry.
func NewRetryDueDeploymentsUseCase(deps RetryDeploymentsDeps) portsin.RetryDueDeploymentsUseCase {
	clock := deps.Clock
	if clock == nil {
		clock = NewSystemClock()
	}

	return &retryDueDeploymentsUseCase{
		repository: deps.Repository,
		locker:     deps.Locker,
		deployer:   deps.Deployer,
		clock:      clock,
		logger:     deps.Logger,
	}
}

func (u *retryDueDeploymentsUseCase) Execute(
	ctx context.Context,
	command dto.RetryDueDeploymentsCommand,
) (dto.RetryDueDeploymentsOutput, *apperrors.AppError) {
	if appErr := validateRetryDeps(u.repository, u.locker, u.deployer); appErr != nil {
		return dto.RetryDueDeploymentsOutput{}, appErr
	}
	if command.WorkerID == "" {
		return dto.RetryDueDeploymentsOutput{}, apperrors.NewValidation(
			"invalid_request",
			"worker id is required",
			map[string]any{"field": "worker_id"},
		)
	}

	now := command.Now
	if now.IsZero() {
		now = u.clock.NowUTC()
	}
	batchSize := command.BatchSize
	if batchSize <= 0 {
		batchSize = defaultRetryBatchSize
	}
	leaseDuration := command.LeaseDuration
	if leaseDuration <= 0 {
		leaseDuration = defaultRetryLeaseDuration
	}

	claimed, appErr := u.repository.ClaimRetryDue(ctx, dto.ClaimRetryDueCommand{
		Now:        now,
		LeaseOwner: command.WorkerID,
		LeaseUntil: now.Add(leaseDuration),
		Limit:      batchSize,
	})
	if appErr != nil {
		return dto.RetryDueDeploymentsOutput{}, appErr
	}

	output := dto.RetryDueDeploymentsOutput{Claimed: len(claimed)}
	for _, paymaster := range claimed {
		retried, retryErr := u.retryOne(ctx, paymaster)
		if releaseErr := u.repository.ReleaseRetryLease(ctx, paymaster.ID, command.WorkerID); releaseErr != nil {
			logf(u.logger, "paymaster retry lease release failed id=%s code=%s", paymaster.ID, releaseErr.Code)
		}
		if retryErr != nil {
			output.Errors++
			logf(
				u.logger,
				"paymaster retry failed category=%s project_id=%s code=%s",
				paymaster.ChainCategory,
				paymaster.ProjectID,
				retryErr.Code,
			)
			continue
		}

		switch {
		case retried.DeadLetteredAt != nil:
			output.DeadLettered++
		case retried.DeploymentStatus == valueobjects.DeploymentStatusDeployed:
			output.Deployed++
		case retried.DeploymentStatus == valueobjects.DeploymentStatusPendingFunding:
			output.PendingFunding++
		case retried.NextRetryAt != nil:
			output.Rescheduled++
		case retried.DeploymentStatus == valueobjects.DeploymentStatusFailed:
			output.Failed++
		}
	}

	return output, nil
}

func (u *retryDueDeploymentsUseCase) retryOne(
	ctx context.Context,
	paymaster entities.Paymaster,
) (entities.Paymaster, *apperrors.AppError) {
	release, appErr := u.locker.Lock(ctx, paymaster.RecordKey())
	if appErr != nil {
		return paymaster, appErr
	}
	defer release()

	current, found, appErr := u.repository.FindByProjectAndCategory(ctx, paymaster.ProjectID, paymaster.ChainCategory)
	if appErr != nil {
		return paymaster, appErr
	}
	if !found {
		return paymaster, apperrors.NewNotFound(
			"paymaster_not_found",
			"paymaster was removed before retry",
			map[string]any{"project_id": paymaster.ProjectID, "category": paymaster.ChainCategory.String()},
		)
	}
	if current.NextRetryAt == nil || current.DeadLetteredAt != nil {
		return current, nil
	}

	return u.deployer.Deploy(ctx, current, current.DeploymentTargets(), DeployOptions{})
}

func validateRetryDeps(
	repository portsout.PaymasterRepository,
	locker portsout.RecordLocker,
	deployer *PaymasterDeployer,
) *apperrors.AppError {
	if repository == nil {
		return apperrors.NewInternal("paymaster_repository_missing", "paymaster repository is required", nil)
	}
	if locker == nil {
		return apperrors.NewInternal("record_locker_missing", "record locker is required", nil)
	}
	if deployer == nil {
		return apperrors.NewInternal("paymaster_deployer_missing", "paymaster deployer is required", nil)
	}
	return nil
}

func logf(logger *log.Logger, format string, args ...any) {
	if logger == nil {
		return
	}
	logger.Printf(format, args...)
}
