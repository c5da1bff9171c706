package use_cases

import (
	"context"

	"paymasterhub/internal/application/dto"
	portsin "paymasterhub/internal/application/ports/in"
	apperrors "paymasterhub/internal/shared_kernel/errors"
)

type refreshPaymasterBalancesUseCase struct {
	ledger *balanceLedger
}

func NewRefreshPaymasterBalancesUseCase(deps BalanceLedgerDeps) portsin.RefreshPaymasterBalancesUseCase {
	return &refreshPaymasterBalancesUseCase{
		ledger: newBalanceLedger(deps),
	}
}

func (u *refreshPaymasterBalancesUseCase) Execute(
	ctx context.Context,
	command dto.RefreshBalancesCommand,
) (dto.BalancesOutput, *apperrors.AppError) {
	if appErr := u.ledger.validateRefresh(); appErr != nil {
		return dto.BalancesOutput{}, appErr
	}
	projectID, appErr := validateProjectID(command.ProjectID)
	if appErr != nil {
		return dto.BalancesOutput{}, appErr
	}

	paymasters, appErr := u.ledger.repository.FindByProject(ctx, projectID)
	if appErr != nil {
		return dto.BalancesOutput{}, appErr
	}
	if len(paymasters) == 0 {
		return dto.BalancesOutput{}, apperrors.NewNotFound(
			"paymaster_not_found",
			"project has no paymasters",
			map[string]any{"project_id": projectID},
		)
	}

	updated, failures := u.ledger.refreshMany(ctx, paymasters)
	u.ledger.logf(
		"balance refresh completed project_id=%s updated=%d failed=%d",
		projectID,
		updated,
		len(failures),
	)

	output, appErr := u.ledger.balances(ctx, projectID)
	if appErr != nil {
		return dto.BalancesOutput{}, appErr
	}
	output.Errors = failures
	return output, nil
}

type refreshAllBalancesUseCase struct {
	ledger *balanceLedger
}

func NewRefreshAllBalancesUseCase(deps BalanceLedgerDeps) portsin.RefreshAllBalancesUseCase {
	return &refreshAllBalancesUseCase{
		ledger: newBalanceLedger(deps),
	}
}

func (u *refreshAllBalancesUseCase) Execute(
	ctx context.Context,
	_ dto.RefreshAllBalancesCommand,
) (dto.RefreshAllBalancesOutput, *apperrors.AppError) {
	if appErr := u.ledger.validateRefresh(); appErr != nil {
		return dto.RefreshAllBalancesOutput{}, appErr
	}

	paymasters, appErr := u.ledger.repository.ListActive(ctx)
	if appErr != nil {
		return dto.RefreshAllBalancesOutput{}, appErr
	}

	updated, failures := u.ledger.refreshMany(ctx, paymasters)
	return dto.RefreshAllBalancesOutput{
		Paymasters: len(paymasters),
		Updated:    updated,
		Failed:     len(failures),
	}, nil
}
