package use_cases

import (
	"context"

	"paymasterhub/internal/application/dto"
	portsin "paymasterhub/internal/application/ports/in"
	apperrors "paymasterhub/internal/shared_kernel/errors"
)

type getPaymasterBalancesUseCase struct {
	ledger *balanceLedger
}

func NewGetPaymasterBalancesUseCase(deps BalanceLedgerDeps) portsin.GetPaymasterBalancesUseCase {
	return &getPaymasterBalancesUseCase{
		ledger: newBalanceLedger(deps),
	}
}

func (u *getPaymasterBalancesUseCase) Execute(ctx context.Context, query dto.GetBalancesQuery) (dto.BalancesOutput, *apperrors.AppError) {
	if appErr := u.ledger.validateReads(); appErr != nil {
		return dto.BalancesOutput{}, appErr
	}
	projectID, appErr := validateProjectID(query.ProjectID)
	if appErr != nil {
		return dto.BalancesOutput{}, appErr
	}

	return u.ledger.balances(ctx, projectID)
}
