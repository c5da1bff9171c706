package use_cases

import (
	"context"
	"sort"

	"paymasterhub/internal/application/dto"
	portsin "paymasterhub/internal/application/ports/in"
	portsout "paymasterhub/internal/application/ports/out"
	"paymasterhub/internal/domain/entities"
	"paymasterhub/internal/domain/policies"
	valueobjects "paymasterhub/internal/domain/value_objects"
	apperrors "paymasterhub/internal/shared_kernel/errors"
)

type scanLowBalancesUseCase struct {
	repository        portsout.PaymasterRepository
	balanceRepository portsout.PaymasterBalanceRepository
	thresholds        map[valueobjects.ChainCategory]policies.BalanceThresholds
}

// NewScanLowBalancesUseCase classifies every stored balance of an active
// paymaster. Alerting state lives with the caller.
func NewScanLowBalancesUseCase(
	repository portsout.PaymasterRepository,
	balanceRepository portsout.PaymasterBalanceRepository,
	thresholds map[valueobjects.ChainCategory]policies.BalanceThresholds,
) portsin.ScanLowBalancesUseCase {
	return &scanLowBalancesUseCase{
		repository:        repository,
		balanceRepository: balanceRepository,
		thresholds:        thresholds,
	}
}

func (u *scanLowBalancesUseCase) Execute(
	ctx context.Context,
	_ dto.ScanLowBalancesCommand,
) (dto.ScanLowBalancesOutput, *apperrors.AppError) {
	if u.repository == nil {
		return dto.ScanLowBalancesOutput{}, apperrors.NewInternal("paymaster_repository_missing", "paymaster repository is required", nil)
	}
	if u.balanceRepository == nil {
		return dto.ScanLowBalancesOutput{}, apperrors.NewInternal("balance_repository_missing", "balance repository is required", nil)
	}

	active, appErr := u.repository.ListActive(ctx)
	if appErr != nil {
		return dto.ScanLowBalancesOutput{}, appErr
	}
	activeKeys := make(map[string]struct{}, len(active))
	for _, paymaster := range active {
		activeKeys[paymaster.RecordKey()] = struct{}{}
	}

	balances, appErr := u.balanceRepository.ListAll(ctx)
	if appErr != nil {
		return dto.ScanLowBalancesOutput{}, appErr
	}
	sort.Slice(balances, func(i, j int) bool {
		if balances[i].ProjectID != balances[j].ProjectID {
			return balances[i].ProjectID < balances[j].ProjectID
		}
		return balances[i].Chain < balances[j].Chain
	})

	output := dto.ScanLowBalancesOutput{Observations: make([]dto.BalanceObservation, 0, len(balances))}
	for _, balance := range balances {
		spec, appErr := valueobjects.LookupChain(balance.Chain)
		if appErr != nil {
			continue
		}
		if _, ok := activeKeys[entities.RecordKey(balance.ProjectID, spec.Category)]; !ok {
			continue
		}

		thresholds := u.thresholds[spec.Category]
		output.Observations = append(output.Observations, dto.BalanceObservation{
			ProjectID:            balance.ProjectID,
			Chain:                balance.Chain,
			Category:             spec.Category.String(),
			Address:              balance.Address,
			Symbol:               balance.Symbol,
			BalanceNative:        balance.BalanceNative.String(),
			BalanceUSD:           balance.BalanceUSD.StringFixed(2),
			LowThresholdUSD:      thresholds.LowUSD.String(),
			CriticalThresholdUSD: thresholds.CriticalUSD.String(),
			Level:                policies.ClassifyBalance(balance.BalanceUSD, thresholds).String(),
			LastUpdated:          balance.LastUpdated,
		})
	}

	return output, nil
}
