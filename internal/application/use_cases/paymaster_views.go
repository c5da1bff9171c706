package use_cases

import (
	"sort"
	"strings"

	"paymasterhub/internal/application/dto"
	"paymasterhub/internal/domain/entities"
	apperrors "paymasterhub/internal/shared_kernel/errors"

	"github.com/shopspring/decimal"
)

func toPaymasterSummary(paymaster entities.Paymaster) dto.PaymasterSummary {
	results := make(map[string]dto.ChainDeploymentResult, len(paymaster.DeploymentResults))
	for chain, result := range paymaster.DeploymentResults {
		view := dto.ChainDeploymentResult{
			Status:            string(result.Status),
			ContractAddress:   result.ContractAddress,
			TxHash:            result.TxHash,
			EntryPointAddress: result.EntryPointAddress,
			FundingTxHash:     result.FundingTxHash,
			AttemptedAt:       result.AttemptedAt,
		}
		if result.Error != nil {
			view.Error = &dto.ErrorView{Code: result.Error.Code, Message: result.Error.Message}
		}
		results[chain] = view
	}

	var funding []dto.FundingRequirement
	for _, requirement := range paymaster.FundingRequirements() {
		funding = append(funding, dto.FundingRequirement{
			Chain:   requirement.Chain,
			Address: requirement.Address,
			Symbol:  requirement.Symbol,
			Amount:  requirement.Amount,
		})
	}

	chains := append([]string(nil), paymaster.SupportedChains...)
	return dto.PaymasterSummary{
		Category:               paymaster.ChainCategory.String(),
		Address:                paymaster.Address,
		Status:                 paymaster.DeploymentStatus.String(),
		Health:                 string(paymaster.Health()),
		SupportedChains:        chains,
		PrimaryDeploymentChain: paymaster.PrimaryDeploymentChain,
		ContractAddress:        paymaster.ContractAddress,
		DeploymentTx:           paymaster.DeploymentTx,
		EntryPointAddress:      paymaster.EntryPointAddress,
		DeploymentResults:      results,
		FundingRequired:        funding,
		IsActive:               paymaster.IsActive,
		DeploymentAttempts:     paymaster.DeploymentAttempts,
		NextRetryAt:            paymaster.NextRetryAt,
		DeadLettered:           paymaster.DeadLetteredAt != nil,
	}
}

func toBalanceViews(balances []entities.PaymasterBalance) ([]dto.BalanceView, string) {
	sorted := append([]entities.PaymasterBalance(nil), balances...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Chain < sorted[j].Chain
	})

	total := decimal.Zero
	views := make([]dto.BalanceView, 0, len(sorted))
	for _, balance := range sorted {
		total = total.Add(balance.BalanceUSD)
		views = append(views, dto.BalanceView{
			Chain:         balance.Chain,
			Address:       balance.Address,
			Symbol:        balance.Symbol,
			BalanceNative: balance.BalanceNative.String(),
			BalanceUSD:    balance.BalanceUSD.StringFixed(2),
			PriceUSD:      balance.PriceUSD.String(),
			LastUpdated:   balance.LastUpdated,
		})
	}
	return views, total.StringFixed(2)
}

func validateProjectID(projectID string) (string, *apperrors.AppError) {
	trimmed := strings.TrimSpace(projectID)
	if trimmed == "" {
		return "", apperrors.NewValidation(
			"invalid_request",
			"project id is required",
			map[string]any{"field": "project_id"},
		)
	}
	if len(trimmed) > 128 {
		return "", apperrors.NewValidation(
			"invalid_request",
			"project id must be at most 128 characters",
			map[string]any{"field": "project_id"},
		)
	}
	return trimmed, nil
}
