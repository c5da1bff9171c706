package use_cases

import (
	"context"
	"log"
	"strings"
	"time"

	"paymasterhub/internal/application/dto"
	portsin "paymasterhub/internal/application/ports/in"
	portsout "paymasterhub/internal/application/ports/out"
	valueobjects "paymasterhub/internal/domain/value_objects"
	apperrors "paymasterhub/internal/shared_kernel/errors"

	"github.com/shopspring/decimal"
)

const (
	fundingModeManual   = "manual"
	fundingModeDeployer = "deployer"
)

type FundPaymasterDeps struct {
	Repository       portsout.PaymasterRepository
	Adapters         portsout.ChainAdapterSet
	DeployerLock     portsout.DeployerLock
	MinFunding       map[valueobjects.ChainCategory]decimal.Decimal
	ChainCallTimeout time.Duration
	Logger           *log.Logger
}

type fundPaymasterUseCase struct {
	repository       portsout.PaymasterRepository
	adapters         portsout.ChainAdapterSet
	deployerLock     portsout.DeployerLock
	minFunding       map[valueobjects.ChainCategory]decimal.Decimal
	chainCallTimeout time.Duration
	logger           *log.Logger
}

func NewFundPaymasterUseCase(deps FundPaymasterDeps) portsin.FundPaymasterUseCase {
	timeout := deps.ChainCallTimeout
	if timeout <= 0 {
		timeout = defaultChainCallTimeout
	}

	return &fundPaymasterUseCase{
		repository:       deps.Repository,
		adapters:         deps.Adapters,
		deployerLock:     deps.DeployerLock,
		minFunding:       deps.MinFunding,
		chainCallTimeout: timeout,
		logger:           deps.Logger,
	}
}

func (u *fundPaymasterUseCase) Execute(
	ctx context.Context,
	command dto.FundPaymasterCommand,
) (dto.FundingInstructions, *apperrors.AppError) {
	if u.repository == nil {
		return dto.FundingInstructions{}, apperrors.NewInternal("paymaster_repository_missing", "paymaster repository is required", nil)
	}
	if u.deployerLock == nil {
		return dto.FundingInstructions{}, apperrors.NewInternal("deployer_lock_missing", "deployer lock is required", nil)
	}

	projectID, appErr := validateProjectID(command.ProjectID)
	if appErr != nil {
		return dto.FundingInstructions{}, appErr
	}
	spec, appErr := valueobjects.LookupChain(command.Chain)
	if appErr != nil {
		return dto.FundingInstructions{}, appErr
	}

	minimum := u.minFunding[spec.Category]
	amount := minimum
	if raw := strings.TrimSpace(command.Amount); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			return dto.FundingInstructions{}, apperrors.NewValidation(
				"invalid_request",
				"amount must be a decimal number",
				map[string]any{"field": "amount"},
			)
		}
		amount = parsed
	}
	if !amount.IsPositive() {
		return dto.FundingInstructions{}, apperrors.NewValidation(
			"invalid_request",
			"amount must be greater than zero",
			map[string]any{"field": "amount"},
		)
	}

	paymaster, found, appErr := u.repository.FindByProjectAndCategory(ctx, projectID, spec.Category)
	if appErr != nil {
		return dto.FundingInstructions{}, appErr
	}
	if !found || !paymaster.HasChain(spec.ID) {
		return dto.FundingInstructions{}, apperrors.NewNotFound(
			"paymaster_not_found",
			"no paymaster supports this chain for the project",
			map[string]any{"project_id": projectID, "chain": spec.ID},
		)
	}

	instructions := dto.FundingInstructions{
		ProjectID:      projectID,
		Chain:          spec.ID,
		Category:       spec.Category.String(),
		Address:        paymaster.Address,
		Symbol:         spec.Symbol,
		Amount:         amount.String(),
		MinimumFunding: minimum.String(),
		Mode:           fundingModeManual,
	}

	adapter, ok := u.adapters[spec.Category]
	if !ok || adapter == nil || !adapter.DeployerConfigured() {
		logf(u.logger, "paymaster funding manual project_id=%s chain=%s amount=%s", projectID, spec.ID, instructions.Amount)
		return instructions, nil
	}

	release, appErr := u.deployerLock.Acquire(ctx, spec.Category)
	if appErr != nil {
		return dto.FundingInstructions{}, appErr
	}
	defer release()

	callCtx, cancel := context.WithTimeout(ctx, u.chainCallTimeout)
	defer cancel()
	funded, appErr := adapter.FundFromDeployer(callCtx, dto.FundFromDeployerInput{
		Chain:       spec.ID,
		Address:     paymaster.Address,
		AmountMinor: toMinorUnits(amount, spec.Decimals),
	})
	if appErr != nil {
		return dto.FundingInstructions{}, classifyChainCallError(ctx, callCtx, appErr)
	}

	txHash := funded.TxHash
	instructions.Mode = fundingModeDeployer
	instructions.TxHash = &txHash
	logf(
		u.logger,
		"paymaster funding sent project_id=%s chain=%s amount=%s tx_hash=%s",
		projectID,
		spec.ID,
		instructions.Amount,
		txHash,
	)
	return instructions, nil
}
