package use_cases

import (
	"context"
	stderrors "errors"
	"log"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"paymasterhub/internal/application/dto"
	portsout "paymasterhub/internal/application/ports/out"
	"paymasterhub/internal/domain/entities"
	"paymasterhub/internal/domain/policies"
	valueobjects "paymasterhub/internal/domain/value_objects"
	apperrors "paymasterhub/internal/shared_kernel/errors"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	defaultChainCallTimeout         = 30 * time.Second
	defaultMaxConcurrentDeployments = 8
)

type DeploymentSettings struct {
	MinFunding               map[valueobjects.ChainCategory]decimal.Decimal
	ChainCallTimeout         time.Duration
	MaxConcurrentDeployments int
	RetryPolicy              policies.DeploymentRetryPolicy
}

type PaymasterDeployerDeps struct {
	Repository   portsout.PaymasterRepository
	Adapters     portsout.ChainAdapterSet
	Cipher       portsout.SecretCipher
	DeployerLock portsout.DeployerLock
	Notifier     portsout.AlertNotifier
	Clock        Clock
	Settings     DeploymentSettings
	Logger       *log.Logger
}

type DeployOptions struct {
	// ResetAttempts restarts the automatic retry budget and clears dead-letter state.
	ResetAttempts bool
}

// PaymasterDeployer drives one paymaster record through funding and activation.
// Callers must hold the record lock for the paymaster's (project, category).
type PaymasterDeployer struct {
	repository   portsout.PaymasterRepository
	adapters     portsout.ChainAdapterSet
	cipher       portsout.SecretCipher
	deployerLock portsout.DeployerLock
	notifier     portsout.AlertNotifier
	clock        Clock
	settings     DeploymentSettings
	logger       *log.Logger
}

func NewPaymasterDeployer(deps PaymasterDeployerDeps) *PaymasterDeployer {
	clock := deps.Clock
	if clock == nil {
		clock = NewSystemClock()
	}
	settings := deps.Settings
	if settings.ChainCallTimeout <= 0 {
		settings.ChainCallTimeout = defaultChainCallTimeout
	}
	if settings.MaxConcurrentDeployments <= 0 {
		settings.MaxConcurrentDeployments = defaultMaxConcurrentDeployments
	}

	return &PaymasterDeployer{
		repository:   deps.Repository,
		adapters:     deps.Adapters,
		cipher:       deps.Cipher,
		deployerLock: deps.DeployerLock,
		notifier:     deps.Notifier,
		clock:        clock,
		settings:     settings,
		logger:       deps.Logger,
	}
}

func (d *PaymasterDeployer) validate() *apperrors.AppError {
	if d == nil {
		return apperrors.NewInternal("paymaster_deployer_missing", "paymaster deployer is required", nil)
	}
	if d.repository == nil {
		return apperrors.NewInternal("paymaster_repository_missing", "paymaster repository is required", nil)
	}
	if len(d.adapters) == 0 {
		return apperrors.NewInternal("chain_adapters_missing", "at least one chain adapter is required", nil)
	}
	if d.cipher == nil {
		return apperrors.NewInternal("secret_cipher_missing", "secret cipher is required", nil)
	}
	if d.deployerLock == nil {
		return apperrors.NewInternal("deployer_lock_missing", "deployer lock is required", nil)
	}
	return nil
}

// Deploy attempts activation on every target chain and settles the aggregate
// status. Per-chain failures are recorded in deployment results, not returned.
func (d *PaymasterDeployer) Deploy(
	ctx context.Context,
	paymaster entities.Paymaster,
	targets []string,
	options DeployOptions,
) (entities.Paymaster, *apperrors.AppError) {
	if appErr := d.validate(); appErr != nil {
		return paymaster, appErr
	}
	if len(targets) == 0 {
		return paymaster, nil
	}

	adapter, ok := d.adapters[paymaster.ChainCategory]
	if !ok || adapter == nil {
		return paymaster, apperrors.NewInternal(
			"chain_adapter_missing",
			"no chain adapter configured for category",
			map[string]any{"category": paymaster.ChainCategory.String()},
		)
	}

	outcomes, recordErr := d.attemptTargets(ctx, adapter, paymaster, targets)
	if recordErr != nil {
		return paymaster, recordErr
	}

	current, found, appErr := d.repository.FindByProjectAndCategory(ctx, paymaster.ProjectID, paymaster.ChainCategory)
	if appErr != nil {
		return paymaster, appErr
	}
	if !found {
		return paymaster, apperrors.NewNotFound(
			"paymaster_not_found",
			"paymaster disappeared during deployment",
			map[string]any{"project_id": paymaster.ProjectID, "category": paymaster.ChainCategory.String()},
		)
	}

	return d.settle(ctx, current, outcomes, options)
}

func (d *PaymasterDeployer) attemptTargets(
	ctx context.Context,
	adapter portsout.ChainAdapter,
	paymaster entities.Paymaster,
	targets []string,
) (map[string]entities.DeploymentResult, *apperrors.AppError) {
	var (
		mu        sync.Mutex
		outcomes  = make(map[string]entities.DeploymentResult, len(targets))
		recordErr *apperrors.AppError
	)

	group := new(errgroup.Group)
	group.SetLimit(d.settings.MaxConcurrentDeployments)
	for _, chain := range targets {
		group.Go(func() error {
			result := d.attemptChain(ctx, adapter, paymaster, chain)
			appErr := d.recordResult(ctx, paymaster, chain, result)

			mu.Lock()
			defer mu.Unlock()
			outcomes[chain] = result
			if appErr != nil && recordErr == nil {
				recordErr = appErr
			}
			return nil
		})
	}
	_ = group.Wait()

	return outcomes, recordErr
}

func (d *PaymasterDeployer) attemptChain(
	ctx context.Context,
	adapter portsout.ChainAdapter,
	paymaster entities.Paymaster,
	chain string,
) entities.DeploymentResult {
	startedAt := d.clock.NowUTC()
	result := entities.DeploymentResult{AttemptedAt: startedAt}

	spec, appErr := valueobjects.LookupChain(chain)
	if appErr != nil {
		return failedResult(result, appErr)
	}

	fundingTxHash, pending := d.ensureFunded(ctx, adapter, paymaster, spec)
	if pending != nil {
		pending.AttemptedAt = startedAt
		d.logf(
			"paymaster deployment gated category=%s project_id=%s chain=%s status=%s reason=%s",
			paymaster.ChainCategory,
			paymaster.ProjectID,
			chain,
			pending.Status,
			errorCode(pending.Error),
		)
		return *pending
	}
	result.FundingTxHash = fundingTxHash

	var output dto.DeployPaymasterOutput
	openErr := d.cipher.Open(paymaster.EncryptedPrivateKey, func(privateKey []byte) *apperrors.AppError {
		callCtx, cancel := context.WithTimeout(ctx, d.settings.ChainCallTimeout)
		defer cancel()

		deployed, deployErr := adapter.Deploy(callCtx, dto.DeployPaymasterInput{
			Chain:      chain,
			Address:    paymaster.Address,
			PrivateKey: privateKey,
		})
		if deployErr != nil {
			return classifyChainCallError(ctx, callCtx, deployErr)
		}
		output = deployed
		return nil
	})
	if openErr != nil {
		d.logf(
			"paymaster deployment chain failed category=%s project_id=%s chain=%s code=%s latency_ms=%d",
			paymaster.ChainCategory,
			paymaster.ProjectID,
			chain,
			openErr.Code,
			time.Since(startedAt).Milliseconds(),
		)
		return failedResult(result, openErr)
	}

	contractAddress := output.ContractAddress
	txHash := output.TxHash
	result.Status = valueobjects.ChainResultDeployed
	result.ContractAddress = &contractAddress
	result.TxHash = &txHash
	if output.EntryPointAddress != "" {
		entryPoint := output.EntryPointAddress
		result.EntryPointAddress = &entryPoint
	}
	d.logf(
		"paymaster deployment chain succeeded category=%s project_id=%s chain=%s contract_address=%s tx_hash=%s latency_ms=%d",
		paymaster.ChainCategory,
		paymaster.ProjectID,
		chain,
		contractAddress,
		txHash,
		time.Since(startedAt).Milliseconds(),
	)
	return result
}

// ensureFunded tops the wallet up to the category minimum. A non-nil result
// means the chain cannot be deployed in this attempt.
func (d *PaymasterDeployer) ensureFunded(
	ctx context.Context,
	adapter portsout.ChainAdapter,
	paymaster entities.Paymaster,
	spec valueobjects.ChainSpec,
) (*string, *entities.DeploymentResult) {
	minimum := toMinorUnits(d.settings.MinFunding[paymaster.ChainCategory], spec.Decimals)
	if minimum.Sign() <= 0 {
		return nil, nil
	}

	balanceCtx, cancel := context.WithTimeout(ctx, d.settings.ChainCallTimeout)
	balance, balanceErr := adapter.GetNativeBalance(balanceCtx, spec.ID, paymaster.Address)
	if balanceErr != nil {
		balanceErr = classifyChainCallError(ctx, balanceCtx, balanceErr)
	}
	cancel()
	if balanceErr != nil {
		result := failedResult(entities.DeploymentResult{}, balanceErr)
		return nil, &result
	}
	if balance != nil && balance.Cmp(minimum) >= 0 {
		return nil, nil
	}

	shortfall := new(big.Int).Set(minimum)
	if balance != nil {
		shortfall.Sub(shortfall, balance)
	}
	requirement := &entities.FundingRequirement{
		Chain:   spec.ID,
		Address: paymaster.Address,
		Symbol:  spec.Symbol,
		Amount:  fromMinorUnits(shortfall, spec.Decimals).String(),
	}

	if !adapter.DeployerConfigured() {
		return nil, pendingFundingResult(requirement, apperrors.NewInternal(
			"deployer_not_configured",
			"no deployer account configured; fund the paymaster manually",
			nil,
		))
	}

	release, lockErr := d.deployerLock.Acquire(ctx, paymaster.ChainCategory)
	if lockErr != nil {
		result := failedResult(entities.DeploymentResult{}, lockErr)
		return nil, &result
	}
	fundCtx, fundCancel := context.WithTimeout(ctx, d.settings.ChainCallTimeout)
	funded, fundErr := adapter.FundFromDeployer(fundCtx, dto.FundFromDeployerInput{
		Chain:       spec.ID,
		Address:     paymaster.Address,
		AmountMinor: shortfall,
	})
	if fundErr != nil {
		fundErr = classifyChainCallError(ctx, fundCtx, fundErr)
	}
	fundCancel()
	release()

	if fundErr != nil {
		if fundErr.Code == "insufficient_deployer_balance" || fundErr.Code == "deployer_not_configured" {
			return nil, pendingFundingResult(requirement, fundErr)
		}
		result := failedResult(entities.DeploymentResult{}, fundErr)
		return nil, &result
	}

	d.logf(
		"paymaster funded from deployer category=%s project_id=%s chain=%s amount=%s tx_hash=%s",
		paymaster.ChainCategory,
		paymaster.ProjectID,
		spec.ID,
		requirement.Amount,
		funded.TxHash,
	)
	txHash := funded.TxHash
	return &txHash, nil
}

func (d *PaymasterDeployer) recordResult(
	ctx context.Context,
	paymaster entities.Paymaster,
	chain string,
	result entities.DeploymentResult,
) *apperrors.AppError {
	if appErr := d.repository.RecordChainResult(ctx, dto.ChainResultUpdate{
		PaymasterID: paymaster.ID,
		Chain:       chain,
		Result:      result,
	}); appErr != nil {
		return appErr
	}
	if !result.Succeeded() {
		return nil
	}

	canonical := dto.CanonicalDeployment{
		PaymasterID:     paymaster.ID,
		ContractAddress: *result.ContractAddress,
		UpdatedAt:       d.clock.NowUTC(),
	}
	if result.TxHash != nil {
		canonical.DeploymentTx = *result.TxHash
	}
	if result.EntryPointAddress != nil {
		canonical.EntryPointAddress = *result.EntryPointAddress
	}

	won, appErr := d.repository.SetCanonicalDeploymentIfUnset(ctx, canonical)
	if appErr != nil {
		return appErr
	}
	if won {
		d.logf(
			"paymaster canonical deployment set category=%s project_id=%s chain=%s contract_address=%s",
			paymaster.ChainCategory,
			paymaster.ProjectID,
			chain,
			canonical.ContractAddress,
		)
	}
	return nil
}

func (d *PaymasterDeployer) settle(
	ctx context.Context,
	current entities.Paymaster,
	outcomes map[string]entities.DeploymentResult,
	options DeployOptions,
) (entities.Paymaster, *apperrors.AppError) {
	now := d.clock.NowUTC()

	next := valueobjects.DeploymentStatusFailed
	retryable := false
	switch {
	case current.HasSuccessfulDeployment():
		next = valueobjects.DeploymentStatusDeployed
	case anyPendingFunding(outcomes):
		next = valueobjects.DeploymentStatusPendingFunding
		retryable = true
	case anyTransient(outcomes):
		// A timed-out call leaves the status where it was.
		next = current.DeploymentStatus
		retryable = true
	}
	if !current.DeploymentStatus.CanTransitionTo(next) {
		next = current.DeploymentStatus
	}

	attempts := current.DeploymentAttempts
	deadLetteredAt := current.DeadLetteredAt
	if options.ResetAttempts {
		attempts = 0
		deadLetteredAt = nil
	}

	command := dto.TransitionDeploymentStatusCommand{
		ID:              current.ID,
		ExpectedStatus:  current.DeploymentStatus,
		ExpectedVersion: current.Version,
		NextStatus:      next,
		UpdatedAt:       now,
	}
	newlyDeadLettered := false
	switch {
	case next == valueobjects.DeploymentStatusDeployed:
		command.DeploymentAttempts = attempts
		if anyTransient(outcomes) && !d.settings.RetryPolicy.Exhausted(attempts+1) {
			// Chains added to a live EVM paymaster are retried in the background.
			attempts++
			command.DeploymentAttempts = attempts
			nextRetryAt := d.settings.RetryPolicy.NextRetryAt(now, attempts)
			command.NextRetryAt = &nextRetryAt
		}
	case retryable:
		attempts++
		command.DeploymentAttempts = attempts
		command.LastError = outcomeSummary(outcomes)
		if d.settings.RetryPolicy.Exhausted(attempts) {
			if deadLetteredAt == nil {
				deadLetteredAt = &now
				newlyDeadLettered = true
			}
			command.DeadLetteredAt = deadLetteredAt
		} else {
			nextRetryAt := d.settings.RetryPolicy.NextRetryAt(now, attempts)
			command.NextRetryAt = &nextRetryAt
		}
	default:
		attempts++
		command.DeploymentAttempts = attempts
		command.LastError = outcomeSummary(outcomes)
	}

	updated, appErr := d.repository.TransitionStatusIfCurrent(ctx, command)
	if appErr != nil {
		return current, appErr
	}
	if !updated {
		return current, apperrors.NewConflict(
			"paymaster_concurrent_update",
			"paymaster was modified concurrently",
			map[string]any{"project_id": current.ProjectID, "category": current.ChainCategory.String()},
		)
	}

	current.DeploymentStatus = next
	current.DeploymentAttempts = command.DeploymentAttempts
	current.NextRetryAt = command.NextRetryAt
	current.DeadLetteredAt = command.DeadLetteredAt
	current.LastError = command.LastError
	current.Version++
	current.UpdatedAt = now

	d.logf(
		"paymaster deployment settled category=%s project_id=%s status=%s health=%s attempts=%d",
		current.ChainCategory,
		current.ProjectID,
		current.DeploymentStatus,
		current.Health(),
		current.DeploymentAttempts,
	)

	if newlyDeadLettered {
		d.notify(ctx, dto.AlertEvent{
			Type:       "deployment_dead_lettered",
			Severity:   "critical",
			State:      "triggered",
			ProjectID:  current.ProjectID,
			Category:   current.ChainCategory.String(),
			Message:    "paymaster deployment automatic retries exhausted",
			Details:    map[string]any{"attempts": attempts, "address": current.Address},
			OccurredAt: now,
		})
	}

	return current, nil
}

func (d *PaymasterDeployer) notify(ctx context.Context, event dto.AlertEvent) {
	if d.notifier == nil {
		return
	}
	if appErr := d.notifier.Notify(ctx, event); appErr != nil {
		d.logf("alert notify failed type=%s project_id=%s code=%s", event.Type, event.ProjectID, appErr.Code)
	}
}

func (d *PaymasterDeployer) logf(format string, args ...any) {
	if d.logger == nil {
		return
	}
	d.logger.Printf(format, args...)
}

// classifyChainCallError marks calls that ran out their own deadline as
// transient timeouts; cancellation of the parent context is passed through.
func classifyChainCallError(parent, call context.Context, appErr *apperrors.AppError) *apperrors.AppError {
	if appErr == nil {
		return nil
	}
	if parent.Err() == nil && stderrors.Is(call.Err(), context.DeadlineExceeded) {
		return apperrors.NewUnavailable(
			"chain_rpc_timeout",
			"chain call timed out",
			map[string]any{"cause": appErr.Code},
		)
	}
	return appErr
}

func failedResult(result entities.DeploymentResult, appErr *apperrors.AppError) entities.DeploymentResult {
	result.Status = valueobjects.ChainResultFailed
	result.Error = &entities.DeploymentError{Code: appErr.Code, Message: appErr.Message}
	return result
}

func pendingFundingResult(requirement *entities.FundingRequirement, appErr *apperrors.AppError) *entities.DeploymentResult {
	return &entities.DeploymentResult{
		Status:          valueobjects.ChainResultPendingFunding,
		Error:           &entities.DeploymentError{Code: appErr.Code, Message: appErr.Message},
		FundingRequired: requirement,
	}
}

func anyPendingFunding(outcomes map[string]entities.DeploymentResult) bool {
	for _, result := range outcomes {
		if result.Status == valueobjects.ChainResultPendingFunding {
			return true
		}
	}
	return false
}

func anyTransient(outcomes map[string]entities.DeploymentResult) bool {
	for _, result := range outcomes {
		if result.Transient() {
			return true
		}
	}
	return false
}

func outcomeSummary(outcomes map[string]entities.DeploymentResult) *string {
	parts := make([]string, 0, len(outcomes))
	for chain, result := range outcomes {
		if result.Error == nil {
			continue
		}
		parts = append(parts, chain+"="+result.Error.Code)
	}
	if len(parts) == 0 {
		return nil
	}
	sort.Strings(parts)
	summary := strings.Join(parts, ",")
	return &summary
}

func errorCode(deploymentErr *entities.DeploymentError) string {
	if deploymentErr == nil {
		return ""
	}
	return deploymentErr.Code
}

func toMinorUnits(amount decimal.Decimal, decimals int32) *big.Int {
	return amount.Shift(decimals).BigInt()
}

func fromMinorUnits(amount *big.Int, decimals int32) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -decimals)
}
