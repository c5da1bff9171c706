package use_cases

import (
	"context"
	"log"
	"sync"
	"time"

	"paymasterhub/internal/application/dto"
	portsout "paymasterhub/internal/application/ports/out"
	"paymasterhub/internal/domain/entities"
	valueobjects "paymasterhub/internal/domain/value_objects"
	apperrors "paymasterhub/internal/shared_kernel/errors"

	"golang.org/x/sync/errgroup"
)

const defaultBalanceRefreshConcurrency = 4

type BalanceLedgerDeps struct {
	Repository        portsout.PaymasterRepository
	BalanceRepository portsout.PaymasterBalanceRepository
	Adapters          portsout.ChainAdapterSet
	PriceOracle       portsout.PriceOracle
	Clock             Clock
	ChainCallTimeout  time.Duration
	MaxConcurrency    int
	Logger            *log.Logger
}

type balanceLedger struct {
	repository        portsout.PaymasterRepository
	balanceRepository portsout.PaymasterBalanceRepository
	adapters          portsout.ChainAdapterSet
	priceOracle       portsout.PriceOracle
	clock             Clock
	chainCallTimeout  time.Duration
	maxConcurrency    int
	logger            *log.Logger
}

func newBalanceLedger(deps BalanceLedgerDeps) *balanceLedger {
	clock := deps.Clock
	if clock == nil {
		clock = NewSystemClock()
	}
	timeout := deps.ChainCallTimeout
	if timeout <= 0 {
		timeout = defaultChainCallTimeout
	}
	concurrency := deps.MaxConcurrency
	if concurrency <= 0 {
		concurrency = defaultBalanceRefreshConcurrency
	}

	return &balanceLedger{
		repository:        deps.Repository,
		balanceRepository: deps.BalanceRepository,
		adapters:          deps.Adapters,
		priceOracle:       deps.PriceOracle,
		clock:             clock,
		chainCallTimeout:  timeout,
		maxConcurrency:    concurrency,
		logger:            deps.Logger,
	}
}

func (l *balanceLedger) validateReads() *apperrors.AppError {
	if l.balanceRepository == nil {
		return apperrors.NewInternal("balance_repository_missing", "balance repository is required", nil)
	}
	return nil
}

func (l *balanceLedger) validateRefresh() *apperrors.AppError {
	if appErr := l.validateReads(); appErr != nil {
		return appErr
	}
	if l.repository == nil {
		return apperrors.NewInternal("paymaster_repository_missing", "paymaster repository is required", nil)
	}
	if len(l.adapters) == 0 {
		return apperrors.NewInternal("chain_adapters_missing", "at least one chain adapter is required", nil)
	}
	if l.priceOracle == nil {
		return apperrors.NewInternal("price_oracle_missing", "price oracle is required", nil)
	}
	return nil
}

func (l *balanceLedger) balances(ctx context.Context, projectID string) (dto.BalancesOutput, *apperrors.AppError) {
	rows, appErr := l.balanceRepository.ListByProject(ctx, projectID)
	if appErr != nil {
		return dto.BalancesOutput{}, appErr
	}
	views, total := toBalanceViews(rows)
	return dto.BalancesOutput{
		ProjectID: projectID,
		Balances:  views,
		TotalUSD:  total,
	}, nil
}

// refreshPaymaster snapshots every supported chain of one paymaster. A failed
// chain keeps its previous row and is reported instead.
func (l *balanceLedger) refreshPaymaster(
	ctx context.Context,
	paymaster entities.Paymaster,
) (int, []dto.BalanceRefreshError) {
	adapter, ok := l.adapters[paymaster.ChainCategory]
	if !ok || adapter == nil {
		failures := make([]dto.BalanceRefreshError, 0, len(paymaster.SupportedChains))
		for _, chain := range paymaster.SupportedChains {
			failures = append(failures, dto.BalanceRefreshError{
				ProjectID: paymaster.ProjectID,
				Chain:     chain,
				Code:      "chain_adapter_missing",
				Message:   "no chain adapter configured for category",
			})
		}
		return 0, failures
	}

	updated := 0
	var failures []dto.BalanceRefreshError
	for _, chain := range paymaster.SupportedChains {
		if appErr := l.refreshChain(ctx, adapter, paymaster, chain); appErr != nil {
			l.logf(
				"balance refresh chain failed project_id=%s chain=%s code=%s",
				paymaster.ProjectID,
				chain,
				appErr.Code,
			)
			failures = append(failures, dto.BalanceRefreshError{
				ProjectID: paymaster.ProjectID,
				Chain:     chain,
				Code:      appErr.Code,
				Message:   appErr.Message,
			})
			continue
		}
		updated++
	}
	return updated, failures
}

func (l *balanceLedger) refreshChain(
	ctx context.Context,
	adapter portsout.ChainAdapter,
	paymaster entities.Paymaster,
	chain string,
) *apperrors.AppError {
	spec, appErr := valueobjects.LookupChain(chain)
	if appErr != nil {
		return appErr
	}

	callCtx, cancel := context.WithTimeout(ctx, l.chainCallTimeout)
	minor, appErr := adapter.GetNativeBalance(callCtx, spec.ID, paymaster.Address)
	if appErr != nil {
		appErr = classifyChainCallError(ctx, callCtx, appErr)
	}
	cancel()
	if appErr != nil {
		return appErr
	}

	quote := l.priceOracle.PriceUSD(ctx, spec)
	snapshot, appErr := entities.NewBalanceSnapshot(entities.BalanceSnapshotInput{
		ProjectID:     paymaster.ProjectID,
		Chain:         spec.ID,
		Address:       paymaster.Address,
		Symbol:        spec.Symbol,
		BalanceNative: fromMinorUnits(minor, spec.Decimals),
		PriceUSD:      quote.PriceUSD,
		ObservedAt:    l.clock.NowUTC(),
	})
	if appErr != nil {
		return appErr
	}
	return l.balanceRepository.Upsert(ctx, snapshot)
}

func (l *balanceLedger) refreshMany(
	ctx context.Context,
	paymasters []entities.Paymaster,
) (int, []dto.BalanceRefreshError) {
	var (
		mu       sync.Mutex
		updated  int
		failures []dto.BalanceRefreshError
	)

	group := new(errgroup.Group)
	group.SetLimit(l.maxConcurrency)
	for _, paymaster := range paymasters {
		group.Go(func() error {
			count, errs := l.refreshPaymaster(ctx, paymaster)

			mu.Lock()
			defer mu.Unlock()
			updated += count
			failures = append(failures, errs...)
			return nil
		})
	}
	_ = group.Wait()

	return updated, failures
}

func (l *balanceLedger) logf(format string, args ...any) {
	if l.logger == nil {
		return
	}
	l.logger.Printf(format, args...)
}
