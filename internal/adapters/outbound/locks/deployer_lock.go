package locks

import (
	"context"
	"log"
	"time"

	"paymasterhub/internal/adapters/outbound/redisstore"
	portsout "paymasterhub/internal/application/ports/out"
	valueobjects "paymasterhub/internal/domain/value_objects"
	apperrors "paymasterhub/internal/shared_kernel/errors"

	"github.com/google/uuid"
)

const (
	errorCodeDeployerLockUnavailable = "deployer_lock_unavailable"

	deployerLockKeyPrefix      = "paymasterhub:deployer-lock:"
	defaultDeployerLockTTL     = 2 * time.Minute
	defaultDeployerLockPolling = 200 * time.Millisecond
	releaseTimeout             = 5 * time.Second
)

type DeployerLockConfig struct {
	TTL          time.Duration
	PollInterval time.Duration
}

// DeployerLock guards the deployer wallet of each category. The in-process
// slot is always taken first; when a shared store is configured the holder
// also owns a token key so replicas do not race on the deployer nonce.
type DeployerLock struct {
	local        *RecordLocker
	shared       redisstore.Store
	ttl          time.Duration
	pollInterval time.Duration
	logger       *log.Logger
}

var _ portsout.DeployerLock = (*DeployerLock)(nil)

func NewDeployerLock(cfg DeployerLockConfig, shared redisstore.Store, logger *log.Logger) *DeployerLock {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultDeployerLockTTL
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultDeployerLockPolling
	}

	return &DeployerLock{
		local:        NewRecordLocker(),
		shared:       shared,
		ttl:          ttl,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

func (l *DeployerLock) Acquire(ctx context.Context, category valueobjects.ChainCategory) (func(), *apperrors.AppError) {
	releaseLocal, appErr := l.local.Lock(ctx, category.String())
	if appErr != nil {
		return nil, appErr
	}
	if l.shared == nil {
		return releaseLocal, nil
	}

	key := deployerLockKeyPrefix + category.String()
	token := uuid.NewString()
	if appErr := l.acquireShared(ctx, key, token); appErr != nil {
		releaseLocal()
		return nil, appErr
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		if _, err := l.shared.DeleteIfValue(releaseCtx, key, token); err != nil {
			l.logf("deployer lock release failed category=%s error=%s", category, err.Error())
		}
		releaseLocal()
	}, nil
}

func (l *DeployerLock) acquireShared(ctx context.Context, key string, token string) *apperrors.AppError {
	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		acquired, err := l.shared.SetNX(ctx, key, token, l.ttl)
		if err != nil {
			return apperrors.NewUnavailable(
				errorCodeDeployerLockUnavailable,
				"deployer lock store unavailable",
				map[string]any{"key": key, "error": err.Error()},
			)
		}
		if acquired {
			return nil
		}

		select {
		case <-ctx.Done():
			return apperrors.NewUnavailable(
				errorCodeLockWaitCancelled,
				"lock wait cancelled",
				map[string]any{"key": key},
			)
		case <-ticker.C:
		}
	}
}

func (l *DeployerLock) logf(format string, args ...any) {
	if l.logger == nil {
		return
	}
	l.logger.Printf(format, args...)
}
