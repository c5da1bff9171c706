package out

import (
	"context"
	"math/big"

	"paymasterhub/internal/application/dto"
	valueobjects "paymasterhub/internal/domain/value_objects"
	apperrors "paymasterhub/internal/shared_kernel/errors"
)

// ChainAdapter wraps one chain family. FundFromDeployer reports a shortfall as
// insufficient_deployer_balance and a missing deployer key as deployer_not_configured.
type ChainAdapter interface {
	Category() valueobjects.ChainCategory
	DeployerConfigured() bool
	Deploy(ctx context.Context, input dto.DeployPaymasterInput) (dto.DeployPaymasterOutput, *apperrors.AppError)
	FundFromDeployer(ctx context.Context, input dto.FundFromDeployerInput) (dto.FundFromDeployerOutput, *apperrors.AppError)
	GetNativeBalance(ctx context.Context, chain string, address string) (*big.Int, *apperrors.AppError)
}

type ChainAdapterSet map[valueobjects.ChainCategory]ChainAdapter
