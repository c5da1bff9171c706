//go:build !integration

package use_cases

import (
	"context"
	"math/big"
	"testing"
	"time"

	"paymasterhub/internal/application/dto"
	"paymasterhub/internal/domain/entities"
	valueobjects "paymasterhub/internal/domain/value_objects"
	apperrors "paymasterhub/internal/shared_kernel/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func provisionPendingSVM(t *testing.T, h *provisioningHarness, projectID string) {
	t.Helper()
	_, appErr := NewCreatePaymastersUseCase(h.provisionerDeps()).Execute(context.Background(), dto.ProvisionPaymastersCommand{
		ProjectID: projectID,
		Chains:    []string{"solana"},
	})
	require.Nil(t, appErr)

	paymaster, found := h.store.paymaster(projectID, valueobjects.ChainCategorySVM)
	require.True(t, found)
	require.Equal(t, valueobjects.DeploymentStatusPendingFunding, paymaster.DeploymentStatus)
}

func TestRetryFailedDeploymentsDeploysOnceFunded(t *testing.T) {
	h := newProvisioningHarness().withMinFunding("0", "0.05")
	provisionPendingSVM(t, h, "proj-retry")

	h.svm.setBalance("solana", big.NewInt(60_000_000))
	output, appErr := NewRetryFailedDeploymentsUseCase(h.retryDeps()).Execute(
		context.Background(),
		dto.RetryFailedDeploymentsCommand{ProjectID: "proj-retry"},
	)
	require.Nil(t, appErr)
	require.Len(t, output.Results, 1)
	assert.Equal(t, "SVM", output.Results[0].Category)
	assert.Equal(t, "deployed", output.Results[0].Status)
	assert.Nil(t, output.Results[0].Error)

	paymaster, _ := h.store.paymaster("proj-retry", valueobjects.ChainCategorySVM)
	assert.Equal(t, valueobjects.DeploymentStatusDeployed, paymaster.DeploymentStatus)
	assert.Zero(t, paymaster.DeploymentAttempts)
	assert.Nil(t, paymaster.NextRetryAt)
	require.NotNil(t, paymaster.ContractAddress)
	assert.Equal(t, "contract-solana", *paymaster.ContractAddress)
}

func TestRetryFailedDeploymentsRetriesFailedChainsOnly(t *testing.T) {
	h := newProvisioningHarness()
	h.evm.setDeployErr("ethereum", apperrors.NewUnavailable("chain_rpc_error", "boom", nil))
	h.evm.setDeployErr("base", apperrors.NewUnavailable("chain_rpc_error", "boom", nil))
	_, appErr := NewAddChainSupportUseCase(h.provisionerDeps()).Execute(context.Background(), dto.ProvisionPaymastersCommand{
		ProjectID: "proj-failed",
		Chains:    []string{"ethereum", "base"},
	})
	require.Nil(t, appErr)

	h.evm.setDeployErr("ethereum", nil)
	output, appErr := NewRetryFailedDeploymentsUseCase(h.retryDeps()).Execute(
		context.Background(),
		dto.RetryFailedDeploymentsCommand{ProjectID: "proj-failed"},
	)
	require.Nil(t, appErr)
	require.Len(t, output.Results, 1)
	assert.Equal(t, "deployed", output.Results[0].Status)
	assert.Equal(t, "partially_deployed", output.Results[0].Health)

	_, appErr = NewRetryFailedDeploymentsUseCase(h.retryDeps()).Execute(
		context.Background(),
		dto.RetryFailedDeploymentsCommand{ProjectID: "proj-failed"},
	)
	require.Nil(t, appErr)
	assert.Equal(t, 2, h.evm.deployCount("ethereum"))
	assert.Equal(t, 2, h.evm.deployCount("base"))
}

func TestRetryFailedDeploymentsReportsTerminalFailure(t *testing.T) {
	h := newProvisioningHarness()
	h.evm.setDeployErr("ethereum", apperrors.NewUnavailable("chain_rpc_error", "boom", nil))
	_, appErr := NewAddChainSupportUseCase(h.provisionerDeps()).Execute(context.Background(), dto.ProvisionPaymastersCommand{
		ProjectID: "proj-terminal",
		Chains:    []string{"ethereum"},
	})
	require.Nil(t, appErr)

	output, appErr := NewRetryFailedDeploymentsUseCase(h.retryDeps()).Execute(
		context.Background(),
		dto.RetryFailedDeploymentsCommand{ProjectID: "proj-terminal"},
	)
	require.Nil(t, appErr)
	require.Len(t, output.Results, 1)
	assert.Equal(t, "failed", output.Results[0].Status)
	require.NotNil(t, output.Results[0].Error)
	assert.Equal(t, "deployment_failed", output.Results[0].Error.Code)
}

func TestRetryFailedDeploymentsUnknownProject(t *testing.T) {
	h := newProvisioningHarness()

	_, appErr := NewRetryFailedDeploymentsUseCase(h.retryDeps()).Execute(
		context.Background(),
		dto.RetryFailedDeploymentsCommand{ProjectID: "missing"},
	)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.TypeNotFound, appErr.Type)
}

func TestRetryDueDeploymentsBacksOffThenDeadLetters(t *testing.T) {
	h := newProvisioningHarness().withMinFunding("0", "0.05")
	provisionPendingSVM(t, h, "proj-backoff")
	useCase := NewRetryDueDeploymentsUseCase(h.retryDeps())
	command := func() dto.RetryDueDeploymentsCommand {
		return dto.RetryDueDeploymentsCommand{Now: h.clock.NowUTC(), WorkerID: "worker-1"}
	}

	output, appErr := useCase.Execute(context.Background(), command())
	require.Nil(t, appErr)
	assert.Zero(t, output.Claimed, "retry is not due before the first backoff elapses")

	h.clock.Advance(time.Minute)
	output, appErr = useCase.Execute(context.Background(), command())
	require.Nil(t, appErr)
	assert.Equal(t, 1, output.Claimed)
	assert.Equal(t, 1, output.PendingFunding)

	paymaster, _ := h.store.paymaster("proj-backoff", valueobjects.ChainCategorySVM)
	assert.Equal(t, 2, paymaster.DeploymentAttempts)
	require.NotNil(t, paymaster.NextRetryAt)
	assert.Equal(t, h.clock.NowUTC().Add(2*time.Minute), *paymaster.NextRetryAt)

	h.clock.Advance(2 * time.Minute)
	output, appErr = useCase.Execute(context.Background(), command())
	require.Nil(t, appErr)
	assert.Equal(t, 1, output.DeadLettered)

	paymaster, _ = h.store.paymaster("proj-backoff", valueobjects.ChainCategorySVM)
	assert.Equal(t, 3, paymaster.DeploymentAttempts)
	assert.NotNil(t, paymaster.DeadLetteredAt)
	assert.Nil(t, paymaster.NextRetryAt)
	assert.Equal(t, []string{"deployment_dead_lettered"}, h.notifier.types())

	h.clock.Advance(time.Hour)
	output, appErr = useCase.Execute(context.Background(), command())
	require.Nil(t, appErr)
	assert.Zero(t, output.Claimed)
}

func TestRetryFailedDeploymentsClearsDeadLetter(t *testing.T) {
	h := newProvisioningHarness().withMinFunding("0", "0.05")
	provisionPendingSVM(t, h, "proj-revive")
	deadLetteredAt := testNow
	h.store.mutate("proj-revive", valueobjects.ChainCategorySVM, func(paymaster *entities.Paymaster) {
		paymaster.DeploymentAttempts = 3
		paymaster.DeadLetteredAt = &deadLetteredAt
		paymaster.NextRetryAt = nil
	})

	output, appErr := NewRetryFailedDeploymentsUseCase(h.retryDeps()).Execute(
		context.Background(),
		dto.RetryFailedDeploymentsCommand{ProjectID: "proj-revive"},
	)
	require.Nil(t, appErr)
	assert.Equal(t, "pending_funding", output.Results[0].Status)
	assert.False(t, output.Results[0].Summary.DeadLettered)

	paymaster, _ := h.store.paymaster("proj-revive", valueobjects.ChainCategorySVM)
	assert.Equal(t, 1, paymaster.DeploymentAttempts)
	assert.Nil(t, paymaster.DeadLetteredAt)
	assert.NotNil(t, paymaster.NextRetryAt)
}

func TestRetryDueDeploymentsRequiresWorkerID(t *testing.T) {
	h := newProvisioningHarness()

	_, appErr := NewRetryDueDeploymentsUseCase(h.retryDeps()).Execute(context.Background(), dto.RetryDueDeploymentsCommand{})
	require.NotNil(t, appErr)
	assert.Equal(t, "invalid_request", appErr.Code)
}

func TestPaymasterDeployerRejectsStaleVersion(t *testing.T) {
	h := newProvisioningHarness().withMinFunding("0", "0.05")
	provisionPendingSVM(t, h, "proj-stale")
	paymaster, _ := h.store.paymaster("proj-stale", valueobjects.ChainCategorySVM)

	h.store.mutate("proj-stale", valueobjects.ChainCategorySVM, func(stored *entities.Paymaster) {
		stored.Version++
	})
	current, _ := h.store.paymaster("proj-stale", valueobjects.ChainCategorySVM)
	require.NotEqual(t, paymaster.Version, current.Version)

	stale := &staleRepository{memoryStore: h.store, staleVersion: paymaster.Version}
	deployer := NewPaymasterDeployer(PaymasterDeployerDeps{
		Repository:   stale,
		Adapters:     h.adapters(),
		Cipher:       h.cipher,
		DeployerLock: h.deployerLock,
		Clock:        h.clock,
		Settings:     h.deployer.settings,
	})

	_, appErr := deployer.Deploy(context.Background(), paymaster, paymaster.DeploymentTargets(), DeployOptions{})
	require.NotNil(t, appErr)
	assert.Equal(t, "paymaster_concurrent_update", appErr.Code)
	assert.Equal(t, apperrors.TypeConflict, appErr.Type)
}

// staleRepository serves an outdated version on reload to force a lost CAS.
type staleRepository struct {
	*memoryStore
	staleVersion int64
}

func (r *staleRepository) FindByProjectAndCategory(
	ctx context.Context,
	projectID string,
	category valueobjects.ChainCategory,
) (entities.Paymaster, bool, *apperrors.AppError) {
	paymaster, found, appErr := r.memoryStore.FindByProjectAndCategory(ctx, projectID, category)
	paymaster.Version = r.staleVersion
	return paymaster, found, appErr
}
