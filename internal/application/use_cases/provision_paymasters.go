package use_cases

import (
	"context"
	"log"
	"time"

	"paymasterhub/internal/application/dto"
	portsout "paymasterhub/internal/application/ports/out"
	"paymasterhub/internal/domain/entities"
	valueobjects "paymasterhub/internal/domain/value_objects"
	apperrors "paymasterhub/internal/shared_kernel/errors"

	"github.com/google/uuid"
)

type provisionMode string

const (
	provisionModeCreate   provisionMode = "create"
	provisionModeAddChain provisionMode = "add_chain"
)

type ProvisionerDeps struct {
	Repository        portsout.PaymasterRepository
	BalanceRepository portsout.PaymasterBalanceRepository
	KeyDeriver        portsout.KeyDeriver
	Cipher            portsout.SecretCipher
	Locker            portsout.RecordLocker
	Deployer          *PaymasterDeployer
	Clock             Clock
	IDGenerator       func() string
	Logger            *log.Logger
}

type provisioner struct {
	repository        portsout.PaymasterRepository
	balanceRepository portsout.PaymasterBalanceRepository
	keyDeriver        portsout.KeyDeriver
	cipher            portsout.SecretCipher
	locker            portsout.RecordLocker
	deployer          *PaymasterDeployer
	clock             Clock
	newID             func() string
	logger            *log.Logger
}

func newProvisioner(deps ProvisionerDeps) *provisioner {
	clock := deps.Clock
	if clock == nil {
		clock = NewSystemClock()
	}
	newID := deps.IDGenerator
	if newID == nil {
		newID = uuid.NewString
	}

	return &provisioner{
		repository:        deps.Repository,
		balanceRepository: deps.BalanceRepository,
		keyDeriver:        deps.KeyDeriver,
		cipher:            deps.Cipher,
		locker:            deps.Locker,
		deployer:          deps.Deployer,
		clock:             clock,
		newID:             newID,
		logger:            deps.Logger,
	}
}

func (p *provisioner) validate() *apperrors.AppError {
	if p.repository == nil {
		return apperrors.NewInternal("paymaster_repository_missing", "paymaster repository is required", nil)
	}
	if p.balanceRepository == nil {
		return apperrors.NewInternal("balance_repository_missing", "balance repository is required", nil)
	}
	if p.keyDeriver == nil {
		return apperrors.NewInternal("key_deriver_missing", "key deriver is required", nil)
	}
	if p.cipher == nil {
		return apperrors.NewInternal("secret_cipher_missing", "secret cipher is required", nil)
	}
	if p.locker == nil {
		return apperrors.NewInternal("record_locker_missing", "record locker is required", nil)
	}
	if p.deployer == nil {
		return apperrors.NewInternal("paymaster_deployer_missing", "paymaster deployer is required", nil)
	}
	return nil
}

type categoryOutcome struct {
	category  valueobjects.ChainCategory
	paymaster entities.Paymaster
	err       *apperrors.AppError
}

func (p *provisioner) provision(
	ctx context.Context,
	command dto.ProvisionPaymastersCommand,
	mode provisionMode,
) (dto.ProvisionPaymastersOutput, *apperrors.AppError) {
	if appErr := p.validate(); appErr != nil {
		return dto.ProvisionPaymastersOutput{}, appErr
	}

	projectID, appErr := validateProjectID(command.ProjectID)
	if appErr != nil {
		return dto.ProvisionPaymastersOutput{}, appErr
	}
	if len(command.Chains) == 0 {
		return dto.ProvisionPaymastersOutput{}, apperrors.NewValidation(
			"invalid_request",
			"at least one chain is required",
			map[string]any{"field": "chains"},
		)
	}

	groups, ignored := valueobjects.GroupChainsByCategory(command.Chains)
	for _, chain := range ignored {
		p.logf("paymaster provisioning ignored chain project_id=%s chain=%s", projectID, chain)
	}
	if len(groups) == 0 {
		return dto.ProvisionPaymastersOutput{}, apperrors.NewValidation(
			"unsupported_chain",
			"no supported chain in request",
			map[string]any{"chains": command.Chains},
		)
	}

	existing, appErr := p.repository.FindByProject(ctx, projectID)
	if appErr != nil {
		return dto.ProvisionPaymastersOutput{}, appErr
	}
	newProject := len(existing) == 0

	outcomes := make([]categoryOutcome, 0, len(groups))
	for _, group := range groups {
		paymaster, categoryErr := p.provisionCategory(ctx, projectID, group)
		outcomes = append(outcomes, categoryOutcome{category: group.Category, paymaster: paymaster, err: categoryErr})
		if categoryErr != nil {
			p.logf(
				"paymaster provisioning category failed category=%s project_id=%s code=%s",
				group.Category,
				projectID,
				categoryErr.Code,
			)
		}
	}

	if mode == provisionModeCreate && newProject && !anyCategoryUsable(outcomes) {
		return dto.ProvisionPaymastersOutput{}, p.compensate(ctx, projectID, groups, outcomes)
	}

	if firstErr := allCategoriesErrored(outcomes); firstErr != nil {
		return dto.ProvisionPaymastersOutput{}, firstErr
	}

	output := dto.ProvisionPaymastersOutput{
		ProjectID:     projectID,
		Paymasters:    make([]dto.PaymasterSummary, 0, len(outcomes)),
		IgnoredChains: ignored,
	}
	for _, outcome := range outcomes {
		output.Paymasters = append(output.Paymasters, p.outcomeSummary(ctx, projectID, outcome))
	}

	p.logf(
		"paymaster provisioning completed mode=%s project_id=%s categories=%d ignored=%d",
		mode,
		projectID,
		len(output.Paymasters),
		len(ignored),
	)
	return output, nil
}

func (p *provisioner) provisionCategory(
	ctx context.Context,
	projectID string,
	group valueobjects.ChainGroup,
) (entities.Paymaster, *apperrors.AppError) {
	release, appErr := p.locker.Lock(ctx, entities.RecordKey(projectID, group.Category))
	if appErr != nil {
		return entities.Paymaster{}, appErr
	}
	defer release()

	current, found, appErr := p.repository.FindByProjectAndCategory(ctx, projectID, group.Category)
	if appErr != nil {
		return entities.Paymaster{}, appErr
	}
	if !found {
		created, createErr := p.createRecord(ctx, projectID, group)
		if createErr == nil {
			p.logf(
				"paymaster provisioning category=%s project_id=%s status=%s address=%s",
				group.Category,
				projectID,
				created.DeploymentStatus,
				created.Address,
			)
			return p.deployer.Deploy(ctx, created, created.DeploymentTargets(), DeployOptions{})
		}
		if createErr.Code != "duplicate_category" {
			return entities.Paymaster{}, createErr
		}

		current, found, appErr = p.repository.FindByProjectAndCategory(ctx, projectID, group.Category)
		if appErr != nil {
			return entities.Paymaster{}, appErr
		}
		if !found {
			return entities.Paymaster{}, createErr
		}
	}

	return p.extendRecord(ctx, current, group)
}

func (p *provisioner) createRecord(
	ctx context.Context,
	projectID string,
	group valueobjects.ChainGroup,
) (entities.Paymaster, *apperrors.AppError) {
	derived, appErr := p.keyDeriver.Derive(projectID, group.Category)
	if appErr != nil {
		return entities.Paymaster{}, appErr
	}
	sealed, appErr := p.cipher.Seal(derived.PrivateKey)
	wipe(derived.PrivateKey)
	if appErr != nil {
		return entities.Paymaster{}, appErr
	}

	now := p.clock.NowUTC()
	paymaster, appErr := entities.NewPaymaster(entities.NewPaymasterInput{
		ID:                  p.newID(),
		ProjectID:           projectID,
		ChainCategory:       group.Category,
		Chains:              group.Chains,
		Address:             derived.Address,
		EncryptedPrivateKey: sealed,
		CreatedAt:           now,
	})
	if appErr != nil {
		return entities.Paymaster{}, appErr
	}
	if appErr := p.repository.Create(ctx, paymaster); appErr != nil {
		return entities.Paymaster{}, appErr
	}
	if appErr := p.ensureBalanceRows(ctx, paymaster, paymaster.SupportedChains, now); appErr != nil {
		return entities.Paymaster{}, appErr
	}
	return paymaster, nil
}

func (p *provisioner) extendRecord(
	ctx context.Context,
	current entities.Paymaster,
	group valueobjects.ChainGroup,
) (entities.Paymaster, *apperrors.AppError) {
	now := p.clock.NowUTC()
	added, appErr := p.repository.UpdateChains(ctx, current.ProjectID, current.ChainCategory, group.Chains, now)
	if appErr != nil {
		return entities.Paymaster{}, appErr
	}
	if len(added) > 0 {
		if appErr := p.ensureBalanceRows(ctx, current, added, now); appErr != nil {
			return entities.Paymaster{}, appErr
		}
		reloaded, found, appErr := p.repository.FindByProjectAndCategory(ctx, current.ProjectID, current.ChainCategory)
		if appErr != nil {
			return entities.Paymaster{}, appErr
		}
		if found {
			current = reloaded
		}
	}

	p.logf(
		"paymaster provisioning category=%s project_id=%s status=%s added_chains=%d",
		current.ChainCategory,
		current.ProjectID,
		current.DeploymentStatus,
		len(added),
	)

	switch {
	case current.DeploymentStatus == valueobjects.DeploymentStatusCreated:
		return p.deployer.Deploy(ctx, current, current.DeploymentTargets(), DeployOptions{})
	case current.ChainCategory == valueobjects.ChainCategoryEVM &&
		current.DeploymentStatus == valueobjects.DeploymentStatusDeployed &&
		len(added) > 0:
		return p.deployer.Deploy(ctx, current, added, DeployOptions{})
	default:
		return current, nil
	}
}

func (p *provisioner) ensureBalanceRows(
	ctx context.Context,
	paymaster entities.Paymaster,
	chains []string,
	now time.Time,
) *apperrors.AppError {
	rows := make([]entities.PaymasterBalance, 0, len(chains))
	for _, chain := range chains {
		spec, appErr := valueobjects.LookupChain(chain)
		if appErr != nil {
			return appErr
		}
		rows = append(rows, entities.NewZeroBalance(paymaster.ProjectID, spec.ID, paymaster.Address, spec.Symbol, now))
	}
	return p.balanceRepository.EnsureRows(ctx, rows)
}

func (p *provisioner) compensate(
	ctx context.Context,
	projectID string,
	groups []valueobjects.ChainGroup,
	outcomes []categoryOutcome,
) *apperrors.AppError {
	details := map[string]any{"project_id": projectID}
	categories := make(map[string]any, len(outcomes))
	for index, outcome := range outcomes {
		category := groups[index].Category.String()
		if outcome.err != nil {
			categories[category] = map[string]any{"code": outcome.err.Code, "message": outcome.err.Message}
			continue
		}
		categories[category] = categoryFailureDetails(outcome.paymaster)
	}
	details["categories"] = categories

	deleted, appErr := p.repository.Delete(ctx, projectID)
	if appErr != nil {
		p.logf("paymaster provisioning compensation failed project_id=%s code=%s", projectID, appErr.Code)
		details["compensation_error"] = appErr.Code
	} else {
		p.logf(
			"paymaster provisioning compensated project_id=%s paymasters_deleted=%d balances_deleted=%d",
			projectID,
			deleted.PaymastersDeleted,
			deleted.BalancesDeleted,
		)
	}

	return apperrors.NewInternal("deployment_failed", "paymaster deployment failed for every category", details)
}

// outcomeSummary reports a category that errored alongside the others. The
// record, if one was persisted before the error, stays in place for a retry.
func (p *provisioner) outcomeSummary(ctx context.Context, projectID string, outcome categoryOutcome) dto.PaymasterSummary {
	if outcome.err == nil {
		return toPaymasterSummary(outcome.paymaster)
	}

	summary := dto.PaymasterSummary{
		Category:          outcome.category.String(),
		DeploymentResults: map[string]dto.ChainDeploymentResult{},
	}
	current, found, appErr := p.repository.FindByProjectAndCategory(ctx, projectID, outcome.category)
	if appErr == nil && found {
		summary = toPaymasterSummary(current)
	}
	summary.Error = &dto.ErrorView{Code: outcome.err.Code, Message: outcome.err.Message}
	return summary
}

func (p *provisioner) logf(format string, args ...any) {
	if p.logger == nil {
		return
	}
	p.logger.Printf(format, args...)
}

// anyCategoryUsable reports whether some category is deployed, waiting for
// funding or scheduled for an automatic retry.
func anyCategoryUsable(outcomes []categoryOutcome) bool {
	for _, outcome := range outcomes {
		if outcome.err != nil {
			continue
		}
		switch outcome.paymaster.DeploymentStatus {
		case valueobjects.DeploymentStatusDeployed, valueobjects.DeploymentStatusPendingFunding:
			return true
		}
		if outcome.paymaster.NextRetryAt != nil {
			return true
		}
	}
	return false
}

func allCategoriesErrored(outcomes []categoryOutcome) *apperrors.AppError {
	var first *apperrors.AppError
	for _, outcome := range outcomes {
		if outcome.err == nil {
			return nil
		}
		if first == nil {
			first = outcome.err
		}
	}
	return first
}

func categoryFailureDetails(paymaster entities.Paymaster) map[string]any {
	errorsByChain := make(map[string]any, len(paymaster.DeploymentResults))
	for chain, result := range paymaster.DeploymentResults {
		if result.Error == nil {
			continue
		}
		errorsByChain[chain] = map[string]any{"code": result.Error.Code, "message": result.Error.Message}
	}
	return map[string]any{"status": paymaster.DeploymentStatus.String(), "errors": errorsByChain}
}

func wipe(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}
