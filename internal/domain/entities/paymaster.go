package entities

import (
	"sort"
	"strings"
	"time"

	valueobjects "paymasterhub/internal/domain/value_objects"
	apperrors "paymasterhub/internal/shared_kernel/errors"
)

const chainRPCTimeoutCode = "chain_rpc_timeout"

type DeploymentError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type FundingRequirement struct {
	Chain   string `json:"chain"`
	Address string `json:"address"`
	Symbol  string `json:"symbol"`
	Amount  string `json:"amount"`
}

type DeploymentResult struct {
	Status            valueobjects.ChainResultStatus `json:"status"`
	ContractAddress   *string                        `json:"contract_address,omitempty"`
	TxHash            *string                        `json:"tx_hash,omitempty"`
	EntryPointAddress *string                        `json:"entry_point_address,omitempty"`
	FundingTxHash     *string                        `json:"funding_tx_hash,omitempty"`
	Error             *DeploymentError               `json:"error,omitempty"`
	FundingRequired   *FundingRequirement            `json:"funding_required,omitempty"`
	AttemptedAt       time.Time                      `json:"attempted_at"`
}

func (r DeploymentResult) Succeeded() bool {
	return r.Status == valueobjects.ChainResultDeployed && r.ContractAddress != nil
}

// Transient reports a chain call that ran out its deadline. The chain stays
// eligible for automatic retry.
func (r DeploymentResult) Transient() bool {
	return r.Status == valueobjects.ChainResultFailed && r.Error != nil && r.Error.Code == chainRPCTimeoutCode
}

type Paymaster struct {
	ID                     string
	ProjectID              string
	ChainCategory          valueobjects.ChainCategory
	SupportedChains        []string
	PrimaryDeploymentChain string
	Address                string
	EncryptedPrivateKey    valueobjects.EncryptedPrivateKey
	ContractAddress        *string
	DeploymentTx           *string
	EntryPointAddress      *string
	DeploymentResults      map[string]DeploymentResult
	DeploymentStatus       valueobjects.DeploymentStatus
	IsActive               bool
	DeploymentAttempts     int
	NextRetryAt            *time.Time
	DeadLetteredAt         *time.Time
	LastError              *string
	Version                int64
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

type NewPaymasterInput struct {
	ID                  string
	ProjectID           string
	ChainCategory       valueobjects.ChainCategory
	Chains              []string
	Address             string
	EncryptedPrivateKey valueobjects.EncryptedPrivateKey
	CreatedAt           time.Time
}

// NewPaymaster builds a record in the created state. The first chain becomes the
// primary deployment chain.
func NewPaymaster(input NewPaymasterInput) (Paymaster, *apperrors.AppError) {
	if input.ID == "" {
		return Paymaster{}, apperrors.NewInternal("paymaster_id_missing", "paymaster id is required", nil)
	}
	if strings.TrimSpace(input.ProjectID) == "" {
		return Paymaster{}, apperrors.NewValidation(
			"invalid_request",
			"project id is required",
			map[string]any{"field": "project_id"},
		)
	}
	if len(input.Chains) == 0 {
		return Paymaster{}, apperrors.NewValidation(
			"unsupported_chain",
			"at least one supported chain is required",
			map[string]any{"category": input.ChainCategory.String()},
		)
	}
	for _, chain := range input.Chains {
		spec, appErr := valueobjects.LookupChain(chain)
		if appErr != nil {
			return Paymaster{}, appErr
		}
		if spec.Category != input.ChainCategory {
			return Paymaster{}, apperrors.NewValidation(
				"unsupported_chain",
				"chain does not belong to paymaster category",
				map[string]any{"chain": chain, "category": input.ChainCategory.String()},
			)
		}
	}
	if appErr := valueobjects.ValidateAddress(input.ChainCategory, input.Address); appErr != nil {
		return Paymaster{}, appErr
	}
	if input.EncryptedPrivateKey.IsZero() {
		return Paymaster{}, apperrors.NewInternal(
			"paymaster_private_key_missing",
			"encrypted private key is required",
			nil,
		)
	}

	chains, _ := MergeChainSets(nil, input.Chains)
	return Paymaster{
		ID:                     input.ID,
		ProjectID:              input.ProjectID,
		ChainCategory:          input.ChainCategory,
		SupportedChains:        chains,
		PrimaryDeploymentChain: input.Chains[0],
		Address:                input.Address,
		EncryptedPrivateKey:    input.EncryptedPrivateKey,
		DeploymentResults:      map[string]DeploymentResult{},
		DeploymentStatus:       valueobjects.DeploymentStatusCreated,
		IsActive:               true,
		Version:                1,
		CreatedAt:              input.CreatedAt,
		UpdatedAt:              input.CreatedAt,
	}, nil
}

// MergeChainSets returns the sorted union of current and add, plus the members of
// add that were not already present.
func MergeChainSets(current, add []string) (merged []string, added []string) {
	set := make(map[string]struct{}, len(current)+len(add))
	for _, chain := range current {
		set[chain] = struct{}{}
	}
	for _, chain := range add {
		if _, ok := set[chain]; ok {
			continue
		}
		set[chain] = struct{}{}
		added = append(added, chain)
	}

	merged = make([]string, 0, len(set))
	for chain := range set {
		merged = append(merged, chain)
	}
	sort.Strings(merged)
	return merged, added
}

func (p Paymaster) HasChain(chain string) bool {
	for _, supported := range p.SupportedChains {
		if supported == chain {
			return true
		}
	}
	return false
}

func (p Paymaster) HasSuccessfulDeployment() bool {
	if p.ContractAddress != nil {
		return true
	}
	for _, result := range p.DeploymentResults {
		if result.Succeeded() {
			return true
		}
	}
	return false
}

// DeploymentTargets lists chains that still need an activation attempt. SVM
// chains share on-chain state, so only the primary chain is ever deployed.
func (p Paymaster) DeploymentTargets() []string {
	if p.ChainCategory == valueobjects.ChainCategorySVM {
		if result, ok := p.DeploymentResults[p.PrimaryDeploymentChain]; ok && result.Succeeded() {
			return nil
		}
		return []string{p.PrimaryDeploymentChain}
	}

	targets := make([]string, 0, len(p.SupportedChains))
	for _, chain := range p.SupportedChains {
		if result, ok := p.DeploymentResults[chain]; ok && result.Succeeded() {
			continue
		}
		targets = append(targets, chain)
	}
	return targets
}

func (p Paymaster) FundingRequirements() []FundingRequirement {
	out := []FundingRequirement{}
	for _, chain := range p.SupportedChains {
		result, ok := p.DeploymentResults[chain]
		if !ok || result.Status != valueobjects.ChainResultPendingFunding || result.FundingRequired == nil {
			continue
		}
		out = append(out, *result.FundingRequired)
	}
	return out
}

func (p Paymaster) Health() valueobjects.DeploymentHealth {
	switch p.DeploymentStatus {
	case valueobjects.DeploymentStatusPendingFunding:
		return valueobjects.DeploymentHealthWaitingForFunding
	case valueobjects.DeploymentStatusFailed:
		return valueobjects.DeploymentHealthFailed
	case valueobjects.DeploymentStatusDeployed:
		for _, chain := range p.expectedResultChains() {
			result, ok := p.DeploymentResults[chain]
			if !ok || !result.Succeeded() {
				return valueobjects.DeploymentHealthPartiallyDeployed
			}
		}
		return valueobjects.DeploymentHealthFullyDeployed
	default:
		return valueobjects.DeploymentHealthPending
	}
}

func (p Paymaster) expectedResultChains() []string {
	if p.ChainCategory == valueobjects.ChainCategorySVM {
		return []string{p.PrimaryDeploymentChain}
	}
	return p.SupportedChains
}

func (p Paymaster) RecordKey() string {
	return RecordKey(p.ProjectID, p.ChainCategory)
}

// RecordKey identifies the (project, category) pair every mutation serializes on.
func RecordKey(projectID string, category valueobjects.ChainCategory) string {
	return projectID + "|" + category.String()
}
