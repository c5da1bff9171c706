package valueobjects

import apperrors "paymasterhub/internal/shared_kernel/errors"

type DeploymentStatus string

const (
	DeploymentStatusCreated        DeploymentStatus = "created"
	DeploymentStatusPendingFunding DeploymentStatus = "pending_funding"
	DeploymentStatusDeployed       DeploymentStatus = "deployed"
	DeploymentStatusFailed         DeploymentStatus = "failed"
)

var deploymentTransitions = map[DeploymentStatus]map[DeploymentStatus]struct{}{
	DeploymentStatusCreated: {
		DeploymentStatusCreated:        {},
		DeploymentStatusPendingFunding: {},
		DeploymentStatusDeployed:       {},
		DeploymentStatusFailed:         {},
	},
	DeploymentStatusPendingFunding: {
		DeploymentStatusPendingFunding: {},
		DeploymentStatusDeployed:       {},
		DeploymentStatusFailed:         {},
	},
	DeploymentStatusFailed: {
		DeploymentStatusPendingFunding: {},
		DeploymentStatusDeployed:       {},
		DeploymentStatusFailed:         {},
	},
	DeploymentStatusDeployed: {
		DeploymentStatusDeployed: {},
	},
}

func ParseDeploymentStatus(raw string) (DeploymentStatus, *apperrors.AppError) {
	status := DeploymentStatus(raw)
	if _, ok := deploymentTransitions[status]; !ok {
		return "", apperrors.NewInternal(
			"deployment_status_invalid",
			"deployment status is invalid",
			map[string]any{"status": raw},
		)
	}

	return status, nil
}

func (s DeploymentStatus) CanTransitionTo(next DeploymentStatus) bool {
	allowed, ok := deploymentTransitions[s]
	if !ok {
		return false
	}
	_, ok = allowed[next]
	return ok
}

// Retryable reports whether an explicit retry may re-run deployment.
func (s DeploymentStatus) Retryable() bool {
	return s == DeploymentStatusPendingFunding || s == DeploymentStatusFailed
}

func (s DeploymentStatus) String() string {
	return string(s)
}

type ChainResultStatus string

const (
	ChainResultDeployed       ChainResultStatus = "deployed"
	ChainResultFailed         ChainResultStatus = "failed"
	ChainResultPendingFunding ChainResultStatus = "pending_funding"
)

// DeploymentHealth is the operator-facing summary of one category's per-chain outcomes.
type DeploymentHealth string

const (
	DeploymentHealthPending           DeploymentHealth = "pending"
	DeploymentHealthFullyDeployed     DeploymentHealth = "fully_deployed"
	DeploymentHealthPartiallyDeployed DeploymentHealth = "partially_deployed"
	DeploymentHealthWaitingForFunding DeploymentHealth = "waiting_for_funding"
	DeploymentHealthFailed            DeploymentHealth = "failed"
)
