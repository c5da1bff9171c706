package dto

import (
	"time"

	"paymasterhub/internal/domain/entities"
	valueobjects "paymasterhub/internal/domain/value_objects"
)

type TransitionDeploymentStatusCommand struct {
	ID                 string
	ExpectedStatus     valueobjects.DeploymentStatus
	ExpectedVersion    int64
	NextStatus         valueobjects.DeploymentStatus
	DeploymentAttempts int
	NextRetryAt        *time.Time
	DeadLetteredAt     *time.Time
	LastError          *string
	UpdatedAt          time.Time
}

type ClaimRetryDueCommand struct {
	Now        time.Time
	LeaseOwner string
	LeaseUntil time.Time
	Limit      int
}

type DeleteProjectResult struct {
	PaymastersDeleted int64
	BalancesDeleted   int64
}

type ChainResultUpdate struct {
	PaymasterID string
	Chain       string
	Result      entities.DeploymentResult
}

type CanonicalDeployment struct {
	PaymasterID       string
	ContractAddress   string
	DeploymentTx      string
	EntryPointAddress string
	UpdatedAt         time.Time
}
