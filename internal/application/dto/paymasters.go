package dto

import "time"

type ProvisionPaymastersCommand struct {
	ProjectID string
	Chains    []string
}

type ProvisionPaymastersOutput struct {
	ProjectID     string             `json:"project_id"`
	Paymasters    []PaymasterSummary `json:"paymasters"`
	IgnoredChains []string           `json:"ignored_chains,omitempty"`
}

type PaymasterSummary struct {
	Category               string                           `json:"category"`
	Address                string                           `json:"address"`
	Status                 string                           `json:"status"`
	Health                 string                           `json:"health"`
	SupportedChains        []string                         `json:"supported_chains"`
	PrimaryDeploymentChain string                           `json:"primary_deployment_chain"`
	ContractAddress        *string                          `json:"contract_address,omitempty"`
	DeploymentTx           *string                          `json:"deployment_tx,omitempty"`
	EntryPointAddress      *string                          `json:"entry_point_address,omitempty"`
	DeploymentResults      map[string]ChainDeploymentResult `json:"deployment_results"`
	FundingRequired        []FundingRequirement             `json:"funding_required,omitempty"`
	IsActive               bool                             `json:"is_active"`
	DeploymentAttempts     int                              `json:"deployment_attempts"`
	NextRetryAt            *time.Time                       `json:"next_retry_at,omitempty"`
	DeadLettered           bool                             `json:"dead_lettered"`
	Error                  *ErrorView                       `json:"error,omitempty"`
}

type ChainDeploymentResult struct {
	Status            string     `json:"status"`
	ContractAddress   *string    `json:"contract_address,omitempty"`
	TxHash            *string    `json:"tx_hash,omitempty"`
	EntryPointAddress *string    `json:"entry_point_address,omitempty"`
	FundingTxHash     *string    `json:"funding_tx_hash,omitempty"`
	Error             *ErrorView `json:"error,omitempty"`
	AttemptedAt       time.Time  `json:"attempted_at"`
}

type ErrorView struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type FundingRequirement struct {
	Chain   string `json:"chain"`
	Address string `json:"address"`
	Symbol  string `json:"symbol"`
	Amount  string `json:"amount"`
}

type GetAddressesQuery struct {
	ProjectID string
}

type GetAddressesOutput struct {
	ProjectID string            `json:"project_id"`
	Addresses map[string]string `json:"addresses"`
}

type RetryFailedDeploymentsCommand struct {
	ProjectID string
}

type RetryFailedDeploymentsOutput struct {
	ProjectID string                `json:"project_id"`
	Results   []RetryCategoryResult `json:"results"`
}

type RetryCategoryResult struct {
	Category string           `json:"category"`
	Status   string           `json:"status"`
	Health   string           `json:"health"`
	Error    *ErrorView       `json:"error,omitempty"`
	Summary  PaymasterSummary `json:"paymaster"`
}

type RetryDueDeploymentsCommand struct {
	Now           time.Time
	WorkerID      string
	BatchSize     int
	LeaseDuration time.Duration
}

type RetryDueDeploymentsOutput struct {
	Claimed        int
	Deployed       int
	PendingFunding int
	Rescheduled    int
	Failed         int
	DeadLettered   int
	Errors         int
}

type FundPaymasterCommand struct {
	ProjectID string
	Chain     string
	Amount    string
}

type FundingInstructions struct {
	ProjectID      string  `json:"project_id"`
	Chain          string  `json:"chain"`
	Category       string  `json:"category"`
	Address        string  `json:"address"`
	Symbol         string  `json:"symbol"`
	Amount         string  `json:"amount"`
	MinimumFunding string  `json:"minimum_funding"`
	Mode           string  `json:"mode"`
	TxHash         *string `json:"tx_hash,omitempty"`
}

type CleanupProjectCommand struct {
	ProjectID string
}

type CleanupProjectOutput struct {
	ProjectID         string `json:"project_id"`
	PaymastersDeleted int64  `json:"paymasters_deleted"`
	BalancesDeleted   int64  `json:"balances_deleted"`
}

type SetPaymasterActiveCommand struct {
	ProjectID string
	Category  string
	Active    bool
}

type GetDeploymentHealthSummaryQuery struct{}

type DeploymentHealthSummary struct {
	Created        int64 `json:"created"`
	PendingFunding int64 `json:"pending_funding"`
	Deployed       int64 `json:"deployed"`
	Failed         int64 `json:"failed"`
	DeadLettered   int64 `json:"dead_lettered"`
	Total          int64 `json:"total"`
}

type DerivedKey struct {
	Address    string
	PrivateKey []byte
}
