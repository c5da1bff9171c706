package paymaster

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"paymasterhub/internal/domain/entities"
	valueobjects "paymasterhub/internal/domain/value_objects"
	apperrors "paymasterhub/internal/shared_kernel/errors"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPaymaster(row rowScanner) (entities.Paymaster, error) {
	var (
		paymaster         entities.Paymaster
		category          string
		chainsJSON        []byte
		encryptedKey      []byte
		contractAddress   sql.NullString
		deploymentTx      sql.NullString
		entryPointAddress sql.NullString
		resultsJSON       []byte
		status            string
		nextRetryAt       sql.NullTime
		deadLetteredAt    sql.NullTime
		lastError         sql.NullString
	)

	if err := row.Scan(
		&paymaster.ID,
		&paymaster.ProjectID,
		&category,
		&chainsJSON,
		&paymaster.PrimaryDeploymentChain,
		&paymaster.Address,
		&encryptedKey,
		&contractAddress,
		&deploymentTx,
		&entryPointAddress,
		&resultsJSON,
		&status,
		&paymaster.IsActive,
		&paymaster.DeploymentAttempts,
		&nextRetryAt,
		&deadLetteredAt,
		&lastError,
		&paymaster.Version,
		&paymaster.CreatedAt,
		&paymaster.UpdatedAt,
	); err != nil {
		return entities.Paymaster{}, err
	}

	parsedCategory, appErr := valueobjects.ParseChainCategory(category)
	if appErr != nil {
		return entities.Paymaster{}, fmt.Errorf("invalid chain_category %q", category)
	}
	parsedStatus, appErr := valueobjects.ParseDeploymentStatus(status)
	if appErr != nil {
		return entities.Paymaster{}, fmt.Errorf("invalid deployment_status %q", status)
	}
	chains, appErr := decodeChains(chainsJSON)
	if appErr != nil {
		return entities.Paymaster{}, appErr
	}
	results := map[string]entities.DeploymentResult{}
	if len(resultsJSON) > 0 {
		if err := json.Unmarshal(resultsJSON, &results); err != nil {
			return entities.Paymaster{}, fmt.Errorf("decode deployment_results: %w", err)
		}
	}

	paymaster.ChainCategory = parsedCategory
	paymaster.DeploymentStatus = parsedStatus
	paymaster.SupportedChains = chains
	paymaster.DeploymentResults = results
	paymaster.EncryptedPrivateKey = valueobjects.NewEncryptedPrivateKey(encryptedKey)
	paymaster.ContractAddress = stringPtr(contractAddress)
	paymaster.DeploymentTx = stringPtr(deploymentTx)
	paymaster.EntryPointAddress = stringPtr(entryPointAddress)
	paymaster.NextRetryAt = timePtr(nextRetryAt)
	paymaster.DeadLetteredAt = timePtr(deadLetteredAt)
	paymaster.LastError = stringPtr(lastError)
	paymaster.CreatedAt = paymaster.CreatedAt.UTC()
	paymaster.UpdatedAt = paymaster.UpdatedAt.UTC()

	return paymaster, nil
}

func decodeChains(raw []byte) ([]string, *apperrors.AppError) {
	chains := []string{}
	if len(raw) == 0 {
		return chains, nil
	}
	if err := json.Unmarshal(raw, &chains); err != nil {
		return nil, apperrors.NewInternal(
			"paymaster_decode_failed",
			"failed to decode supported chains",
			map[string]any{"error": err.Error()},
		)
	}
	return chains, nil
}

func nonNilResults(results map[string]entities.DeploymentResult) map[string]entities.DeploymentResult {
	if results == nil {
		return map[string]entities.DeploymentResult{}
	}
	return results
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	out := value.String
	return &out
}

func timePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	out := value.Time.UTC()
	return &out
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC()
}

func nullableString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}
