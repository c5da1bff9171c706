package paymaster

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"log"
	"strings"
	"time"

	"paymasterhub/internal/application/dto"
	portsout "paymasterhub/internal/application/ports/out"
	"paymasterhub/internal/domain/entities"
	valueobjects "paymasterhub/internal/domain/value_objects"
	apperrors "paymasterhub/internal/shared_kernel/errors"

	"github.com/jackc/pgx/v5/pgconn"
)

type Repository struct {
	db     *sql.DB
	logger *log.Logger
}

var _ portsout.PaymasterRepository = (*Repository)(nil)

func NewRepository(db *sql.DB, logger *log.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

func paymasterColumns(alias string) string {
	columns := []string{
		"id",
		"project_id",
		"chain_category",
		"supported_chains",
		"primary_deployment_chain",
		"address",
		"encrypted_private_key",
		"contract_address",
		"deployment_tx",
		"entry_point_address",
		"deployment_results",
		"deployment_status",
		"is_active",
		"deployment_attempts",
		"next_retry_at",
		"dead_lettered_at",
		"last_error",
		"version",
		"created_at",
		"updated_at",
	}
	if alias == "" {
		return strings.Join(columns, ",\n  ")
	}
	for i, column := range columns {
		columns[i] = alias + "." + column
	}
	return strings.Join(columns, ",\n  ")
}

func (r *Repository) Create(ctx context.Context, paymaster entities.Paymaster) *apperrors.AppError {
	chainsJSON, err := json.Marshal(paymaster.SupportedChains)
	if err != nil {
		return apperrors.NewInternal(
			"paymaster_encode_failed",
			"failed to encode supported chains",
			map[string]any{"error": err.Error()},
		)
	}
	resultsJSON, err := json.Marshal(nonNilResults(paymaster.DeploymentResults))
	if err != nil {
		return apperrors.NewInternal(
			"paymaster_encode_failed",
			"failed to encode deployment results",
			map[string]any{"error": err.Error()},
		)
	}

	const query = `
INSERT INTO app.paymasters (
  id,
  project_id,
  chain_category,
  supported_chains,
  primary_deployment_chain,
  address,
  encrypted_private_key,
  deployment_results,
  deployment_status,
  is_active,
  deployment_attempts,
  version,
  created_at,
  updated_at
) VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7, $8::jsonb, $9, $10, $11, $12, $13, $14)
`

	_, err = r.db.ExecContext(
		ctx,
		query,
		paymaster.ID,
		paymaster.ProjectID,
		paymaster.ChainCategory.String(),
		string(chainsJSON),
		paymaster.PrimaryDeploymentChain,
		paymaster.Address,
		paymaster.EncryptedPrivateKey.Ciphertext(),
		string(resultsJSON),
		paymaster.DeploymentStatus.String(),
		paymaster.IsActive,
		paymaster.DeploymentAttempts,
		paymaster.Version,
		paymaster.CreatedAt.UTC(),
		paymaster.UpdatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflict(
				"duplicate_category",
				"project already has a paymaster for this chain category",
				map[string]any{"project_id": paymaster.ProjectID, "category": paymaster.ChainCategory.String()},
			)
		}
		return apperrors.NewInternal(
			"paymaster_insert_failed",
			"failed to insert paymaster",
			map[string]any{"error": err.Error()},
		)
	}

	return nil
}

func (r *Repository) FindByProjectAndCategory(
	ctx context.Context,
	projectID string,
	category valueobjects.ChainCategory,
) (entities.Paymaster, bool, *apperrors.AppError) {
	query := `
SELECT
  ` + paymasterColumns("") + `
FROM app.paymasters
WHERE project_id = $1 AND chain_category = $2
`

	paymaster, err := scanPaymaster(r.db.QueryRowContext(ctx, query, projectID, category.String()))
	if stderrors.Is(err, sql.ErrNoRows) {
		return entities.Paymaster{}, false, nil
	}
	if err != nil {
		return entities.Paymaster{}, false, queryFailed("failed to load paymaster", err)
	}

	return paymaster, true, nil
}

func (r *Repository) FindByProject(ctx context.Context, projectID string) ([]entities.Paymaster, *apperrors.AppError) {
	query := `
SELECT
  ` + paymasterColumns("") + `
FROM app.paymasters
WHERE project_id = $1
ORDER BY chain_category ASC
`

	return r.queryPaymasters(ctx, query, projectID)
}

func (r *Repository) ListActive(ctx context.Context) ([]entities.Paymaster, *apperrors.AppError) {
	query := `
SELECT
  ` + paymasterColumns("") + `
FROM app.paymasters
WHERE is_active = TRUE
ORDER BY project_id ASC, chain_category ASC
`

	return r.queryPaymasters(ctx, query)
}

func (r *Repository) UpdateChains(
	ctx context.Context,
	projectID string,
	category valueobjects.ChainCategory,
	add []string,
	updatedAt time.Time,
) ([]string, *apperrors.AppError) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, apperrors.NewInternal(
			"paymaster_tx_begin_failed",
			"failed to start paymaster transaction",
			map[string]any{"error": err.Error()},
		)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const selectQuery = `
SELECT id, supported_chains
FROM app.paymasters
WHERE project_id = $1 AND chain_category = $2
FOR UPDATE
`

	var (
		id         string
		chainsJSON []byte
	)
	if err := tx.QueryRowContext(ctx, selectQuery, projectID, category.String()).Scan(&id, &chainsJSON); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound(
				"paymaster_not_found",
				"paymaster not found",
				map[string]any{"project_id": projectID, "category": category.String()},
			)
		}
		return nil, queryFailed("failed to lock paymaster chains", err)
	}

	current, appErr := decodeChains(chainsJSON)
	if appErr != nil {
		return nil, appErr
	}
	merged, added := entities.MergeChainSets(current, add)
	if len(added) == 0 {
		return nil, nil
	}

	mergedJSON, err := json.Marshal(merged)
	if err != nil {
		return nil, apperrors.NewInternal(
			"paymaster_encode_failed",
			"failed to encode supported chains",
			map[string]any{"error": err.Error()},
		)
	}

	const updateQuery = `
UPDATE app.paymasters
SET
  supported_chains = $2::jsonb,
  version = version + 1,
  updated_at = $3
WHERE id = $1
`
	if _, err := tx.ExecContext(ctx, updateQuery, id, string(mergedJSON), updatedAt.UTC()); err != nil {
		return nil, apperrors.NewInternal(
			"paymaster_update_failed",
			"failed to update supported chains",
			map[string]any{"error": err.Error()},
		)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.NewInternal(
			"paymaster_tx_commit_failed",
			"failed to commit supported chain update",
			map[string]any{"error": err.Error()},
		)
	}
	committed = true

	r.logf(
		"paymaster chains updated project_id=%s category=%s added=%s",
		projectID,
		category,
		strings.Join(added, ","),
	)
	return added, nil
}

func (r *Repository) RecordChainResult(ctx context.Context, update dto.ChainResultUpdate) *apperrors.AppError {
	resultJSON, err := json.Marshal(update.Result)
	if err != nil {
		return apperrors.NewInternal(
			"paymaster_encode_failed",
			"failed to encode deployment result",
			map[string]any{"error": err.Error()},
		)
	}

	const query = `
UPDATE app.paymasters
SET
  deployment_results = deployment_results || jsonb_build_object($2::text, $3::jsonb),
  updated_at = GREATEST(updated_at, $4)
WHERE id = $1
`

	result, err := r.db.ExecContext(ctx, query, update.PaymasterID, update.Chain, string(resultJSON), update.Result.AttemptedAt.UTC())
	if err != nil {
		return apperrors.NewInternal(
			"paymaster_update_failed",
			"failed to record deployment result",
			map[string]any{"error": err.Error(), "chain": update.Chain},
		)
	}

	return requireOneRow(result, update.PaymasterID)
}

func (r *Repository) SetCanonicalDeploymentIfUnset(
	ctx context.Context,
	canonical dto.CanonicalDeployment,
) (bool, *apperrors.AppError) {
	const query = `
UPDATE app.paymasters
SET
  contract_address = $2,
  deployment_tx = NULLIF($3, ''),
  entry_point_address = NULLIF($4, ''),
  updated_at = $5
WHERE id = $1 AND contract_address IS NULL
`

	result, err := r.db.ExecContext(
		ctx,
		query,
		canonical.PaymasterID,
		canonical.ContractAddress,
		canonical.DeploymentTx,
		canonical.EntryPointAddress,
		canonical.UpdatedAt.UTC(),
	)
	if err != nil {
		return false, apperrors.NewInternal(
			"paymaster_update_failed",
			"failed to set canonical deployment",
			map[string]any{"error": err.Error()},
		)
	}

	return affectedOne(result)
}

func (r *Repository) TransitionStatusIfCurrent(
	ctx context.Context,
	command dto.TransitionDeploymentStatusCommand,
) (bool, *apperrors.AppError) {
	const query = `
UPDATE app.paymasters
SET
  deployment_status = $4,
  deployment_attempts = $5,
  next_retry_at = $6,
  dead_lettered_at = $7,
  last_error = $8,
  version = version + 1,
  updated_at = $9
WHERE id = $1 AND deployment_status = $2 AND version = $3
`

	result, err := r.db.ExecContext(
		ctx,
		query,
		command.ID,
		command.ExpectedStatus.String(),
		command.ExpectedVersion,
		command.NextStatus.String(),
		command.DeploymentAttempts,
		nullableTime(command.NextRetryAt),
		nullableTime(command.DeadLetteredAt),
		nullableString(command.LastError),
		command.UpdatedAt.UTC(),
	)
	if err != nil {
		return false, apperrors.NewInternal(
			"paymaster_update_failed",
			"failed to transition deployment status",
			map[string]any{"error": err.Error()},
		)
	}

	return affectedOne(result)
}

func (r *Repository) Delete(ctx context.Context, projectID string) (dto.DeleteProjectResult, *apperrors.AppError) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return dto.DeleteProjectResult{}, apperrors.NewInternal(
			"paymaster_tx_begin_failed",
			"failed to start paymaster transaction",
			map[string]any{"error": err.Error()},
		)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	balances, err := tx.ExecContext(ctx, `DELETE FROM app.paymaster_balances WHERE project_id = $1`, projectID)
	if err != nil {
		return dto.DeleteProjectResult{}, apperrors.NewInternal(
			"paymaster_delete_failed",
			"failed to delete paymaster balances",
			map[string]any{"error": err.Error()},
		)
	}
	paymasters, err := tx.ExecContext(ctx, `DELETE FROM app.paymasters WHERE project_id = $1`, projectID)
	if err != nil {
		return dto.DeleteProjectResult{}, apperrors.NewInternal(
			"paymaster_delete_failed",
			"failed to delete paymasters",
			map[string]any{"error": err.Error()},
		)
	}

	if err := tx.Commit(); err != nil {
		return dto.DeleteProjectResult{}, apperrors.NewInternal(
			"paymaster_tx_commit_failed",
			"failed to commit project delete",
			map[string]any{"error": err.Error()},
		)
	}
	committed = true

	out := dto.DeleteProjectResult{}
	out.BalancesDeleted, _ = balances.RowsAffected()
	out.PaymastersDeleted, _ = paymasters.RowsAffected()
	return out, nil
}

func (r *Repository) ClaimRetryDue(
	ctx context.Context,
	command dto.ClaimRetryDueCommand,
) ([]entities.Paymaster, *apperrors.AppError) {
	query := `
WITH candidates AS (
  SELECT id
  FROM app.paymasters
  WHERE dead_lettered_at IS NULL
    AND is_active = TRUE
    AND next_retry_at IS NOT NULL
    AND next_retry_at <= $1
    AND (retry_lease_until IS NULL OR retry_lease_until <= $1)
  ORDER BY next_retry_at ASC, id ASC
  LIMIT $2
  FOR UPDATE SKIP LOCKED
)
UPDATE app.paymasters AS pm
SET
  retry_lease_owner = $3,
  retry_lease_until = $4
FROM candidates
WHERE pm.id = candidates.id
RETURNING
  ` + paymasterColumns("pm") + `
`

	return r.queryPaymasters(
		ctx,
		query,
		command.Now.UTC(),
		command.Limit,
		strings.TrimSpace(command.LeaseOwner),
		command.LeaseUntil.UTC(),
	)
}

func (r *Repository) ReleaseRetryLease(ctx context.Context, id string, leaseOwner string) *apperrors.AppError {
	const query = `
UPDATE app.paymasters
SET
  retry_lease_owner = NULL,
  retry_lease_until = NULL
WHERE id = $1 AND retry_lease_owner = $2
`

	if _, err := r.db.ExecContext(ctx, query, id, strings.TrimSpace(leaseOwner)); err != nil {
		return apperrors.NewInternal(
			"paymaster_update_failed",
			"failed to release retry lease",
			map[string]any{"error": err.Error()},
		)
	}
	return nil
}

func (r *Repository) CountByStatus(ctx context.Context) (dto.DeploymentHealthSummary, *apperrors.AppError) {
	const query = `
SELECT
  COUNT(*) FILTER (WHERE deployment_status = 'created'),
  COUNT(*) FILTER (WHERE deployment_status = 'pending_funding'),
  COUNT(*) FILTER (WHERE deployment_status = 'deployed'),
  COUNT(*) FILTER (WHERE deployment_status = 'failed'),
  COUNT(*) FILTER (WHERE dead_lettered_at IS NOT NULL)
FROM app.paymasters
`

	summary := dto.DeploymentHealthSummary{}
	if err := r.db.QueryRowContext(ctx, query).Scan(
		&summary.Created,
		&summary.PendingFunding,
		&summary.Deployed,
		&summary.Failed,
		&summary.DeadLettered,
	); err != nil {
		return dto.DeploymentHealthSummary{}, queryFailed("failed to count paymasters by status", err)
	}

	return summary, nil
}

func (r *Repository) SetActive(
	ctx context.Context,
	projectID string,
	category valueobjects.ChainCategory,
	active bool,
	updatedAt time.Time,
) (bool, *apperrors.AppError) {
	const query = `
UPDATE app.paymasters
SET
  is_active = $3,
  updated_at = $4
WHERE project_id = $1 AND chain_category = $2
`

	result, err := r.db.ExecContext(ctx, query, projectID, category.String(), active, updatedAt.UTC())
	if err != nil {
		return false, apperrors.NewInternal(
			"paymaster_update_failed",
			"failed to update paymaster active flag",
			map[string]any{"error": err.Error()},
		)
	}

	return affectedOne(result)
}

func (r *Repository) queryPaymasters(ctx context.Context, query string, args ...any) ([]entities.Paymaster, *apperrors.AppError) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, queryFailed("failed to query paymasters", err)
	}
	defer rows.Close()

	out := []entities.Paymaster{}
	for rows.Next() {
		paymaster, err := scanPaymaster(rows)
		if err != nil {
			return nil, queryFailed("failed to parse paymaster row", err)
		}
		out = append(out, paymaster)
	}
	if err := rows.Err(); err != nil {
		return nil, queryFailed("failed while iterating paymaster rows", err)
	}

	return out, nil
}

func (r *Repository) logf(format string, args ...any) {
	if r.logger == nil {
		return
	}
	r.logger.Printf(format, args...)
}

func queryFailed(message string, err error) *apperrors.AppError {
	return apperrors.NewInternal(
		"paymaster_query_failed",
		message,
		map[string]any{"error": err.Error()},
	)
}

func requireOneRow(result sql.Result, id string) *apperrors.AppError {
	updated, appErr := affectedOne(result)
	if appErr != nil {
		return appErr
	}
	if !updated {
		return apperrors.NewNotFound(
			"paymaster_not_found",
			"paymaster not found",
			map[string]any{"paymaster_id": id},
		)
	}
	return nil
}

func affectedOne(result sql.Result) (bool, *apperrors.AppError) {
	rows, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.NewInternal(
			"paymaster_update_failed",
			"failed to read affected rows",
			map[string]any{"error": err.Error()},
		)
	}
	return rows == 1, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !stderrors.As(err, &pgErr) {
		return false
	}

	return pgErr.Code == "23505"
}
