package paymaster

import (
	"context"
	"database/sql"
	"log"

	portsout "paymasterhub/internal/application/ports/out"
	"paymasterhub/internal/domain/entities"
	apperrors "paymasterhub/internal/shared_kernel/errors"
)

type BalanceRepository struct {
	db     *sql.DB
	logger *log.Logger
}

var _ portsout.PaymasterBalanceRepository = (*BalanceRepository)(nil)

func NewBalanceRepository(db *sql.DB, logger *log.Logger) *BalanceRepository {
	return &BalanceRepository{db: db, logger: logger}
}

// EnsureRows inserts zero-valued rows and leaves existing rows untouched.
func (r *BalanceRepository) EnsureRows(ctx context.Context, rows []entities.PaymasterBalance) *apperrors.AppError {
	if len(rows) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return apperrors.NewInternal(
			"balance_tx_begin_failed",
			"failed to start balance transaction",
			map[string]any{"error": err.Error()},
		)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const query = `
INSERT INTO app.paymaster_balances (
  project_id,
  chain,
  address,
  symbol,
  balance_native,
  balance_usd,
  price_usd,
  last_updated
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (project_id, chain) DO NOTHING
`

	for _, row := range rows {
		if _, err := tx.ExecContext(
			ctx,
			query,
			row.ProjectID,
			row.Chain,
			row.Address,
			row.Symbol,
			row.BalanceNative,
			row.BalanceUSD,
			row.PriceUSD,
			row.LastUpdated.UTC(),
		); err != nil {
			return apperrors.NewInternal(
				"balance_insert_failed",
				"failed to insert balance row",
				map[string]any{"error": err.Error(), "chain": row.Chain},
			)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewInternal(
			"balance_tx_commit_failed",
			"failed to commit balance rows",
			map[string]any{"error": err.Error()},
		)
	}
	committed = true
	return nil
}

// Upsert replaces the row unless a newer observation is already stored.
func (r *BalanceRepository) Upsert(ctx context.Context, balance entities.PaymasterBalance) *apperrors.AppError {
	const query = `
INSERT INTO app.paymaster_balances (
  project_id,
  chain,
  address,
  symbol,
  balance_native,
  balance_usd,
  price_usd,
  last_updated
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (project_id, chain) DO UPDATE
SET
  address = EXCLUDED.address,
  symbol = EXCLUDED.symbol,
  balance_native = EXCLUDED.balance_native,
  balance_usd = EXCLUDED.balance_usd,
  price_usd = EXCLUDED.price_usd,
  last_updated = EXCLUDED.last_updated
WHERE app.paymaster_balances.last_updated <= EXCLUDED.last_updated
`

	result, err := r.db.ExecContext(
		ctx,
		query,
		balance.ProjectID,
		balance.Chain,
		balance.Address,
		balance.Symbol,
		balance.BalanceNative,
		balance.BalanceUSD,
		balance.PriceUSD,
		balance.LastUpdated.UTC(),
	)
	if err != nil {
		return apperrors.NewInternal(
			"balance_upsert_failed",
			"failed to upsert balance",
			map[string]any{"error": err.Error(), "chain": balance.Chain},
		)
	}

	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		r.logf(
			"balance upsert skipped stale observation project_id=%s chain=%s observed_at=%s",
			balance.ProjectID,
			balance.Chain,
			balance.LastUpdated.UTC(),
		)
	}
	return nil
}

func (r *BalanceRepository) ListByProject(ctx context.Context, projectID string) ([]entities.PaymasterBalance, *apperrors.AppError) {
	const query = `
SELECT project_id, chain, address, symbol, balance_native, balance_usd, price_usd, last_updated
FROM app.paymaster_balances
WHERE project_id = $1
ORDER BY chain ASC
`

	return r.queryBalances(ctx, query, projectID)
}

func (r *BalanceRepository) ListAll(ctx context.Context) ([]entities.PaymasterBalance, *apperrors.AppError) {
	const query = `
SELECT project_id, chain, address, symbol, balance_native, balance_usd, price_usd, last_updated
FROM app.paymaster_balances
ORDER BY project_id ASC, chain ASC
`

	return r.queryBalances(ctx, query)
}

func (r *BalanceRepository) queryBalances(ctx context.Context, query string, args ...any) ([]entities.PaymasterBalance, *apperrors.AppError) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternal(
			"balance_query_failed",
			"failed to query balances",
			map[string]any{"error": err.Error()},
		)
	}
	defer rows.Close()

	out := []entities.PaymasterBalance{}
	for rows.Next() {
		var balance entities.PaymasterBalance
		if err := rows.Scan(
			&balance.ProjectID,
			&balance.Chain,
			&balance.Address,
			&balance.Symbol,
			&balance.BalanceNative,
			&balance.BalanceUSD,
			&balance.PriceUSD,
			&balance.LastUpdated,
		); err != nil {
			return nil, apperrors.NewInternal(
				"balance_query_failed",
				"failed to parse balance row",
				map[string]any{"error": err.Error()},
			)
		}
		balance.LastUpdated = balance.LastUpdated.UTC()
		out = append(out, balance)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternal(
			"balance_query_failed",
			"failed while iterating balance rows",
			map[string]any{"error": err.Error()},
		)
	}

	return out, nil
}

func (r *BalanceRepository) logf(format string, args ...any) {
	if r.logger == nil {
		return
	}
	r.logger.Printf(format, args...)
}
