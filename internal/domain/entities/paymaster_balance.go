package entities

import (
	"time"

	apperrors "paymasterhub/internal/shared_kernel/errors"

	"github.com/shopspring/decimal"
)

type PaymasterBalance struct {
	ProjectID     string
	Chain         string
	Address       string
	BalanceNative decimal.Decimal
	BalanceUSD    decimal.Decimal
	PriceUSD      decimal.Decimal
	Symbol        string
	LastUpdated   time.Time
}

type BalanceSnapshotInput struct {
	ProjectID     string
	Chain         string
	Address       string
	Symbol        string
	BalanceNative decimal.Decimal
	PriceUSD      decimal.Decimal
	ObservedAt    time.Time
}

func NewZeroBalance(projectID, chain, address, symbol string, createdAt time.Time) PaymasterBalance {
	return PaymasterBalance{
		ProjectID:     projectID,
		Chain:         chain,
		Address:       address,
		BalanceNative: decimal.Zero,
		BalanceUSD:    decimal.Zero,
		PriceUSD:      decimal.Zero,
		Symbol:        symbol,
		LastUpdated:   createdAt,
	}
}

// NewBalanceSnapshot derives the USD value from the native balance and the price
// observed at the same instant. Negative inputs are clamped to zero.
func NewBalanceSnapshot(input BalanceSnapshotInput) (PaymasterBalance, *apperrors.AppError) {
	if input.ProjectID == "" || input.Chain == "" || input.Address == "" {
		return PaymasterBalance{}, apperrors.NewInternal(
			"balance_snapshot_identity_missing",
			"balance snapshot requires project, chain and address",
			map[string]any{"project_id": input.ProjectID, "chain": input.Chain},
		)
	}

	native := nonNegative(input.BalanceNative)
	price := nonNegative(input.PriceUSD)

	return PaymasterBalance{
		ProjectID:     input.ProjectID,
		Chain:         input.Chain,
		Address:       input.Address,
		BalanceNative: native,
		BalanceUSD:    native.Mul(price),
		PriceUSD:      price,
		Symbol:        input.Symbol,
		LastUpdated:   input.ObservedAt,
	}, nil
}

func nonNegative(value decimal.Decimal) decimal.Decimal {
	if value.IsNegative() {
		return decimal.Zero
	}
	return value
}
