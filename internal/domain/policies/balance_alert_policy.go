package policies

import (
	valueobjects "paymasterhub/internal/domain/value_objects"

	"github.com/shopspring/decimal"
)

type BalanceThresholds struct {
	LowUSD      decimal.Decimal
	CriticalUSD decimal.Decimal
}

func IsLowBalance(balanceUSD, thresholdUSD decimal.Decimal) bool {
	return balanceUSD.LessThan(thresholdUSD)
}

func IsCriticalBalance(balanceUSD, criticalThresholdUSD decimal.Decimal) bool {
	return balanceUSD.LessThan(criticalThresholdUSD)
}

func ClassifyBalance(balanceUSD decimal.Decimal, thresholds BalanceThresholds) valueobjects.BalanceLevel {
	switch {
	case IsCriticalBalance(balanceUSD, thresholds.CriticalUSD):
		return valueobjects.BalanceLevelCritical
	case IsLowBalance(balanceUSD, thresholds.LowUSD):
		return valueobjects.BalanceLevelLow
	default:
		return valueobjects.BalanceLevelOK
	}
}
