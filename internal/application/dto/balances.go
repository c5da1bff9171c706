package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type GetBalancesQuery struct {
	ProjectID string
}

type RefreshBalancesCommand struct {
	ProjectID string
}

type BalancesOutput struct {
	ProjectID string                `json:"project_id"`
	Balances  []BalanceView         `json:"balances"`
	TotalUSD  string                `json:"total_usd"`
	Errors    []BalanceRefreshError `json:"errors,omitempty"`
}

type BalanceView struct {
	Chain         string    `json:"chain"`
	Address       string    `json:"address"`
	Symbol        string    `json:"symbol"`
	BalanceNative string    `json:"balance_native"`
	BalanceUSD    string    `json:"balance_usd"`
	PriceUSD      string    `json:"price_usd"`
	LastUpdated   time.Time `json:"last_updated"`
}

type BalanceRefreshError struct {
	ProjectID string `json:"project_id,omitempty"`
	Chain     string `json:"chain"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

type RefreshAllBalancesCommand struct{}

type RefreshAllBalancesOutput struct {
	Paymasters int
	Updated    int
	Failed     int
}

type ScanLowBalancesCommand struct{}

type ScanLowBalancesOutput struct {
	Observations []BalanceObservation
}

type BalanceObservation struct {
	ProjectID            string
	Chain                string
	Category             string
	Address              string
	Symbol               string
	BalanceNative        string
	BalanceUSD           string
	LowThresholdUSD      string
	CriticalThresholdUSD string
	Level                string
	LastUpdated          time.Time
}

type PriceQuote struct {
	Symbol    string
	PriceUSD  decimal.Decimal
	Source    string
	FetchedAt time.Time
}
