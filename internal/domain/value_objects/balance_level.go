package valueobjects

type BalanceLevel string

const (
	BalanceLevelOK       BalanceLevel = "ok"
	BalanceLevelLow      BalanceLevel = "low"
	BalanceLevelCritical BalanceLevel = "critical"
)

func (l BalanceLevel) String() string {
	return string(l)
}
