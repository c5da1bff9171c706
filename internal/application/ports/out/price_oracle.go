package out

import (
	"context"

	"paymasterhub/internal/application/dto"
	valueobjects "paymasterhub/internal/domain/value_objects"
)

// PriceOracle never fails: callers get the live price, the last cached one, or zero.
type PriceOracle interface {
	PriceUSD(ctx context.Context, chain valueobjects.ChainSpec) dto.PriceQuote
}
