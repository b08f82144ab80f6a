package quote

import (
	"context"

	"github.com/shopspring/decimal"
)

// Fetcher retrieves the current spot price for the tracked asset in USD.
type Fetcher interface {
	FetchPrice(ctx context.Context) (decimal.Decimal, error)
}
