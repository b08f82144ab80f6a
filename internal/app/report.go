package app

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"xrp-invest-bot/internal/portfolio"
)

// ReportOptions configure the report command.
type ReportOptions struct {
	Price float64
	Full  bool
}

// Report prints the portfolio report for a given or freshly fetched price.
func (a *App) Report(ctx context.Context, opts ReportOptions) error {
	var price decimal.Decimal
	if opts.Price > 0 {
		price = decimal.NewFromFloat(opts.Price)
	} else {
		fetched, err := a.newFetcher().FetchPrice(ctx)
		if err != nil {
			return fmt.Errorf("fetch price: %w", err)
		}
		price = fetched
	}

	text := portfolio.ShortReport(price)
	if opts.Full {
		text = portfolio.FullReport(price)
	}

	fmt.Fprintln(os.Stdout, text)
	return nil
}
