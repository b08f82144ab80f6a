package cli

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	simulatePrevious float64
	simulatePrice    float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "Run one watcher cycle with a fixed price and reference",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulatePrevious <= 0 || simulatePrice <= 0 {
			return errors.New("--previous and --price must be greater than 0")
		}

		previous := decimal.NewFromFloat(simulatePrevious)
		price := decimal.NewFromFloat(simulatePrice)
		return getApp().SimulateAlert(cmd.Context(), previous, price)
	},
}

func init() {
	simulateCmd.Flags().Float64Var(&simulatePrevious, "previous", 0, "Reference price to compare against, USD")
	simulateCmd.Flags().Float64Var(&simulatePrice, "price", 0, "Current price to simulate, USD")
}
