package cli

import (
	"github.com/spf13/cobra"

	"xrp-invest-bot/internal/app"
)

var (
	reportPrice float64
	reportFull  bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the portfolio report for the current or a given price",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ReportOptions{
			Price: reportPrice,
			Full:  reportFull,
		}
		return getApp().Report(cmd.Context(), opts)
	},
}

func init() {
	reportCmd.Flags().Float64Var(&reportPrice, "price", 0, "Use this USD price instead of fetching a quote")
	reportCmd.Flags().BoolVar(&reportFull, "full", false, "Include the fixed acquisition details")
}
