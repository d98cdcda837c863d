package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"bandwatch/internal/app"
)

var (
	simulateSymbol string
	simulatePrice  float64
	simulateUpper  float64
	simulateLower  float64
	simulateRSI    float64
	simulateDryRun bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "Classify a synthetic price against given bands and send the resulting alert",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulatePrice <= 0 || simulateUpper <= 0 || simulateLower <= 0 {
			return errors.New("--price, --upper and --lower must be greater than zero")
		}

		_, err := getApp().SimulateAlert(cmd.Context(), app.SimulateOptions{
			Symbol: simulateSymbol,
			Price:  simulatePrice,
			Upper:  simulateUpper,
			Lower:  simulateLower,
			RSI:    simulateRSI,
			DryRun: simulateDryRun,
		})
		return err
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateSymbol, "symbol", "TEST", "Ticker symbol to label the alert with")
	simulateCmd.Flags().Float64Var(&simulatePrice, "price", 0, "Latest price")
	simulateCmd.Flags().Float64Var(&simulateUpper, "upper", 0, "Upper band")
	simulateCmd.Flags().Float64Var(&simulateLower, "lower", 0, "Lower band")
	simulateCmd.Flags().Float64Var(&simulateRSI, "rsi", 50, "RSI value for the annotation")
	simulateCmd.Flags().BoolVar(&simulateDryRun, "dry-run", false, "Print the message without sending it")
}
