package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"bandwatch/internal/app"
)

var (
	showLimit  int
	showSymbol string
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the cooldown ledger and recent alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.ShowOptions{
			Limit:  showLimit,
			Symbol: showSymbol,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Number of audited alerts and snapshots to display")
	showCmd.Flags().StringVar(&showSymbol, "symbol", "", "Also list audited band snapshots for this symbol")
}
