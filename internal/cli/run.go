package cli

import (
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one monitoring cycle over the watchlist",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := getApp().Run(cmd.Context())
		return err
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run monitoring cycles on the configured interval or cron schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Watch(cmd.Context())
	},
}
