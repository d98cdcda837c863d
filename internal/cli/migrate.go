package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply SQL migrations to the audit database",
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := getApp().Migrate(cmd.Context())
		if err != nil {
			return err
		}
		for _, f := range files {
			fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", filepath.Base(f))
		}
		return nil
	},
}
