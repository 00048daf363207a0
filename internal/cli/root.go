// Package cli exposes the certsync commands.
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCommand creates the certsync root command.
func NewRootCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "certsync",
		Short: "Sync Wi-Fi certification records into PostgreSQL",
		Long: `certsync pulls certified products from the product-finder API, keeps one
row per product in PostgreSQL and archives whole months to CSV and XLSX
before purging them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError("invalid flags", err)
	})

	cmd.AddCommand(NewSyncCommand(app))
	cmd.AddCommand(NewExportMonthCommand(app))
	cmd.AddCommand(NewPurgeMonthCommand(app))
	cmd.AddCommand(NewUploadMonthCommand(app))
	cmd.AddCommand(NewMigrateCommand(app))

	return cmd
}
