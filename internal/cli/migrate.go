package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the products table and index if missing",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := app.invocationContext(cmd.Context())
			st, release, err := app.OpenStore(ctx, app.Config.Postgres)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer closeStore(app, release)

			if err := st.EnsureSchema(ctx); err != nil {
				return err
			}
			n, err := st.Count(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema ready: %s (%d rows)\n", app.Config.Postgres.Table, n)
			return nil
		},
	}
}
