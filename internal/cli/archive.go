package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"certsync/internal/product/export"
	"certsync/internal/product/models"
	"certsync/internal/product/service"
)

// PurgeOptions holds flags for purge-month.
type PurgeOptions struct {
	Force bool
}

// NewExportMonthCommand creates the export-month command.
func NewExportMonthCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "export-month [YYYY-MM]",
		Short: "Write one month of products to CSV and XLSX",
		Long: `Write every product certified in the month to
<export dir>/<YYYY>/<YYYY-MM>.csv and .xlsx. Without an argument the previous
calendar month is exported. An empty month writes nothing.`,
		Args: usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := app.invocationContext(cmd.Context())
			m, err := monthArg(ctx, args)
			if err != nil {
				return err
			}
			return withArchive(ctx, app, func(svc *service.ArchiveService) error {
				res, err := svc.Export(ctx, m)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if res.Count == 0 {
					fmt.Fprintf(out, "export %s: no rows, nothing written\n", m)
					return nil
				}
				fmt.Fprintf(out, "export %s: %d rows\n  %s\n  %s\n", m, res.Count, res.CSVPath, res.XLSXPath)
				return nil
			})
		},
	}
}

// NewPurgeMonthCommand creates the purge-month command.
func NewPurgeMonthCommand(app *App) *cobra.Command {
	opts := &PurgeOptions{}

	cmd := &cobra.Command{
		Use:   "purge-month YYYY-MM",
		Short: "Delete one month of products after it has been exported",
		Long: `Delete every product certified in the month. The month must be named
explicitly. Unless --force is given, the month must already be exported and
the export must list every row currently stored for it; re-run export-month
after a sync that added rows to the month.`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageError("purge-month requires exactly one YYYY-MM argument", nil)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := app.invocationContext(cmd.Context())
			m, err := monthArg(ctx, args)
			if err != nil {
				return err
			}
			return withArchive(ctx, app, func(svc *service.ArchiveService) error {
				report, err := svc.Purge(ctx, m, opts.Force)
				if err != nil {
					return err
				}
				suffix := ""
				if report.Forced {
					suffix = " (forced)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "purge %s: %d rows deleted%s\n", m, report.Deleted, suffix)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Force, "force", false, "purge even if the month's export is missing or stale")

	return cmd
}

func monthArg(ctx context.Context, args []string) (models.Month, error) {
	var arg string
	if len(args) > 0 {
		arg = args[0]
	}
	m, err := service.ResolveMonth(ctx, arg)
	if err != nil {
		return models.Month{}, usageError("invalid month", err)
	}
	return m, nil
}

func withArchive(ctx context.Context, app *App, fn func(*service.ArchiveService) error) error {
	st, release, err := app.OpenStore(ctx, app.Config.Postgres)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeStore(app, release)

	svc, err := service.NewArchive(st,
		export.New(app.Config.Export.Root, export.WithLogger(app.logger())),
		service.WithArchiveLogger(app.logger()),
		service.WithArchiveMetrics(app.Metrics),
	)
	if err != nil {
		return err
	}
	return fn(svc)
}
