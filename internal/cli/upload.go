package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"certsync/internal/product/export"
	updrive "certsync/internal/upload/drive"
	"certsync/pkg/requestcontext"
)

// NewUploadMonthCommand creates the upload-month command.
func NewUploadMonthCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "upload-month [YYYY-MM]",
		Short: "Upload a month's export files to Google Drive",
		Long: `Upload <YYYY-MM>.csv and .xlsx into the <YYYY> folder under
CERTSYNC_DRIVE_PARENT_ID, creating the folder when missing and replacing
files of the same name. Without an argument the previous month is used.`,
		Args: usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Config.Drive.Validate(); err != nil {
				return usageError("drive upload not configured", err)
			}
			ctx := app.invocationContext(cmd.Context())
			m, err := monthArg(ctx, args)
			if err != nil {
				return err
			}

			exporter := export.New(app.Config.Export.Root)
			exported, err := exporter.Exists(m)
			if err != nil {
				return err
			}
			if !exported {
				return fmt.Errorf("upload %s: %w", m, export.ErrNotExported)
			}

			svc, err := app.DriveService(ctx, app.Config.Drive)
			if err != nil {
				return err
			}
			uploader := updrive.New(svc, app.Config.Drive.ParentID, updrive.WithLogger(app.logger()))
			csvPath, xlsxPath := exporter.Paths(m)
			res, err := uploader.UploadMonth(ctx, m, csvPath, xlsxPath)
			if err != nil {
				return err
			}
			app.Metrics.MarkSuccess("upload", requestcontext.Now(ctx))

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "upload %s: folder %s\n", m, res.FolderID)
			for _, f := range res.Files {
				action := "created"
				if f.Replaced {
					action = "replaced"
				}
				fmt.Fprintf(out, "  %s %s (%s)\n", action, f.Path, f.FileID)
			}
			return nil
		},
	}
}
