package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"certsync/internal/product/finder"
	"certsync/internal/product/service"
	"certsync/internal/product/store"
)

// SyncOptions holds flags for the sync command.
type SyncOptions struct {
	Since  string
	Until  string
	DryRun bool
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(app *App) *cobra.Command {
	opts := &SyncOptions{}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch recent certifications and upsert them",
		Long: `Page through the product-finder API for the date window, keep the newest
observation of each product and upsert it. Rows outside the window are never
touched. A transport failure mid-run still writes what was fetched.

Example:
  certsync sync
  certsync sync --since 2024-01-01 --until 2024-01-31`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(app, opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Since, "since", "", "first certification date, YYYY-MM-DD (default: lookback before --until)")
	cmd.Flags().StringVar(&opts.Until, "until", "", "last certification date, YYYY-MM-DD (default: today)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "fetch and dedup without touching the database")

	return cmd
}

func parseDateFlag(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, usageError(fmt.Sprintf("--%s must be YYYY-MM-DD", name), err)
	}
	return t, nil
}

func runSync(app *App, opts *SyncOptions, cmd *cobra.Command) error {
	from, err := parseDateFlag("since", opts.Since)
	if err != nil {
		return err
	}
	to, err := parseDateFlag("until", opts.Until)
	if err != nil {
		return err
	}

	ctx := app.invocationContext(cmd.Context())
	cfg := app.Config.Finder
	req := service.SyncRequest{From: from, To: to}
	if _, _, err := service.ResolveWindow(ctx, req, cfg.Lookback); err != nil {
		if errors.Is(err, service.ErrInvalidWindow) {
			return usageError("invalid --since/--until", err)
		}
		return err
	}

	var st service.ProductStore
	if opts.DryRun {
		st = store.NewInMemory()
	} else {
		s, release, err := app.OpenStore(ctx, app.Config.Postgres)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer closeStore(app, release)
		st = s
	}

	client := finder.New(cfg.BaseURL,
		finder.WithTimeout(cfg.Timeout),
		finder.WithRateLimit(cfg.RatePerSecond),
		finder.WithLogger(app.logger()),
		finder.WithMetrics(app.Metrics),
	)
	svc, err := service.NewSync(client, st,
		service.WithCertifications(cfg.Certifications),
		service.WithPageSize(cfg.PageSize),
		service.WithLookback(cfg.Lookback),
		service.WithSyncLogger(app.logger()),
		service.WithSyncMetrics(app.Metrics),
	)
	if err != nil {
		return err
	}

	report, err := svc.Run(ctx, req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "sync %s: %s..%s\n", report.RunID,
		report.From.Format(time.DateOnly), report.To.Format(time.DateOnly))
	fmt.Fprintf(out, "  pages %d, fetched %d, dropped %d, unique %d, written %d\n",
		report.Pages, report.Fetched, report.Dropped, report.Unique, report.Written)
	if opts.DryRun {
		fmt.Fprintln(out, "  dry run: database untouched")
	}
	if report.Partial() {
		fmt.Fprintf(out, "  warning: fetch stopped early, resume from offset %d: %v\n",
			report.NextOffset, report.FetchErr)
	}
	return nil
}

func closeStore(app *App, release func() error) {
	if release == nil {
		return
	}
	if err := release(); err != nil {
		app.logger().Error("error closing store", "error", err)
	}
}
