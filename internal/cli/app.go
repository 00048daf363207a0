package cli

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/api/drive/v3"

	"certsync/internal/platform/config"
	"certsync/internal/platform/logger"
	"certsync/internal/platform/metrics"
	"certsync/internal/platform/postgres"
	"certsync/internal/product/service"
	"certsync/internal/product/store"
	updrive "certsync/internal/upload/drive"
	"certsync/pkg/requestcontext"
)

// Store is the product table surface the commands use.
type Store interface {
	service.ProductStore
	service.ArchiveStore
	Count(ctx context.Context) (int, error)
}

// App carries process-wide dependencies into every command.
type App struct {
	Config  config.Config
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	// OpenStore acquires the store for one command. The release func is
	// deferred by the caller. Tests swap in an in-memory store.
	OpenStore func(ctx context.Context, cfg config.Postgres) (Store, func() error, error)
	// DriveService builds the Drive client for upload-month.
	DriveService func(ctx context.Context, cfg config.Drive) (*drive.Service, error)
	// Clock pins the invocation time; nil means time.Now.
	Clock func() time.Time
}

// NewApp wires the production dependencies.
func NewApp(cfg config.Config, log *slog.Logger, m *metrics.Metrics) *App {
	return &App{
		Config:       cfg,
		Logger:       log,
		Metrics:      m,
		OpenStore:    openPostgresStore,
		DriveService: openDriveService,
	}
}

func (a *App) logger() *slog.Logger {
	if a.Logger == nil {
		return logger.Discard()
	}
	return a.Logger
}

// invocationContext stamps the invocation time once so every component agrees
// on today.
func (a *App) invocationContext(parent context.Context) context.Context {
	if parent == nil {
		parent = context.Background()
	}
	now := time.Now()
	if a.Clock != nil {
		now = a.Clock()
	}
	return requestcontext.WithTime(parent, now)
}

func openPostgresStore(ctx context.Context, cfg config.Postgres) (Store, func() error, error) {
	db, err := postgres.Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return store.NewPostgres(db, store.WithTable(cfg.Table)), db.Close, nil
}

func openDriveService(ctx context.Context, cfg config.Drive) (*drive.Service, error) {
	return updrive.NewService(ctx, cfg.CredentialsFile)
}
