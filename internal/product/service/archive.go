package service

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"certsync/internal/platform/logger"
	"certsync/internal/platform/metrics"
	"certsync/internal/product/export"
	"certsync/internal/product/models"
	"certsync/pkg/requestcontext"
)

// ArchiveStore is the month-scoped read and delete side of the product table.
type ArchiveStore interface {
	ListByMonth(ctx context.Context, m models.Month) ([]models.Product, error)
	DeleteByMonth(ctx context.Context, m models.Month) (int64, error)
}

// MonthWriter persists a month of products and reports which ids it holds.
type MonthWriter interface {
	Write(m models.Month, products []models.Product) (export.Result, error)
	ExportedIDs(m models.Month) (map[string]struct{}, error)
}

// PurgeReport is the outcome of a purge.
type PurgeReport struct {
	Month   models.Month
	Deleted int64
	Forced  bool
}

// ArchiveService exports and purges calendar months.
type ArchiveService struct {
	store   ArchiveStore
	writer  MonthWriter
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type ArchiveOption func(*ArchiveService)

func WithArchiveLogger(l *slog.Logger) ArchiveOption {
	return func(s *ArchiveService) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithArchiveMetrics(m *metrics.Metrics) ArchiveOption {
	return func(s *ArchiveService) {
		s.metrics = m
	}
}

// NewArchive constructs an ArchiveService.
func NewArchive(store ArchiveStore, writer MonthWriter, opts ...ArchiveOption) (*ArchiveService, error) {
	if store == nil {
		return nil, fmt.Errorf("archive store is required")
	}
	if writer == nil {
		return nil, fmt.Errorf("month writer is required")
	}
	s := &ArchiveService{
		store:  store,
		writer: writer,
		logger: logger.Discard(),
		tracer: otel.Tracer("certsync/service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ResolveMonth parses a YYYY-MM argument. An empty argument selects the month
// before the one containing the context clock.
func ResolveMonth(ctx context.Context, arg string) (models.Month, error) {
	if arg == "" {
		return models.PreviousMonth(requestcontext.Now(ctx)), nil
	}
	return models.ParseMonth(arg)
}

// Export writes every product certified in m. A month with no rows is a
// no-op with Count zero.
func (s *ArchiveService) Export(ctx context.Context, m models.Month) (export.Result, error) {
	ctx, span := s.tracer.Start(ctx, "archive.export",
		trace.WithAttributes(attribute.String("month", m.String())))
	defer span.End()

	products, err := s.store.ListByMonth(ctx, m)
	if err != nil {
		span.SetStatus(codes.Error, "list month")
		return export.Result{}, fmt.Errorf("list %s: %w", m, err)
	}

	res, err := s.writer.Write(m, products)
	if err != nil {
		span.SetStatus(codes.Error, "write export")
		return export.Result{}, fmt.Errorf("export %s: %w", m, err)
	}
	span.SetAttributes(attribute.Int("rows", res.Count))
	s.metrics.AddRecords("exported", res.Count)
	s.metrics.MarkSuccess("export", requestcontext.Now(ctx))
	s.logger.InfoContext(ctx, "export complete", "month", m.String(), "rows", res.Count)
	return res, nil
}

// Purge deletes every product certified in m. Unless force is set it
// refuses with export.ErrNotExported when the month's files are missing, and
// with export.ErrExportStale when a stored row of m is absent from the
// export.
func (s *ArchiveService) Purge(ctx context.Context, m models.Month, force bool) (PurgeReport, error) {
	ctx, span := s.tracer.Start(ctx, "archive.purge", trace.WithAttributes(
		attribute.String("month", m.String()),
		attribute.Bool("force", force),
	))
	defer span.End()

	report := PurgeReport{Month: m, Forced: force}
	if !force {
		if err := s.checkExported(ctx, m); err != nil {
			span.SetStatus(codes.Error, "export check")
			return report, fmt.Errorf("purge %s: %w", m, err)
		}
	}

	deleted, err := s.store.DeleteByMonth(ctx, m)
	if err != nil {
		span.SetStatus(codes.Error, "delete month")
		return report, fmt.Errorf("purge %s: %w", m, err)
	}
	report.Deleted = deleted
	s.metrics.AddRecords("purged", int(deleted))
	s.metrics.MarkSuccess("purge", requestcontext.Now(ctx))
	s.logger.InfoContext(ctx, "purge complete", "month", m.String(), "deleted", deleted, "forced", force)
	return report, nil
}

// checkExported verifies that every row currently stored for m appears in
// its export.
func (s *ArchiveService) checkExported(ctx context.Context, m models.Month) error {
	exported, err := s.writer.ExportedIDs(m)
	if err != nil {
		return err
	}
	stored, err := s.store.ListByMonth(ctx, m)
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	var missing []string
	for _, p := range stored {
		if _, ok := exported[p.ID]; !ok {
			missing = append(missing, p.ID)
		}
	}
	if len(missing) > 0 {
		s.logger.WarnContext(ctx, "purge refused, export is stale",
			"month", m.String(),
			"missing", len(missing),
			"first_missing", missing[0],
		)
		return fmt.Errorf("%d stored rows missing, re-export first: %w", len(missing), export.ErrExportStale)
	}
	return nil
}
