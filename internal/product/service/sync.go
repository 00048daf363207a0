// Package service orchestrates the sync pipeline (fetch, dedup, reconcile)
// and the month archive lifecycle (export, purge).
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"certsync/internal/platform/logger"
	"certsync/internal/platform/metrics"
	"certsync/internal/product/dedup"
	"certsync/internal/product/finder"
	"certsync/internal/product/models"
	"certsync/pkg/requestcontext"
)

const defaultLookback = 7 * 24 * time.Hour

// ErrInvalidWindow is returned when the resolved window starts after it ends.
var ErrInvalidWindow = errors.New("window starts after it ends")

// ProductStore is the write side of the product table.
type ProductStore interface {
	EnsureSchema(ctx context.Context) error
	Upsert(ctx context.Context, products []models.Product) (int, error)
}

// Fetcher starts a pagination run over a window.
type Fetcher interface {
	Fetch(ctx context.Context, w finder.Window) *finder.Run
}

// SyncRequest bounds one sync. Zero values fall back to the configured
// lookback ending today.
type SyncRequest struct {
	From time.Time
	To   time.Time
}

// SyncReport is the outcome of one sync run.
type SyncReport struct {
	RunID      string
	From       time.Time
	To         time.Time
	Pages      int
	Fetched    int
	Dropped    int
	Unique     int
	Written    int
	NextOffset int
	// FetchErr is the transport failure that cut pagination short. Records
	// fetched before it were still reconciled.
	FetchErr error
}

// Partial reports whether pagination ended on a transport failure.
func (r SyncReport) Partial() bool {
	return r.FetchErr != nil
}

// SyncService runs fetch, dedup and reconcile as one invocation.
type SyncService struct {
	fetcher        Fetcher
	store          ProductStore
	certifications []string
	pageSize       int
	lookback       time.Duration
	logger         *slog.Logger
	metrics        *metrics.Metrics
	tracer         trace.Tracer
}

type SyncOption func(*SyncService)

func WithCertifications(ids []string) SyncOption {
	return func(s *SyncService) {
		if len(ids) > 0 {
			s.certifications = ids
		}
	}
}

func WithPageSize(n int) SyncOption {
	return func(s *SyncService) {
		s.pageSize = n
	}
}

// WithLookback sets the default window length when SyncRequest.From is zero.
func WithLookback(d time.Duration) SyncOption {
	return func(s *SyncService) {
		if d > 0 {
			s.lookback = d
		}
	}
}

func WithSyncLogger(l *slog.Logger) SyncOption {
	return func(s *SyncService) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithSyncMetrics(m *metrics.Metrics) SyncOption {
	return func(s *SyncService) {
		s.metrics = m
	}
}

// NewSync constructs a SyncService.
func NewSync(fetcher Fetcher, store ProductStore, opts ...SyncOption) (*SyncService, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if store == nil {
		return nil, fmt.Errorf("product store is required")
	}
	s := &SyncService{
		fetcher:  fetcher,
		store:    store,
		lookback: defaultLookback,
		logger:   logger.Discard(),
		tracer:   otel.Tracer("certsync/service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ResolveWindow fills the open ends of req relative to the context clock: To
// defaults to today and From to lookback before To. The filled window is then
// validated.
func ResolveWindow(ctx context.Context, req SyncRequest, lookback time.Duration) (from, to time.Time, err error) {
	if lookback <= 0 {
		lookback = defaultLookback
	}
	to = req.To
	if to.IsZero() {
		to = models.DateOf(requestcontext.Now(ctx)).Time
	}
	from = req.From
	if from.IsZero() {
		from = to.Add(-lookback)
	}
	if from.After(to) {
		return from, to, fmt.Errorf("%s..%s: %w",
			from.Format(time.DateOnly), to.Format(time.DateOnly), ErrInvalidWindow)
	}
	return from, to, nil
}

// Window resolves the effective date range of req with the service lookback.
func (s *SyncService) Window(ctx context.Context, req SyncRequest) (from, to time.Time, err error) {
	return ResolveWindow(ctx, req, s.lookback)
}

// Run fetches every page of the window, collapses duplicate ids to their
// newest observation and upserts the result. A transport failure stops
// pagination but the records already fetched are still written and the
// failure is returned in the report. Store failures are returned as errors.
func (s *SyncService) Run(ctx context.Context, req SyncRequest) (SyncReport, error) {
	from, to, err := s.Window(ctx, req)
	report := SyncReport{RunID: uuid.NewString(), From: from, To: to}
	if err != nil {
		return report, err
	}
	ctx = requestcontext.WithRunID(ctx, report.RunID)

	ctx, span := s.tracer.Start(ctx, "sync.run", trace.WithAttributes(
		attribute.String("run_id", report.RunID),
		attribute.String("date_from", from.Format(time.DateOnly)),
		attribute.String("date_to", to.Format(time.DateOnly)),
	))
	defer span.End()

	if err := s.store.EnsureSchema(ctx); err != nil {
		span.SetStatus(codes.Error, "ensure schema")
		return report, fmt.Errorf("ensure schema: %w", err)
	}

	run := s.fetcher.Fetch(ctx, finder.Window{
		From:           from,
		To:             to,
		Certifications: s.certifications,
		PageSize:       s.pageSize,
	})
	records := run.Collect()
	stats := run.Stats()
	report.Pages = stats.Pages
	report.Fetched = stats.Normalized
	report.Dropped = stats.Dropped
	report.NextOffset = stats.NextOffset
	s.metrics.AddRecords("normalized", stats.Normalized)
	s.metrics.AddRecords("dropped", stats.Dropped)

	if err := run.Err(); err != nil {
		report.FetchErr = err
		span.RecordError(err)
		s.logger.WarnContext(ctx, "fetch run aborted, reconciling partial results",
			"run_id", report.RunID,
			"pages", stats.Pages,
			"records", len(records),
			"resume_offset", stats.NextOffset,
			"error", err,
		)
	}

	unique := dedup.Resolve(records)
	report.Unique = len(unique)

	written, err := s.store.Upsert(ctx, unique)
	report.Written = written
	if err != nil {
		span.SetStatus(codes.Error, "reconcile")
		return report, fmt.Errorf("reconcile %d products: %w", len(unique), err)
	}
	s.metrics.AddRecords("upserted", written)
	if !report.Partial() {
		s.metrics.MarkSuccess("sync", requestcontext.Now(ctx))
	}

	s.logger.InfoContext(ctx, "sync complete",
		"run_id", report.RunID,
		"pages", report.Pages,
		"fetched", report.Fetched,
		"dropped", report.Dropped,
		"unique", report.Unique,
		"written", report.Written,
		"partial", report.Partial(),
	)
	return report, nil
}
