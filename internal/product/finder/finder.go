// Package finder pages through the product-finder API for a date window and
// certification set, yielding normalized products lazily.
package finder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"certsync/internal/platform/logger"
	"certsync/internal/platform/metrics"
	"certsync/internal/product/models"
	"certsync/internal/product/normalize"
	"certsync/pkg/requestcontext"
)

const (
	defaultPageSize = 100
	defaultTimeout  = 30 * time.Second
	maxBodyBytes    = 10 * 1024 * 1024
	userAgent       = "Mozilla/5.0 (compatible; certsync)"
)

// Window describes one fetch run. It is never persisted.
type Window struct {
	From           time.Time // zero omits date_from
	To             time.Time // zero omits date_to
	Certifications []string
	Start          int // offset to resume from
	PageSize       int
}

// Stats summarizes a fetch run.
type Stats struct {
	Pages      int
	Normalized int
	Dropped    int
	Total      int // last total reported upstream, -1 when never reported
	NextOffset int // offset a restarted run should resume from
}

// Client issues product-finder requests.
type Client struct {
	baseURL string
	method  string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client. Its Timeout governs each request.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithTimeout sets the per-request timeout on the default client.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.http.Timeout = d
		}
	}
}

// WithRateLimit spaces page requests to at most rps per second.
func WithRateLimit(rps float64) Option {
	return func(cl *Client) {
		if rps > 0 {
			cl.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithMethod selects the HTTP verb. GET is the paginated contract; POST is
// the legacy single-certification variant and accepts the same parameters.
func WithMethod(method string) Option {
	return func(cl *Client) {
		if method != "" {
			cl.method = method
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(cl *Client) {
		cl.metrics = m
	}
}

// New constructs a Client for the product-finder endpoint at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		method:  http.MethodGet,
		http:    &http.Client{Timeout: defaultTimeout},
		limiter: rate.NewLimiter(rate.Inf, 1),
		logger:  logger.Discard(),
		tracer:  otel.Tracer("certsync/finder"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run is one pagination sweep. Iterate Records, then check Err and Stats,
// in the manner of bufio.Scanner.
type Run struct {
	client *Client
	ctx    context.Context
	window Window
	stats  Stats
	err    error
}

// Fetch prepares a run over w. No request is made until Records is iterated.
func (c *Client) Fetch(ctx context.Context, w Window) *Run {
	if w.PageSize <= 0 {
		w.PageSize = defaultPageSize
	}
	if w.Start < 0 {
		w.Start = 0
	}
	return &Run{
		client: c,
		ctx:    ctx,
		window: w,
		stats:  Stats{Total: -1, NextOffset: w.Start},
	}
}

// Records yields normalized products page by page. Iteration stops when a
// page is empty, when the offset reaches the reported total, or when a page
// is shorter than the page size, whichever comes first. The reported total is
// advisory only. A transport failure ends iteration and is kept for Err.
// Each iteration is a fresh sweep from the window start and resets Stats and
// Err.
func (r *Run) Records() iter.Seq[models.Product] {
	return func(yield func(models.Product) bool) {
		offset := r.window.Start
		r.stats = Stats{Total: -1, NextOffset: offset}
		r.err = nil
		for {
			items, total, err := r.client.page(r.ctx, r.window, offset)
			if err != nil {
				r.err = err
				return
			}
			r.stats.Pages++
			if total.Known {
				r.stats.Total = total.Value
			}

			for _, raw := range items {
				p, err := normalize.Parse(raw)
				if err != nil {
					r.stats.Dropped++
					r.client.logger.DebugContext(r.ctx, "dropping product-finder item",
						"offset", offset, "error", err, "run_id", requestcontext.RunID(r.ctx))
					continue
				}
				r.stats.Normalized++
				if !yield(p) {
					return
				}
			}

			if len(items) == 0 {
				return
			}
			offset += r.window.PageSize
			r.stats.NextOffset = offset
			if total.Known && offset >= total.Value {
				return
			}
			if len(items) < r.window.PageSize {
				return
			}
		}
	}
}

// Collect drains Records into a slice.
func (r *Run) Collect() []models.Product {
	var out []models.Product
	for p := range r.Records() {
		out = append(out, p)
	}
	return out
}

// Err returns the transport failure that ended the run, if any.
func (r *Run) Err() error {
	return r.err
}

// Stats reports progress so far.
func (r *Run) Stats() Stats {
	return r.stats
}

type pageBody struct {
	Items      []json.RawMessage `json:"items"`
	Products   []json.RawMessage `json:"products"`
	Total      normalize.Count   `json:"total"`
	TotalCount normalize.Count   `json:"total_count"`
}

func (c *Client) page(ctx context.Context, w Window, offset int) ([]json.RawMessage, normalize.Count, error) {
	ctx, span := c.tracer.Start(ctx, "finder.page", trace.WithAttributes(
		attribute.Int("finder.offset", offset),
		attribute.Int("finder.page_size", w.PageSize),
	))
	defer span.End()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, normalize.Count{}, &TransportError{Offset: offset, Underlying: err}
	}

	req, err := http.NewRequestWithContext(ctx, c.method, c.pageURL(w, offset), nil)
	if err != nil {
		return nil, normalize.Count{}, fmt.Errorf("build product-finder request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveRequest("network_error", time.Since(start))
		span.RecordError(err)
		return nil, normalize.Count{}, &TransportError{Offset: offset, Underlying: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.metrics.ObserveRequest("http_error", time.Since(start))
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, normalize.Count{}, &TransportError{
			Offset:     offset,
			StatusCode: resp.StatusCode,
			Underlying: errors.New(http.StatusText(resp.StatusCode)),
		}
	}

	var body pageBody
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		c.metrics.ObserveRequest("http_error", time.Since(start))
		return nil, normalize.Count{}, &TransportError{Offset: offset, Underlying: fmt.Errorf("decode page: %w", err)}
	}
	c.metrics.ObserveRequest("ok", time.Since(start))
	c.metrics.IncrementPages()

	items := body.Items
	if len(items) == 0 {
		items = body.Products
	}
	total := body.Total
	if !total.Known {
		total = body.TotalCount
	}
	span.SetAttributes(attribute.Int("finder.items", len(items)))
	c.logger.DebugContext(ctx, "fetched product-finder page",
		"offset", offset, "items", len(items), "total", total.Value, "total_known", total.Known)
	return items, total, nil
}

func (c *Client) pageURL(w Window, offset int) string {
	q := url.Values{}
	q.Set("sort_by", "certified")
	q.Set("sort_order", "desc")
	if len(w.Certifications) > 0 {
		q.Set("certifications", strings.Join(w.Certifications, ","))
	}
	if !w.From.IsZero() {
		q.Set("date_from", w.From.Format(time.DateOnly))
	}
	if !w.To.IsZero() {
		q.Set("date_to", w.To.Format(time.DateOnly))
	}
	q.Set("start", strconv.Itoa(offset))
	q.Set("items", strconv.Itoa(w.PageSize))

	sep := "?"
	if strings.Contains(c.baseURL, "?") {
		sep = "&"
	}
	return c.baseURL + sep + q.Encode()
}
