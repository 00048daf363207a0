package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"certsync/internal/product/models"
	txcontext "certsync/pkg/platform/tx"
)

const (
	// DefaultTable matches the table the dashboard reads.
	DefaultTable     = "wifi_products"
	defaultBatchSize = 500
)

const columns = `cid, brand, product, model_number, date_certified,
	category, frequency_band, wifi_support_list, wifi_n, wifi_ac, wifi_6, wifi_7`

// PostgresStore persists products in one PostgreSQL table keyed by cid.
type PostgresStore struct {
	db        *sql.DB
	table     string
	batchSize int
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithTable overrides the table name. It is quoted, never interpolated raw.
func WithTable(name string) PostgresOption {
	return func(s *PostgresStore) {
		if name != "" {
			s.table = name
		}
	}
}

// WithBatchSize caps rows per upsert statement.
func WithBatchSize(n int) PostgresOption {
	return func(s *PostgresStore) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// NewPostgres constructs a PostgreSQL-backed product store.
func NewPostgres(db *sql.DB, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{db: db, table: DefaultTable, batchSize: defaultBatchSize}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Table returns the unquoted table name.
func (s *PostgresStore) Table() string {
	return s.table
}

func (s *PostgresStore) quoted() string {
	return pq.QuoteIdentifier(s.table)
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// EnsureSchema creates the table and its date index when missing, in one
// transaction. Safe to call on every run.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	return txcontext.RunInTx(ctx, s.db, s.ensureSchema)
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	create := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			cid               TEXT PRIMARY KEY,
			brand             TEXT,
			product           TEXT,
			model_number      TEXT,
			date_certified    DATE,
			category          TEXT,
			frequency_band    TEXT,
			wifi_support_list TEXT,
			wifi_n            BOOLEAN NOT NULL DEFAULT FALSE,
			wifi_ac           BOOLEAN NOT NULL DEFAULT FALSE,
			wifi_6            BOOLEAN NOT NULL DEFAULT FALSE,
			wifi_7            BOOLEAN NOT NULL DEFAULT FALSE
		)`, s.quoted())
	if _, err := s.execer(ctx).ExecContext(ctx, create); err != nil {
		return wrap("create products table", err)
	}

	index := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (date_certified)`,
		pq.QuoteIdentifier(s.table+"_date_certified_idx"), s.quoted())
	if _, err := s.execer(ctx).ExecContext(ctx, index); err != nil {
		return wrap("create date index", err)
	}
	return nil
}

// Upsert inserts new ids and overwrites every mutable column of existing
// ones. Rows absent from products are untouched. A stored certification date
// is only replaced by a non-null one. Each statement covers one batch using
// unnest and all batches share one transaction; products must not repeat an
// id.
func (s *PostgresStore) Upsert(ctx context.Context, products []models.Product) (int, error) {
	query := fmt.Sprintf(`
		INSERT INTO %[1]s (%[2]s)
		SELECT cid, NULLIF(brand, ''), NULLIF(product, ''), NULLIF(model_number, ''),
			NULLIF(date_certified, '')::date, NULLIF(category, ''), NULLIF(frequency_band, ''),
			wifi_support_list, wifi_n, wifi_ac, wifi_6, wifi_7
		FROM unnest(
			$1::text[], $2::text[], $3::text[], $4::text[], $5::text[], $6::text[],
			$7::text[], $8::text[], $9::bool[], $10::bool[], $11::bool[], $12::bool[]
		) AS t(%[2]s)
		ON CONFLICT (cid) DO UPDATE SET
			brand             = EXCLUDED.brand,
			product           = EXCLUDED.product,
			model_number      = EXCLUDED.model_number,
			date_certified    = COALESCE(EXCLUDED.date_certified, %[1]s.date_certified),
			category          = EXCLUDED.category,
			frequency_band    = EXCLUDED.frequency_band,
			wifi_support_list = EXCLUDED.wifi_support_list,
			wifi_n            = EXCLUDED.wifi_n,
			wifi_ac           = EXCLUDED.wifi_ac,
			wifi_6            = EXCLUDED.wifi_6,
			wifi_7            = EXCLUDED.wifi_7
	`, s.quoted(), columns)

	if len(products) == 0 {
		return 0, nil
	}
	written := 0
	err := txcontext.RunInTx(ctx, s.db, func(ctx context.Context) error {
		for start := 0; start < len(products); start += s.batchSize {
			batch := products[start:min(start+s.batchSize, len(products))]
			res, err := s.execer(ctx).ExecContext(ctx, query, batchArgs(batch)...)
			if err != nil {
				return wrap("upsert products", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return wrap("upsert products rows affected", err)
			}
			written += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

// ListByMonth returns rows certified within m, newest first.
func (s *PostgresStore) ListByMonth(ctx context.Context, m models.Month) ([]models.Product, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE date_certified >= $1::date AND date_certified < $2::date
		ORDER BY date_certified DESC, cid
	`, columns, s.quoted())

	rows, err := s.execer(ctx).QueryContext(ctx, query, monthBounds(m)...)
	if err != nil {
		return nil, wrap("query products by month", err)
	}
	defer rows.Close()

	var out []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterate products", err)
	}
	return out, nil
}

// DeleteByMonth removes rows certified within m and reports how many.
func (s *PostgresStore) DeleteByMonth(ctx context.Context, m models.Month) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE date_certified >= $1::date AND date_certified < $2::date`, s.quoted())
	res, err := s.execer(ctx).ExecContext(ctx, query, monthBounds(m)...)
	if err != nil {
		return 0, wrap("delete products by month", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, wrap("delete products rows affected", err)
	}
	return n, nil
}

// FindByID loads one product.
func (s *PostgresStore) FindByID(ctx context.Context, id string) (*models.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE cid = $1`, columns, s.quoted())
	p, err := scanProduct(s.execer(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Count returns the number of stored rows.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.execer(ctx).QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.quoted())).Scan(&n); err != nil {
		return 0, wrap("count products", err)
	}
	return n, nil
}

// monthBounds renders the half-open range as dates so the comparison never
// depends on the session time zone.
func monthBounds(m models.Month) []any {
	return []any{m.Start().Format(time.DateOnly), m.End().Format(time.DateOnly)}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (models.Product, error) {
	var (
		p                                        models.Product
		brand, name, model, category, band, list sql.NullString
		certified                                sql.NullTime
		wifiN, wifiAC, wifi6, wifi7              bool
	)
	err := row.Scan(&p.ID, &brand, &name, &model, &certified,
		&category, &band, &list, &wifiN, &wifiAC, &wifi6, &wifi7)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, err
		}
		return p, wrap("scan product", err)
	}
	p.Brand = brand.String
	p.Name = name.String
	p.ModelNumber = model.String
	p.Category = category.String
	p.FrequencyBand = band.String
	if certified.Valid {
		p.CertifiedOn = models.DateOf(certified.Time)
	}
	p.SetCapabilities(map[models.Capability]bool{
		models.CapabilityN:  wifiN,
		models.CapabilityAC: wifiAC,
		models.Capability6:  wifi6,
		models.Capability7:  wifi7,
	})
	return p, nil
}

func batchArgs(batch []models.Product) []any {
	n := len(batch)
	ids := make([]string, n)
	brands := make([]string, n)
	names := make([]string, n)
	modelNumbers := make([]string, n)
	dates := make([]string, n)
	categories := make([]string, n)
	bands := make([]string, n)
	lists := make([]string, n)
	wifiN := make([]bool, n)
	wifiAC := make([]bool, n)
	wifi6 := make([]bool, n)
	wifi7 := make([]bool, n)
	for i, p := range batch {
		ids[i] = p.ID
		brands[i] = p.Brand
		names[i] = p.Name
		modelNumbers[i] = p.ModelNumber
		dates[i] = p.CertifiedOn.String()
		categories[i] = p.Category
		bands[i] = p.FrequencyBand
		lists[i] = p.SupportList()
		wifiN[i] = p.Has(models.CapabilityN)
		wifiAC[i] = p.Has(models.CapabilityAC)
		wifi6[i] = p.Has(models.Capability6)
		wifi7[i] = p.Has(models.Capability7)
	}
	return []any{ids, brands, names, modelNumbers, dates, categories, bands, lists, wifiN, wifiAC, wifi6, wifi7}
}
