// Package export writes a month of stored products to CSV and XLSX files
// laid out as <root>/<YYYY>/<YYYY-MM>.<ext>.
package export

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"certsync/internal/platform/logger"
	"certsync/internal/product/models"
)

// ErrNotExported is returned when a month is purged before both export files
// exist.
var ErrNotExported = errors.New("month has not been exported")

// ErrExportStale is returned when stored rows of a month are missing from its
// export, typically because a sync ran after the export.
var ErrExportStale = errors.New("export does not cover every stored row")

// Result describes one export. Paths are empty when Count is zero.
type Result struct {
	Month    models.Month
	Count    int
	CSVPath  string
	XLSXPath string
}

// Exporter renders months into a directory tree.
type Exporter struct {
	root   string
	logger *slog.Logger
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Exporter) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New constructs an Exporter rooted at root.
func New(root string, opts ...Option) *Exporter {
	e := &Exporter{
		root:   root,
		logger: logger.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Paths returns the CSV and XLSX locations for m.
func (e *Exporter) Paths(m models.Month) (csvPath, xlsxPath string) {
	dir := filepath.Join(e.root, m.YearString())
	return filepath.Join(dir, m.String()+".csv"), filepath.Join(dir, m.String()+".xlsx")
}

// Exists reports whether both export files for m are on disk.
func (e *Exporter) Exists(m models.Month) (bool, error) {
	csvPath, xlsxPath := e.Paths(m)
	for _, p := range []string{csvPath, xlsxPath} {
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return false, nil
			}
			return false, fmt.Errorf("stat export %s: %w", p, err)
		}
	}
	return true, nil
}

// ExportedIDs returns the product ids recorded in m's CSV. It returns
// ErrNotExported unless both files exist.
func (e *Exporter) ExportedIDs(m models.Month) (map[string]struct{}, error) {
	exists, err := e.Exists(m)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotExported
	}
	csvPath, _ := e.Paths(m)
	f, err := os.Open(csvPath)
	if err != nil {
		return nil, fmt.Errorf("open export %s: %w", csvPath, err)
	}
	defer f.Close()

	ids, err := ReadCSVIDs(f)
	if err != nil {
		return nil, fmt.Errorf("read export %s: %w", csvPath, err)
	}
	return ids, nil
}

// Write renders products for m. An empty month writes nothing. Each file is
// written to a temporary sibling and renamed into place, so a failed export
// never leaves a partial file under the final name.
func (e *Exporter) Write(m models.Month, products []models.Product) (Result, error) {
	res := Result{Month: m, Count: len(products)}
	if len(products) == 0 {
		e.logger.Info("export skipped, month is empty", "month", m.String())
		return res, nil
	}

	csvPath, xlsxPath := e.Paths(m)
	if err := os.MkdirAll(filepath.Dir(csvPath), 0o755); err != nil {
		return Result{}, fmt.Errorf("create export dir: %w", err)
	}

	if err := writeAtomic(csvPath, func(w io.Writer) error { return WriteCSV(w, products) }); err != nil {
		return Result{}, err
	}
	if err := writeAtomic(xlsxPath, func(w io.Writer) error { return WriteXLSX(w, products) }); err != nil {
		return Result{}, err
	}

	res.CSVPath, res.XLSXPath = csvPath, xlsxPath
	e.logger.Info("month exported",
		"month", m.String(),
		"rows", res.Count,
		"csv", csvPath,
		"xlsx", xlsxPath,
	)
	return res, nil
}

func writeAtomic(path string, encode func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after rename

	if err := encode(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("publish %s: %w", path, err)
	}
	return nil
}
