package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/drive/v3"

	"certsync/internal/platform/config"
	"certsync/internal/platform/metrics"
	"certsync/internal/product/export"
	"certsync/internal/product/models"
	"certsync/internal/product/service"
	"certsync/internal/product/store"
)

type harness struct {
	app    *App
	store  *store.InMemoryStore
	opened int
	out    *bytes.Buffer
}

func newHarness(t *testing.T, finderURL string) *harness {
	t.Helper()
	h := &harness{store: store.NewInMemory(), out: &bytes.Buffer{}}
	cfg := config.Config{
		Postgres: config.Postgres{Table: store.DefaultTable},
		Finder: config.Finder{
			BaseURL:        finderURL,
			Certifications: config.DefaultCertifications,
			PageSize:       2,
			Timeout:        5 * time.Second,
			Lookback:       7 * 24 * time.Hour,
		},
		Export: config.Export{Root: t.TempDir()},
	}
	h.app = &App{
		Config:  cfg,
		Metrics: metrics.New(),
		OpenStore: func(context.Context, config.Postgres) (Store, func() error, error) {
			h.opened++
			return h.store, func() error { return nil }, nil
		},
		DriveService: func(context.Context, config.Drive) (*drive.Service, error) {
			return nil, errors.New("drive unavailable in tests")
		},
		Clock: func() time.Time { return time.Date(2024, time.April, 10, 12, 0, 0, 0, time.UTC) },
	}
	return h
}

func (h *harness) run(args ...string) error {
	cmd := NewRootCommand(h.app)
	cmd.SetOut(h.out)
	cmd.SetErr(h.out)
	cmd.SetArgs(args)
	return cmd.Execute()
}

func finderServer(t *testing.T, pages [][]map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start, _ := strconv.Atoi(r.URL.Query().Get("start"))
		items, _ := strconv.Atoi(r.URL.Query().Get("items"))
		var body []map[string]any
		if i := start / items; i < len(pages) {
			body = pages[i]
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"items": body})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func seed(t *testing.T, s *store.InMemoryStore, rows map[string]string) {
	t.Helper()
	var products []models.Product
	for id, date := range rows {
		products = append(products, models.Product{ID: id, CertifiedOn: models.ParseDate(date)})
	}
	_, err := s.Upsert(context.Background(), products)
	require.NoError(t, err)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand(&App{})
	for _, name := range []string{"sync", "export-month", "purge-month", "upload-month", "migrate"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestSyncCommand(t *testing.T) {
	srv := finderServer(t, [][]map[string]any{
		{{"cid": "A1", "certified": "2024-04-01"}, {"cid": "B2", "certified": "2024-04-02"}},
		{{"cid": "A1", "certified": "2024-04-05"}},
	})
	h := newHarness(t, srv.URL)

	require.NoError(t, h.run("sync"))

	n, _ := h.store.Count(context.Background())
	assert.Equal(t, 2, n)
	a, err := h.store.FindByID(context.Background(), "A1")
	require.NoError(t, err)
	assert.Equal(t, "2024-04-05", a.CertifiedOn.String())
	assert.Contains(t, h.out.String(), "2024-04-03..2024-04-10")
	assert.Contains(t, h.out.String(), "fetched 3, dropped 0, unique 2, written 2")
}

func TestSyncDryRunLeavesStoreAlone(t *testing.T) {
	srv := finderServer(t, [][]map[string]any{{{"cid": "A1", "certified": "2024-04-01"}}})
	h := newHarness(t, srv.URL)

	require.NoError(t, h.run("sync", "--dry-run"))

	assert.Zero(t, h.opened)
	assert.Contains(t, h.out.String(), "dry run")
}

func TestSyncRejectsBadDatesBeforeIO(t *testing.T) {
	h := newHarness(t, "http://127.0.0.1:0")

	err := h.run("sync", "--since", "04/01/2024")
	assert.Equal(t, ExitUsage, ExitCode(err))

	err = h.run("sync", "--since", "2024-05-01", "--until", "2024-04-01")
	assert.Equal(t, ExitUsage, ExitCode(err))
	assert.Zero(t, h.opened)
}

func TestSyncRejectsFutureSinceWithDefaultUntil(t *testing.T) {
	h := newHarness(t, "http://127.0.0.1:0")

	// The clock reads 2024-04-10, so the default --until is before --since.
	err := h.run("sync", "--since", "2024-04-20")
	assert.Equal(t, ExitUsage, ExitCode(err))
	assert.ErrorIs(t, err, service.ErrInvalidWindow)
	assert.Zero(t, h.opened)

	err = h.run("sync", "--since", "2024-04-20", "--dry-run")
	assert.Equal(t, ExitUsage, ExitCode(err))
}

func TestFlagAndArgumentErrorsAreUsageErrors(t *testing.T) {
	h := newHarness(t, "")

	for name, args := range map[string][]string{
		"unknown flag":         {"sync", "--bogus"},
		"flag missing value":   {"sync", "--since"},
		"bad bool flag":        {"purge-month", "2024-03", "--force=maybe"},
		"unexpected argument":  {"sync", "extra"},
		"too many months":      {"export-month", "2024-03", "2024-04"},
		"migrate takes no arg": {"migrate", "now"},
	} {
		t.Run(name, func(t *testing.T) {
			err := h.run(args...)
			require.Error(t, err)
			assert.Equal(t, ExitUsage, ExitCode(err))
		})
	}
	assert.Zero(t, h.opened)
}

func TestSyncTransportErrorIsReportedNotFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("start") != "0" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"items": []map[string]any{
			{"cid": "A", "certified": "2024-04-01"}, {"cid": "B", "certified": "2024-04-02"},
		}})
	}))
	defer srv.Close()
	h := newHarness(t, srv.URL)

	require.NoError(t, h.run("sync"))
	n, _ := h.store.Count(context.Background())
	assert.Equal(t, 2, n)
	assert.Contains(t, h.out.String(), "resume from offset 2")
}

func TestExportThenPurge(t *testing.T) {
	h := newHarness(t, "")
	seed(t, h.store, map[string]string{
		"M1": "2024-03-01", "M2": "2024-03-15", "M3": "2024-03-31",
		"F1": "2024-02-10", "F2": "2024-02-20",
	})

	err := h.run("purge-month", "2024-03")
	require.ErrorIs(t, err, export.ErrNotExported)

	require.NoError(t, h.run("export-month"))
	assert.Contains(t, h.out.String(), "export 2024-03: 3 rows")
	_, err = os.Stat(filepath.Join(h.app.Config.Export.Root, "2024", "2024-03.xlsx"))
	require.NoError(t, err)

	require.NoError(t, h.run("purge-month", "2024-03"))
	assert.Contains(t, h.out.String(), "purge 2024-03: 3 rows deleted")

	n, _ := h.store.Count(context.Background())
	assert.Equal(t, 2, n)
}

func TestPurgeRefusesRowsSyncedAfterExport(t *testing.T) {
	h := newHarness(t, "")
	seed(t, h.store, map[string]string{"M1": "2024-03-01", "M2": "2024-03-15"})

	require.NoError(t, h.run("export-month", "2024-03"))
	assert.Contains(t, h.out.String(), "export 2024-03: 2 rows")

	seed(t, h.store, map[string]string{"M3": "2024-03-30"})

	err := h.run("purge-month", "2024-03")
	require.ErrorIs(t, err, export.ErrExportStale)
	assert.Equal(t, ExitFailure, ExitCode(err))
	n, _ := h.store.Count(context.Background())
	assert.Equal(t, 3, n)
	_, err = h.store.FindByID(context.Background(), "M3")
	require.NoError(t, err)

	require.NoError(t, h.run("export-month", "2024-03"))
	require.NoError(t, h.run("purge-month", "2024-03"))
	assert.Contains(t, h.out.String(), "purge 2024-03: 3 rows deleted")
}

func TestExportEmptyMonth(t *testing.T) {
	h := newHarness(t, "")

	require.NoError(t, h.run("export-month", "2023-01"))
	assert.Contains(t, h.out.String(), "no rows, nothing written")
}

func TestPurgeForce(t *testing.T) {
	h := newHarness(t, "")
	seed(t, h.store, map[string]string{"M1": "2024-03-01"})

	require.NoError(t, h.run("purge-month", "2024-03", "--force"))
	assert.Contains(t, h.out.String(), "1 rows deleted (forced)")
}

func TestMonthArgumentErrors(t *testing.T) {
	h := newHarness(t, "")

	err := h.run("purge-month")
	assert.Equal(t, ExitUsage, ExitCode(err))

	err = h.run("export-month", "March")
	assert.Equal(t, ExitUsage, ExitCode(err))
	assert.ErrorIs(t, err, models.ErrInvalidMonth)

	assert.Zero(t, h.opened)
}

func TestUploadMonth(t *testing.T) {
	t.Run("missing drive config is a usage error", func(t *testing.T) {
		h := newHarness(t, "")
		err := h.run("upload-month", "2024-03")
		assert.Equal(t, ExitUsage, ExitCode(err))
	})

	t.Run("refuses months that were never exported", func(t *testing.T) {
		h := newHarness(t, "")
		h.app.Config.Drive = config.Drive{CredentialsFile: "creds.json", ParentID: "root"}
		err := h.run("upload-month", "2024-03")
		assert.ErrorIs(t, err, export.ErrNotExported)
		assert.Equal(t, ExitFailure, ExitCode(err))
	})
}

func TestMigrate(t *testing.T) {
	h := newHarness(t, "")
	seed(t, h.store, map[string]string{"X": "2024-01-01"})

	require.NoError(t, h.run("migrate"))
	assert.Contains(t, h.out.String(), "schema ready: wifi_products (1 rows)")
}
