package service

//go:generate mockgen -source=sync.go -destination=mocks/sync_mocks.go -package=mocks ProductStore

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"certsync/internal/product/finder"
	"certsync/internal/product/models"
	"certsync/internal/product/service/mocks"
	"certsync/pkg/requestcontext"
)

// =============================================================================
// Sync Service Test Suite
// =============================================================================
// The finder runs against an httptest server so pagination is real; the store
// is mocked to observe exactly what gets reconciled.

type SyncServiceSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	mockStore *mocks.MockProductStore
	pages     [][]map[string]any
	failAt    int
	mu        sync.Mutex
	requests  []capturedRequest
	server    *httptest.Server
	service   *SyncService
}

type capturedRequest struct {
	from, to, start, certs string
}

func TestSyncServiceSuite(t *testing.T) {
	suite.Run(t, new(SyncServiceSuite))
}

func (s *SyncServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockStore = mocks.NewMockProductStore(s.ctrl)
	s.pages = nil
	s.failAt = -1
	s.requests = nil
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		s.mu.Lock()
		defer s.mu.Unlock()
		s.requests = append(s.requests, capturedRequest{
			from:  q.Get("date_from"),
			to:    q.Get("date_to"),
			start: q.Get("start"),
			certs: q.Get("certifications"),
		})
		start, _ := strconv.Atoi(q.Get("start"))
		items, _ := strconv.Atoi(q.Get("items"))
		page := start / items
		if page == s.failAt {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		var body []map[string]any
		if page < len(s.pages) {
			body = s.pages[page]
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"items": body})
	}))
	client := finder.New(s.server.URL, finder.WithHTTPClient(s.server.Client()))
	var err error
	s.service, err = NewSync(client, s.mockStore, WithPageSize(2), WithCertifications([]string{"276", "235"}))
	s.Require().NoError(err)
}

func (s *SyncServiceSuite) TearDownTest() {
	s.server.Close()
	s.ctrl.Finish()
}

func item(id, date string) map[string]any {
	return map[string]any{"cid": id, "certified": date, "name": "Product " + id}
}

func productIDs(products []models.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

func (s *SyncServiceSuite) TestNew() {
	s.Run("nil fetcher returns error", func() {
		_, err := NewSync(nil, s.mockStore)
		s.ErrorContains(err, "fetcher is required")
	})

	s.Run("nil store returns error", func() {
		_, err := NewSync(finder.New("http://unused"), nil)
		s.ErrorContains(err, "product store is required")
	})
}

func (s *SyncServiceSuite) TestRunDedupsAcrossPagesAndUpserts() {
	s.pages = [][]map[string]any{
		{item("A1", "2024-01-05"), item("B2", "2024-01-06")},
		{item("A1", "2024-01-10"), {"name": "no id"}},
		{item("C3", "2024-01-07")},
	}

	gomock.InOrder(
		s.mockStore.EXPECT().EnsureSchema(gomock.Any()).Return(nil),
		s.mockStore.EXPECT().Upsert(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, products []models.Product) (int, error) {
				s.Equal([]string{"A1", "B2", "C3"}, productIDs(products))
				s.Equal("2024-01-10", products[0].CertifiedOn.String())
				return len(products), nil
			}),
	)

	report, err := s.service.Run(context.Background(), SyncRequest{})
	s.Require().NoError(err)
	s.NotEmpty(report.RunID)
	s.Equal(3, report.Pages)
	s.Equal(4, report.Fetched)
	s.Equal(1, report.Dropped)
	s.Equal(3, report.Unique)
	s.Equal(3, report.Written)
	s.False(report.Partial())
	s.Equal("276,235", s.requests[0].certs)
}

func (s *SyncServiceSuite) TestRunReconcilesPartialResultsOnTransportError() {
	s.pages = [][]map[string]any{
		{item("A", "2024-02-01"), item("B", "2024-02-02")},
		{item("C", "2024-02-03"), item("D", "2024-02-04")},
	}
	s.failAt = 2

	s.mockStore.EXPECT().EnsureSchema(gomock.Any()).Return(nil)
	s.mockStore.EXPECT().Upsert(gomock.Any(), gomock.Len(4)).Return(4, nil)

	report, err := s.service.Run(context.Background(), SyncRequest{})
	s.Require().NoError(err)
	s.True(report.Partial())
	s.ErrorIs(report.FetchErr, finder.ErrTransport)
	s.Equal(4, report.Written)
	s.Equal(4, report.NextOffset)
}

func (s *SyncServiceSuite) TestRunSchemaFailureIsFatalBeforeFetching() {
	s.mockStore.EXPECT().EnsureSchema(gomock.Any()).Return(errors.New("connection refused"))

	_, err := s.service.Run(context.Background(), SyncRequest{})
	s.ErrorContains(err, "ensure schema")
	s.Empty(s.requests)
}

func (s *SyncServiceSuite) TestRunStoreFailureIsFatal() {
	s.pages = [][]map[string]any{{item("A", "2024-02-01")}}
	storeErr := errors.New("unique violation")

	s.mockStore.EXPECT().EnsureSchema(gomock.Any()).Return(nil)
	s.mockStore.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(0, storeErr)

	_, err := s.service.Run(context.Background(), SyncRequest{})
	s.ErrorIs(err, storeErr)
}

func (s *SyncServiceSuite) TestRunEmptyWindowStillUpsertsNothing() {
	s.mockStore.EXPECT().EnsureSchema(gomock.Any()).Return(nil)
	s.mockStore.EXPECT().Upsert(gomock.Any(), gomock.Len(0)).Return(0, nil)

	report, err := s.service.Run(context.Background(), SyncRequest{})
	s.Require().NoError(err)
	s.Equal(1, report.Pages)
	s.Zero(report.Written)
}

func (s *SyncServiceSuite) TestWindowDefaults() {
	now := time.Date(2025, time.June, 15, 18, 30, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)

	s.Run("default is the lookback ending today", func() {
		from, to, err := s.service.Window(ctx, SyncRequest{})
		s.Require().NoError(err)
		s.Equal("2025-06-15", to.Format(time.DateOnly))
		s.Equal("2025-06-08", from.Format(time.DateOnly))
	})

	s.Run("explicit bounds win", func() {
		since := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
		until := time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)
		from, to, err := s.service.Window(ctx, SyncRequest{From: since, To: until})
		s.Require().NoError(err)
		s.Equal(since, from)
		s.Equal(until, to)
	})

	s.Run("future since with default until is rejected", func() {
		since := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)
		_, _, err := s.service.Window(ctx, SyncRequest{From: since})
		s.ErrorIs(err, ErrInvalidWindow)
	})

	s.Run("inverted window never reaches the store or upstream", func() {
		since := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)
		_, err := s.service.Run(ctx, SyncRequest{From: since})
		s.ErrorIs(err, ErrInvalidWindow)
		s.Empty(s.requests)
	})

	s.Run("window reaches the request", func() {
		s.mockStore.EXPECT().EnsureSchema(gomock.Any()).Return(nil)
		s.mockStore.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(0, nil)
		_, err := s.service.Run(ctx, SyncRequest{})
		s.Require().NoError(err)
		s.Equal("2025-06-08", s.requests[0].from)
		s.Equal("2025-06-15", s.requests[0].to)
	})
}
