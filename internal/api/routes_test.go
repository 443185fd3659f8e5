package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skinmarket/arbiter/internal/cache"
	"github.com/skinmarket/arbiter/internal/config"
	"github.com/skinmarket/arbiter/internal/models"
	"github.com/skinmarket/arbiter/internal/snapshot"
)

type stubChecker struct{ err error }

func (s *stubChecker) HealthCheck(context.Context) error { return s.err }

type stubCache struct {
	entry     cache.ResultsEntry
	hasEntry  bool
	snapshots map[string]models.Snapshot
}

func (s *stubCache) GetResults(context.Context) (cache.ResultsEntry, bool) {
	return s.entry, s.hasEntry
}

func (s *stubCache) GetSnapshot(_ context.Context, source string) (models.Snapshot, bool) {
	snap, ok := s.snapshots[source]
	return snap, ok
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestRouter(t *testing.T, srv *Server) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	srv.SetupRoutes(router)
	return router
}

func testSnapshotStore(t *testing.T) *snapshot.Store {
	t.Helper()
	return snapshot.NewStore(filepath.Join(t.TempDir(), "dl"), filepath.Join(t.TempDir(), "res"), testLogger())
}

func TestHealthCheck(t *testing.T) {
	store := testSnapshotStore(t)

	t.Run("all healthy", func(t *testing.T) {
		srv := NewServer(&stubChecker{}, &stubChecker{}, &stubCache{}, store, nil, testLogger())
		router := newTestRouter(t, srv)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)

		var resp HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "ok", resp.Status)
		assert.Equal(t, "ok", resp.Services.Database)
	})

	t.Run("degraded when database down", func(t *testing.T) {
		srv := NewServer(&stubChecker{err: errors.New("connection refused")}, &stubChecker{}, &stubCache{}, store, nil, testLogger())
		router := newTestRouter(t, srv)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)

		var resp HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "degraded", resp.Status)
		assert.Equal(t, "error", resp.Services.Database)
		assert.Equal(t, "ok", resp.Services.Redis)
	})
}

func TestGetOpportunities(t *testing.T) {
	store := testSnapshotStore(t)

	t.Run("no run recorded", func(t *testing.T) {
		srv := NewServer(&stubChecker{}, &stubChecker{}, &stubCache{}, store, nil, testLogger())
		router := newTestRouter(t, srv)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/arbitrage/opportunities", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("recorded run with zero candidates", func(t *testing.T) {
		c := &stubCache{
			hasEntry: true,
			entry: cache.ResultsEntry{
				RunID:     "run-7",
				MinProfit: "0.5",
				CachedAt:  time.Now().UTC(),
			},
		}
		srv := NewServer(&stubChecker{}, &stubChecker{}, c, store, nil, testLogger())
		router := newTestRouter(t, srv)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/arbitrage/opportunities", nil))

		assert.Equal(t, http.StatusOK, w.Code)

		var resp OpportunitiesResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "run-7", resp.RunID)
		assert.Zero(t, resp.Count)
	})

	t.Run("recorded run with candidates", func(t *testing.T) {
		c := &stubCache{
			hasEntry: true,
			entry: cache.ResultsEntry{
				RunID: "run-8",
				Candidates: []models.ArbitrageCandidate{{
					ItemName:           "AWP | Asiimov",
					BuySource:          "csdeals",
					SellSource:         "skinport",
					BuyPrice:           decimal.RequireFromString("20.0"),
					SellPriceAfterSell: decimal.RequireFromString("22.0"),
					Profit:             decimal.RequireFromString("2.0"),
				}},
			},
		}
		srv := NewServer(&stubChecker{}, &stubChecker{}, c, store, nil, testLogger())
		router := newTestRouter(t, srv)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/arbitrage/opportunities", nil))

		assert.Equal(t, http.StatusOK, w.Code)

		var resp OpportunitiesResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 1, resp.Count)
		assert.Equal(t, "AWP | Asiimov", resp.Candidates[0].ItemName)
	})
}

func TestGetSources_ReportsSnapshotFreshness(t *testing.T) {
	store := testSnapshotStore(t)
	price := decimal.RequireFromString("10.0")
	require.NoError(t, store.Write(models.Snapshot{
		Source:   "csdeals",
		Listings: []models.Listing{{Name: "AK-47 | Redline", Price: &price}},
	}))

	sources := []config.SourceConfig{
		{Name: "csdeals", Enabled: true, Commission: 0.02},
		{Name: "shadowpay", Enabled: true, Commission: 0.05},
	}
	srv := NewServer(&stubChecker{}, &stubChecker{}, &stubCache{}, store, sources, testLogger())
	router := newTestRouter(t, srv)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/sources", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Sources []SourceStatus `json:"sources"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Sources, 2)

	assert.Equal(t, "csdeals", resp.Sources[0].Name)
	assert.True(t, resp.Sources[0].HasSnapshot)
	assert.Equal(t, 1, resp.Sources[0].Listings)
	assert.NotNil(t, resp.Sources[0].RetrievedAt)

	assert.False(t, resp.Sources[1].HasSnapshot)
}

func TestGetSnapshot(t *testing.T) {
	store := testSnapshotStore(t)
	price := decimal.RequireFromString("0.03")
	require.NoError(t, store.Write(models.Snapshot{
		Source:   "skinport",
		Listings: []models.Listing{{Name: "P250 | Sand Dune", Price: &price}},
	}))

	cached := models.Snapshot{Source: "csdeals", RetrievedAt: time.Now().UTC()}
	c := &stubCache{snapshots: map[string]models.Snapshot{"csdeals": cached}}
	srv := NewServer(&stubChecker{}, &stubChecker{}, c, store, nil, testLogger())
	router := newTestRouter(t, srv)

	t.Run("served from cache", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/snapshots/csdeals", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("falls back to disk", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/snapshots/skinport", nil))
		assert.Equal(t, http.StatusOK, w.Code)

		var snap models.Snapshot
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
		assert.Equal(t, "skinport", snap.Source)
		require.Len(t, snap.Listings, 1)
	})

	t.Run("unknown source", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/snapshots/buff163", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
