// Package api exposes the read-only HTTP surface: health, the last
// comparison run and the configured sources. It never triggers a
// pipeline run.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/skinmarket/arbiter/internal/cache"
	"github.com/skinmarket/arbiter/internal/config"
	"github.com/skinmarket/arbiter/internal/models"
	"github.com/skinmarket/arbiter/internal/snapshot"
)

// HealthChecker reports whether a backing service is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// RunCache is the slice of the cache the API reads from.
type RunCache interface {
	GetResults(ctx context.Context) (cache.ResultsEntry, bool)
	GetSnapshot(ctx context.Context, source string) (models.Snapshot, bool)
}

type Server struct {
	db      HealthChecker
	redis   HealthChecker
	cache   RunCache
	store   *snapshot.Store
	sources []config.SourceConfig
	log     *logrus.Logger
}

func NewServer(db, redis HealthChecker, runCache RunCache, store *snapshot.Store, sources []config.SourceConfig, log *logrus.Logger) *Server {
	return &Server{
		db:      db,
		redis:   redis,
		cache:   runCache,
		store:   store,
		sources: sources,
		log:     log,
	}
}

func (s *Server) SetupRoutes(router *gin.Engine) {
	router.GET("/health", s.healthCheck)

	v1 := router.Group("/api/v1")
	{
		arbitrage := v1.Group("/arbitrage")
		{
			arbitrage.GET("/opportunities", s.getOpportunities)
		}

		v1.GET("/sources", s.getSources)
		v1.GET("/snapshots/:source", s.getSnapshot)
	}
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Services  Services  `json:"services"`
}

type Services struct {
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

func (s *Server) healthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Services:  Services{Database: "ok", Redis: "ok"},
	}

	response.Services.Database = checkService(c.Request.Context(), s.db)
	response.Services.Redis = checkService(c.Request.Context(), s.redis)

	statusCode := http.StatusOK
	if response.Services.Database != "ok" || response.Services.Redis != "ok" {
		response.Status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, response)
}

func checkService(ctx context.Context, hc HealthChecker) string {
	if hc == nil {
		return "not configured"
	}
	if err := hc.HealthCheck(ctx); err != nil {
		return "error"
	}
	return "ok"
}

type OpportunitiesResponse struct {
	RunID      string                      `json:"run_id"`
	MinProfit  string                      `json:"min_profit"`
	Count      int                         `json:"count"`
	Candidates []models.ArbitrageCandidate `json:"candidates"`
	CachedAt   time.Time                   `json:"cached_at"`
}

// getOpportunities serves the last recorded comparison run. A 404 means
// no run has been recorded yet; a run that found nothing still returns
// 200 with an empty candidate list.
func (s *Server) getOpportunities(c *gin.Context) {
	entry, ok := s.cache.GetResults(c.Request.Context())
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no comparison run recorded yet"})
		return
	}

	c.JSON(http.StatusOK, OpportunitiesResponse{
		RunID:      entry.RunID,
		MinProfit:  entry.MinProfit,
		Count:      len(entry.Candidates),
		Candidates: entry.Candidates,
		CachedAt:   entry.CachedAt,
	})
}

type SourceStatus struct {
	Name        string     `json:"name"`
	Enabled     bool       `json:"enabled"`
	Commission  float64    `json:"commission"`
	HasSnapshot bool       `json:"has_snapshot"`
	Listings    int        `json:"listings,omitempty"`
	RetrievedAt *time.Time `json:"retrieved_at,omitempty"`
}

// getSources reports every configured source together with the
// freshness of its stored snapshot.
func (s *Server) getSources(c *gin.Context) {
	statuses := make([]SourceStatus, 0, len(s.sources))
	for _, sc := range s.sources {
		status := SourceStatus{
			Name:       sc.Name,
			Enabled:    sc.Enabled,
			Commission: sc.Commission,
		}

		if snap, err := s.store.Read(sc.Name); err == nil {
			status.HasSnapshot = true
			status.Listings = len(snap.Listings)
			retrievedAt := snap.RetrievedAt
			status.RetrievedAt = &retrievedAt
		}

		statuses = append(statuses, status)
	}

	c.JSON(http.StatusOK, gin.H{"sources": statuses})
}

// getSnapshot serves one source's latest snapshot, preferring the cache
// and falling back to the file on disk.
func (s *Server) getSnapshot(c *gin.Context) {
	source := c.Param("source")

	if snap, ok := s.cache.GetSnapshot(c.Request.Context(), source); ok {
		c.JSON(http.StatusOK, snap)
		return
	}

	snap, err := s.store.Read(source)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no snapshot for source " + source})
		return
	}
	c.JSON(http.StatusOK, snap)
}
