package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/price-radar/price-radar/internal/collector"
	"github.com/price-radar/price-radar/internal/storage"
)

// handleHealth pings the database and the cache.
func (s *Server) handleHealth(c *gin.Context) {
	ctx := c.Request.Context()

	checks := gin.H{"database": "ok", "cache": "ok"}
	status := http.StatusOK

	if err := s.db.PingContext(ctx); err != nil {
		checks["database"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	if err := s.cache.Ping(ctx); err != nil {
		checks["cache"] = err.Error()
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status": map[bool]string{true: "healthy", false: "unhealthy"}[status == http.StatusOK],
		"checks": checks,
	})
}

// handleRunBatch triggers a full collect-and-analyze batch.
func (s *Server) handleRunBatch(c *gin.Context) {
	result, err := s.runner.RunOnce(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// handleCollectSingle collects one provider without running the pipeline.
func (s *Server) handleCollectSingle(c *gin.Context) {
	slug := c.Param("slug")
	result := s.collector.CollectSingle(c.Request.Context(), slug)

	status := http.StatusOK
	if !result.Success && !result.Skipped {
		status = http.StatusBadGateway
	}
	c.JSON(status, result.Summary())
}

// handleCollectorStatus exposes the per-provider circuit breaker snapshot.
func (s *Server) handleCollectorStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"breakers": s.collector.BreakerSnapshots(),
	})
}

// handleRecentReports returns the bounded log of recent batch reports.
func (s *Server) handleRecentReports(c *gin.Context) {
	raw, err := s.cache.LRange(c.Request.Context(), "collector:reports", 0, -1)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	reports := make([]collector.ReportSummary, 0, len(raw))
	for _, data := range raw {
		var summary collector.ReportSummary
		if err := json.Unmarshal(data, &summary); err != nil {
			continue
		}
		reports = append(reports, summary)
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

// invalidateRequest selects which provider cache to drop.
type invalidateRequest struct {
	Provider string `form:"provider"`
}

// handleInvalidateCache drops cached provider records.
func (s *Server) handleInvalidateCache(c *gin.Context) {
	var req invalidateRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.collector.InvalidateCache(c.Request.Context(), req.Provider); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"invalidated": true, "provider": req.Provider})
}

// handleTrending returns the current trending products.
func (s *Server) handleTrending(c *gin.Context) {
	entries, err := storage.NewTrendingStore(s.db).GetAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trending": entries})
}
