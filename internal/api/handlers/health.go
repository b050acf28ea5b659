package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/airwaves-fm/stationsearch/internal/service"
	"github.com/airwaves-fm/stationsearch/pkg/logger"
)

const readinessTimeout = 5 * time.Second

// HealthChecker is implemented by cache stores that can report their health
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler handles health check requests
type HealthHandler struct {
	searchService *service.SearchService
	cacheStore    HealthChecker
	logger        *logger.Logger
}

// NewHealthHandler creates a new health handler. cacheStore may be nil when
// the store cannot report its health.
func NewHealthHandler(searchService *service.SearchService, cacheStore HealthChecker, logger *logger.Logger) *HealthHandler {
	return &HealthHandler{
		searchService: searchService,
		cacheStore:    cacheStore,
		logger:        logger.WithComponent("health-handler"),
	}
}

// Health returns basic health status
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Readiness checks if the service is ready to handle requests. Only the
// content snapshot is required; a failing cache only slows cold starts.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	var (
		snapshotErr  error
		cacheHealthy = true
		stats        service.Stats
		wg           sync.WaitGroup
	)

	wg.Add(2)

	// Check content snapshot (required), loading one if needed
	go func() {
		defer wg.Done()
		_, snapshotErr = h.searchService.Snapshot(ctx)
		stats = h.searchService.Stats()
	}()

	// Check cache store (optional)
	go func() {
		defer wg.Done()
		if h.cacheStore != nil {
			cacheHealthy = h.cacheStore.HealthCheck(ctx) == nil
		}
	}()

	wg.Wait()

	snapshotHealthy := snapshotErr == nil && stats.Loaded
	checks := map[string]interface{}{
		"snapshot": map[string]interface{}{
			"healthy":  snapshotHealthy,
			"required": true,
			"items":    stats.Items,
			"indexed":  stats.Indexed,
			"age_ms":   stats.AgeMs,
			"partial":  stats.Partial,
		},
		"cache": map[string]interface{}{
			"healthy":  cacheHealthy,
			"required": false,
		},
	}

	status := "ready"
	code := http.StatusOK
	if !snapshotHealthy {
		status = "not ready"
		code = http.StatusServiceUnavailable
		h.logger.Warn("Readiness check failed", "error", snapshotErr)
	}

	body := gin.H{
		"status": status,
		"checks": checks,
	}

	var warnings []string
	if !cacheHealthy {
		warnings = append(warnings, "Cache store unavailable - snapshots are rebuilt from the content repository")
	}
	if len(stats.Partial) > 0 {
		warnings = append(warnings, "Snapshot is partial - some content types failed to load")
	}
	if len(warnings) > 0 {
		body["warnings"] = warnings
	}

	c.JSON(code, body)
}

// Liveness checks if the service is alive
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
