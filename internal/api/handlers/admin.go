package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/airwaves-fm/stationsearch/internal/api/middleware"
	"github.com/airwaves-fm/stationsearch/internal/service"
	"github.com/airwaves-fm/stationsearch/pkg/logger"
	"github.com/airwaves-fm/stationsearch/pkg/response"
)

// AdminHandler handles cache maintenance requests
type AdminHandler struct {
	searchService *service.SearchService
	logger        *logger.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(searchService *service.SearchService, logger *logger.Logger) *AdminHandler {
	return &AdminHandler{
		searchService: searchService,
		logger:        logger.WithComponent("admin-handler"),
	}
}

// ClearCache drops the persisted snapshot and the resident one
func (h *AdminHandler) ClearCache(c *gin.Context) {
	h.searchService.ClearCache(c.Request.Context())
	h.logger.Info("Cache cleared", "subject", middleware.GetSubject(c))
	response.SuccessWithMessage(c, "Cache cleared", h.searchService.Stats())
}

// Refresh rebuilds the snapshot from the content repository
func (h *AdminHandler) Refresh(c *gin.Context) {
	stats, err := h.searchService.Refresh(c.Request.Context())
	if err != nil {
		h.logger.Error("Refresh failed", "subject", middleware.GetSubject(c), "error", err)
		response.ServiceUnavailable(c, "Refresh failed; the previous snapshot is still served")
		return
	}
	h.logger.Info("Snapshot refreshed", "subject", middleware.GetSubject(c), "snapshot", stats.SnapshotID)
	response.SuccessWithMessage(c, "Snapshot refreshed", stats)
}

// Stats describes the resident snapshot
func (h *AdminHandler) Stats(c *gin.Context) {
	response.Success(c, h.searchService.Stats())
}
