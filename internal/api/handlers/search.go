package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/airwaves-fm/stationsearch/internal/domain"
	"github.com/airwaves-fm/stationsearch/internal/service"
	"github.com/airwaves-fm/stationsearch/internal/urlstate"
	"github.com/airwaves-fm/stationsearch/pkg/logger"
	"github.com/airwaves-fm/stationsearch/pkg/response"
)

// HeaderSearchState carries the canonical query string for the applied filters
const HeaderSearchState = "X-Search-State"

// SearchHandler handles search-related requests
type SearchHandler struct {
	searchService *service.SearchService
	defaultLimit  int
	logger        *logger.Logger
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(searchService *service.SearchService, defaultLimit int, logger *logger.Logger) *SearchHandler {
	if defaultLimit < 1 {
		defaultLimit = service.DefaultConfig().DefaultLimit
	}
	return &SearchHandler{
		searchService: searchService,
		defaultLimit:  defaultLimit,
		logger:        logger.WithComponent("search-handler"),
	}
}

// Search runs the search pipeline for the filters in the query string.
// Failures are reported in the payload's error field, never as a 5xx.
func (h *SearchHandler) Search(c *gin.Context) {
	filters := urlstate.Parse(c.Request.URL.Query())
	params := NewQueryParamParser(c)
	opts := params.Pagination(h.defaultLimit)
	if bad := params.Invalid(); len(bad) > 0 {
		h.logger.Debug("Ignoring malformed parameters", "params", bad)
	}

	resp := h.searchService.Search(c.Request.Context(), filters, opts)
	if resp.Error != "" {
		h.logger.Warn("Search returned advisory", "query", filters.Search, "error", resp.Error)
	}

	c.Header(HeaderSearchState, urlstate.Encode(filters))
	response.Paginated(c, resp, resp.Page, resp.Limit, resp.Total)
}

// Content returns the initial browse listing
func (h *SearchHandler) Content(c *gin.Context) {
	limit := NewQueryParamParser(c).Int("limit", h.defaultLimit)
	resp := h.searchService.GetInitialContent(c.Request.Context(), limit)
	response.Paginated(c, resp, resp.Page, resp.Limit, resp.Total)
}

// Filters returns the filter universe with counts over the whole snapshot
func (h *SearchHandler) Filters(c *gin.Context) {
	response.Success(c, h.searchService.GetAvailableFilters(c.Request.Context()))
}

// Suggest returns title completions for a partial query
func (h *SearchHandler) Suggest(c *gin.Context) {
	params := NewQueryParamParser(c)
	q := params.String(urlstate.KeySearch, "")
	limit := params.Int("limit", 10)

	response.Success(c, h.searchService.Suggest(c.Request.Context(), q, limit))
}

// Item returns one item by content type and slug
func (h *SearchHandler) Item(c *gin.Context) {
	item, err := h.searchService.GetItem(c.Request.Context(), c.Param("type"), c.Param("slug"))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidContentType):
			response.BadRequest(c, "Unknown content type")
		case errors.Is(err, domain.ErrItemNotFound):
			response.NotFound(c, "Item not found")
		default:
			h.logger.Error("Item lookup failed", "type", c.Param("type"), "slug", c.Param("slug"), "error", err)
			response.ServiceUnavailable(c, "Content is temporarily unavailable")
		}
		return
	}
	response.Success(c, item)
}
