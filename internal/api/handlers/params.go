package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/airwaves-fm/stationsearch/internal/service"
	"github.com/airwaves-fm/stationsearch/internal/validator"
)

var paramValidator = validator.New()

// PageParams holds parsed pagination parameters
type PageParams struct {
	Page  int `validate:"min=1"`
	Limit int `validate:"min=1"`
}

// QueryParamParser provides lenient helpers for reading query parameters.
// Malformed values never fail a request; they fall back to the default.
type QueryParamParser struct {
	c       *gin.Context
	invalid []string
}

// NewQueryParamParser creates a new query parameter parser
func NewQueryParamParser(c *gin.Context) *QueryParamParser {
	return &QueryParamParser{c: c}
}

// Invalid describes the parameters that were ignored
func (p *QueryParamParser) Invalid() []string {
	return p.invalid
}

// Pagination reads page and limit. Values below one fall back to the
// defaults; the search service clamps the limit to its maximum.
func (p *QueryParamParser) Pagination(defaultLimit int) service.Options {
	params := PageParams{
		Page:  p.Int("page", 1),
		Limit: p.Int("limit", defaultLimit),
	}
	if err := paramValidator.Validate(params); err != nil {
		p.invalid = append(p.invalid, err.Error())
		if params.Page < 1 {
			params.Page = 1
		}
		if params.Limit < 1 {
			params.Limit = defaultLimit
		}
	}
	return service.Options{Page: params.Page, Limit: params.Limit}
}

// Int gets an integer parameter with a default
func (p *QueryParamParser) Int(key string, defaultValue int) int {
	raw := strings.TrimSpace(p.c.Query(key))
	if raw == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		p.invalid = append(p.invalid, key)
		return defaultValue
	}
	return parsed
}

// String gets a string parameter with optional default
func (p *QueryParamParser) String(key, defaultValue string) string {
	value := strings.TrimSpace(p.c.Query(key))
	if value == "" {
		return defaultValue
	}
	return value
}
