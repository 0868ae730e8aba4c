// File: internal/response/pagination.go
package response

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"

	"sidequest/internal/models"
	"sidequest/internal/services"
)

// ===============================
// PAGINATION CONFIGURATION
// ===============================

// PaginationConfig holds pagination configuration
type PaginationConfig struct {
	DefaultLimit int      `json:"default_limit"`
	MaxLimit     int      `json:"max_limit"`
	SortFields   []string `json:"sort_fields"`
}

// DefaultPaginationConfig returns default pagination configuration
func DefaultPaginationConfig() *PaginationConfig {
	return &PaginationConfig{
		DefaultLimit: 20,
		MaxLimit:     100,
		SortFields: []string{
			"created_at", "updated_at", "points", "difficulty",
			"title", "completion_count", "xp", "level",
		},
	}
}

// ===============================
// PAGINATION PARSER
// ===============================

// PaginationParser parses page, limit, sort and order query parameters
type PaginationParser struct {
	config *PaginationConfig
}

// NewPaginationParser creates a new pagination parser
func NewPaginationParser(config *PaginationConfig) *PaginationParser {
	if config == nil {
		config = DefaultPaginationConfig()
	}
	return &PaginationParser{config: config}
}

// ParseFromQuery parses pagination parameters from a query string
func (p *PaginationParser) ParseFromQuery(query url.Values) (models.PaginationParams, error) {
	params := models.PaginationParams{
		Page:  1,
		Limit: p.config.DefaultLimit,
		Order: "desc",
	}

	if s := query.Get("page"); s != "" {
		page, err := strconv.Atoi(s)
		if err != nil || page < 1 {
			return params, services.InvalidInputError("page", "must be a positive integer")
		}
		params.Page = page
	}

	if s := query.Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit < 1 {
			return params, services.InvalidInputError("limit", "must be a positive integer")
		}
		if limit > p.config.MaxLimit {
			limit = p.config.MaxLimit
		}
		params.Limit = limit
	}

	if sort := strings.ToLower(strings.TrimSpace(query.Get("sort"))); sort != "" {
		if !slices.Contains(p.config.SortFields, sort) {
			return params, services.InvalidInputError("sort", "unsupported sort field")
		}
		params.Sort = sort
	}

	if order := strings.ToLower(query.Get("order")); order != "" {
		if order != "asc" && order != "desc" {
			return params, services.InvalidInputError("order", "must be asc or desc")
		}
		params.Order = order
	}
	return params, nil
}

// ParseFromRequest parses pagination parameters from an HTTP request
func (p *PaginationParser) ParseFromRequest(r *http.Request) (models.PaginationParams, error) {
	return p.ParseFromQuery(r.URL.Query())
}
