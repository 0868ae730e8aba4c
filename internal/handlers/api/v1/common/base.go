// Package common holds the plumbing shared by the v1 controllers.
package common

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"sidequest/internal/contextutils"
	"sidequest/internal/middleware"
	"sidequest/internal/models"
	"sidequest/internal/response"
	"sidequest/internal/services"
)

// Base is embedded by every controller
type Base struct {
	Logger           *zap.Logger
	ResponseBuilder  *response.Builder
	PaginationParser *response.PaginationParser
}

// NewBase creates the shared controller plumbing
func NewBase(logger *zap.Logger, builder *response.Builder) Base {
	return Base{
		Logger:           logger,
		ResponseBuilder:  builder,
		PaginationParser: response.NewPaginationParser(response.DefaultPaginationConfig()),
	}
}

// RequestLogger returns the request-scoped logger
func (b *Base) RequestLogger(r *http.Request) *zap.Logger {
	return contextutils.Logger(r.Context(), b.Logger)
}

// Actor returns the authenticated caller, writing a 401 when there is none
func (b *Base) Actor(w http.ResponseWriter, r *http.Request) (services.Actor, bool) {
	actor := middleware.GetActor(r.Context())
	if actor == nil {
		b.ResponseBuilder.WriteUnauthorized(w, r, "Authentication required")
		return services.Actor{}, false
	}
	return *actor, true
}

// Viewer returns the caller when authenticated, nil otherwise
func (b *Base) Viewer(r *http.Request) *services.Actor {
	return middleware.GetActor(r.Context())
}

// DecodeJSON decodes the body into dst, writing a 400 on failure
func (b *Base) DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}

	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		b.WriteError(w, r, services.NewValidationError("Request body too large", err))
	case errors.Is(err, io.EOF):
		b.WriteError(w, r, services.NewValidationError("Request body is required", err))
	default:
		b.RequestLogger(r).Debug("Failed to decode request body", zap.Error(err))
		b.WriteError(w, r, services.NewValidationError("Invalid request body format", err))
	}
	return false
}

// IDParam parses a positive int64 path parameter, writing a 400 on failure
func (b *Base) IDParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		b.WriteError(w, r, services.InvalidInputError(name, "must be a positive integer"))
		return 0, false
	}
	return id, true
}

// Pagination parses page, limit, sort and order, writing a 400 on failure
func (b *Base) Pagination(w http.ResponseWriter, r *http.Request) (models.PaginationParams, bool) {
	params, err := b.PaginationParser.ParseFromRequest(r)
	if err != nil {
		b.WriteError(w, r, err)
		return params, false
	}
	return params, true
}

// IntQuery reads an optional integer query parameter clamped to [1, max]
func (b *Base) IntQuery(r *http.Request, name string, def, max int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v < 1 {
		return def
	}
	if v > max {
		return max
	}
	return v
}

// WriteError writes a service error through the response builder
func (b *Base) WriteError(w http.ResponseWriter, r *http.Request, err error) {
	if services.IsErrorType(err, services.ErrTypeRateLimit) {
		w.Header().Set("Retry-After", "3600")
	}
	b.ResponseBuilder.WriteError(w, r, err)
}
