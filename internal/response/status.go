// File: internal/response/status.go
package response

import (
	"net/http"

	"sidequest/internal/services"
)

// ===============================
// STATUS SHORTCUTS
// ===============================

// WriteBadRequest writes a 400 validation response
func (b *Builder) WriteBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	if message == "" {
		message = "Bad request"
	}
	b.WriteError(w, r, services.NewValidationError(message, nil))
}

// WriteUnauthorized writes a 401 response
func (b *Builder) WriteUnauthorized(w http.ResponseWriter, r *http.Request, message string) {
	if message == "" {
		message = "Authentication required"
	}
	w.Header().Set("WWW-Authenticate", "Bearer")
	b.WriteError(w, r, services.NewUnauthorizedError(message))
}

// WriteForbidden writes a 403 response
func (b *Builder) WriteForbidden(w http.ResponseWriter, r *http.Request, message string) {
	if message == "" {
		message = "Access forbidden"
	}
	b.WriteError(w, r, services.NewForbiddenError(message))
}

// WriteNotFound writes a 404 response
func (b *Builder) WriteNotFound(w http.ResponseWriter, r *http.Request, message string) {
	if message == "" {
		message = "Resource not found"
	}
	b.WriteError(w, r, services.NewNotFoundError(message))
}

// WriteMethodNotAllowed writes a 405 response
func (b *Builder) WriteMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	err := services.NewBusinessError("Method not allowed", "METHOD_NOT_ALLOWED")
	err.StatusCode = http.StatusMethodNotAllowed
	b.WriteError(w, r, err)
}

// WriteTooManyRequests writes a 429 response
func (b *Builder) WriteTooManyRequests(w http.ResponseWriter, r *http.Request, retryAfter string) {
	if retryAfter != "" {
		w.Header().Set("Retry-After", retryAfter)
	}
	b.WriteError(w, r, services.NewRateLimitError("Too many requests, slow down", nil))
}

// WriteInternalServerError writes a 500 response
func (b *Builder) WriteInternalServerError(w http.ResponseWriter, r *http.Request, message string) {
	if message == "" {
		message = "Internal server error"
	}
	b.WriteError(w, r, services.NewInternalError(message))
}

// ===============================
// HEALTH CHECK RESPONSES
// ===============================

// WriteHealthCheck writes the health report, 503 when unhealthy
func (b *Builder) WriteHealthCheck(w http.ResponseWriter, r *http.Request, health *services.ServiceHealth) {
	code := http.StatusOK
	if health.Status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	resp := b.Success(r.Context(), health)
	resp.Success = code == http.StatusOK
	b.WriteJSON(w, r, resp, code)
}
