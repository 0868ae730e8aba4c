package services

import (
	"errors"
	"fmt"
	"net/http"

	"sidequest/internal/validation"
)

// ===============================
// ERROR TYPES
// ===============================

// Error kinds
const (
	ErrTypeValidation     = "VALIDATION_ERROR"
	ErrTypeAuthentication = "AUTHENTICATION_ERROR"
	ErrTypeAuthorization  = "AUTHORIZATION_ERROR"
	ErrTypeForbidden      = "FORBIDDEN"
	ErrTypeNotFound       = "NOT_FOUND"
	ErrTypeConflict       = "CONFLICT"
	ErrTypeBusiness       = "BUSINESS_ERROR"
	ErrTypeRateLimit      = "RATE_LIMIT"
	ErrTypeGeneration     = "GENERATION_ERROR"
	ErrTypeModeration     = "MODERATION_ERROR"
	ErrTypeInternal       = "INTERNAL_ERROR"
	ErrTypeUnavailable    = "SERVICE_UNAVAILABLE"
)

// ServiceError represents a structured service error
type ServiceError struct {
	Type       string                 `json:"type"`
	Message    string                 `json:"message"`
	Code       string                 `json:"code,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	StatusCode int                    `json:"-"`
	Cause      error                  `json:"-"`
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// GetStatusCode returns the HTTP status code for this error
func (e *ServiceError) GetStatusCode() int {
	if e.StatusCode > 0 {
		return e.StatusCode
	}
	return http.StatusInternalServerError
}

// ===============================
// ERROR CONSTRUCTORS
// ===============================

// NewValidationError creates a validation error
func NewValidationError(message string, cause error) *ServiceError {
	return &ServiceError{
		Type:       ErrTypeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Cause:      cause,
	}
}

// NewBusinessError creates a business logic error
func NewBusinessError(message, code string) *ServiceError {
	return &ServiceError{
		Type:       ErrTypeBusiness,
		Message:    message,
		Code:       code,
		StatusCode: http.StatusUnprocessableEntity,
	}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(message string) *ServiceError {
	return &ServiceError{
		Type:       ErrTypeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError(message string) *ServiceError {
	return &ServiceError{
		Type:       ErrTypeAuthentication,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// NewForbiddenError creates a forbidden error
func NewForbiddenError(message string) *ServiceError {
	return &ServiceError{
		Type:       ErrTypeForbidden,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

// NewConflictError creates a conflict error
func NewConflictError(message, code string) *ServiceError {
	return &ServiceError{
		Type:       ErrTypeConflict,
		Message:    message,
		Code:       code,
		StatusCode: http.StatusConflict,
	}
}

// NewRateLimitError creates a rate limit error
func NewRateLimitError(message string, details map[string]interface{}) *ServiceError {
	return &ServiceError{
		Type:       ErrTypeRateLimit,
		Message:    message,
		Details:    details,
		StatusCode: http.StatusTooManyRequests,
	}
}

// NewGenerationError is returned when quest generation cannot produce a result
func NewGenerationError(message string, cause error) *ServiceError {
	return &ServiceError{
		Type:       ErrTypeGeneration,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Cause:      cause,
	}
}

// NewModerationError is returned when no classifier could produce a verdict
func NewModerationError(message string, cause error) *ServiceError {
	return &ServiceError{
		Type:       ErrTypeModeration,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Cause:      cause,
	}
}

// NewInternalError creates an internal server error
func NewInternalError(message string) *ServiceError {
	return &ServiceError{
		Type:       ErrTypeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

// NewServiceUnavailableError creates a service unavailable error
func NewServiceUnavailableError(message string) *ServiceError {
	return &ServiceError{
		Type:       ErrTypeUnavailable,
		Message:    message,
		StatusCode: http.StatusServiceUnavailable,
	}
}

// ===============================
// SPECIALIZED ERRORS
// ===============================

// AuthenticationError represents authentication-related errors
type AuthenticationError struct {
	*ServiceError
	UserID   *int64 `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// NewAuthenticationError creates an authentication error
func NewAuthenticationError(message, reason string, userID *int64, username string) *AuthenticationError {
	return &AuthenticationError{
		ServiceError: &ServiceError{
			Type:       ErrTypeAuthentication,
			Message:    message,
			StatusCode: http.StatusUnauthorized,
		},
		UserID:   userID,
		Username: username,
		Reason:   reason,
	}
}

// AuthorizationError represents authorization-related errors
type AuthorizationError struct {
	*ServiceError
	UserID       int64  `json:"user_id"`
	Resource     string `json:"resource"`
	Action       string `json:"action"`
	RequiredRole string `json:"required_role,omitempty"`
}

// NewAuthorizationError creates an authorization error
func NewAuthorizationError(message, resource, action string, userID int64) *AuthorizationError {
	return &AuthorizationError{
		ServiceError: &ServiceError{
			Type:       ErrTypeAuthorization,
			Message:    message,
			StatusCode: http.StatusForbidden,
		},
		UserID:   userID,
		Resource: resource,
		Action:   action,
	}
}

// ValidationError represents detailed validation errors
type ValidationError struct {
	*ServiceError
	Fields []FieldError `json:"fields,omitempty"`
}

// FieldError represents a single field validation error
type FieldError struct {
	Field   string      `json:"field"`
	Value   interface{} `json:"value,omitempty"`
	Message string      `json:"message"`
	Code    string      `json:"code"`
}

// NewDetailedValidationError creates a validation error with field details
func NewDetailedValidationError(message string, fields []FieldError) *ValidationError {
	return &ValidationError{
		ServiceError: &ServiceError{
			Type:       ErrTypeValidation,
			Message:    message,
			StatusCode: http.StatusBadRequest,
		},
		Fields: fields,
	}
}

// FromValidation converts struct validation failures into a ValidationError
// whose message concatenates every violation. Other errors pass through.
func FromValidation(err error) error {
	if err == nil {
		return nil
	}
	ve, ok := validation.AsErrors(err)
	if !ok {
		return NewValidationError(err.Error(), err)
	}

	fields := make([]FieldError, 0, len(ve.Issues))
	for _, issue := range ve.Issues {
		fields = append(fields, FieldError{
			Field:   issue.Field,
			Value:   issue.Value,
			Message: issue.Message,
			Code:    issue.Rule,
		})
	}
	out := NewDetailedValidationError(ve.Error(), fields)
	out.Cause = err
	return out
}

// ===============================
// ERROR UTILITIES
// ===============================

// GetServiceError extracts a ServiceError from an error, or creates a generic one
func GetServiceError(err error) *ServiceError {
	if err == nil {
		return nil
	}

	var authErr *AuthenticationError
	if errors.As(err, &authErr) {
		return authErr.ServiceError
	}
	var authzErr *AuthorizationError
	if errors.As(err, &authzErr) {
		return authzErr.ServiceError
	}
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return valErr.ServiceError
	}
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr
	}

	internal := NewInternalError(err.Error())
	internal.Cause = err
	return internal
}

// GetFieldErrors returns the field list of a detailed validation error
func GetFieldErrors(err error) []FieldError {
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return valErr.Fields
	}
	return nil
}

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errorType string) bool {
	if serviceErr := GetServiceError(err); serviceErr != nil {
		return serviceErr.Type == errorType
	}
	return false
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return IsErrorType(err, ErrTypeNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return IsErrorType(err, ErrTypeValidation)
}

// IsConflictError checks if an error is a conflict error
func IsConflictError(err error) bool {
	return IsErrorType(err, ErrTypeConflict)
}

// IsAuthenticationError checks if an error is an authentication error
func IsAuthenticationError(err error) bool {
	return IsErrorType(err, ErrTypeAuthentication)
}

// IsAuthorizationError checks if an error is an authorization error
func IsAuthorizationError(err error) bool {
	return IsErrorType(err, ErrTypeAuthorization) || IsErrorType(err, ErrTypeForbidden)
}

// ===============================
// COMMON ERROR PATTERNS
// ===============================

// EntityNotFoundError creates a standard entity not found error
func EntityNotFoundError(entityType string, id interface{}) *ServiceError {
	err := NewNotFoundError(fmt.Sprintf("%s not found", entityType))
	err.Details = map[string]interface{}{"resource": entityType, "id": id}
	return err
}

// InsufficientPermissionsError creates a standard permissions error
func InsufficientPermissionsError(action, resource string) *ServiceError {
	err := NewForbiddenError(fmt.Sprintf("Insufficient permissions to %s %s", action, resource))
	err.Details = map[string]interface{}{"operation": action, "resource": resource}
	return err
}

// InvalidInputError creates a single-field validation error
func InvalidInputError(field, message string) *ValidationError {
	return NewDetailedValidationError(
		fmt.Sprintf("%s %s", field, message),
		[]FieldError{{Field: field, Message: message, Code: "invalid"}},
	)
}

// isServiceError reports whether err already carries a client-facing type
func isServiceError(err error) bool {
	var serviceErr *ServiceError
	var valErr *ValidationError
	var authErr *AuthenticationError
	var authzErr *AuthorizationError
	return errors.As(err, &serviceErr) || errors.As(err, &valErr) ||
		errors.As(err, &authErr) || errors.As(err, &authzErr)
}
