// file: internal/middleware/context.go
package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"sidequest/internal/contextutils"
)

// ContextKey type for context keys to avoid conflicts
type ContextKey string

const (
	// RequestStartKey is the context key for request start time
	RequestStartKey ContextKey = "request_start"
)

// GetRequestID returns the correlation ID of the request
func GetRequestID(ctx context.Context) string {
	return contextutils.GetRequestID(ctx)
}

// GetRequestLogger returns the request-scoped logger, or a no-op logger
func GetRequestLogger(ctx context.Context) *zap.Logger {
	return contextutils.Logger(ctx, nil)
}

// GetRequestStart returns when the request entered the chain
func GetRequestStart(ctx context.Context) time.Time {
	if start, ok := ctx.Value(RequestStartKey).(time.Time); ok {
		return start
	}
	return time.Now()
}

// getClientIP extracts the client address, honouring proxy headers
func getClientIP(r *http.Request) string {
	// X-Forwarded-For can be "client, proxy1, proxy2"
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
