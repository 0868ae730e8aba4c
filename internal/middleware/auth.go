// file: internal/middleware/auth.go
package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"sidequest/internal/contextutils"
	"sidequest/internal/models"
	"sidequest/internal/response"
	"sidequest/internal/services"
)

// AuthContextKey is the context key for the authenticated caller
const AuthContextKey ContextKey = "auth_context"

// TokenQueryParam carries the token for clients that cannot set headers,
// such as browser websocket connections
const TokenQueryParam = "token"

// AuthContext holds the verified identity of the caller
type AuthContext struct {
	UserID    int64       `json:"user_id"`
	Username  string      `json:"username"`
	Role      models.Role `json:"role"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// Actor converts the identity into a service-layer actor
func (a *AuthContext) Actor() services.Actor {
	return services.Actor{UserID: a.UserID, Role: a.Role}
}

// ===============================
// AUTH MIDDLEWARE
// ===============================

// AuthMiddleware verifies bearer tokens issued by the auth service
type AuthMiddleware struct {
	authService     services.AuthService
	responseBuilder *response.Builder
	logger          *zap.Logger
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(authService services.AuthService, builder *response.Builder, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		authService:     authService,
		responseBuilder: builder,
		logger:          logger,
	}
}

// Authenticate verifies the token when present. With required set, a
// missing or invalid token ends the request with 401.
func (m *AuthMiddleware) Authenticate(required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				if required {
					m.responseBuilder.WriteUnauthorized(w, r, "Authentication required")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			claims, err := m.authService.ValidateToken(r.Context(), token)
			if err != nil {
				if required {
					contextutils.Logger(r.Context(), m.logger).Debug("Token rejected", zap.Error(err))
					m.responseBuilder.WriteUnauthorized(w, r, "Invalid or expired token")
					return
				}
				// optional routes treat a bad token as anonymous
				next.ServeHTTP(w, r)
				return
			}

			authCtx := &AuthContext{
				UserID:    claims.UserID,
				Username:  claims.Username,
				Role:      claims.Role,
				ExpiresAt: claims.ExpireAt,
			}
			ctx := context.WithValue(r.Context(), AuthContextKey, authCtx)
			ctx = contextutils.WithUserID(ctx, claims.UserID)
			ctx = contextutils.WithLogger(ctx, contextutils.Logger(ctx, m.logger).With(zap.Int64("user_id", claims.UserID)))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects anonymous requests
func (m *AuthMiddleware) RequireAuth() func(http.Handler) http.Handler {
	return m.Authenticate(true)
}

// OptionalAuth identifies the caller when a token is sent
func (m *AuthMiddleware) OptionalAuth() func(http.Handler) http.Handler {
	return m.Authenticate(false)
}

// RequireRole allows only the listed roles. It must run after RequireAuth.
func (m *AuthMiddleware) RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := GetAuthContext(r.Context())
			if authCtx == nil {
				m.responseBuilder.WriteUnauthorized(w, r, "Authentication required")
				return
			}
			for _, role := range roles {
				if authCtx.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			contextutils.Logger(r.Context(), m.logger).Warn("Role check failed",
				zap.String("role", string(authCtx.Role)),
			)
			m.responseBuilder.WriteForbidden(w, r, "Insufficient permissions")
		})
	}
}

// RequireModerator allows moderators and admins
func (m *AuthMiddleware) RequireModerator() func(http.Handler) http.Handler {
	return m.RequireRole(models.RoleModerator, models.RoleAdmin)
}

// RequireAdmin allows admins only
func (m *AuthMiddleware) RequireAdmin() func(http.Handler) http.Handler {
	return m.RequireRole(models.RoleAdmin)
}

// ===============================
// CONTEXT HELPERS
// ===============================

// GetAuthContext returns the caller identity, or nil for anonymous requests
func GetAuthContext(ctx context.Context) *AuthContext {
	if authCtx, ok := ctx.Value(AuthContextKey).(*AuthContext); ok {
		return authCtx
	}
	return nil
}

// WithAuthContext stores a caller identity, mainly for handler tests
func WithAuthContext(ctx context.Context, authCtx *AuthContext) context.Context {
	ctx = context.WithValue(ctx, AuthContextKey, authCtx)
	return contextutils.WithUserID(ctx, authCtx.UserID)
}

// GetActor returns the caller as a service actor, or nil when anonymous
func GetActor(ctx context.Context) *services.Actor {
	authCtx := GetAuthContext(ctx)
	if authCtx == nil {
		return nil
	}
	actor := authCtx.Actor()
	return &actor
}

func extractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get(TokenQueryParam)
}
