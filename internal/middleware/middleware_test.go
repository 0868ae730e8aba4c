package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sidequest/internal/cache"
	"sidequest/internal/config"
	"sidequest/internal/contextutils"
	"sidequest/internal/models"
	"sidequest/internal/response"
	"sidequest/internal/services"
)

type stubAuthService struct {
	services.AuthService
	claims map[string]*services.TokenClaims
}

func (s *stubAuthService) ValidateToken(ctx context.Context, token string) (*services.TokenClaims, error) {
	if c, ok := s.claims[token]; ok {
		return c, nil
	}
	return nil, services.NewUnauthorizedError("invalid token")
}

func newAuthMiddleware() *AuthMiddleware {
	auth := &stubAuthService{claims: map[string]*services.TokenClaims{
		"user-token":  {UserID: 7, Username: "jane", Role: models.RoleUser, ExpireAt: time.Now().Add(time.Hour)},
		"admin-token": {UserID: 1, Username: "root", Role: models.RoleAdmin, ExpireAt: time.Now().Add(time.Hour)},
	}}
	return NewAuthMiddleware(auth, response.NewBuilder(nil, zap.NewNop()), zap.NewNop())
}

func actorEcho(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := GetActor(r.Context())
		if actor == nil {
			w.Write([]byte("anonymous"))
			return
		}
		w.Write([]byte(actor.Role))
	})
}

func TestRequestID_GeneratesAndPropagates(t *testing.T) {
	var seen string
	h := RequestID(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = contextutils.GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(HeaderXRequestID))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderXCorrelationID, "upstream-1")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "upstream-1", seen)
	assert.Equal(t, "upstream-1", rec.Header().Get(HeaderXRequestID))
}

func TestAuthenticate_Required(t *testing.T) {
	m := newAuthMiddleware()
	h := m.RequireAuth()(actorEcho(t))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer user-token")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(models.RoleUser), rec.Body.String())
}

func TestAuthenticate_OptionalTreatsBadTokenAsAnonymous(t *testing.T) {
	h := newAuthMiddleware().OptionalAuth()(actorEcho(t))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anonymous", rec.Body.String())
}

func TestAuthenticate_QueryToken(t *testing.T) {
	var userID int64
	h := newAuthMiddleware().RequireAuth()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID = contextutils.GetUserID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ws?token=user-token", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(7), userID)
}

func TestRequireRole(t *testing.T) {
	m := newAuthMiddleware()
	h := m.RequireAuth()(m.RequireModerator()(actorEcho(t)))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer user-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(models.RoleAdmin), rec.Body.String())
}

func TestRateLimiter_FixedWindow(t *testing.T) {
	c, err := cache.NewMemoryCache(64, "test:", zap.NewNop())
	require.NoError(t, err)

	cfg := config.RateLimitConfig{Enabled: true, RequestsPerWindow: 2, Window: time.Minute}
	rl := NewRateLimiter(c, cfg, response.NewBuilder(nil, zap.NewNop()), zap.NewNop())
	rl.now = func() time.Time { return time.Date(2025, 1, 1, 10, 0, 30, 0, time.UTC) }

	h := rl.Global()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	do := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, do("10.0.0.1").Code)
	rec := do("10.0.0.1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = do("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, do("10.0.0.2").Code)

	// next window starts fresh
	rl.now = func() time.Time { return time.Date(2025, 1, 1, 10, 1, 0, 0, time.UTC) }
	assert.Equal(t, http.StatusOK, do("10.0.0.1").Code)
}

type failingCache struct{ cache.Cache }

func (failingCache) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	return 0, errors.New("redis down")
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, RequestsPerWindow: 1, Window: time.Minute}
	rl := NewRateLimiter(failingCache{}, cfg, response.NewBuilder(nil, zap.NewNop()), zap.NewNop())
	h := rl.Global()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	rl := NewRateLimiter(failingCache{}, config.RateLimitConfig{}, response.NewBuilder(nil, zap.NewNop()), zap.NewNop())
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	h := rl.Generation()(next)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func TestRecoverPanic(t *testing.T) {
	h := RecoverPanic(response.NewBuilder(nil, zap.NewNop()), zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
}

func TestLogging_CapturesStatus(t *testing.T) {
	rw := &responseWriter{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}
	rw.WriteHeader(http.StatusCreated)
	rw.WriteHeader(http.StatusInternalServerError)
	n, err := rw.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, http.StatusCreated, rw.status)
	assert.Equal(t, int64(5), rw.bytesWritten)
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	assert.Equal(t, "192.0.2.1", getClientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.4")
	assert.Equal(t, "198.51.100.4", getClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", getClientIP(req))
}

func TestSwaggerAuth(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	h := SwaggerAuth(config.ServerConfig{SwaggerUsername: "docs", SwaggerPassword: "secret"})(next)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
	req.SetBasicAuth("docs", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
