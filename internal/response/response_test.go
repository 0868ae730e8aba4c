package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sidequest/internal/contextutils"
	"sidequest/internal/models"
	"sidequest/internal/services"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestWriteSuccess_Envelope(t *testing.T) {
	b := NewBuilder(nil, zap.NewNop())
	b.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }

	req := httptest.NewRequest(http.MethodGet, "/api/quests", nil)
	req = req.WithContext(contextutils.WithRequestID(req.Context(), "req-1"))
	rec := httptest.NewRecorder()

	b.WriteSuccess(rec, req, map[string]string{"hello": "world"})

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "2025-03-01T12:00:00Z", body["timestamp"])
	assert.Equal(t, "req-1", body["request_id"])
	assert.Equal(t, "world", body["data"].(map[string]interface{})["hello"])
	assert.NotContains(t, body, "error")
}

func TestWriteError_StatusAndFields(t *testing.T) {
	b := NewBuilder(nil, zap.NewNop())
	rec := httptest.NewRecorder()

	b.WriteError(rec, httptest.NewRequest(http.MethodPost, "/", nil), services.InvalidInputError("title", "is too long"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	errBody := body["error"].(map[string]interface{})
	assert.Equal(t, services.ErrTypeValidation, errBody["type"])
	fields := errBody["fields"].([]interface{})
	require.Len(t, fields, 1)
	assert.Equal(t, "title", fields[0].(map[string]interface{})["field"])
}

func TestWriteError_KindsMapToStatus(t *testing.T) {
	b := NewBuilder(nil, zap.NewNop())
	tests := []struct {
		err  error
		want int
	}{
		{services.NewNotFoundError("quest not found"), http.StatusNotFound},
		{services.NewConflictError("already submitted", "ALREADY_SUBMITTED"), http.StatusConflict},
		{services.InsufficientPermissionsError("review", "submission"), http.StatusForbidden},
		{services.NewAuthenticationError("invalid credentials", "invalid_password", nil, "x"), http.StatusUnauthorized},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		b.WriteError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
		assert.Equal(t, tt.want, rec.Code, tt.err.Error())
	}
}

func TestWriteError_MasksInternalMessages(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	rec := httptest.NewRecorder()
	NewBuilder(DefaultConfig(), zap.NewNop()).WriteError(rec, req, errors.New("pq: connection refused"))
	errBody := decode(t, rec)["error"].(map[string]interface{})
	assert.Equal(t, "An internal error occurred", errBody["message"])

	rec = httptest.NewRecorder()
	NewBuilder(DevelopmentConfig(), zap.NewNop()).WriteError(rec, req, errors.New("pq: connection refused"))
	errBody = decode(t, rec)["error"].(map[string]interface{})
	assert.Equal(t, "pq: connection refused", errBody["message"])
}

func TestWritePage(t *testing.T) {
	b := NewBuilder(nil, zap.NewNop())
	rec := httptest.NewRecorder()

	page := &models.PaginatedResponse[*models.Quest]{
		Pagination: models.NewPaginationMeta(models.PaginationParams{Page: 2, Limit: 10}, 25),
	}
	WritePage(b, rec, httptest.NewRequest(http.MethodGet, "/", nil), page)

	body := decode(t, rec)
	assert.Equal(t, []interface{}{}, body["data"])
	p := body["pagination"].(map[string]interface{})
	assert.Equal(t, float64(2), p["page"])
	assert.Equal(t, float64(3), p["pages"])
	assert.Equal(t, float64(25), p["total"])
}

func TestPaginationParser(t *testing.T) {
	p := NewPaginationParser(nil)

	params, err := p.ParseFromQuery(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, models.PaginationParams{Page: 1, Limit: 20, Order: "desc"}, params)

	params, err = p.ParseFromQuery(url.Values{"page": {"3"}, "limit": {"500"}, "sort": {"Points"}, "order": {"ASC"}})
	require.NoError(t, err)
	assert.Equal(t, 3, params.Page)
	assert.Equal(t, 100, params.Limit)
	assert.Equal(t, "points", params.Sort)
	assert.Equal(t, "asc", params.Order)

	for _, q := range []url.Values{
		{"page": {"0"}},
		{"limit": {"abc"}},
		{"sort": {"password_hash"}},
		{"order": {"sideways"}},
	} {
		_, err := p.ParseFromQuery(q)
		assert.True(t, services.IsValidationError(err), q.Encode())
	}
}

func TestWriteHealthCheck(t *testing.T) {
	b := NewBuilder(nil, zap.NewNop())

	rec := httptest.NewRecorder()
	b.WriteHealthCheck(rec, httptest.NewRequest(http.MethodGet, "/health", nil), &services.ServiceHealth{Status: "degraded"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	b.WriteHealthCheck(rec, httptest.NewRequest(http.MethodGet, "/health", nil), &services.ServiceHealth{Status: "unhealthy"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, false, decode(t, rec)["success"])
}
