package notifications

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sidequest/internal/middleware"
	"sidequest/internal/models"
	"sidequest/internal/response"
	"sidequest/internal/services"
)

type mockNotificationService struct {
	services.NotificationService
	unread     int64
	unreadOnly bool
	markedID   int64
}

func (m *mockNotificationService) ListNotifications(ctx context.Context, userID int64, unreadOnly bool, params models.PaginationParams) (*models.PaginatedResponse[*models.Notification], error) {
	m.unreadOnly = unreadOnly
	return &models.PaginatedResponse[*models.Notification]{Pagination: models.NewPaginationMeta(params, 0)}, nil
}

func (m *mockNotificationService) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	return m.unread, nil
}

func (m *mockNotificationService) MarkRead(ctx context.Context, userID, id int64) error {
	if id != 5 {
		return services.EntityNotFoundError("notification", id)
	}
	m.markedID = id
	return nil
}

type fakeHub struct {
	fail     bool
	attached []int64
	pushed   map[string]interface{}
}

func (h *fakeHub) ServeWS(w http.ResponseWriter, r *http.Request, userID int64) error {
	if h.fail {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return errors.New("websocket: not a websocket handshake")
	}
	h.attached = append(h.attached, userID)
	return nil
}

func (h *fakeHub) SendToUser(userID int64, messageType string, payload interface{}) int {
	if h.pushed == nil {
		h.pushed = map[string]interface{}{}
	}
	h.pushed[messageType] = payload
	return 1
}

func router(svc services.NotificationService, hub SocketServer) http.Handler {
	c := NewNotificationController(svc, hub, zap.NewNop(), response.NewBuilder(nil, zap.NewNop()))
	r := chi.NewRouter()
	r.Get("/api/notifications", c.ListNotifications)
	r.Post("/api/notifications/{id}/read", c.MarkRead)
	r.Get("/api/ws", c.WebSocket)
	return r
}

func authed(req *http.Request) *http.Request {
	return req.WithContext(middleware.WithAuthContext(req.Context(), &middleware.AuthContext{UserID: 9, Role: models.RoleUser}))
}

func TestListNotifications_UnreadFilter(t *testing.T) {
	svc := &mockNotificationService{}
	h := router(svc, &fakeHub{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodGet, "/api/notifications?unread=true", nil)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.unreadOnly)
	assert.Contains(t, rec.Body.String(), `"data":[]`)
}

func TestMarkRead(t *testing.T) {
	svc := &mockNotificationService{}
	h := router(svc, &fakeHub{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodPost, "/api/notifications/5/read", nil)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(5), svc.markedID)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodPost, "/api/notifications/6/read", nil)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebSocket_PushesUnreadCountOnConnect(t *testing.T) {
	hub := &fakeHub{}
	h := router(&mockNotificationService{unread: 3}, hub)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodGet, "/api/ws", nil)))

	assert.Equal(t, []int64{9}, hub.attached)
	require.Contains(t, hub.pushed, services.MessageUnreadCount)
	assert.Equal(t, map[string]int64{"unread": 3}, hub.pushed[services.MessageUnreadCount])
}

func TestWebSocket_RequiresAuth(t *testing.T) {
	hub := &fakeHub{}
	h := router(&mockNotificationService{}, hub)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ws", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, hub.attached)
}

func TestWebSocket_UpgradeFailure(t *testing.T) {
	hub := &fakeHub{fail: true}
	h := router(&mockNotificationService{unread: 3}, hub)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodGet, "/api/ws", nil)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, hub.pushed)
}
