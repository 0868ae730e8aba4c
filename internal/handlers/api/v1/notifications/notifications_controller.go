package notifications

import (
	"net/http"

	"go.uber.org/zap"

	"sidequest/internal/handlers/api/v1/common"
	"sidequest/internal/response"
	"sidequest/internal/services"
)

// SocketServer attaches an authenticated websocket connection to a user
type SocketServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request, userID int64) error
	SendToUser(userID int64, messageType string, payload interface{}) int
}

// NotificationController handles the notification inbox and its live feed
type NotificationController struct {
	common.Base
	notificationService services.NotificationService
	hub                 SocketServer
}

// NewNotificationController creates a new notification controller
func NewNotificationController(
	notificationService services.NotificationService,
	hub SocketServer,
	logger *zap.Logger,
	responseBuilder *response.Builder,
) *NotificationController {
	return &NotificationController{
		Base:                common.NewBase(logger, responseBuilder),
		notificationService: notificationService,
		hub:                 hub,
	}
}

// ListNotifications handles GET /api/notifications
// @Summary Caller's notifications, newest first
// @Tags notifications
// @Security BearerAuth
// @Produce json
// @Param unread query bool false "Only unread notifications"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.APIResponse{data=[]models.Notification}
// @Router /notifications [get]
func (c *NotificationController) ListNotifications(w http.ResponseWriter, r *http.Request) {
	actor, ok := c.Actor(w, r)
	if !ok {
		return
	}
	params, ok := c.Pagination(w, r)
	if !ok {
		return
	}

	unreadOnly := r.URL.Query().Get("unread") == "true"
	page, err := c.notificationService.ListNotifications(r.Context(), actor.UserID, unreadOnly, params)
	if err != nil {
		c.WriteError(w, r, err)
		return
	}
	response.WritePage(c.ResponseBuilder, w, r, page)
}

// UnreadCount handles GET /api/notifications/unread-count
// @Summary Number of unread notifications
// @Tags notifications
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.APIResponse
// @Router /notifications/unread-count [get]
func (c *NotificationController) UnreadCount(w http.ResponseWriter, r *http.Request) {
	actor, ok := c.Actor(w, r)
	if !ok {
		return
	}

	count, err := c.notificationService.UnreadCount(r.Context(), actor.UserID)
	if err != nil {
		c.WriteError(w, r, err)
		return
	}
	c.ResponseBuilder.WriteSuccess(w, r, map[string]int64{"unread": count})
}

// MarkRead handles POST /api/notifications/{id}/read
// @Summary Mark one notification read
// @Tags notifications
// @Security BearerAuth
// @Produce json
// @Param id path int true "Notification ID"
// @Success 200 {object} response.APIResponse
// @Failure 404 {object} response.APIResponse
// @Router /notifications/{id}/read [post]
func (c *NotificationController) MarkRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := c.Actor(w, r)
	if !ok {
		return
	}
	id, ok := c.IDParam(w, r, "id")
	if !ok {
		return
	}

	if err := c.notificationService.MarkRead(r.Context(), actor.UserID, id); err != nil {
		c.WriteError(w, r, err)
		return
	}
	c.ResponseBuilder.WriteSuccess(w, r, map[string]interface{}{"id": id, "read": true})
}

// MarkAllRead handles POST /api/notifications/read-all
// @Summary Mark every notification read
// @Tags notifications
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.APIResponse
// @Router /notifications/read-all [post]
func (c *NotificationController) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := c.Actor(w, r)
	if !ok {
		return
	}

	updated, err := c.notificationService.MarkAllRead(r.Context(), actor.UserID)
	if err != nil {
		c.WriteError(w, r, err)
		return
	}
	c.ResponseBuilder.WriteSuccess(w, r, map[string]int64{"updated": updated})
}

// WebSocket handles GET /api/ws
// @Summary Live notification feed
// @Description Browsers pass the access token as the token query parameter.
// @Tags notifications
// @Param token query string false "Access token"
// @Success 101
// @Failure 401 {object} response.APIResponse
// @Router /ws [get]
func (c *NotificationController) WebSocket(w http.ResponseWriter, r *http.Request) {
	actor, ok := c.Actor(w, r)
	if !ok {
		return
	}
	if c.hub == nil {
		c.WriteError(w, r, services.NewServiceUnavailableError("live notifications are not available"))
		return
	}

	// the upgrader has already answered the client on failure
	if err := c.hub.ServeWS(w, r, actor.UserID); err != nil {
		return
	}

	count, err := c.notificationService.UnreadCount(r.Context(), actor.UserID)
	if err != nil {
		c.RequestLogger(r).Warn("Failed to load unread count for new connection", zap.Error(err))
		return
	}
	c.hub.SendToUser(actor.UserID, services.MessageUnreadCount, map[string]int64{"unread": count})
}
