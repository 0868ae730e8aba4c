// file: internal/services/notification_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sidequest/internal/events"
	"sidequest/internal/models"
	"sidequest/internal/repositories"
)

// Realtime message types
const (
	MessageNotification = "notification"
	MessageUnreadCount  = "unread_count"
)

// notificationService implements NotificationService
type notificationService struct {
	notifRepo repositories.NotificationRepository
	userRepo  repositories.UserRepository
	pusher    Pusher
	email     EmailService
	logger    *zap.Logger
	now       func() time.Time
}

// NewNotificationService creates a new notification service. pusher and
// email are optional.
func NewNotificationService(
	notifRepo repositories.NotificationRepository,
	userRepo repositories.UserRepository,
	pusher Pusher,
	email EmailService,
	logger *zap.Logger,
) NotificationService {
	return &notificationService{
		notifRepo: notifRepo,
		userRepo:  userRepo,
		pusher:    pusher,
		email:     email,
		logger:    logger,
		now:       time.Now,
	}
}

// Notify stores a notification and delivers it according to the user's
// preferences. Delivery failures are logged, storage failures returned.
func (s *notificationService) Notify(ctx context.Context, n *models.Notification) error {
	prefs, err := s.userRepo.GetPreferences(ctx, n.UserID)
	if err != nil {
		s.logger.Warn("Failed to load preferences", zap.Int64("user_id", n.UserID), zap.Error(err))
	}
	if prefs == nil {
		prefs = models.DefaultUserPreferences(n.UserID)
	}
	if !wantsNotification(prefs, n.Type) {
		s.logger.Debug("Notification muted by preferences",
			zap.Int64("user_id", n.UserID),
			zap.String("type", n.Type),
		)
		return nil
	}

	if err := s.notifRepo.Create(ctx, n); err != nil {
		s.logger.Error("Failed to store notification", zap.Int64("user_id", n.UserID), zap.Error(err))
		return NewInternalError("failed to store notification")
	}

	if s.pusher != nil && prefs.PushNotifications {
		delivered := s.pusher.SendToUser(n.UserID, MessageNotification, n)
		s.logger.Debug("Notification pushed",
			zap.Int64("user_id", n.UserID),
			zap.Int("connections", delivered),
		)
	}

	if s.email != nil && prefs.EmailNotifications {
		user, err := s.userRepo.GetByID(ctx, n.UserID)
		if err != nil || user == nil || user.IsDeleted() {
			return nil
		}
		if err := s.email.SendNotificationEmail(ctx, user.Email, n); err != nil {
			s.logger.Warn("Failed to email notification", zap.Int64("user_id", n.UserID), zap.Error(err))
		}
	}
	return nil
}

func wantsNotification(prefs *models.UserPreferences, kind string) bool {
	switch kind {
	case models.NotificationBadgeUnlocked, models.NotificationLevelUp:
		return prefs.BadgeNotifications
	case models.NotificationChallengeJoined:
		return prefs.ChallengeReminders
	}
	return true
}

// ListNotifications pages through unexpired notifications
func (s *notificationService) ListNotifications(ctx context.Context, userID int64, unreadOnly bool, params models.PaginationParams) (*models.PaginatedResponse[*models.Notification], error) {
	page, err := s.notifRepo.ListByUser(ctx, userID, unreadOnly, s.now().UTC(), params)
	if err != nil {
		s.logger.Error("Failed to list notifications", zap.Int64("user_id", userID), zap.Error(err))
		return nil, NewInternalError("failed to list notifications")
	}
	return page, nil
}

// UnreadCount counts unread, unexpired notifications
func (s *notificationService) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	n, err := s.notifRepo.CountUnread(ctx, userID, s.now().UTC())
	if err != nil {
		s.logger.Error("Failed to count notifications", zap.Int64("user_id", userID), zap.Error(err))
		return 0, NewInternalError("failed to count notifications")
	}
	return n, nil
}

// MarkRead marks one of the user's notifications as read
func (s *notificationService) MarkRead(ctx context.Context, userID, id int64) error {
	found, err := s.notifRepo.MarkRead(ctx, id, userID)
	if err != nil {
		s.logger.Error("Failed to mark notification read", zap.Int64("notification_id", id), zap.Error(err))
		return NewInternalError("failed to update notification")
	}
	if !found {
		return EntityNotFoundError("notification", id)
	}
	s.pushUnread(ctx, userID)
	return nil
}

// MarkAllRead marks every notification of the user as read
func (s *notificationService) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	n, err := s.notifRepo.MarkAllRead(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to mark notifications read", zap.Int64("user_id", userID), zap.Error(err))
		return 0, NewInternalError("failed to update notifications")
	}
	s.pushUnread(ctx, userID)
	return n, nil
}

// PurgeExpired removes notifications past their expiry
func (s *notificationService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.notifRepo.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		s.logger.Error("Failed to purge notifications", zap.Error(err))
		return 0, NewInternalError("failed to purge notifications")
	}
	if n > 0 {
		s.logger.Info("Expired notifications purged", zap.Int64("count", n))
	}
	return n, nil
}

func (s *notificationService) pushUnread(ctx context.Context, userID int64) {
	if s.pusher == nil {
		return
	}
	count, err := s.notifRepo.CountUnread(ctx, userID, s.now().UTC())
	if err != nil {
		return
	}
	s.pusher.SendToUser(userID, MessageUnreadCount, map[string]int64{"unread": count})
}

// ===============================
// EVENT SUBSCRIPTIONS
// ===============================

// SubscribeNotifications turns domain events into user notifications
func SubscribeNotifications(bus events.EventBus, notifier NotificationService, logger *zap.Logger) error {
	handler := events.EventHandlerFunc{
		ID: "notifications",
		Func: func(ctx context.Context, ev events.Event) error {
			n := notificationFor(ev)
			if n == nil {
				return nil
			}
			if err := notifier.Notify(ctx, n); err != nil {
				return fmt.Errorf("notify user %d: %w", n.UserID, err)
			}
			return nil
		},
	}

	for _, eventType := range []string{
		events.TypeSubmissionReviewed,
		events.TypeLevelUp,
		events.TypeBadgeUnlocked,
		events.TypeQuestModerated,
		events.TypeChallengeJoined,
	} {
		if err := bus.Subscribe(eventType, handler); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", eventType, err)
		}
	}
	logger.Info("Notification handlers registered")
	return nil
}

// notificationFor maps a domain event to the notification it produces, if any
func notificationFor(ev events.Event) *models.Notification {
	switch e := ev.(type) {
	case *events.SubmissionReviewedEvent:
		if e.UserID == nil {
			return nil
		}
		if e.Approved {
			return &models.Notification{
				UserID:  *e.UserID,
				Type:    models.NotificationSubmissionApproved,
				Title:   "Quest completed!",
				Message: fmt.Sprintf("Your submission for %q was approved. +%d XP", e.QuestTitle, e.XPAwarded),
				Data:    models.JSONMap{"submission_id": e.SubmissionID, "quest_id": e.QuestID, "xp": e.XPAwarded},
			}
		}
		msg := fmt.Sprintf("Your submission for %q was not approved.", e.QuestTitle)
		if e.Note != nil {
			msg += " " + *e.Note
		}
		return &models.Notification{
			UserID:  *e.UserID,
			Type:    models.NotificationSubmissionRejected,
			Title:   "Submission rejected",
			Message: msg,
			Data:    models.JSONMap{"submission_id": e.SubmissionID, "quest_id": e.QuestID},
		}

	case *events.LevelUpEvent:
		if e.UserID == nil {
			return nil
		}
		return &models.Notification{
			UserID:  *e.UserID,
			Type:    models.NotificationLevelUp,
			Title:   "Level up!",
			Message: fmt.Sprintf("You reached level %d.", e.NewLevel),
			Data:    models.JSONMap{"previous_level": e.PreviousLevel, "level": e.NewLevel},
		}

	case *events.BadgeUnlockedEvent:
		if e.UserID == nil {
			return nil
		}
		return &models.Notification{
			UserID:  *e.UserID,
			Type:    models.NotificationBadgeUnlocked,
			Title:   "Badge unlocked",
			Message: fmt.Sprintf("You earned the %s badge.", e.BadgeName),
			Data:    models.JSONMap{"badge_id": e.BadgeID, "rarity": e.Rarity},
		}

	case *events.QuestModeratedEvent:
		if e.CreatorID == nil || (e.UserID != nil && *e.UserID == *e.CreatorID) {
			return nil
		}
		expires := time.Now().UTC().Add(30 * 24 * time.Hour)
		return &models.Notification{
			UserID:    *e.CreatorID,
			Type:      models.NotificationQuestModerated,
			Title:     "Quest reviewed",
			Message:   fmt.Sprintf("Your quest %q was %s by a moderator.", e.Title, describeModeration(e.Status)),
			Data:      models.JSONMap{"quest_id": e.QuestID, "status": e.Status},
			ExpiresAt: &expires,
		}

	case *events.ChallengeJoinedEvent:
		if e.UserID == nil {
			return nil
		}
		expires := time.Now().UTC().Add(7 * 24 * time.Hour)
		return &models.Notification{
			UserID:    *e.UserID,
			Type:      models.NotificationChallengeJoined,
			Title:     "Challenge joined",
			Message:   fmt.Sprintf("You joined %q. Complete its quests to climb the leaderboard.", e.Title),
			Data:      models.JSONMap{"challenge_id": e.ChallengeID},
			ExpiresAt: &expires,
		}
	}
	return nil
}

func describeModeration(status string) string {
	switch models.ModerationStatus(status) {
	case models.ModerationApproved:
		return "approved"
	case models.ModerationRejected:
		return "rejected"
	}
	return "reviewed"
}
