package models

import "time"

// Notification types
const (
	NotificationSubmissionApproved = "SUBMISSION_APPROVED"
	NotificationSubmissionRejected = "SUBMISSION_REJECTED"
	NotificationBadgeUnlocked      = "BADGE_UNLOCKED"
	NotificationLevelUp            = "LEVEL_UP"
	NotificationQuestPublished     = "QUEST_PUBLISHED"
	NotificationQuestModerated     = "QUEST_MODERATED"
	NotificationChallengeJoined    = "CHALLENGE_JOINED"
)

// Notification is a per-user message, optionally expiring
type Notification struct {
	ID        int64      `json:"id" db:"id"`
	UserID    int64      `json:"user_id" db:"user_id"`
	Type      string     `json:"type" db:"type"`
	Title     string     `json:"title" db:"title"`
	Message   string     `json:"message" db:"message"`
	Data      JSONMap    `json:"data,omitempty" db:"data"`
	IsRead    bool       `json:"is_read" db:"is_read"`
	ReadAt    *time.Time `json:"read_at,omitempty" db:"read_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// IsUnread checks if the notification has not been read
func (n *Notification) IsUnread() bool {
	return !n.IsRead
}

// IsExpired reports whether the notification should no longer be shown at t
func (n *Notification) IsExpired(t time.Time) bool {
	return n.ExpiresAt != nil && !t.Before(*n.ExpiresAt)
}
