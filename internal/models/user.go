package models

import "time"

// User represents a player account
type User struct {
	ID           int64   `json:"id" db:"id"`
	Email        string  `json:"email" db:"email" validate:"required,email,max=320"`
	Username     string  `json:"username" db:"username" validate:"required,min=3,max=30,alphanum"`
	PasswordHash string  `json:"-" db:"password_hash"`
	GoogleID     *string `json:"-" db:"google_id"`

	DisplayName string  `json:"display_name" db:"display_name" validate:"max=50"`
	Bio         *string `json:"bio,omitempty" db:"bio" validate:"omitempty,max=500"`
	AvatarURL   *string `json:"avatar_url,omitempty" db:"avatar_url" validate:"omitempty,url"`

	Level          int        `json:"level" db:"level"`
	XP             int64      `json:"xp" db:"xp"`
	CurrentStreak  int        `json:"current_streak" db:"current_streak"`
	LongestStreak  int        `json:"longest_streak" db:"longest_streak"`
	LastActivityAt *time.Time `json:"last_activity_at,omitempty" db:"last_activity_at"`

	Role      Role       `json:"role" db:"role"`
	IsActive  bool       `json:"is_active" db:"is_active"`
	DeletedAt *time.Time `json:"-" db:"deleted_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// UserPreferences holds per-user settings, owned by the user
type UserPreferences struct {
	UserID              int64       `json:"user_id" db:"user_id"`
	EmailNotifications  bool        `json:"email_notifications" db:"email_notifications"`
	PushNotifications   bool        `json:"push_notifications" db:"push_notifications"`
	BadgeNotifications  bool        `json:"badge_notifications" db:"badge_notifications"`
	ChallengeReminders  bool        `json:"challenge_reminders" db:"challenge_reminders"`
	PreferredCategories StringArray `json:"preferred_categories" db:"preferred_categories" validate:"max=10"`
	PreferredDifficulty *Difficulty `json:"preferred_difficulty,omitempty" db:"preferred_difficulty" validate:"omitempty,oneof=EASY MEDIUM HARD EPIC"`
	DefaultPrivacy      Privacy     `json:"default_privacy" db:"default_privacy" validate:"omitempty,oneof=PUBLIC FRIENDS PRIVATE"`
	ShowOnLeaderboard   bool        `json:"show_on_leaderboard" db:"show_on_leaderboard"`
	UpdatedAt           time.Time   `json:"updated_at" db:"updated_at"`
}

// DefaultUserPreferences returns default preferences for a new user
func DefaultUserPreferences(userID int64) *UserPreferences {
	return &UserPreferences{
		UserID:              userID,
		EmailNotifications:  true,
		PushNotifications:   true,
		BadgeNotifications:  true,
		ChallengeReminders:  true,
		PreferredCategories: StringArray{},
		DefaultPrivacy:      PrivacyPublic,
		ShowOnLeaderboard:   true,
	}
}

// GetDisplayName returns the display name or the username
func (u *User) GetDisplayName() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// IsDeleted reports whether the account was soft-deleted
func (u *User) IsDeleted() bool {
	return !u.IsActive || u.DeletedAt != nil
}
