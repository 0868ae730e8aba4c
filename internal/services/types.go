// file: internal/services/types.go
package services

import (
	"context"
	"io"
	"time"

	"sidequest/internal/gamification"
	"sidequest/internal/models"
	"sidequest/internal/moderation"
	"sidequest/internal/questgen"
)

// Actor is the authenticated caller of a service operation
type Actor struct {
	UserID int64       `json:"user_id"`
	Role   models.Role `json:"role"`
}

// IsElevated reports whether the actor may moderate and publish
func (a Actor) IsElevated() bool {
	return a.Role.IsElevated()
}

// ===============================
// AUTH TYPES
// ===============================

// RegisterRequest creates a password account
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email,max=320"`
	Username    string `json:"username" validate:"required,min=3,max=30,alphanum"`
	Password    string `json:"password" validate:"required,min=8,max=128"`
	DisplayName string `json:"display_name" validate:"max=50"`
}

// LoginRequest authenticates with email or username
type LoginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse carries the issued token and the account
type AuthResponse struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int64        `json:"expires_in"`
	ExpiresAt   time.Time    `json:"expires_at"`
}

// TokenClaims are the verified claims of an access token
type TokenClaims struct {
	UserID   int64       `json:"user_id"`
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
	ExpireAt time.Time   `json:"expires_at"`
}

// GoogleUserInfo is the subset of the Google userinfo response we use
type GoogleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// ===============================
// USER TYPES
// ===============================

// UpdateProfileRequest changes public profile fields
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name" validate:"omitempty,max=50"`
	Bio         *string `json:"bio" validate:"omitempty,max=500"`
	AvatarURL   *string `json:"avatar_url" validate:"omitempty,url"`
}

// UpdatePreferencesRequest changes any subset of the preferences
type UpdatePreferencesRequest struct {
	EmailNotifications  *bool              `json:"email_notifications"`
	PushNotifications   *bool              `json:"push_notifications"`
	BadgeNotifications  *bool              `json:"badge_notifications"`
	ChallengeReminders  *bool              `json:"challenge_reminders"`
	PreferredCategories []string           `json:"preferred_categories" validate:"omitempty,max=10,dive,min=1,max=50"`
	PreferredDifficulty *models.Difficulty `json:"preferred_difficulty" validate:"omitempty,oneof=EASY MEDIUM HARD EPIC"`
	DefaultPrivacy      *models.Privacy    `json:"default_privacy" validate:"omitempty,oneof=PUBLIC FRIENDS PRIVATE"`
	ShowOnLeaderboard   *bool              `json:"show_on_leaderboard"`
}

// ChangePasswordRequest replaces the password after checking the current one
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
}

// DeleteAccountRequest confirms an account deletion
type DeleteAccountRequest struct {
	Password string `json:"password"`
}

// ===============================
// CATEGORY TYPES
// ===============================

// CategoryRequest creates or updates a category
type CategoryRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=50"`
	Description string `json:"description" validate:"max=500"`
	Icon        string `json:"icon" validate:"max=50"`
	Color       string `json:"color" validate:"omitempty,hexcolor"`
	SortOrder   int    `json:"sort_order"`
	IsActive    *bool  `json:"is_active"`
}

// CategoryDeleteResult reports how a category was removed
type CategoryDeleteResult struct {
	ID          int64 `json:"id"`
	Deactivated bool  `json:"deactivated"`
	QuestCount  int64 `json:"quest_count"`
}

// ===============================
// QUEST TYPES
// ===============================

// ListQuestsRequest carries listing filters
type ListQuestsRequest struct {
	Category   string                  `json:"category"`
	Difficulty string                  `json:"difficulty"`
	Tags       []string                `json:"tags"`
	Search     string                  `json:"search"`
	Status     string                  `json:"status"`
	Mine       bool                    `json:"mine"`
	Pagination models.PaginationParams `json:"pagination"`
}

// QuestRequest creates or fully updates a quest
type QuestRequest struct {
	Title            string             `json:"title" validate:"required,min=3,max=100"`
	Description      string             `json:"description" validate:"required,min=10,max=5000"`
	ShortDescription string             `json:"short_description" validate:"max=200"`
	Instructions     string             `json:"instructions" validate:"max=5000"`
	CategoryID       int64              `json:"category_id" validate:"required,min=1"`
	Difficulty       models.Difficulty  `json:"difficulty" validate:"required,oneof=EASY MEDIUM HARD EPIC"`
	Tags             []string           `json:"tags" validate:"max=10,dive,min=1,max=30"`
	Requirements     []string           `json:"requirements" validate:"max=20,dive,min=1,max=300"`
	Points           int                `json:"points" validate:"min=10,max=10000"`
	EstimatedTime    int                `json:"estimated_time" validate:"min=0,max=1440"`
	SubmissionTypes  []string           `json:"submission_types" validate:"min=1,dive,oneof=PHOTO VIDEO TEXT CHECKLIST"`
	Status           models.QuestStatus `json:"status" validate:"omitempty,oneof=DRAFT AVAILABLE ACTIVE COMPLETED EXPIRED ARCHIVED"`
	LocationRequired bool               `json:"location_required"`
	LocationType     *string            `json:"location_type" validate:"omitempty,max=50"`
	AllowSharing     *bool              `json:"allow_sharing"`
	EncourageSharing bool               `json:"encourage_sharing"`
}

// ===============================
// AI QUEST TYPES
// ===============================

// GenerateQuestRequest asks for one generated quest
type GenerateQuestRequest struct {
	Mode             string `json:"mode"`
	Difficulty       string `json:"difficulty" validate:"required"`
	Category         string `json:"category"`
	PreviousCategory string `json:"previous_category"`
	Save             bool   `json:"save"`
	AutoPublish      bool   `json:"auto_publish"`
}

// QuestFromIdeaRequest generates a custom quest around a free-text idea
type QuestFromIdeaRequest struct {
	Idea        string `json:"idea" validate:"required,min=3,max=500"`
	Difficulty  string `json:"difficulty" validate:"required"`
	Category    string `json:"category"`
	Save        bool   `json:"save"`
	AutoPublish bool   `json:"auto_publish"`
}

// SaveAIQuestRequest persists a previously generated quest
type SaveAIQuestRequest struct {
	Quest       questgen.AIQuestOutput `json:"quest"`
	AutoPublish bool                   `json:"auto_publish"`
}

// GenerateQuestResponse is a generated quest plus provenance, and the stored
// quest when saving was requested
type GenerateQuestResponse struct {
	Quest              questgen.AIQuestOutput `json:"quest"`
	Selection          *questgen.Selection    `json:"selection"`
	Source             questgen.Source        `json:"source"`
	Provider           string                 `json:"provider,omitempty"`
	FallbackReason     string                 `json:"fallback_reason,omitempty"`
	Saved              *models.Quest          `json:"saved,omitempty"`
	InferredByFallback bool                   `json:"inferred_by_fallback,omitempty"`
}

// SaveAIQuestResponse is the stored quest
type SaveAIQuestResponse struct {
	Quest              *models.Quest `json:"quest"`
	InferredByFallback bool          `json:"inferred_by_fallback"`
}

// AIQuestStats summarizes generation activity
type AIQuestStats struct {
	TotalGenerated   int64  `json:"total_generated"`
	AIGenerated      int64  `json:"ai_generated"`
	MockGenerated    int64  `json:"mock_generated"`
	Fallbacks        int64  `json:"fallbacks"`
	Saved            int64  `json:"saved"`
	StoredAIQuests   int64  `json:"stored_ai_quests"`
	Provider         string `json:"provider"`
	LastCategory     string `json:"last_category"`
	FitnessRequests  int64  `json:"fitness_requests"`
	LearningRequests int64  `json:"learning_requests"`
}

// QuestSuggestion is one idea matched against the catalog or stored titles
type QuestSuggestion struct {
	Text     string `json:"text"`
	Source   string `json:"source"`
	Category string `json:"category,omitempty"`
	Template string `json:"template,omitempty"`
	Score    int    `json:"score"`
}

// ===============================
// SUBMISSION TYPES
// ===============================

// CreateSubmissionRequest proves completion of a quest
type CreateSubmissionRequest struct {
	Type      models.SubmissionType  `json:"type" validate:"required,oneof=PHOTO VIDEO TEXT CHECKLIST"`
	Caption   string                 `json:"caption" validate:"max=1000"`
	MediaURLs []string               `json:"media_urls" validate:"max=10,dive,url"`
	Checklist map[string]interface{} `json:"checklist"`
	Latitude  *float64               `json:"latitude" validate:"omitempty,latitude"`
	Longitude *float64               `json:"longitude" validate:"omitempty,longitude"`
	Privacy   models.Privacy         `json:"privacy" validate:"omitempty,oneof=PUBLIC FRIENDS PRIVATE"`
}

// ReviewSubmissionRequest approves or rejects a pending submission
type ReviewSubmissionRequest struct {
	Decision string `json:"decision" validate:"required,oneof=APPROVE REJECT"`
	Note     string `json:"note" validate:"max=1000"`
}

// ReviewResult is the reviewed submission and, on approval, the rewards
type ReviewResult struct {
	Submission *models.Submission `json:"submission"`
	Completion *CompletionResult  `json:"completion,omitempty"`
}

// ===============================
// GAMIFICATION TYPES
// ===============================

// CompletionResult is everything an approved completion changed
type CompletionResult struct {
	Award             gamification.XPAward `json:"award"`
	CurrentStreak     int                  `json:"current_streak"`
	LongestStreak     int                  `json:"longest_streak"`
	UnlockedBadges    []*models.Badge      `json:"unlocked_badges"`
	ChallengesUpdated int64                `json:"challenges_updated"`
}

// RewardGrant is XP and an optional badge granted outside a quest completion
type RewardGrant struct {
	XP          int
	Source      string
	ReferenceID *int64
	BadgeID     *int64
}

// RewardResult is what a granted reward changed
type RewardResult struct {
	Award          *gamification.XPAward `json:"award,omitempty"`
	UnlockedBadges []*models.Badge       `json:"unlocked_badges"`
}

// BadgeProgress pairs a badge with the caller's progress towards it
type BadgeProgress struct {
	Badge      *models.Badge `json:"badge"`
	Progress   int64         `json:"progress"`
	Unlocked   bool          `json:"unlocked"`
	UnlockedAt *time.Time    `json:"unlocked_at,omitempty"`
}

// GamificationProfile is the caller's progression summary
type GamificationProfile struct {
	UserID        int64                  `json:"user_id"`
	Username      string                 `json:"username"`
	DisplayName   string                 `json:"display_name"`
	Level         gamification.LevelInfo `json:"level"`
	CurrentStreak int                    `json:"current_streak"`
	LongestStreak int                    `json:"longest_streak"`
	Rank          int                    `json:"rank"`
	Stats         gamification.Stats     `json:"stats"`
	Badges        []*BadgeProgress       `json:"badges"`
	UnlockedCount int                    `json:"unlocked_count"`
}

// ===============================
// MODERATION TYPES
// ===============================

// ModerateTextRequest checks arbitrary text
type ModerateTextRequest struct {
	Text string `json:"text" validate:"required,max=5000"`
}

// ReviewQuestRequest records a manual quest moderation decision
type ReviewQuestRequest struct {
	Decision string `json:"decision" validate:"required,oneof=APPROVE REJECT"`
	Reason   string `json:"reason" validate:"max=500"`
	Publish  bool   `json:"publish"`
}

// ModerationResult is a moderation decision as returned to clients
type ModerationResult = moderation.Decision

// ===============================
// CHALLENGE TYPES
// ===============================

// CreateChallengeRequest creates a challenge over existing quests
type CreateChallengeRequest struct {
	Title           string                  `json:"title" validate:"required,min=3,max=100"`
	Description     string                  `json:"description" validate:"max=2000"`
	StartsAt        time.Time               `json:"starts_at" validate:"required"`
	EndsAt          time.Time               `json:"ends_at" validate:"required,gtfield=StartsAt"`
	MaxParticipants *int                    `json:"max_participants" validate:"omitempty,min=1"`
	Quests          []ChallengeQuestRequest `json:"quests" validate:"required,min=1,dive"`
	Rewards         []ChallengeRewardInput  `json:"rewards" validate:"dive"`
}

// ChallengeQuestRequest adds a quest with its score weight
type ChallengeQuestRequest struct {
	QuestID int64 `json:"quest_id" validate:"required,min=1"`
	Points  int   `json:"points" validate:"min=1,max=10000"`
}

// ChallengeRewardInput describes a reward for a rank range
type ChallengeRewardInput struct {
	RankFrom    int    `json:"rank_from" validate:"min=1"`
	RankTo      int    `json:"rank_to" validate:"gtefield=RankFrom"`
	XP          int    `json:"xp" validate:"min=0,max=100000"`
	BadgeID     *int64 `json:"badge_id"`
	Description string `json:"description" validate:"max=200"`
}

// ===============================
// FILE TYPES
// ===============================

// FileUploadRequest is one uploaded proof file
type FileUploadRequest struct {
	UserID      int64     `json:"user_id"`
	File        io.Reader `json:"-"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Folder      string    `json:"folder,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
}

// FileUploadResult describes the stored file
type FileUploadResult struct {
	URL        string                  `json:"url"`
	PublicID   string                  `json:"public_id"`
	Size       int64                   `json:"size"`
	Format     string                  `json:"format"`
	Width      int                     `json:"width,omitempty"`
	Height     int                     `json:"height,omitempty"`
	Type       string                  `json:"type"`
	Filename   string                  `json:"filename,omitempty"`
	Moderation models.ModerationStatus `json:"moderation_status,omitempty"`
}

// ===============================
// EMAIL TYPES
// ===============================

// SendEmailRequest is a plain email
type SendEmailRequest struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
	IsHTML  bool     `json:"is_html"`
}

// ===============================
// HEALTH TYPES
// ===============================

// HealthChecker is implemented by components that can report their health
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
