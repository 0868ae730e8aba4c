// file: internal/services/interfaces.go
package services

import (
	"context"

	"sidequest/internal/gamification"
	"sidequest/internal/models"
	"sidequest/internal/moderation"
)

// ===============================
// CORE SERVICE INTERFACES
// ===============================

// AuthService handles accounts and access tokens
type AuthService interface {
	Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error)
	Me(ctx context.Context, userID int64) (*models.User, error)
	ValidateToken(ctx context.Context, token string) (*TokenClaims, error)

	// Google OAuth2
	GoogleEnabled() bool
	GoogleAuthURL(state string) (string, error)
	GoogleCallback(ctx context.Context, code string) (*AuthResponse, error)
}

// UserService handles profile and account settings
type UserService interface {
	GetProfile(ctx context.Context, userID int64) (*models.User, error)
	UpdateProfile(ctx context.Context, userID int64, req *UpdateProfileRequest) (*models.User, error)
	GetPreferences(ctx context.Context, userID int64) (*models.UserPreferences, error)
	UpdatePreferences(ctx context.Context, userID int64, req *UpdatePreferencesRequest) (*models.UserPreferences, error)
	ChangePassword(ctx context.Context, userID int64, req *ChangePasswordRequest) error
	DeleteAccount(ctx context.Context, userID int64, req *DeleteAccountRequest) error
}

// CategoryService handles quest categories
type CategoryService interface {
	ListCategories(ctx context.Context, includeInactive bool) ([]*models.QuestCategory, error)
	GetCategory(ctx context.Context, id int64) (*models.QuestCategory, error)
	CreateCategory(ctx context.Context, actor Actor, req *CategoryRequest) (*models.QuestCategory, error)
	UpdateCategory(ctx context.Context, actor Actor, id int64, req *CategoryRequest) (*models.QuestCategory, error)
	DeleteCategory(ctx context.Context, actor Actor, id int64) (*CategoryDeleteResult, error)
}

// QuestService handles manually authored quests
type QuestService interface {
	ListQuests(ctx context.Context, viewer *Actor, req *ListQuestsRequest) (*models.PaginatedResponse[*models.Quest], error)
	GetQuest(ctx context.Context, viewer *Actor, id int64) (*models.Quest, error)
	CreateQuest(ctx context.Context, actor Actor, req *QuestRequest) (*models.Quest, error)
	UpdateQuest(ctx context.Context, actor Actor, id int64, req *QuestRequest) (*models.Quest, error)
	DeleteQuest(ctx context.Context, actor Actor, id int64) error
}

// AIQuestService runs the generation pipeline
type AIQuestService interface {
	Generate(ctx context.Context, actor Actor, req *GenerateQuestRequest) (*GenerateQuestResponse, error)
	FromIdea(ctx context.Context, actor Actor, req *QuestFromIdeaRequest) (*GenerateQuestResponse, error)
	Save(ctx context.Context, actor Actor, req *SaveAIQuestRequest) (*SaveAIQuestResponse, error)
	Stats(ctx context.Context) (*AIQuestStats, error)
	Suggestions(ctx context.Context, query string, limit int) ([]*QuestSuggestion, error)
}

// SubmissionService handles completion proofs and their review
type SubmissionService interface {
	Submit(ctx context.Context, actor Actor, questID int64, req *CreateSubmissionRequest) (*models.Submission, error)
	GetSubmission(ctx context.Context, viewer *Actor, id int64) (*models.Submission, error)
	ListForQuest(ctx context.Context, viewer *Actor, questID int64, params models.PaginationParams) (*models.PaginatedResponse[*models.Submission], error)
	ListMine(ctx context.Context, actor Actor, params models.PaginationParams) (*models.PaginatedResponse[*models.Submission], error)
	Review(ctx context.Context, actor Actor, id int64, req *ReviewSubmissionRequest) (*ReviewResult, error)
	UploadMedia(ctx context.Context, actor Actor, req *FileUploadRequest) (*FileUploadResult, error)
}

// GamificationService handles XP, levels, streaks and badges
type GamificationService interface {
	RecordCompletion(ctx context.Context, userID int64, quest *models.Quest, submissionID int64) (*CompletionResult, error)
	AwardXP(ctx context.Context, userID int64, amount int, source string, referenceID *int64) (*gamification.XPAward, error)
	GrantReward(ctx context.Context, userID int64, grant RewardGrant) (*RewardResult, error)
	EvaluateBadges(ctx context.Context, userID int64) ([]*models.Badge, error)

	GetProfile(ctx context.Context, userID int64) (*GamificationProfile, error)
	GetLevels() []gamification.LevelTableEntry
	ListBadges(ctx context.Context, userID int64) ([]*BadgeProgress, error)
	GetLeaderboard(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error)
	GetXPHistory(ctx context.Context, userID int64, params models.PaginationParams) (*models.PaginatedResponse[*models.XPLog], error)
}

// ModerationService exposes moderation checks and the manual review queue
type ModerationService interface {
	CheckText(ctx context.Context, text string) (*moderation.Decision, error)
	CheckContent(ctx context.Context, content moderation.Content) (*moderation.Decision, error)
	QuestQueue(ctx context.Context, params models.PaginationParams) (*models.PaginatedResponse[*models.Quest], error)
	SubmissionQueue(ctx context.Context, params models.PaginationParams) (*models.PaginatedResponse[*models.Submission], error)
	ReviewQuest(ctx context.Context, actor Actor, questID int64, req *ReviewQuestRequest) (*models.Quest, error)
}

// ChallengeService handles time-boxed group challenges
type ChallengeService interface {
	ListChallenges(ctx context.Context, status string, params models.PaginationParams) (*models.PaginatedResponse[*models.Challenge], error)
	GetChallenge(ctx context.Context, id int64) (*models.Challenge, error)
	CreateChallenge(ctx context.Context, actor Actor, req *CreateChallengeRequest) (*models.Challenge, error)
	JoinChallenge(ctx context.Context, actor Actor, id int64) error
	GetLeaderboard(ctx context.Context, id int64, limit int) ([]*models.ChallengeLeaderboardEntry, error)
	SettleEnded(ctx context.Context) ([]*models.ChallengeSettlement, error)
}

// NotificationService stores and delivers user notifications
type NotificationService interface {
	Notify(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, userID int64, unreadOnly bool, params models.PaginationParams) (*models.PaginatedResponse[*models.Notification], error)
	UnreadCount(ctx context.Context, userID int64) (int64, error)
	MarkRead(ctx context.Context, userID, id int64) error
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

// ===============================
// INFRASTRUCTURE INTERFACES
// ===============================

// FileService stores submission media
type FileService interface {
	UploadMedia(ctx context.Context, req *FileUploadRequest) (*FileUploadResult, error)
	DeleteFile(ctx context.Context, publicID, resourceType string) error
}

// EmailService sends transactional email
type EmailService interface {
	SendEmail(ctx context.Context, req *SendEmailRequest) error
	SendNotificationEmail(ctx context.Context, to string, n *models.Notification) error
}

// Pusher delivers a payload to a connected user
type Pusher interface {
	SendToUser(userID int64, messageType string, payload interface{}) int
}
