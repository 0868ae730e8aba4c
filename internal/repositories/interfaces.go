// file: internal/repositories/interfaces.go
package repositories

import (
	"context"
	"time"

	"sidequest/internal/models"
)

// ===============================
// CORE REPOSITORY INTERFACES
// ===============================

// Transactor runs a function inside one database transaction. Repository
// calls made with the context passed to fn join that transaction.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// CategoryRepository defines the contract for quest category data
type CategoryRepository interface {
	Create(ctx context.Context, category *models.QuestCategory) error
	GetByID(ctx context.Context, id int64) (*models.QuestCategory, error)
	GetByName(ctx context.Context, name string) (*models.QuestCategory, error)
	List(ctx context.Context, includeInactive bool) ([]*models.QuestCategory, error)
	Update(ctx context.Context, category *models.QuestCategory) error
	Delete(ctx context.Context, id int64) error
	Deactivate(ctx context.Context, id int64) error
	CountQuests(ctx context.Context, id int64) (int64, error)
}

// QuestFilter narrows a quest listing
type QuestFilter struct {
	CategoryID  *int64
	Category    string
	Difficulty  models.Difficulty
	Tags        []string
	Search      string
	Status      models.QuestStatus
	CreatedBy   *int64
	AIGenerated *bool

	// PublishedOnly hides DRAFT and ARCHIVED quests unless Status asks for them
	PublishedOnly bool
}

// QuestRepository defines the contract for quest data
type QuestRepository interface {
	Create(ctx context.Context, quest *models.Quest) error
	GetByID(ctx context.Context, id int64) (*models.Quest, error)
	Update(ctx context.Context, quest *models.Quest) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter QuestFilter, params models.PaginationParams) (*models.PaginatedResponse[*models.Quest], error)

	ListByModeration(ctx context.Context, statuses []models.ModerationStatus, params models.PaginationParams) (*models.PaginatedResponse[*models.Quest], error)
	UpdateModeration(ctx context.Context, quest *models.Quest) error
	IncrementCompletion(ctx context.Context, id int64) error

	ListTitles(ctx context.Context, limit int) ([]string, error)
	CountAIGenerated(ctx context.Context) (int64, error)
}

// SubmissionRepository defines the contract for submission data
type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	GetByID(ctx context.Context, id int64) (*models.Submission, error)
	FindOpen(ctx context.Context, userID, questID int64) (*models.Submission, error)
	ListByQuest(ctx context.Context, questID int64, viewerID *int64, params models.PaginationParams) (*models.PaginatedResponse[*models.Submission], error)
	ListByUser(ctx context.Context, userID int64, params models.PaginationParams) (*models.PaginatedResponse[*models.Submission], error)
	ListPendingReview(ctx context.Context, params models.PaginationParams) (*models.PaginatedResponse[*models.Submission], error)
	// UpdateReview applies a review to a PENDING submission and returns
	// ErrStateChanged when it was reviewed concurrently
	UpdateReview(ctx context.Context, submission *models.Submission) error

	CountApprovedByUser(ctx context.Context, userID int64) (int64, error)
	CountApprovedByCategory(ctx context.Context, userID int64) (map[int64]int64, error)
}

// UserRepository defines the contract for user data
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	// GetByIDForUpdate locks the user row until the surrounding transaction ends
	GetByIDForUpdate(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*models.User, error)
	UpdateProfile(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, userID int64, hash string) error
	UpdateProgress(ctx context.Context, user *models.User) error
	LinkGoogleID(ctx context.Context, userID int64, googleID string) error
	SoftDelete(ctx context.Context, userID int64) error

	GetPreferences(ctx context.Context, userID int64) (*models.UserPreferences, error)
	UpsertPreferences(ctx context.Context, prefs *models.UserPreferences) error

	Leaderboard(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error)
	RankOf(ctx context.Context, userID int64) (int, error)
}

// BadgeRepository defines the contract for badge data
type BadgeRepository interface {
	List(ctx context.Context, activeOnly bool) ([]*models.Badge, error)
	GetByID(ctx context.Context, id int64) (*models.Badge, error)
	ListUserBadges(ctx context.Context, userID int64) ([]*models.UserBadge, error)
	SaveProgress(ctx context.Context, userID, badgeID, progress int64, unlock bool) error
}

// XPRepository defines the contract for the XP ledger
type XPRepository interface {
	Log(ctx context.Context, entry *models.XPLog) error
	ListByUser(ctx context.Context, userID int64, params models.PaginationParams) (*models.PaginatedResponse[*models.XPLog], error)
}

// NotificationRepository defines the contract for notification data
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID int64, unreadOnly bool, now time.Time, params models.PaginationParams) (*models.PaginatedResponse[*models.Notification], error)
	CountUnread(ctx context.Context, userID int64, now time.Time) (int64, error)
	MarkRead(ctx context.Context, id, userID int64) (bool, error)
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// ChallengeRepository defines the contract for challenge data
type ChallengeRepository interface {
	Create(ctx context.Context, c *models.Challenge) error
	GetByID(ctx context.Context, id int64) (*models.Challenge, error)
	List(ctx context.Context, status models.ChallengeStatus, params models.PaginationParams) (*models.PaginatedResponse[*models.Challenge], error)
	AddQuest(ctx context.Context, cq *models.ChallengeQuest) error
	ListQuests(ctx context.Context, challengeID int64) ([]*models.Quest, error)
	AddReward(ctx context.Context, reward *models.ChallengeReward) error
	ListRewards(ctx context.Context, challengeID int64) ([]*models.ChallengeReward, error)

	AddParticipant(ctx context.Context, challengeID, userID int64) error
	IsParticipant(ctx context.Context, challengeID, userID int64) (bool, error)
	CountParticipants(ctx context.Context, challengeID int64) (int, error)
	Leaderboard(ctx context.Context, challengeID int64, limit int) ([]*models.ChallengeLeaderboardEntry, error)
	AddScoreForQuest(ctx context.Context, userID, questID int64, at time.Time) (int64, error)

	ListUnsettled(ctx context.Context, now time.Time, limit int) ([]*models.Challenge, error)
	MarkSettled(ctx context.Context, challengeID int64, at time.Time) (bool, error)
	Standings(ctx context.Context, challengeID int64, maxRank int) ([]*models.ChallengeLeaderboardEntry, error)
}
