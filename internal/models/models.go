// file: internal/models/models.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// ===============================
// ENUMS
// ===============================

// Difficulty is the quest difficulty tier
type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
	DifficultyEpic   Difficulty = "EPIC"
)

// QuestStatus is the quest lifecycle state
type QuestStatus string

const (
	QuestStatusDraft     QuestStatus = "DRAFT"
	QuestStatusAvailable QuestStatus = "AVAILABLE"
	QuestStatusActive    QuestStatus = "ACTIVE"
	QuestStatusCompleted QuestStatus = "COMPLETED"
	QuestStatusExpired   QuestStatus = "EXPIRED"
	QuestStatusArchived  QuestStatus = "ARCHIVED"
)

// SubmissionType is a proof format accepted by a quest
type SubmissionType string

const (
	SubmissionTypePhoto     SubmissionType = "PHOTO"
	SubmissionTypeVideo     SubmissionType = "VIDEO"
	SubmissionTypeText      SubmissionType = "TEXT"
	SubmissionTypeChecklist SubmissionType = "CHECKLIST"
)

// SubmissionStatus is the review state of a submission
type SubmissionStatus string

const (
	SubmissionStatusPending  SubmissionStatus = "PENDING"
	SubmissionStatusApproved SubmissionStatus = "APPROVED"
	SubmissionStatusRejected SubmissionStatus = "REJECTED"
)

// ModerationStatus is the outcome of automated or manual moderation
type ModerationStatus string

const (
	ModerationPending  ModerationStatus = "PENDING"
	ModerationApproved ModerationStatus = "APPROVED"
	ModerationFlagged  ModerationStatus = "FLAGGED"
	ModerationRejected ModerationStatus = "REJECTED"
)

// Role is a user's authorization role
type Role string

const (
	RoleUser      Role = "USER"
	RoleModerator Role = "MODERATOR"
	RoleAdmin     Role = "ADMIN"
)

// Privacy controls who can see a submission
type Privacy string

const (
	PrivacyPublic  Privacy = "PUBLIC"
	PrivacyFriends Privacy = "FRIENDS"
	PrivacyPrivate Privacy = "PRIVATE"
)

// IsElevated reports whether the role may publish and moderate
func (r Role) IsElevated() bool {
	return r == RoleAdmin || r == RoleModerator
}

// ===============================
// QUEST ENTITIES
// ===============================

// QuestCategory groups quests (e.g. Fitness, Learning)
type QuestCategory struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name" validate:"required,min=2,max=50"`
	Description string    `json:"description" db:"description" validate:"max=500"`
	Icon        string    `json:"icon" db:"icon" validate:"max=50"`
	Color       string    `json:"color" db:"color" validate:"omitempty,hexcolor"`
	SortOrder   int       `json:"sort_order" db:"sort_order"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`

	QuestCount int `json:"quest_count,omitempty" db:"-"`
}

// Quest is a real-life challenge users complete and prove
type Quest struct {
	ID               int64       `json:"id" db:"id"`
	Title            string      `json:"title" db:"title" validate:"required,min=3,max=100"`
	Description      string      `json:"description" db:"description" validate:"required,min=10,max=5000"`
	ShortDescription string      `json:"short_description" db:"short_description" validate:"max=200"`
	Instructions     string      `json:"instructions" db:"instructions" validate:"max=5000"`
	CategoryID       int64       `json:"category_id" db:"category_id" validate:"required,min=1"`
	Difficulty       Difficulty  `json:"difficulty" db:"difficulty" validate:"required,oneof=EASY MEDIUM HARD EPIC"`
	Tags             StringArray `json:"tags" db:"tags" validate:"max=10,dive,min=1,max=30"`
	Requirements     StringArray `json:"requirements" db:"requirements" validate:"max=20,dive,min=1,max=300"`
	Points           int         `json:"points" db:"points" validate:"min=10,max=10000"`
	EstimatedTime    int         `json:"estimated_time" db:"estimated_time" validate:"min=0,max=1440"`
	SubmissionTypes  StringArray `json:"submission_types" db:"submission_types" validate:"min=1,dive,oneof=PHOTO VIDEO TEXT CHECKLIST"`
	Status           QuestStatus `json:"status" db:"status" validate:"omitempty,oneof=DRAFT AVAILABLE ACTIVE COMPLETED EXPIRED ARCHIVED"`

	LocationRequired bool    `json:"location_required" db:"location_required"`
	LocationType     *string `json:"location_type,omitempty" db:"location_type" validate:"omitempty,max=50"`
	AllowSharing     bool    `json:"allow_sharing" db:"allow_sharing"`
	EncourageSharing bool    `json:"encourage_sharing" db:"encourage_sharing"`
	IsAIGenerated    bool    `json:"is_ai_generated" db:"is_ai_generated"`

	CreatedBy *int64 `json:"created_by,omitempty" db:"created_by"`

	ModerationStatus ModerationStatus `json:"moderation_status" db:"moderation_status"`
	ModerationReason *string          `json:"moderation_reason,omitempty" db:"moderation_reason"`
	ModeratedBy      *int64           `json:"moderated_by,omitempty" db:"moderated_by"`
	ModeratedAt      *time.Time       `json:"moderated_at,omitempty" db:"moderated_at"`

	CompletionCount int `json:"completion_count" db:"completion_count"`
	RatingSum       int `json:"-" db:"rating_sum"`
	RatingCount     int `json:"rating_count" db:"rating_count"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Joined fields (not in DB)
	CategoryName  string  `json:"category_name,omitempty" db:"-"`
	AverageRating float64 `json:"average_rating" db:"-"`
}

// Submission is a user's proof of quest completion
type Submission struct {
	ID        int64            `json:"id" db:"id"`
	QuestID   int64            `json:"quest_id" db:"quest_id"`
	UserID    int64            `json:"user_id" db:"user_id"`
	Type      SubmissionType   `json:"type" db:"type" validate:"required,oneof=PHOTO VIDEO TEXT CHECKLIST"`
	Status    SubmissionStatus `json:"status" db:"status"`
	Caption   string           `json:"caption" db:"caption" validate:"max=1000"`
	MediaURLs StringArray      `json:"media_urls" db:"media_urls" validate:"max=10,dive,url"`
	Checklist JSONMap          `json:"checklist,omitempty" db:"checklist"`
	Latitude  *float64         `json:"latitude,omitempty" db:"latitude" validate:"omitempty,latitude"`
	Longitude *float64         `json:"longitude,omitempty" db:"longitude" validate:"omitempty,longitude"`
	Privacy   Privacy          `json:"privacy" db:"privacy" validate:"omitempty,oneof=PUBLIC FRIENDS PRIVATE"`

	ModerationStatus ModerationStatus `json:"moderation_status" db:"moderation_status"`
	ModerationReason *string          `json:"moderation_reason,omitempty" db:"moderation_reason"`
	ReviewedBy       *int64           `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ReviewNote       *string          `json:"review_note,omitempty" db:"review_note"`
	ReviewedAt       *time.Time       `json:"reviewed_at,omitempty" db:"reviewed_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Joined fields (not in DB)
	Username   string `json:"username,omitempty" db:"-"`
	QuestTitle string `json:"quest_title,omitempty" db:"-"`
}

// IsOwnedBy checks if the user created the quest
func (q *Quest) IsOwnedBy(userID int64) bool {
	return q.CreatedBy != nil && *q.CreatedBy == userID
}

// IsPublished reports whether users can see and submit to the quest
func (q *Quest) IsPublished() bool {
	return q.Status == QuestStatusAvailable || q.Status == QuestStatusActive
}

// ComputeAverageRating fills AverageRating from the aggregates
func (q *Quest) ComputeAverageRating() {
	if q.RatingCount == 0 {
		q.AverageRating = 0
		return
	}
	q.AverageRating = float64(q.RatingSum) / float64(q.RatingCount)
}

// Blocks reports whether the submission prevents another one for the same quest
func (s *Submission) Blocks() bool {
	return s.Status == SubmissionStatusPending || s.Status == SubmissionStatusApproved
}

// ===============================
// PAGINATION & QUERY HELPERS
// ===============================

// PaginationParams represents pagination parameters
type PaginationParams struct {
	Page  int    `json:"page" validate:"min=1"`
	Limit int    `json:"limit" validate:"min=1,max=100"`
	Sort  string `json:"sort,omitempty"`
	Order string `json:"order,omitempty" validate:"omitempty,oneof=asc desc"`
}

// PaginatedResponse represents a paginated result
type PaginatedResponse[T any] struct {
	Data       []T            `json:"data"`
	Pagination PaginationMeta `json:"pagination"`
}

// PaginationMeta contains pagination metadata
type PaginationMeta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

// Offset calculates the row offset from page and limit
func (p *PaginationParams) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// Normalize clamps page and limit into accepted bounds
func (p *PaginationParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = 20
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	p.Order = strings.ToLower(p.Order)
	if p.Order != "asc" {
		p.Order = "desc"
	}
}

// NewPaginationMeta builds metadata for a page of results
func NewPaginationMeta(params PaginationParams, total int64) PaginationMeta {
	pages := 0
	if params.Limit > 0 {
		pages = int((total + int64(params.Limit) - 1) / int64(params.Limit))
	}
	return PaginationMeta{
		Page:  params.Page,
		Limit: params.Limit,
		Total: total,
		Pages: pages,
	}
}

// ===============================
// CUSTOM TYPES
// ===============================

// StringArray handles PostgreSQL TEXT[] columns
type StringArray []string

// Scan implements sql.Scanner
func (s *StringArray) Scan(value interface{}) error {
	if value == nil {
		*s = StringArray{}
		return nil
	}

	var arr pq.StringArray
	if err := arr.Scan(value); err != nil {
		return fmt.Errorf("cannot scan %T into StringArray: %w", value, err)
	}
	*s = StringArray(arr)
	return nil
}

// Value implements driver.Valuer
func (s StringArray) Value() (driver.Value, error) {
	if s == nil {
		return "{}", nil
	}
	return pq.StringArray(s).Value()
}

// Contains reports whether v is an element
func (s StringArray) Contains(v string) bool {
	for _, item := range s {
		if item == v {
			return true
		}
	}
	return false
}

// JSONMap handles PostgreSQL JSONB columns
type JSONMap map[string]interface{}

// Scan implements sql.Scanner
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into JSONMap", value)
	}

	if len(raw) == 0 {
		*m = nil
		return nil
	}
	return json.Unmarshal(raw, m)
}

// Value implements driver.Valuer
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
