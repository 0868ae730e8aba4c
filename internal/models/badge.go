package models

import "time"

// BadgeType is the counter a badge is measured against
type BadgeType string

const (
	BadgeTypeQuestCount    BadgeType = "QUEST_COUNT"
	BadgeTypeXPTotal       BadgeType = "XP_TOTAL"
	BadgeTypeLevel         BadgeType = "LEVEL"
	BadgeTypeStreak        BadgeType = "STREAK"
	BadgeTypeCategoryCount BadgeType = "CATEGORY_COUNT"
)

// BadgeRarity is a cosmetic rarity tier
type BadgeRarity string

const (
	RarityCommon    BadgeRarity = "COMMON"
	RarityRare      BadgeRarity = "RARE"
	RarityEpic      BadgeRarity = "EPIC"
	RarityLegendary BadgeRarity = "LEGENDARY"
)

// Badge represents an achievement badge that users can earn
// by reaching a target on one of their progress counters.
type Badge struct {
	ID          int64       `json:"id" db:"id"`
	Name        string      `json:"name" db:"name"`
	Description string      `json:"description" db:"description"`
	Icon        string      `json:"icon" db:"icon"`
	Type        BadgeType   `json:"type" db:"type"`
	Rarity      BadgeRarity `json:"rarity" db:"rarity"`
	Target      int64       `json:"target" db:"target"`
	CategoryID  *int64      `json:"category_id,omitempty" db:"category_id"`
	IsActive    bool        `json:"is_active" db:"is_active"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
}

// UserBadge tracks a user's progress towards and unlock of a badge
type UserBadge struct {
	ID         int64      `json:"id" db:"id"`
	UserID     int64      `json:"user_id" db:"user_id"`
	BadgeID    int64      `json:"badge_id" db:"badge_id"`
	Progress   int64      `json:"progress" db:"progress"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty" db:"unlocked_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`

	Badge *Badge `json:"badge,omitempty" db:"-"`
}

// IsUnlocked reports whether the badge has been earned
func (ub *UserBadge) IsUnlocked() bool {
	return ub.UnlockedAt != nil
}

// XPLog is one entry of the additive XP ledger
type XPLog struct {
	ID          int64     `json:"id" db:"id"`
	UserID      int64     `json:"user_id" db:"user_id"`
	Amount      int       `json:"amount" db:"amount"`
	Source      string    `json:"source" db:"source"`
	ReferenceID *int64    `json:"reference_id,omitempty" db:"reference_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// XP sources
const (
	XPSourceQuest     = "QUEST_COMPLETION"
	XPSourceBadge     = "BADGE_UNLOCK"
	XPSourceChallenge = "CHALLENGE_REWARD"
)

// LeaderboardEntry is one row of the global XP leaderboard
type LeaderboardEntry struct {
	Rank        int    `json:"rank" db:"rank"`
	UserID      int64  `json:"user_id" db:"user_id"`
	Username    string `json:"username" db:"username"`
	DisplayName string `json:"display_name" db:"display_name"`
	Level       int    `json:"level" db:"level"`
	XP          int64  `json:"xp" db:"xp"`
}
