package models

import "time"

// ChallengeStatus is the lifecycle state of a challenge
type ChallengeStatus string

const (
	ChallengeUpcoming ChallengeStatus = "UPCOMING"
	ChallengeActive   ChallengeStatus = "ACTIVE"
	ChallengeEnded    ChallengeStatus = "ENDED"
)

// Challenge is a time-boxed group competition over a set of quests
type Challenge struct {
	ID              int64           `json:"id" db:"id"`
	Title           string          `json:"title" db:"title" validate:"required,min=3,max=100"`
	Description     string          `json:"description" db:"description" validate:"max=2000"`
	StartsAt        time.Time       `json:"starts_at" db:"starts_at"`
	EndsAt          time.Time       `json:"ends_at" db:"ends_at"`
	MaxParticipants *int            `json:"max_participants,omitempty" db:"max_participants"`
	Status          ChallengeStatus `json:"status" db:"status"`
	CreatedBy       *int64          `json:"created_by,omitempty" db:"created_by"`
	SettledAt       *time.Time      `json:"settled_at,omitempty" db:"settled_at"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`

	ParticipantCount int                `json:"participant_count" db:"-"`
	Quests           []*Quest           `json:"quests,omitempty" db:"-"`
	Rewards          []*ChallengeReward `json:"rewards,omitempty" db:"-"`
}

// IsRunning reports whether the challenge accepts progress at t
func (c *Challenge) IsRunning(t time.Time) bool {
	return !t.Before(c.StartsAt) && t.Before(c.EndsAt)
}

// ChallengeParticipant is a user's membership and score in a challenge
type ChallengeParticipant struct {
	ChallengeID int64     `json:"challenge_id" db:"challenge_id"`
	UserID      int64     `json:"user_id" db:"user_id"`
	Score       int       `json:"score" db:"score"`
	JoinedAt    time.Time `json:"joined_at" db:"joined_at"`
}

// ChallengeQuest links a quest into a challenge with a score weight
type ChallengeQuest struct {
	ChallengeID int64 `json:"challenge_id" db:"challenge_id"`
	QuestID     int64 `json:"quest_id" db:"quest_id"`
	Points      int   `json:"points" db:"points"`
}

// ChallengeReward is granted to participants finishing within a rank range
type ChallengeReward struct {
	ID          int64  `json:"id" db:"id"`
	ChallengeID int64  `json:"challenge_id" db:"challenge_id"`
	RankFrom    int    `json:"rank_from" db:"rank_from"`
	RankTo      int    `json:"rank_to" db:"rank_to"`
	XP          int    `json:"xp" db:"xp"`
	BadgeID     *int64 `json:"badge_id,omitempty" db:"badge_id"`
	Description string `json:"description" db:"description"`
}

// ChallengeLeaderboardEntry is a ranked participant
type ChallengeLeaderboardEntry struct {
	Rank     int    `json:"rank" db:"rank"`
	UserID   int64  `json:"user_id" db:"user_id"`
	Username string `json:"username" db:"username"`
	Score    int    `json:"score" db:"score"`
}

// ChallengeSettlement summarizes the rewards paid for one ended challenge
type ChallengeSettlement struct {
	ChallengeID int64  `json:"challenge_id"`
	Title       string `json:"title"`
	Rewarded    int    `json:"rewarded"`
	XPAwarded   int    `json:"xp_awarded"`
	Badges      int    `json:"badges"`
}

// RewardFor returns the reward whose rank range covers rank, or nil
func RewardFor(rewards []*ChallengeReward, rank int) *ChallengeReward {
	for _, rw := range rewards {
		if rank >= rw.RankFrom && rank <= rw.RankTo {
			return rw
		}
	}
	return nil
}
