package events

// Event types
const (
	TypeSubmissionCreated  = "submission.created"
	TypeSubmissionReviewed = "submission.reviewed"
	TypeXPAwarded          = "gamification.xp_awarded"
	TypeLevelUp            = "gamification.level_up"
	TypeBadgeUnlocked      = "gamification.badge_unlocked"
	TypeQuestPublished     = "quest.published"
	TypeQuestGenerated     = "quest.generated"
	TypeQuestModerated     = "quest.moderated"
	TypeChallengeJoined    = "challenge.joined"
)

// SubmissionCreatedEvent is published after a submission is stored
type SubmissionCreatedEvent struct {
	BaseEvent
	SubmissionID     int64  `json:"submission_id"`
	QuestID          int64  `json:"quest_id"`
	ModerationStatus string `json:"moderation_status"`
}

// SubmissionReviewedEvent is published when a moderator approves or rejects
type SubmissionReviewedEvent struct {
	BaseEvent
	SubmissionID int64   `json:"submission_id"`
	QuestID      int64   `json:"quest_id"`
	QuestTitle   string  `json:"quest_title"`
	Approved     bool    `json:"approved"`
	Note         *string `json:"note,omitempty"`
	XPAwarded    int     `json:"xp_awarded"`
}

// XPAwardedEvent records an XP grant
type XPAwardedEvent struct {
	BaseEvent
	Amount int    `json:"amount"`
	Source string `json:"source"`
	NewXP  int64  `json:"new_xp"`
}

// LevelUpEvent is published when an award crosses a level threshold
type LevelUpEvent struct {
	BaseEvent
	PreviousLevel int `json:"previous_level"`
	NewLevel      int `json:"new_level"`
}

// BadgeUnlockedEvent is published once per unlocked badge
type BadgeUnlockedEvent struct {
	BaseEvent
	BadgeID   int64  `json:"badge_id"`
	BadgeName string `json:"badge_name"`
	Rarity    string `json:"rarity"`
}

// QuestPublishedEvent is published when a quest becomes AVAILABLE
type QuestPublishedEvent struct {
	BaseEvent
	QuestID int64  `json:"quest_id"`
	Title   string `json:"title"`
}

// QuestGeneratedEvent records one generation call and where its output came from
type QuestGeneratedEvent struct {
	BaseEvent
	Source         string `json:"source"`
	Provider       string `json:"provider"`
	Category       string `json:"category"`
	Tier           string `json:"tier"`
	FallbackReason string `json:"fallback_reason,omitempty"`
}

// QuestModeratedEvent is published after a manual quest review
type QuestModeratedEvent struct {
	BaseEvent
	QuestID   int64  `json:"quest_id"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	CreatorID *int64 `json:"creator_id,omitempty"`
}

// ChallengeJoinedEvent is published when a user joins a challenge
type ChallengeJoinedEvent struct {
	BaseEvent
	ChallengeID int64  `json:"challenge_id"`
	Title       string `json:"title"`
}
