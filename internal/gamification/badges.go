package gamification

import "sidequest/internal/models"

// Stats are the counters badges are measured against
type Stats struct {
	ApprovedCompletions int64           `json:"approved_completions"`
	TotalXP             int64           `json:"total_xp"`
	Level               int             `json:"level"`
	CurrentStreak       int             `json:"current_streak"`
	CategoryCompletions map[int64]int64 `json:"category_completions,omitempty"`
}

// Progress returns the counter value for a badge
func Progress(b *models.Badge, s Stats) int64 {
	switch b.Type {
	case models.BadgeTypeQuestCount:
		return s.ApprovedCompletions
	case models.BadgeTypeXPTotal:
		return s.TotalXP
	case models.BadgeTypeLevel:
		return int64(s.Level)
	case models.BadgeTypeStreak:
		return int64(s.CurrentStreak)
	case models.BadgeTypeCategoryCount:
		if b.CategoryID == nil {
			return 0
		}
		return s.CategoryCompletions[*b.CategoryID]
	}
	return 0
}

// IsEligible reports whether the counters reach the badge target
func IsEligible(b *models.Badge, s Stats) bool {
	return b.IsActive && Progress(b, s) >= b.Target
}

// BadgeUpdate is the evaluated state of one badge for a user
type BadgeUpdate struct {
	Badge       *models.Badge `json:"badge"`
	Progress    int64         `json:"progress"`
	NewlyEarned bool          `json:"newly_earned"`
}

// Evaluate computes progress for every badge. Badges already unlocked are
// skipped so an unlock happens once.
func Evaluate(badges []*models.Badge, s Stats, unlocked map[int64]bool) []BadgeUpdate {
	var out []BadgeUpdate
	for _, b := range badges {
		if !b.IsActive || unlocked[b.ID] {
			continue
		}
		p := Progress(b, s)
		if p > b.Target {
			p = b.Target
		}
		out = append(out, BadgeUpdate{
			Badge:       b,
			Progress:    p,
			NewlyEarned: IsEligible(b, s),
		})
	}
	return out
}
