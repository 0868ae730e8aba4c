// file: internal/services/gamification_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sidequest/internal/cache"
	"sidequest/internal/events"
	"sidequest/internal/gamification"
	"sidequest/internal/models"
	"sidequest/internal/repositories"
)

// gamificationService implements GamificationService
type gamificationService struct {
	tx            repositories.Transactor
	userRepo      repositories.UserRepository
	xpRepo        repositories.XPRepository
	badgeRepo     repositories.BadgeRepository
	subRepo       repositories.SubmissionRepository
	questRepo     repositories.QuestRepository
	challengeRepo repositories.ChallengeRepository
	cache         cache.Cache
	events        events.EventBus
	logger        *zap.Logger
	now           func() time.Time
}

// NewGamificationService creates a new gamification service
func NewGamificationService(repos *repositories.Collection, c cache.Cache, bus events.EventBus, logger *zap.Logger) GamificationService {
	return &gamificationService{
		tx:            repos.Tx,
		userRepo:      repos.User,
		xpRepo:        repos.XP,
		badgeRepo:     repos.Badge,
		subRepo:       repos.Submission,
		questRepo:     repos.Quest,
		challengeRepo: repos.Challenge,
		cache:         c,
		events:        bus,
		logger:        logger,
		now:           time.Now,
	}
}

// ===============================
// PROGRESSION
// ===============================

// RecordCompletion applies every reward of an approved submission. It joins
// the caller's transaction when there is one.
func (s *gamificationService) RecordCompletion(ctx context.Context, userID int64, quest *models.Quest, submissionID int64) (*CompletionResult, error) {
	var result *CompletionResult

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		user, err := s.lockUser(ctx, userID)
		if err != nil {
			return err
		}
		now := s.now().UTC()

		award, err := s.applyXP(ctx, user, quest.Points, models.XPSourceQuest, &submissionID)
		if err != nil {
			return err
		}
		gamification.ApplyStreak(user, now)
		if err := s.userRepo.UpdateProgress(ctx, user); err != nil {
			return err
		}

		if err := s.questRepo.IncrementCompletion(ctx, quest.ID); err != nil {
			return err
		}
		updated, err := s.challengeRepo.AddScoreForQuest(ctx, userID, quest.ID, now)
		if err != nil {
			return err
		}

		unlocked, err := s.evaluateBadges(ctx, user)
		if err != nil {
			return err
		}

		result = &CompletionResult{
			Award:             *award,
			CurrentStreak:     user.CurrentStreak,
			LongestStreak:     user.LongestStreak,
			UnlockedBadges:    unlocked,
			ChallengesUpdated: updated,
		}
		return nil
	})
	if err != nil {
		if isServiceError(err) {
			return nil, err
		}
		s.logger.Error("Failed to record completion",
			zap.Int64("user_id", userID),
			zap.Int64("quest_id", quest.ID),
			zap.Error(err),
		)
		return nil, NewInternalError("failed to record quest completion")
	}

	s.invalidateLeaderboard(ctx)
	return result, nil
}

// AwardXP adds XP outside of a quest completion and publishes the progress
// events
func (s *gamificationService) AwardXP(ctx context.Context, userID int64, amount int, source string, referenceID *int64) (*gamification.XPAward, error) {
	if amount <= 0 {
		return nil, InvalidInputError("amount", "must be positive")
	}

	result, err := s.GrantReward(ctx, userID, RewardGrant{XP: amount, Source: source, ReferenceID: referenceID})
	if err != nil {
		return nil, err
	}
	for _, ev := range result.Events(userID, source) {
		publishEvent(ctx, s.events, s.logger, ev)
	}
	return result.Award, nil
}

// GrantReward applies XP and an optional badge. It joins the caller's
// transaction and leaves publishing to the caller.
func (s *gamificationService) GrantReward(ctx context.Context, userID int64, grant RewardGrant) (*RewardResult, error) {
	result := &RewardResult{}
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		user, err := s.lockUser(ctx, userID)
		if err != nil {
			return err
		}
		if grant.XP > 0 {
			if result.Award, err = s.applyXP(ctx, user, grant.XP, grant.Source, grant.ReferenceID); err != nil {
				return err
			}
			if err := s.userRepo.UpdateProgress(ctx, user); err != nil {
				return err
			}
		}
		if grant.BadgeID != nil {
			badge, err := s.grantBadge(ctx, user.ID, *grant.BadgeID)
			if err != nil {
				return err
			}
			if badge != nil {
				result.UnlockedBadges = append(result.UnlockedBadges, badge)
			}
		}
		unlocked, err := s.evaluateBadges(ctx, user)
		if err != nil {
			return err
		}
		result.UnlockedBadges = append(result.UnlockedBadges, unlocked...)
		return nil
	})
	if err != nil {
		if isServiceError(err) {
			return nil, err
		}
		s.logger.Error("Failed to grant reward",
			zap.Int64("user_id", userID),
			zap.Int("xp", grant.XP),
			zap.String("source", grant.Source),
			zap.Error(err),
		)
		return nil, NewInternalError("failed to grant reward")
	}

	if result.Award != nil {
		s.invalidateLeaderboard(ctx)
	}
	return result, nil
}

// grantBadge unlocks a badge directly. It returns nil when the user already
// holds it or the badge no longer exists.
func (s *gamificationService) grantBadge(ctx context.Context, userID, badgeID int64) (*models.Badge, error) {
	badge, err := s.badgeRepo.GetByID(ctx, badgeID)
	if err != nil || badge == nil {
		return nil, err
	}
	owned, err := s.badgeRepo.ListUserBadges(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, ub := range owned {
		if ub.BadgeID == badgeID && ub.IsUnlocked() {
			return nil, nil
		}
	}
	if err := s.badgeRepo.SaveProgress(ctx, userID, badgeID, badge.Target, true); err != nil {
		return nil, err
	}
	s.logger.Info("Badge granted", zap.Int64("user_id", userID), zap.Int64("badge_id", badgeID))
	return badge, nil
}

// EvaluateBadges recomputes badge progress for a user
func (s *gamificationService) EvaluateBadges(ctx context.Context, userID int64) ([]*models.Badge, error) {
	var unlocked []*models.Badge
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		user, err := s.loadUser(ctx, userID)
		if err != nil {
			return err
		}
		unlocked, err = s.evaluateBadges(ctx, user)
		return err
	})
	if err != nil {
		if isServiceError(err) {
			return nil, err
		}
		s.logger.Error("Failed to evaluate badges", zap.Int64("user_id", userID), zap.Error(err))
		return nil, NewInternalError("failed to evaluate badges")
	}
	return unlocked, nil
}

func (s *gamificationService) loadUser(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	return activeUser(userID, user, err)
}

// lockUser loads the user for a read-modify-write of its progress and
// holds the row lock until the transaction in ctx ends
func (s *gamificationService) lockUser(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.userRepo.GetByIDForUpdate(ctx, userID)
	return activeUser(userID, user, err)
}

func activeUser(userID int64, user *models.User, err error) (*models.User, error) {
	if err != nil {
		return nil, err
	}
	if user == nil || user.IsDeleted() {
		return nil, EntityNotFoundError("user", userID)
	}
	return user, nil
}

// applyXP logs the award and updates the user in memory. The caller
// persists the user.
func (s *gamificationService) applyXP(ctx context.Context, user *models.User, amount int, source string, referenceID *int64) (*gamification.XPAward, error) {
	award := gamification.ApplyXP(user.XP, amount)

	entry := &models.XPLog{
		UserID:      user.ID,
		Amount:      amount,
		Source:      source,
		ReferenceID: referenceID,
	}
	if err := s.xpRepo.Log(ctx, entry); err != nil {
		return nil, err
	}

	user.XP = award.NewXP
	user.Level = award.NewLevel
	return &award, nil
}

func (s *gamificationService) evaluateBadges(ctx context.Context, user *models.User) ([]*models.Badge, error) {
	badges, err := s.badgeRepo.List(ctx, true)
	if err != nil {
		return nil, err
	}
	stats, unlocked, err := s.collectStats(ctx, user)
	if err != nil {
		return nil, err
	}

	var earned []*models.Badge
	for _, u := range gamification.Evaluate(badges, stats, unlocked) {
		if err := s.badgeRepo.SaveProgress(ctx, user.ID, u.Badge.ID, u.Progress, u.NewlyEarned); err != nil {
			return nil, err
		}
		if u.NewlyEarned {
			earned = append(earned, u.Badge)
			s.logger.Info("Badge unlocked",
				zap.Int64("user_id", user.ID),
				zap.Int64("badge_id", u.Badge.ID),
				zap.String("badge", u.Badge.Name),
			)
		}
	}
	return earned, nil
}

func (s *gamificationService) collectStats(ctx context.Context, user *models.User) (gamification.Stats, map[int64]bool, error) {
	approved, err := s.subRepo.CountApprovedByUser(ctx, user.ID)
	if err != nil {
		return gamification.Stats{}, nil, err
	}
	byCategory, err := s.subRepo.CountApprovedByCategory(ctx, user.ID)
	if err != nil {
		return gamification.Stats{}, nil, err
	}
	owned, err := s.badgeRepo.ListUserBadges(ctx, user.ID)
	if err != nil {
		return gamification.Stats{}, nil, err
	}

	unlocked := make(map[int64]bool, len(owned))
	for _, ub := range owned {
		if ub.IsUnlocked() {
			unlocked[ub.BadgeID] = true
		}
	}

	stats := gamification.Stats{
		ApprovedCompletions: approved,
		TotalXP:             user.XP,
		Level:               gamification.LevelForXP(user.XP),
		CurrentStreak:       user.CurrentStreak,
		CategoryCompletions: byCategory,
	}
	return stats, unlocked, nil
}

// ===============================
// QUERIES
// ===============================

// GetProfile summarizes a user's progression
func (s *gamificationService) GetProfile(ctx context.Context, userID int64) (*GamificationProfile, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		if isServiceError(err) {
			return nil, err
		}
		s.logger.Error("Failed to load user", zap.Int64("user_id", userID), zap.Error(err))
		return nil, NewInternalError("failed to load profile")
	}

	stats, _, err := s.collectStats(ctx, user)
	if err != nil {
		s.logger.Error("Failed to collect stats", zap.Int64("user_id", userID), zap.Error(err))
		return nil, NewInternalError("failed to load profile")
	}
	rank, err := s.userRepo.RankOf(ctx, userID)
	if err != nil {
		s.logger.Warn("Failed to compute rank", zap.Int64("user_id", userID), zap.Error(err))
	}
	badges, err := s.ListBadges(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile := &GamificationProfile{
		UserID:        user.ID,
		Username:      user.Username,
		DisplayName:   user.GetDisplayName(),
		Level:         gamification.DescribeLevel(user.XP),
		CurrentStreak: user.CurrentStreak,
		LongestStreak: user.LongestStreak,
		Rank:          rank,
		Stats:         stats,
		Badges:        badges,
	}
	for _, b := range badges {
		if b.Unlocked {
			profile.UnlockedCount++
		}
	}
	return profile, nil
}

// GetLevels returns the level table
func (s *gamificationService) GetLevels() []gamification.LevelTableEntry {
	return gamification.LevelTable()
}

// ListBadges lists active badges with the user's progress
func (s *gamificationService) ListBadges(ctx context.Context, userID int64) ([]*BadgeProgress, error) {
	badges, err := s.badgeRepo.List(ctx, true)
	if err != nil {
		s.logger.Error("Failed to list badges", zap.Error(err))
		return nil, NewInternalError("failed to list badges")
	}
	owned, err := s.badgeRepo.ListUserBadges(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to list user badges", zap.Int64("user_id", userID), zap.Error(err))
		return nil, NewInternalError("failed to list badges")
	}

	byBadge := make(map[int64]*models.UserBadge, len(owned))
	for _, ub := range owned {
		byBadge[ub.BadgeID] = ub
	}

	out := make([]*BadgeProgress, 0, len(badges))
	for _, b := range badges {
		bp := &BadgeProgress{Badge: b}
		if ub, ok := byBadge[b.ID]; ok {
			bp.Progress = ub.Progress
			bp.Unlocked = ub.IsUnlocked()
			bp.UnlockedAt = ub.UnlockedAt
		}
		out = append(out, bp)
	}
	return out, nil
}

// GetLeaderboard returns the global XP ranking, cached briefly
func (s *gamificationService) GetLeaderboard(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	key := fmt.Sprintf("leaderboard:%d", limit)

	var entries []*models.LeaderboardEntry
	if s.cache != nil && cache.GetJSON(ctx, s.cache, key, &entries) {
		return entries, nil
	}

	entries, err := s.userRepo.Leaderboard(ctx, limit)
	if err != nil {
		s.logger.Error("Failed to load leaderboard", zap.Error(err))
		return nil, NewInternalError("failed to load leaderboard")
	}
	if s.cache != nil {
		if err := cache.SetJSON(ctx, s.cache, key, entries, 30*time.Second); err != nil {
			s.logger.Warn("Failed to cache leaderboard", zap.Error(err))
		}
	}
	return entries, nil
}

// GetXPHistory pages through the user's XP ledger
func (s *gamificationService) GetXPHistory(ctx context.Context, userID int64, params models.PaginationParams) (*models.PaginatedResponse[*models.XPLog], error) {
	page, err := s.xpRepo.ListByUser(ctx, userID, params)
	if err != nil {
		s.logger.Error("Failed to load XP history", zap.Int64("user_id", userID), zap.Error(err))
		return nil, NewInternalError("failed to load XP history")
	}
	return page, nil
}

func (s *gamificationService) invalidateLeaderboard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePrefix(ctx, "leaderboard:"); err != nil {
		s.logger.Warn("Failed to invalidate leaderboard cache", zap.Error(err))
	}
}

// Events builds the progress events for a granted reward
func (r *RewardResult) Events(userID int64, source string) []events.Event {
	if r.Award != nil {
		return progressEvents(userID, source, *r.Award, r.UnlockedBadges)
	}
	return badgeEvents(userID, r.UnlockedBadges)
}

// progressEvents builds the level-up and badge events for an award
func progressEvents(userID int64, source string, award gamification.XPAward, unlocked []*models.Badge) []events.Event {
	var out []events.Event
	out = append(out, &events.XPAwardedEvent{
		BaseEvent: events.NewBaseEvent(events.TypeXPAwarded, &userID),
		Amount:    award.Amount,
		Source:    source,
		NewXP:     award.NewXP,
	})
	if award.LeveledUp {
		out = append(out, &events.LevelUpEvent{
			BaseEvent:     events.NewBaseEvent(events.TypeLevelUp, &userID),
			PreviousLevel: award.PreviousLevel,
			NewLevel:      award.NewLevel,
		})
	}
	return append(out, badgeEvents(userID, unlocked)...)
}

func badgeEvents(userID int64, unlocked []*models.Badge) []events.Event {
	var out []events.Event
	for _, b := range unlocked {
		out = append(out, &events.BadgeUnlockedEvent{
			BaseEvent: events.NewBaseEvent(events.TypeBadgeUnlocked, &userID),
			BadgeID:   b.ID,
			BadgeName: b.Name,
			Rarity:    string(b.Rarity),
		})
	}
	return out
}
