// file: internal/services/challenge_service.go
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"sidequest/internal/events"
	"sidequest/internal/models"
	"sidequest/internal/repositories"
	"sidequest/internal/validation"
)

// challengeService implements ChallengeService
type challengeService struct {
	tx            repositories.Transactor
	challengeRepo repositories.ChallengeRepository
	questRepo     repositories.QuestRepository
	badgeRepo     repositories.BadgeRepository
	gamification  GamificationService
	events        events.EventBus
	logger        *zap.Logger
	now           func() time.Time
}

// NewChallengeService creates a new challenge service
func NewChallengeService(repos *repositories.Collection, gamification GamificationService, bus events.EventBus, logger *zap.Logger) ChallengeService {
	return &challengeService{
		tx:            repos.Tx,
		challengeRepo: repos.Challenge,
		questRepo:     repos.Quest,
		badgeRepo:     repos.Badge,
		gamification:  gamification,
		events:        bus,
		logger:        logger,
		now:           time.Now,
	}
}

// settleBatchSize bounds how many ended challenges one settlement run pays out
const settleBatchSize = 50

// challengeStatus derives the lifecycle state from the schedule
func challengeStatus(c *models.Challenge, now time.Time) models.ChallengeStatus {
	switch {
	case now.Before(c.StartsAt):
		return models.ChallengeUpcoming
	case now.Before(c.EndsAt):
		return models.ChallengeActive
	default:
		return models.ChallengeEnded
	}
}

// ListChallenges lists challenges, optionally by status. An empty status
// lists active challenges.
func (s *challengeService) ListChallenges(ctx context.Context, status string, params models.PaginationParams) (*models.PaginatedResponse[*models.Challenge], error) {
	var st models.ChallengeStatus
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "", string(models.ChallengeActive):
		st = models.ChallengeActive
	case string(models.ChallengeUpcoming):
		st = models.ChallengeUpcoming
	case string(models.ChallengeEnded):
		st = models.ChallengeEnded
	case "ALL":
	default:
		return nil, InvalidInputError("status", "must be one of UPCOMING, ACTIVE, ENDED, ALL")
	}

	page, err := s.challengeRepo.List(ctx, st, params)
	if err != nil {
		s.logger.Error("Failed to list challenges", zap.Error(err))
		return nil, NewInternalError("failed to list challenges")
	}
	return page, nil
}

// GetChallenge returns a challenge with its quests and rewards
func (s *challengeService) GetChallenge(ctx context.Context, id int64) (*models.Challenge, error) {
	c, err := s.challengeRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get challenge", zap.Int64("challenge_id", id), zap.Error(err))
		return nil, NewInternalError("failed to load challenge")
	}
	if c == nil {
		return nil, EntityNotFoundError("challenge", id)
	}

	if c.Quests, err = s.challengeRepo.ListQuests(ctx, id); err != nil {
		s.logger.Error("Failed to list challenge quests", zap.Int64("challenge_id", id), zap.Error(err))
		return nil, NewInternalError("failed to load challenge")
	}
	if c.Rewards, err = s.challengeRepo.ListRewards(ctx, id); err != nil {
		s.logger.Error("Failed to list challenge rewards", zap.Int64("challenge_id", id), zap.Error(err))
		return nil, NewInternalError("failed to load challenge")
	}
	return c, nil
}

// CreateChallenge creates a challenge over published quests
func (s *challengeService) CreateChallenge(ctx context.Context, actor Actor, req *CreateChallengeRequest) (*models.Challenge, error) {
	if !actor.IsElevated() {
		return nil, InsufficientPermissionsError("create", "challenge")
	}
	if err := validation.ValidateStruct(req); err != nil {
		return nil, FromValidation(err)
	}

	c := &models.Challenge{
		Title:           models.SanitizeString(req.Title),
		Description:     strings.TrimSpace(req.Description),
		StartsAt:        req.StartsAt.UTC(),
		EndsAt:          req.EndsAt.UTC(),
		MaxParticipants: req.MaxParticipants,
		CreatedBy:       &actor.UserID,
	}
	c.Status = challengeStatus(c, s.now())

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		for _, cq := range req.Quests {
			q, err := s.questRepo.GetByID(ctx, cq.QuestID)
			if err != nil {
				return err
			}
			if q == nil || !q.IsPublished() {
				return EntityNotFoundError("quest", cq.QuestID)
			}
		}
		for _, rw := range req.Rewards {
			if rw.BadgeID == nil {
				continue
			}
			b, err := s.badgeRepo.GetByID(ctx, *rw.BadgeID)
			if err != nil {
				return err
			}
			if b == nil {
				return EntityNotFoundError("badge", *rw.BadgeID)
			}
		}

		if err := s.challengeRepo.Create(ctx, c); err != nil {
			return err
		}
		for _, cq := range req.Quests {
			if err := s.challengeRepo.AddQuest(ctx, &models.ChallengeQuest{
				ChallengeID: c.ID,
				QuestID:     cq.QuestID,
				Points:      cq.Points,
			}); err != nil {
				return err
			}
		}
		for _, rw := range req.Rewards {
			reward := &models.ChallengeReward{
				ChallengeID: c.ID,
				RankFrom:    rw.RankFrom,
				RankTo:      rw.RankTo,
				XP:          rw.XP,
				BadgeID:     rw.BadgeID,
				Description: strings.TrimSpace(rw.Description),
			}
			if err := s.challengeRepo.AddReward(ctx, reward); err != nil {
				return err
			}
			c.Rewards = append(c.Rewards, reward)
		}
		return nil
	})
	if err != nil {
		if isServiceError(err) {
			return nil, err
		}
		s.logger.Error("Failed to create challenge", zap.String("title", c.Title), zap.Error(err))
		return nil, NewInternalError("failed to create challenge")
	}

	s.logger.Info("Challenge created",
		zap.Int64("challenge_id", c.ID),
		zap.Int64("created_by", actor.UserID),
		zap.Int("quests", len(req.Quests)),
	)
	return c, nil
}

// JoinChallenge adds the actor to a challenge that has not ended
func (s *challengeService) JoinChallenge(ctx context.Context, actor Actor, id int64) error {
	c, err := s.challengeRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get challenge", zap.Int64("challenge_id", id), zap.Error(err))
		return NewInternalError("failed to load challenge")
	}
	if c == nil {
		return EntityNotFoundError("challenge", id)
	}
	if challengeStatus(c, s.now()) == models.ChallengeEnded {
		return NewBusinessError("challenge has ended", "CHALLENGE_ENDED")
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if c.MaxParticipants != nil {
			n, err := s.challengeRepo.CountParticipants(ctx, id)
			if err != nil {
				return err
			}
			if n >= *c.MaxParticipants {
				return NewBusinessError("challenge is full", "CHALLENGE_FULL")
			}
		}
		return s.challengeRepo.AddParticipant(ctx, id, actor.UserID)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return NewConflictError("already joined this challenge", "ALREADY_JOINED")
		}
		if isServiceError(err) {
			return err
		}
		s.logger.Error("Failed to join challenge", zap.Int64("challenge_id", id), zap.Error(err))
		return NewInternalError("failed to join challenge")
	}

	s.logger.Info("Challenge joined", zap.Int64("challenge_id", id), zap.Int64("user_id", actor.UserID))
	publishEvent(ctx, s.events, s.logger, &events.ChallengeJoinedEvent{
		BaseEvent:   events.NewBaseEvent(events.TypeChallengeJoined, &actor.UserID),
		ChallengeID: id,
		Title:       c.Title,
	})
	return nil
}

// GetLeaderboard ranks a challenge's participants by score
func (s *challengeService) GetLeaderboard(ctx context.Context, id int64, limit int) ([]*models.ChallengeLeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	c, err := s.challengeRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get challenge", zap.Int64("challenge_id", id), zap.Error(err))
		return nil, NewInternalError("failed to load challenge")
	}
	if c == nil {
		return nil, EntityNotFoundError("challenge", id)
	}

	entries, err := s.challengeRepo.Leaderboard(ctx, id, limit)
	if err != nil {
		s.logger.Error("Failed to load challenge leaderboard", zap.Int64("challenge_id", id), zap.Error(err))
		return nil, NewInternalError("failed to load leaderboard")
	}
	if entries == nil {
		entries = []*models.ChallengeLeaderboardEntry{}
	}
	return entries, nil
}

// ===============================
// SETTLEMENT
// ===============================

// SettleEnded pays the rank rewards of every ended, unsettled challenge.
// Each challenge settles in its own transaction and at most once.
func (s *challengeService) SettleEnded(ctx context.Context) ([]*models.ChallengeSettlement, error) {
	now := s.now().UTC()
	due, err := s.challengeRepo.ListUnsettled(ctx, now, settleBatchSize)
	if err != nil {
		s.logger.Error("Failed to list unsettled challenges", zap.Error(err))
		return nil, NewInternalError("failed to list ended challenges")
	}

	var out []*models.ChallengeSettlement
	for _, c := range due {
		settled, err := s.settle(ctx, c, now)
		if err != nil {
			s.logger.Error("Failed to settle challenge", zap.Int64("challenge_id", c.ID), zap.Error(err))
			continue
		}
		if settled != nil {
			out = append(out, settled)
		}
	}
	return out, nil
}

type payout struct {
	userID int64
	result *RewardResult
}

// settle claims the challenge and grants every covered rank its reward. It
// returns nil when another run claimed the challenge first.
func (s *challengeService) settle(ctx context.Context, c *models.Challenge, now time.Time) (*models.ChallengeSettlement, error) {
	summary := &models.ChallengeSettlement{ChallengeID: c.ID, Title: c.Title}
	var payouts []payout
	var claimed bool

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		if claimed, err = s.challengeRepo.MarkSettled(ctx, c.ID, now); err != nil || !claimed {
			return err
		}

		rewards, err := s.challengeRepo.ListRewards(ctx, c.ID)
		if err != nil || len(rewards) == 0 {
			return err
		}
		maxRank := 0
		for _, rw := range rewards {
			if rw.RankTo > maxRank {
				maxRank = rw.RankTo
			}
		}

		standings, err := s.challengeRepo.Standings(ctx, c.ID, maxRank)
		if err != nil {
			return err
		}
		for _, st := range standings {
			rw := models.RewardFor(rewards, st.Rank)
			if rw == nil || (rw.XP <= 0 && rw.BadgeID == nil) {
				continue
			}
			result, err := s.gamification.GrantReward(ctx, st.UserID, RewardGrant{
				XP:          rw.XP,
				Source:      models.XPSourceChallenge,
				ReferenceID: &c.ID,
				BadgeID:     rw.BadgeID,
			})
			if err != nil {
				return err
			}
			payouts = append(payouts, payout{userID: st.UserID, result: result})
			summary.Rewarded++
			if result.Award != nil {
				summary.XPAwarded += result.Award.Amount
			}
			if rw.BadgeID != nil && hasBadge(result.UnlockedBadges, *rw.BadgeID) {
				summary.Badges++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, nil
	}

	for _, p := range payouts {
		for _, ev := range p.result.Events(p.userID, models.XPSourceChallenge) {
			publishEvent(ctx, s.events, s.logger, ev)
		}
	}
	s.logger.Info("Challenge settled",
		zap.Int64("challenge_id", c.ID),
		zap.Int("rewarded", summary.Rewarded),
		zap.Int("xp_awarded", summary.XPAwarded),
	)
	return summary, nil
}

func hasBadge(badges []*models.Badge, id int64) bool {
	for _, b := range badges {
		if b.ID == id {
			return true
		}
	}
	return false
}
