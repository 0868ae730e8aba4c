// file: internal/services/quest_service.go
package services

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"sidequest/internal/events"
	"sidequest/internal/models"
	"sidequest/internal/moderation"
	"sidequest/internal/repositories"
	"sidequest/internal/validation"
)

// questService implements QuestService
type questService struct {
	questRepo    repositories.QuestRepository
	categoryRepo repositories.CategoryRepository
	moderator    *moderation.Moderator
	events       events.EventBus
	logger       *zap.Logger
}

// NewQuestService creates a new quest service
func NewQuestService(
	questRepo repositories.QuestRepository,
	categoryRepo repositories.CategoryRepository,
	moderator *moderation.Moderator,
	bus events.EventBus,
	logger *zap.Logger,
) QuestService {
	return &questService{
		questRepo:    questRepo,
		categoryRepo: categoryRepo,
		moderator:    moderator,
		events:       bus,
		logger:       logger,
	}
}

// ===============================
// QUERIES
// ===============================

// ListQuests lists quests. Anonymous and regular viewers only see published
// quests, except their own when Mine is set.
func (s *questService) ListQuests(ctx context.Context, viewer *Actor, req *ListQuestsRequest) (*models.PaginatedResponse[*models.Quest], error) {
	filter := repositories.QuestFilter{
		Tags:          req.Tags,
		Search:        req.Search,
		PublishedOnly: true,
	}

	if c := strings.TrimSpace(req.Category); c != "" {
		if id, err := strconv.ParseInt(c, 10, 64); err == nil {
			filter.CategoryID = &id
		} else {
			filter.Category = c
		}
	}
	if req.Difficulty != "" {
		d, ok := models.ParseDifficulty(req.Difficulty)
		if !ok {
			return nil, InvalidInputError("difficulty", "must be one of EASY, MEDIUM, HARD, EPIC")
		}
		filter.Difficulty = d
	}

	if req.Mine && viewer != nil {
		filter.CreatedBy = &viewer.UserID
		filter.PublishedOnly = false
	}
	canSeeDrafts := viewer != nil && (viewer.IsElevated() || req.Mine)

	if req.Status != "" {
		st, ok := models.ParseQuestStatus(req.Status)
		if !ok {
			return nil, InvalidInputError("status", "unknown quest status")
		}
		if st == models.QuestStatusAvailable || st == models.QuestStatusActive || canSeeDrafts {
			filter.Status = st
		}
	}
	page, err := s.questRepo.List(ctx, filter, req.Pagination)
	if err != nil {
		s.logger.Error("Failed to list quests", zap.Error(err))
		return nil, NewInternalError("failed to list quests")
	}
	return page, nil
}

// GetQuest returns a quest. Unpublished quests are hidden from everyone but
// their author and moderators.
func (s *questService) GetQuest(ctx context.Context, viewer *Actor, id int64) (*models.Quest, error) {
	quest, err := s.questRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get quest", zap.Int64("quest_id", id), zap.Error(err))
		return nil, NewInternalError("failed to load quest")
	}
	if quest == nil || !canView(viewer, quest) {
		return nil, EntityNotFoundError("quest", id)
	}
	return quest, nil
}

func canView(viewer *Actor, q *models.Quest) bool {
	if q.IsPublished() {
		return true
	}
	return viewer != nil && (viewer.IsElevated() || q.IsOwnedBy(viewer.UserID))
}

// ===============================
// COMMANDS
// ===============================

// CreateQuest stores a hand-written quest. Content from regular users is
// moderated and flagged quests stay in DRAFT.
func (s *questService) CreateQuest(ctx context.Context, actor Actor, req *QuestRequest) (*models.Quest, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, FromValidation(err)
	}
	if _, err := s.requireCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	quest := &models.Quest{CreatedBy: &actor.UserID}
	applyQuestRequest(quest, req)
	if quest.Status == "" {
		quest.Status = models.QuestStatusAvailable
	}
	// regular users may only create drafts or live quests
	if !actor.IsElevated() && !quest.IsPublished() && quest.Status != models.QuestStatusDraft {
		quest.Status = models.QuestStatusDraft
	}

	if actor.IsElevated() {
		quest.ModerationStatus = models.ModerationApproved
	} else if err := moderateQuest(ctx, s.moderator, quest, s.logger); err != nil {
		return nil, err
	}

	if err := s.questRepo.Create(ctx, quest); err != nil {
		s.logger.Error("Failed to create quest", zap.Int64("user_id", actor.UserID), zap.Error(err))
		return nil, NewInternalError("failed to create quest")
	}

	s.logger.Info("Quest created",
		zap.Int64("quest_id", quest.ID),
		zap.Int64("user_id", actor.UserID),
		zap.String("status", string(quest.Status)),
		zap.String("moderation_status", string(quest.ModerationStatus)),
	)
	if quest.IsPublished() {
		s.publishQuest(ctx, quest)
	}
	return quest, nil
}

// UpdateQuest replaces a quest's editable fields
func (s *questService) UpdateQuest(ctx context.Context, actor Actor, id int64, req *QuestRequest) (*models.Quest, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, FromValidation(err)
	}

	quest, err := s.questRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get quest", zap.Int64("quest_id", id), zap.Error(err))
		return nil, NewInternalError("failed to load quest")
	}
	if quest == nil {
		return nil, EntityNotFoundError("quest", id)
	}
	if !actor.IsElevated() && !quest.IsOwnedBy(actor.UserID) {
		return nil, InsufficientPermissionsError("update", "quest")
	}
	if req.CategoryID != quest.CategoryID {
		if _, err := s.requireCategory(ctx, req.CategoryID); err != nil {
			return nil, err
		}
	}

	wasPublished := quest.IsPublished()
	contentChanged := quest.Title != req.Title || quest.Description != req.Description
	applyQuestRequest(quest, req)
	if quest.Status == "" {
		quest.Status = models.QuestStatusDraft
	}

	if !actor.IsElevated() {
		if contentChanged {
			if err := moderateQuest(ctx, s.moderator, quest, s.logger); err != nil {
				return nil, err
			}
		}
		if quest.ModerationStatus != models.ModerationApproved && quest.IsPublished() {
			quest.Status = models.QuestStatusDraft
		}
	}

	if err := s.questRepo.Update(ctx, quest); err != nil {
		s.logger.Error("Failed to update quest", zap.Int64("quest_id", id), zap.Error(err))
		return nil, NewInternalError("failed to update quest")
	}
	if contentChanged && !actor.IsElevated() {
		if err := s.questRepo.UpdateModeration(ctx, quest); err != nil {
			s.logger.Warn("Failed to store moderation result", zap.Int64("quest_id", id), zap.Error(err))
		}
	}

	if !wasPublished && quest.IsPublished() {
		s.publishQuest(ctx, quest)
	}
	return quest, nil
}

// DeleteQuest removes a quest owned by the actor
func (s *questService) DeleteQuest(ctx context.Context, actor Actor, id int64) error {
	quest, err := s.questRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get quest", zap.Int64("quest_id", id), zap.Error(err))
		return NewInternalError("failed to load quest")
	}
	if quest == nil {
		return EntityNotFoundError("quest", id)
	}
	if !actor.IsElevated() && !quest.IsOwnedBy(actor.UserID) {
		return InsufficientPermissionsError("delete", "quest")
	}

	if err := s.questRepo.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete quest", zap.Int64("quest_id", id), zap.Error(err))
		return NewInternalError("failed to delete quest")
	}
	s.logger.Info("Quest deleted", zap.Int64("quest_id", id), zap.Int64("user_id", actor.UserID))
	return nil
}

// ===============================
// HELPERS
// ===============================

func (s *questService) requireCategory(ctx context.Context, id int64) (*models.QuestCategory, error) {
	cat, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get category", zap.Int64("category_id", id), zap.Error(err))
		return nil, NewInternalError("failed to load category")
	}
	if cat == nil || !cat.IsActive {
		return nil, NewNotFoundError("category not found")
	}
	return cat, nil
}

func (s *questService) publishQuest(ctx context.Context, q *models.Quest) {
	publishEvent(ctx, s.events, s.logger, &events.QuestPublishedEvent{
		BaseEvent: events.NewBaseEvent(events.TypeQuestPublished, q.CreatedBy),
		QuestID:   q.ID,
		Title:     q.Title,
	})
}

func applyQuestRequest(q *models.Quest, req *QuestRequest) {
	q.Title = strings.TrimSpace(req.Title)
	q.Description = strings.TrimSpace(req.Description)
	q.ShortDescription = strings.TrimSpace(req.ShortDescription)
	q.Instructions = strings.TrimSpace(req.Instructions)
	q.CategoryID = req.CategoryID
	q.Difficulty = req.Difficulty
	q.Tags = dedupe(req.Tags)
	q.Requirements = models.StringArray(append([]string{}, req.Requirements...))
	q.Points = req.Points
	q.EstimatedTime = req.EstimatedTime
	q.SubmissionTypes = dedupe(req.SubmissionTypes)
	q.Status = req.Status
	q.LocationRequired = req.LocationRequired
	q.LocationType = req.LocationType
	q.AllowSharing = req.AllowSharing == nil || *req.AllowSharing
	q.EncourageSharing = req.EncourageSharing
}

// dedupe keeps the first occurrence of each value, in order
func dedupe(values []string) models.StringArray {
	out := models.StringArray{}
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
