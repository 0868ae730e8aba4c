package services

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"sidequest/internal/events"
	"sidequest/internal/models"
	"sidequest/internal/moderation"
	"sidequest/internal/repositories"
	"sidequest/internal/validation"
)

// moderationService implements ModerationService
type moderationService struct {
	moderator *moderation.Moderator
	questRepo repositories.QuestRepository
	subRepo   repositories.SubmissionRepository
	events    events.EventBus
	logger    *zap.Logger
}

// NewModerationService creates a new moderation service
func NewModerationService(
	moderator *moderation.Moderator,
	questRepo repositories.QuestRepository,
	subRepo repositories.SubmissionRepository,
	bus events.EventBus,
	logger *zap.Logger,
) ModerationService {
	return &moderationService{
		moderator: moderator,
		questRepo: questRepo,
		subRepo:   subRepo,
		events:    bus,
		logger:    logger,
	}
}

// CheckText classifies arbitrary text
func (s *moderationService) CheckText(ctx context.Context, text string) (*moderation.Decision, error) {
	req := &ModerateTextRequest{Text: text}
	if err := validation.ValidateStruct(req); err != nil {
		return nil, FromValidation(err)
	}
	return s.CheckContent(ctx, moderation.Content{Kind: moderation.KindText, Text: text})
}

// CheckContent classifies one content item of any supported kind
func (s *moderationService) CheckContent(ctx context.Context, content moderation.Content) (*moderation.Decision, error) {
	d, err := s.moderator.Moderate(ctx, content)
	if err != nil {
		s.logger.Error("Moderation failed", zap.String("kind", string(content.Kind)), zap.Error(err))
		return nil, NewModerationError("content could not be moderated", err)
	}
	return d, nil
}

// QuestQueue lists quests waiting for a human decision
func (s *moderationService) QuestQueue(ctx context.Context, params models.PaginationParams) (*models.PaginatedResponse[*models.Quest], error) {
	statuses := []models.ModerationStatus{models.ModerationFlagged, models.ModerationPending}
	page, err := s.questRepo.ListByModeration(ctx, statuses, params)
	if err != nil {
		s.logger.Error("Failed to list moderation queue", zap.Error(err))
		return nil, NewInternalError("failed to load moderation queue")
	}
	return page, nil
}

// SubmissionQueue lists submissions waiting for review
func (s *moderationService) SubmissionQueue(ctx context.Context, params models.PaginationParams) (*models.PaginatedResponse[*models.Submission], error) {
	page, err := s.subRepo.ListPendingReview(ctx, params)
	if err != nil {
		s.logger.Error("Failed to list pending submissions", zap.Error(err))
		return nil, NewInternalError("failed to load moderation queue")
	}
	return page, nil
}

// ReviewQuest records a moderator decision. Approval may publish the quest;
// rejection always takes it back to DRAFT.
func (s *moderationService) ReviewQuest(ctx context.Context, actor Actor, questID int64, req *ReviewQuestRequest) (*models.Quest, error) {
	if !actor.IsElevated() {
		return nil, InsufficientPermissionsError("review", "quest")
	}
	if err := validation.ValidateStruct(req); err != nil {
		return nil, FromValidation(err)
	}

	quest, err := s.questRepo.GetByID(ctx, questID)
	if err != nil {
		s.logger.Error("Failed to get quest", zap.Int64("quest_id", questID), zap.Error(err))
		return nil, NewInternalError("failed to load quest")
	}
	if quest == nil {
		return nil, EntityNotFoundError("quest", questID)
	}

	now := time.Now().UTC()
	quest.ModeratedBy = &actor.UserID
	quest.ModeratedAt = &now
	quest.ModerationReason = stringPtr(strings.TrimSpace(req.Reason))

	wasPublished := quest.IsPublished()
	if req.Decision == "APPROVE" {
		quest.ModerationStatus = models.ModerationApproved
		if req.Publish {
			quest.Status = models.QuestStatusAvailable
		}
	} else {
		quest.ModerationStatus = models.ModerationRejected
		quest.Status = models.QuestStatusDraft
	}

	if err := s.questRepo.UpdateModeration(ctx, quest); err != nil {
		s.logger.Error("Failed to store quest review", zap.Int64("quest_id", questID), zap.Error(err))
		return nil, NewInternalError("failed to review quest")
	}

	s.logger.Info("Quest reviewed",
		zap.Int64("quest_id", questID),
		zap.Int64("moderator_id", actor.UserID),
		zap.String("decision", req.Decision),
	)

	publishEvent(ctx, s.events, s.logger, &events.QuestModeratedEvent{
		BaseEvent: events.NewBaseEvent(events.TypeQuestModerated, &actor.UserID),
		QuestID:   quest.ID,
		Title:     quest.Title,
		Status:    string(quest.ModerationStatus),
		CreatorID: quest.CreatedBy,
	})
	if !wasPublished && quest.IsPublished() {
		publishEvent(ctx, s.events, s.logger, &events.QuestPublishedEvent{
			BaseEvent: events.NewBaseEvent(events.TypeQuestPublished, quest.CreatedBy),
			QuestID:   quest.ID,
			Title:     quest.Title,
		})
	}
	return quest, nil
}


// ===============================
// SHARED HELPERS
// ===============================

// moderateQuest classifies a quest's title and description and stamps the
// verdict on it. Rejected content fails with a validation error; flagged
// quests are kept out of the catalog until reviewed.
func moderateQuest(ctx context.Context, m *moderation.Moderator, q *models.Quest, logger *zap.Logger) error {
	d, err := m.ModerateText(ctx, q.Title+"\n"+q.Description)
	if err != nil {
		logger.Error("Quest moderation failed", zap.Error(err))
		return NewModerationError("quest could not be moderated", err)
	}

	switch d.Status {
	case models.ModerationRejected:
		return NewValidationError("quest content was rejected by moderation: "+d.Reason, nil)
	case models.ModerationFlagged:
		q.Status = models.QuestStatusDraft
		q.ModerationReason = stringPtr(d.Reason)
	}
	q.ModerationStatus = d.Status
	return nil
}
