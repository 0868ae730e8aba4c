// file: internal/services/submission_service.go
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"sidequest/internal/events"
	"sidequest/internal/models"
	"sidequest/internal/moderation"
	"sidequest/internal/repositories"
	"sidequest/internal/validation"
)

// submissionService implements SubmissionService
type submissionService struct {
	tx           repositories.Transactor
	subRepo      repositories.SubmissionRepository
	questRepo    repositories.QuestRepository
	userRepo     repositories.UserRepository
	gamification GamificationService
	files        FileService
	moderator    *moderation.Moderator
	events       events.EventBus
	logger       *zap.Logger
	now          func() time.Time
}

// NewSubmissionService creates a new submission service. files may be nil
// when media storage is not configured.
func NewSubmissionService(
	repos *repositories.Collection,
	gamification GamificationService,
	files FileService,
	moderator *moderation.Moderator,
	bus events.EventBus,
	logger *zap.Logger,
) SubmissionService {
	return &submissionService{
		tx:           repos.Tx,
		subRepo:      repos.Submission,
		questRepo:    repos.Quest,
		userRepo:     repos.User,
		gamification: gamification,
		files:        files,
		moderator:    moderator,
		events:       bus,
		logger:       logger,
		now:          time.Now,
	}
}

func alreadySubmittedError() *ServiceError {
	return NewConflictError("You have already submitted this quest", "ALREADY_SUBMITTED")
}

// ===============================
// SUBMIT
// ===============================

// Submit records proof of completion. A user holds at most one pending or
// approved submission per quest.
func (s *submissionService) Submit(ctx context.Context, actor Actor, questID int64, req *CreateSubmissionRequest) (*models.Submission, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, FromValidation(err)
	}

	quest, err := s.questRepo.GetByID(ctx, questID)
	if err != nil {
		s.logger.Error("Failed to get quest", zap.Int64("quest_id", questID), zap.Error(err))
		return nil, NewInternalError("failed to load quest")
	}
	if quest == nil || !quest.IsPublished() {
		return nil, EntityNotFoundError("quest", questID)
	}
	if !quest.SubmissionTypes.Contains(string(req.Type)) {
		return nil, InvalidInputError("type", "is not accepted by this quest")
	}

	// Cheap rejection before moderation work; the transaction below decides.
	open, err := s.subRepo.FindOpen(ctx, actor.UserID, questID)
	if err != nil {
		s.logger.Error("Failed to check existing submission", zap.Int64("quest_id", questID), zap.Error(err))
		return nil, NewInternalError("failed to create submission")
	}
	if open != nil {
		return nil, alreadySubmittedError()
	}

	sub := &models.Submission{
		QuestID:          questID,
		UserID:           actor.UserID,
		Type:             req.Type,
		Status:           models.SubmissionStatusPending,
		Caption:          strings.TrimSpace(req.Caption),
		MediaURLs:        models.StringArray(req.MediaURLs),
		Checklist:        models.JSONMap(req.Checklist),
		Latitude:         req.Latitude,
		Longitude:        req.Longitude,
		Privacy:          req.Privacy,
		ModerationStatus: models.ModerationApproved,
	}
	if sub.MediaURLs == nil {
		sub.MediaURLs = models.StringArray{}
	}
	if sub.Privacy == "" {
		sub.Privacy = s.defaultPrivacy(ctx, actor.UserID)
	}

	if sub.Caption != "" {
		d, err := s.moderator.ModerateText(ctx, sub.Caption)
		if err != nil {
			s.logger.Error("Caption moderation failed", zap.Int64("quest_id", questID), zap.Error(err))
			return nil, NewModerationError("caption could not be moderated", err)
		}
		if d.IsRejected() {
			return nil, NewDetailedValidationError(
				"caption was rejected by moderation: "+d.Reason,
				[]FieldError{{Field: "caption", Message: d.Reason, Code: "moderation"}},
			)
		}
		sub.ModerationStatus = d.Status
		sub.ModerationReason = stringPtr(d.Reason)
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		open, err := s.subRepo.FindOpen(ctx, actor.UserID, questID)
		if err != nil {
			return err
		}
		if open != nil {
			return alreadySubmittedError()
		}
		return s.subRepo.Create(ctx, sub)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, alreadySubmittedError()
		}
		if isServiceError(err) {
			return nil, err
		}
		s.logger.Error("Failed to create submission",
			zap.Int64("user_id", actor.UserID),
			zap.Int64("quest_id", questID),
			zap.Error(err),
		)
		return nil, NewInternalError("failed to create submission")
	}

	sub.QuestTitle = quest.Title
	s.logger.Info("Submission created",
		zap.Int64("submission_id", sub.ID),
		zap.Int64("quest_id", questID),
		zap.Int64("user_id", actor.UserID),
		zap.String("moderation_status", string(sub.ModerationStatus)),
	)

	publishEvent(ctx, s.events, s.logger, &events.SubmissionCreatedEvent{
		BaseEvent:        events.NewBaseEvent(events.TypeSubmissionCreated, &actor.UserID),
		SubmissionID:     sub.ID,
		QuestID:          questID,
		ModerationStatus: string(sub.ModerationStatus),
	})
	return sub, nil
}

func (s *submissionService) defaultPrivacy(ctx context.Context, userID int64) models.Privacy {
	prefs, err := s.userRepo.GetPreferences(ctx, userID)
	if err != nil {
		s.logger.Warn("Failed to load preferences", zap.Int64("user_id", userID), zap.Error(err))
	}
	if prefs == nil || prefs.DefaultPrivacy == "" {
		return models.PrivacyPublic
	}
	return prefs.DefaultPrivacy
}

// ===============================
// READ
// ===============================

// GetSubmission returns a submission the viewer may see. Private ones are
// visible to their owner and to moderators only.
func (s *submissionService) GetSubmission(ctx context.Context, viewer *Actor, id int64) (*models.Submission, error) {
	sub, err := s.subRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get submission", zap.Int64("submission_id", id), zap.Error(err))
		return nil, NewInternalError("failed to load submission")
	}
	if sub == nil || !canViewSubmission(viewer, sub) {
		return nil, EntityNotFoundError("submission", id)
	}
	return sub, nil
}

func canViewSubmission(viewer *Actor, sub *models.Submission) bool {
	if viewer != nil && (viewer.IsElevated() || viewer.UserID == sub.UserID) {
		return true
	}
	return sub.Privacy == models.PrivacyPublic && sub.ModerationStatus != models.ModerationRejected
}

// ListForQuest lists the submissions of a quest visible to the viewer
func (s *submissionService) ListForQuest(ctx context.Context, viewer *Actor, questID int64, params models.PaginationParams) (*models.PaginatedResponse[*models.Submission], error) {
	quest, err := s.questRepo.GetByID(ctx, questID)
	if err != nil {
		s.logger.Error("Failed to get quest", zap.Int64("quest_id", questID), zap.Error(err))
		return nil, NewInternalError("failed to load quest")
	}
	if quest == nil {
		return nil, EntityNotFoundError("quest", questID)
	}

	var viewerID *int64
	if viewer != nil {
		viewerID = &viewer.UserID
	}
	page, err := s.subRepo.ListByQuest(ctx, questID, viewerID, params)
	if err != nil {
		s.logger.Error("Failed to list submissions", zap.Int64("quest_id", questID), zap.Error(err))
		return nil, NewInternalError("failed to list submissions")
	}
	return page, nil
}

// ListMine lists the actor's own submissions
func (s *submissionService) ListMine(ctx context.Context, actor Actor, params models.PaginationParams) (*models.PaginatedResponse[*models.Submission], error) {
	page, err := s.subRepo.ListByUser(ctx, actor.UserID, params)
	if err != nil {
		s.logger.Error("Failed to list user submissions", zap.Int64("user_id", actor.UserID), zap.Error(err))
		return nil, NewInternalError("failed to list submissions")
	}
	return page, nil
}

// ===============================
// REVIEW
// ===============================

// Review approves or rejects a pending submission. Approval applies every
// reward in the same transaction as the status change.
func (s *submissionService) Review(ctx context.Context, actor Actor, id int64, req *ReviewSubmissionRequest) (*ReviewResult, error) {
	if !actor.IsElevated() {
		return nil, InsufficientPermissionsError("review", "submission")
	}
	if err := validation.ValidateStruct(req); err != nil {
		return nil, FromValidation(err)
	}

	sub, err := s.subRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get submission", zap.Int64("submission_id", id), zap.Error(err))
		return nil, NewInternalError("failed to load submission")
	}
	if sub == nil {
		return nil, EntityNotFoundError("submission", id)
	}
	if sub.Status != models.SubmissionStatusPending {
		return nil, NewConflictError("submission has already been reviewed", "ALREADY_REVIEWED")
	}

	quest, err := s.questRepo.GetByID(ctx, sub.QuestID)
	if err != nil {
		s.logger.Error("Failed to get quest", zap.Int64("quest_id", sub.QuestID), zap.Error(err))
		return nil, NewInternalError("failed to load quest")
	}
	if quest == nil {
		return nil, EntityNotFoundError("quest", sub.QuestID)
	}

	approved := req.Decision == "APPROVE"
	now := s.now().UTC()
	sub.ReviewedBy = &actor.UserID
	sub.ReviewedAt = &now
	sub.ReviewNote = stringPtr(strings.TrimSpace(req.Note))
	if approved {
		sub.Status = models.SubmissionStatusApproved
	} else {
		sub.Status = models.SubmissionStatusRejected
	}

	result := &ReviewResult{Submission: sub}
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.subRepo.UpdateReview(ctx, sub); err != nil {
			if errors.Is(err, repositories.ErrStateChanged) {
				return NewConflictError("submission has already been reviewed", "ALREADY_REVIEWED")
			}
			return err
		}
		if !approved {
			return nil
		}
		completion, err := s.gamification.RecordCompletion(ctx, sub.UserID, quest, sub.ID)
		if err != nil {
			return err
		}
		result.Completion = completion
		return nil
	})
	if err != nil {
		if isServiceError(err) {
			return nil, err
		}
		s.logger.Error("Failed to review submission", zap.Int64("submission_id", id), zap.Error(err))
		return nil, NewInternalError("failed to review submission")
	}

	s.logger.Info("Submission reviewed",
		zap.Int64("submission_id", id),
		zap.Int64("moderator_id", actor.UserID),
		zap.String("decision", req.Decision),
	)

	reviewed := &events.SubmissionReviewedEvent{
		BaseEvent:    events.NewBaseEvent(events.TypeSubmissionReviewed, &sub.UserID),
		SubmissionID: sub.ID,
		QuestID:      quest.ID,
		QuestTitle:   quest.Title,
		Approved:     approved,
		Note:         sub.ReviewNote,
	}
	if result.Completion != nil {
		reviewed.XPAwarded = result.Completion.Award.Amount
	}
	publishEvent(ctx, s.events, s.logger, reviewed)
	if result.Completion != nil {
		for _, ev := range progressEvents(sub.UserID, models.XPSourceQuest, result.Completion.Award, result.Completion.UnlockedBadges) {
			publishEvent(ctx, s.events, s.logger, ev)
		}
	}
	return result, nil
}

// ===============================
// MEDIA
// ===============================

// UploadMedia stores a proof file and runs media moderation on it
func (s *submissionService) UploadMedia(ctx context.Context, actor Actor, req *FileUploadRequest) (*FileUploadResult, error) {
	if s.files == nil {
		return nil, NewServiceUnavailableError("media uploads are not configured")
	}
	req.UserID = actor.UserID

	res, err := s.files.UploadMedia(ctx, req)
	if err != nil {
		return nil, err
	}

	kind := moderation.KindImage
	if res.Type == "video" {
		kind = moderation.KindVideo
	}
	d, err := s.moderator.Moderate(ctx, moderation.Content{Kind: kind, URL: res.URL})
	if err != nil {
		s.logger.Error("Media moderation failed", zap.String("public_id", res.PublicID), zap.Error(err))
		return nil, NewModerationError("media could not be moderated", err)
	}
	if d.IsRejected() {
		if err := s.files.DeleteFile(ctx, res.PublicID, res.Type); err != nil {
			s.logger.Warn("Failed to delete rejected media", zap.String("public_id", res.PublicID), zap.Error(err))
		}
		return nil, NewValidationError("media was rejected by moderation: "+d.Reason, nil)
	}
	res.Moderation = d.Status
	return res, nil
}
