package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sidequest/internal/events"
	"sidequest/internal/models"
	"sidequest/internal/moderation"
	"sidequest/internal/repositories"
)

type submissionFixture struct {
	repos *repositories.Collection
	subs  *fakeSubmissionRepo
	users *fakeUserRepo
	quest *fakeQuestRepo
	bus   *recordingBus
	svc   SubmissionService
}

func newSubmissionFixture(t *testing.T) *submissionFixture {
	t.Helper()
	f := &submissionFixture{
		subs:  newFakeSubmissionRepo(),
		users: newFakeUserRepo(&models.User{ID: 7, Username: "runner", Email: "runner@example.com", Level: 1, XP: 90, IsActive: true}),
		quest: newFakeQuestRepo(publishedQuest(10)),
		bus:   &recordingBus{},
	}
	f.repos = testRepos()
	f.repos.Submission = f.subs
	f.repos.User = f.users
	f.repos.Quest = f.quest
	f.repos.Badge = newFakeBadgeRepo(&models.Badge{ID: 1, Name: "First Steps", Type: models.BadgeTypeQuestCount, Target: 1, IsActive: true})

	logger := zap.NewNop()
	gam := NewGamificationService(f.repos, nil, f.bus, logger)
	f.svc = NewSubmissionService(f.repos, gam, nil, moderation.NewModerator(nil, logger), f.bus, logger)
	return f
}

var testMember = Actor{UserID: 7, Role: models.RoleUser}
var testModerator = Actor{UserID: 2, Role: models.RoleModerator}

func TestSubmit_CreatesPendingSubmission(t *testing.T) {
	f := newSubmissionFixture(t)

	sub, err := f.svc.Submit(context.Background(), testMember, 10, &CreateSubmissionRequest{
		Type:    models.SubmissionTypePhoto,
		Caption: "Done before sunrise",
	})
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusPending, sub.Status)
	assert.Equal(t, models.ModerationApproved, sub.ModerationStatus)
	assert.Equal(t, models.PrivacyPublic, sub.Privacy)
	assert.Equal(t, "Morning run", sub.QuestTitle)
	assert.Equal(t, []string{events.TypeSubmissionCreated}, f.bus.types())
}

func TestSubmit_DuplicateRejectedBeforePersistence(t *testing.T) {
	f := newSubmissionFixture(t)
	f.subs.subs[1] = &models.Submission{ID: 1, UserID: 7, QuestID: 10, Status: models.SubmissionStatusPending}

	_, err := f.svc.Submit(context.Background(), testMember, 10, &CreateSubmissionRequest{Type: models.SubmissionTypeText})
	require.Error(t, err)
	assert.True(t, IsConflictError(err))
	assert.Equal(t, "ALREADY_SUBMITTED", GetServiceError(err).Code)
	assert.Zero(t, f.subs.createCalls)
}

func TestSubmit_DuplicateDetectedInsideTransaction(t *testing.T) {
	f := newSubmissionFixture(t)
	f.subs.openBetween = true

	_, err := f.svc.Submit(context.Background(), testMember, 10, &CreateSubmissionRequest{Type: models.SubmissionTypeText})
	require.Error(t, err)
	assert.Equal(t, "ALREADY_SUBMITTED", GetServiceError(err).Code)
	assert.Zero(t, f.subs.createCalls)
}

func TestSubmit_RejectedSubmissionCanBeRetried(t *testing.T) {
	f := newSubmissionFixture(t)
	f.subs.subs[1] = &models.Submission{ID: 1, UserID: 7, QuestID: 10, Status: models.SubmissionStatusRejected}

	_, err := f.svc.Submit(context.Background(), testMember, 10, &CreateSubmissionRequest{Type: models.SubmissionTypeText})
	require.NoError(t, err)
	assert.Equal(t, 1, f.subs.createCalls)
}

func TestSubmit_UnpublishedQuestIsNotFound(t *testing.T) {
	f := newSubmissionFixture(t)
	f.quest.quests[10].Status = models.QuestStatusDraft

	_, err := f.svc.Submit(context.Background(), testMember, 10, &CreateSubmissionRequest{Type: models.SubmissionTypeText})
	assert.True(t, IsNotFoundError(err))
}

func TestSubmit_TypeMustBeAccepted(t *testing.T) {
	f := newSubmissionFixture(t)

	_, err := f.svc.Submit(context.Background(), testMember, 10, &CreateSubmissionRequest{Type: models.SubmissionTypeVideo})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	fields := GetFieldErrors(err)
	require.Len(t, fields, 1)
	assert.Equal(t, "type", fields[0].Field)
}

func TestSubmit_PrivacyDefaultsFromPreferences(t *testing.T) {
	f := newSubmissionFixture(t)
	prefs := models.DefaultUserPreferences(7)
	prefs.DefaultPrivacy = models.PrivacyPrivate
	f.users.prefs[7] = prefs

	sub, err := f.svc.Submit(context.Background(), testMember, 10, &CreateSubmissionRequest{Type: models.SubmissionTypeText})
	require.NoError(t, err)
	assert.Equal(t, models.PrivacyPrivate, sub.Privacy)
}

func TestSubmit_RejectedCaption(t *testing.T) {
	f := newSubmissionFixture(t)

	_, err := f.svc.Submit(context.Background(), testMember, 10, &CreateSubmissionRequest{
		Type:    models.SubmissionTypeText,
		Caption: "go back to your country",
	})
	require.Error(t, err)
	fields := GetFieldErrors(err)
	require.Len(t, fields, 1)
	assert.Equal(t, "caption", fields[0].Field)
	assert.Zero(t, f.subs.createCalls)
}

func TestGetSubmission_PrivateHiddenFromOthers(t *testing.T) {
	f := newSubmissionFixture(t)
	f.subs.subs[5] = &models.Submission{ID: 5, UserID: 7, QuestID: 10, Privacy: models.PrivacyPrivate}

	stranger := &Actor{UserID: 99, Role: models.RoleUser}
	_, err := f.svc.GetSubmission(context.Background(), stranger, 5)
	assert.True(t, IsNotFoundError(err))

	sub, err := f.svc.GetSubmission(context.Background(), &testMember, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), sub.ID)

	_, err = f.svc.GetSubmission(context.Background(), &testModerator, 5)
	assert.NoError(t, err)
}

func TestReview_ApprovalAwardsProgress(t *testing.T) {
	f := newSubmissionFixture(t)
	f.subs.subs[3] = &models.Submission{ID: 3, UserID: 7, QuestID: 10, Status: models.SubmissionStatusPending}

	result, err := f.svc.Review(context.Background(), testModerator, 3, &ReviewSubmissionRequest{Decision: "APPROVE", Note: "nice"})
	require.NoError(t, err)
	require.NotNil(t, result.Completion)

	award := result.Completion.Award
	assert.Equal(t, 50, award.Amount)
	assert.Equal(t, int64(140), award.NewXP)
	assert.True(t, award.LeveledUp)
	assert.Equal(t, 1, result.Completion.CurrentStreak)
	require.Len(t, result.Completion.UnlockedBadges, 1)
	assert.Equal(t, "First Steps", result.Completion.UnlockedBadges[0].Name)

	user := f.users.users[7]
	assert.Equal(t, int64(140), user.XP)
	assert.Equal(t, 2, user.Level)
	assert.Equal(t, 1, f.quest.completions[10])

	assert.Equal(t, []string{
		events.TypeSubmissionReviewed,
		events.TypeXPAwarded,
		events.TypeLevelUp,
		events.TypeBadgeUnlocked,
	}, f.bus.types())
}

func TestReview_Rejection(t *testing.T) {
	f := newSubmissionFixture(t)
	f.subs.subs[3] = &models.Submission{ID: 3, UserID: 7, QuestID: 10, Status: models.SubmissionStatusPending}

	result, err := f.svc.Review(context.Background(), testModerator, 3, &ReviewSubmissionRequest{Decision: "REJECT"})
	require.NoError(t, err)
	assert.Nil(t, result.Completion)
	assert.Equal(t, models.SubmissionStatusRejected, result.Submission.Status)
	assert.Equal(t, int64(90), f.users.users[7].XP)
	assert.Equal(t, []string{events.TypeSubmissionReviewed}, f.bus.types())
}

func TestReview_OnlyPendingAndOnlyModerators(t *testing.T) {
	f := newSubmissionFixture(t)
	f.subs.subs[3] = &models.Submission{ID: 3, UserID: 7, QuestID: 10, Status: models.SubmissionStatusApproved}

	_, err := f.svc.Review(context.Background(), testMember, 3, &ReviewSubmissionRequest{Decision: "APPROVE"})
	assert.True(t, IsAuthorizationError(err))

	_, err = f.svc.Review(context.Background(), testModerator, 3, &ReviewSubmissionRequest{Decision: "APPROVE"})
	require.Error(t, err)
	assert.Equal(t, "ALREADY_REVIEWED", GetServiceError(err).Code)
}

func TestReview_ConcurrentApprovalAwardsOnce(t *testing.T) {
	f := newSubmissionFixture(t)
	f.subs.subs[3] = &models.Submission{ID: 3, UserID: 7, QuestID: 10, Status: models.SubmissionStatusPending}
	other := Actor{UserID: 3, Role: models.RoleAdmin}

	var secondErr error
	f.subs.beforeReview = func() {
		_, secondErr = f.svc.Review(context.Background(), other, 3, &ReviewSubmissionRequest{Decision: "APPROVE"})
	}

	_, err := f.svc.Review(context.Background(), testModerator, 3, &ReviewSubmissionRequest{Decision: "APPROVE"})
	require.NoError(t, secondErr)
	require.Error(t, err)
	assert.Equal(t, "ALREADY_REVIEWED", GetServiceError(err).Code)

	assert.Equal(t, int64(140), f.users.users[7].XP)
	assert.Equal(t, 1, f.quest.completions[10])
	assert.Equal(t, int64(3), *f.subs.subs[3].ReviewedBy)
}

func TestUploadMedia_RequiresStorage(t *testing.T) {
	f := newSubmissionFixture(t)
	_, err := f.svc.UploadMedia(context.Background(), testMember, &FileUploadRequest{Filename: "proof.jpg"})
	require.Error(t, err)
	assert.Equal(t, ErrTypeUnavailable, GetServiceError(err).Type)
}
