package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sidequest/internal/events"
	"sidequest/internal/models"
	"sidequest/internal/repositories"
)

var challengeNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

type challengeFixture struct {
	repos      *repositories.Collection
	challenges *fakeChallengeRepo
	users      *fakeUserRepo
	badges     *fakeBadgeRepo
	xp         *fakeXPRepo
	bus        *recordingBus
	svc        ChallengeService
}

func newChallengeFixture(t *testing.T) *challengeFixture {
	t.Helper()
	two := 2
	f := &challengeFixture{
		challenges: newFakeChallengeRepo(
			&models.Challenge{ID: 1, Title: "Spring sprint", StartsAt: challengeNow.Add(-24 * time.Hour), EndsAt: challengeNow.Add(24 * time.Hour), MaxParticipants: &two},
			&models.Challenge{ID: 2, Title: "Winter walk", StartsAt: challengeNow.Add(-72 * time.Hour), EndsAt: challengeNow.Add(-time.Hour)},
		),
		users: newFakeUserRepo(
			&models.User{ID: 7, Username: "runner", Level: 1, XP: 90, IsActive: true},
			&models.User{ID: 8, Username: "walker", Level: 1, IsActive: true},
			&models.User{ID: 9, Username: "hiker", Level: 1, IsActive: true},
			&models.User{ID: 10, Username: "idler", Level: 1, IsActive: true},
		),
		badges: newFakeBadgeRepo(&models.Badge{ID: 5, Name: "Champion", Type: models.BadgeTypeQuestCount, Target: 50, IsActive: true}),
		xp:     &fakeXPRepo{},
		bus:    &recordingBus{},
	}
	f.repos = testRepos()
	f.repos.Challenge = f.challenges
	f.repos.User = f.users
	f.repos.Badge = f.badges
	f.repos.XP = f.xp
	f.repos.Quest = newFakeQuestRepo(publishedQuest(10))

	logger := zap.NewNop()
	gam := NewGamificationService(f.repos, nil, f.bus, logger)
	svc := NewChallengeService(f.repos, gam, f.bus, logger).(*challengeService)
	svc.now = func() time.Time { return challengeNow }
	f.svc = svc
	return f
}

func (f *challengeFixture) seedScore(challengeID, userID int64, score int) {
	_ = f.challenges.AddParticipant(context.Background(), challengeID, userID)
	f.challenges.scores[challengeID][userID] = score
}

func TestChallengeStatus_DerivedFromSchedule(t *testing.T) {
	c := &models.Challenge{StartsAt: challengeNow, EndsAt: challengeNow.Add(time.Hour)}

	tests := []struct {
		name string
		at   time.Time
		want models.ChallengeStatus
	}{
		{"before start", challengeNow.Add(-time.Second), models.ChallengeUpcoming},
		{"at start", challengeNow, models.ChallengeActive},
		{"running", challengeNow.Add(30 * time.Minute), models.ChallengeActive},
		{"at end", challengeNow.Add(time.Hour), models.ChallengeEnded},
		{"after end", challengeNow.Add(48 * time.Hour), models.ChallengeEnded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, challengeStatus(c, tt.at))
		})
	}
}

func TestJoinChallenge(t *testing.T) {
	f := newChallengeFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.JoinChallenge(ctx, Actor{UserID: 7, Role: models.RoleUser}, 1))
	assert.Equal(t, []string{events.TypeChallengeJoined}, f.bus.types())

	err := f.svc.JoinChallenge(ctx, Actor{UserID: 7, Role: models.RoleUser}, 1)
	require.Error(t, err)
	assert.Equal(t, "ALREADY_JOINED", GetServiceError(err).Code)

	require.NoError(t, f.svc.JoinChallenge(ctx, Actor{UserID: 8, Role: models.RoleUser}, 1))

	err = f.svc.JoinChallenge(ctx, Actor{UserID: 9, Role: models.RoleUser}, 1)
	require.Error(t, err)
	assert.Equal(t, "CHALLENGE_FULL", GetServiceError(err).Code)

	err = f.svc.JoinChallenge(ctx, Actor{UserID: 9, Role: models.RoleUser}, 2)
	require.Error(t, err)
	assert.Equal(t, "CHALLENGE_ENDED", GetServiceError(err).Code)

	err = f.svc.JoinChallenge(ctx, Actor{UserID: 9, Role: models.RoleUser}, 404)
	require.Error(t, err)
	assert.Equal(t, ErrTypeNotFound, GetServiceError(err).Type)

	count, _ := f.challenges.CountParticipants(ctx, 1)
	assert.Equal(t, 2, count)
}

func TestCreateChallenge(t *testing.T) {
	f := newChallengeFixture(t)
	req := &CreateChallengeRequest{
		Title:    "Summer streak",
		StartsAt: challengeNow.Add(24 * time.Hour),
		EndsAt:   challengeNow.Add(8 * 24 * time.Hour),
		Quests:   []ChallengeQuestRequest{{QuestID: 10, Points: 5}},
		Rewards:  []ChallengeRewardInput{{RankFrom: 1, RankTo: 3, XP: 75}},
	}

	_, err := f.svc.CreateChallenge(context.Background(), testMember, req)
	assert.True(t, IsAuthorizationError(err))

	c, err := f.svc.CreateChallenge(context.Background(), testModerator, req)
	require.NoError(t, err)
	assert.Equal(t, models.ChallengeUpcoming, c.Status)
	require.Len(t, c.Rewards, 1)
	assert.Equal(t, 75, c.Rewards[0].XP)

	req.Quests = []ChallengeQuestRequest{{QuestID: 99, Points: 5}}
	_, err = f.svc.CreateChallenge(context.Background(), testModerator, req)
	require.Error(t, err)
	assert.Equal(t, ErrTypeNotFound, GetServiceError(err).Type)
}

func TestSettleEnded_PaysRankRewardsOnce(t *testing.T) {
	f := newChallengeFixture(t)
	badge := int64(5)
	f.challenges.rewards[2] = []*models.ChallengeReward{
		{ID: 1, ChallengeID: 2, RankFrom: 1, RankTo: 1, XP: 100, BadgeID: &badge},
		{ID: 2, ChallengeID: 2, RankFrom: 2, RankTo: 3, XP: 40},
	}
	// 7 and 8 tie for first, so 9 ranks third
	f.seedScore(2, 7, 30)
	f.seedScore(2, 8, 30)
	f.seedScore(2, 9, 10)
	f.seedScore(2, 10, 0)
	f.seedScore(1, 7, 50)

	settled, err := f.svc.SettleEnded(context.Background())
	require.NoError(t, err)
	require.Len(t, settled, 1)
	assert.Equal(t, &models.ChallengeSettlement{ChallengeID: 2, Title: "Winter walk", Rewarded: 3, XPAwarded: 240, Badges: 2}, settled[0])

	assert.Equal(t, int64(190), f.users.users[7].XP)
	assert.Equal(t, int64(100), f.users.users[8].XP)
	assert.Equal(t, int64(40), f.users.users[9].XP)
	assert.Equal(t, int64(0), f.users.users[10].XP)
	assert.True(t, f.badges.hasUnlocked(7, 5))
	assert.True(t, f.badges.hasUnlocked(8, 5))
	assert.False(t, f.badges.hasUnlocked(9, 5))

	require.Len(t, f.xp.entries, 3)
	for _, e := range f.xp.entries {
		assert.Equal(t, models.XPSourceChallenge, e.Source)
		assert.Equal(t, int64(2), *e.ReferenceID)
	}

	var badgeEvents, xpEvents int
	for _, typ := range f.bus.types() {
		switch typ {
		case events.TypeBadgeUnlocked:
			badgeEvents++
		case events.TypeXPAwarded:
			xpEvents++
		}
	}
	assert.Equal(t, 2, badgeEvents)
	assert.Equal(t, 3, xpEvents)

	assert.NotNil(t, f.challenges.challenges[2].SettledAt)
	assert.Nil(t, f.challenges.challenges[1].SettledAt)

	again, err := f.svc.SettleEnded(context.Background())
	require.NoError(t, err)
	assert.Empty(t, again)
	assert.Len(t, f.xp.entries, 3)
	assert.Equal(t, int64(190), f.users.users[7].XP)
}

func TestSettleEnded_WithoutRewardsStillSettles(t *testing.T) {
	f := newChallengeFixture(t)
	f.seedScore(2, 7, 30)

	settled, err := f.svc.SettleEnded(context.Background())
	require.NoError(t, err)
	require.Len(t, settled, 1)
	assert.Equal(t, 0, settled[0].Rewarded)
	assert.NotNil(t, f.challenges.challenges[2].SettledAt)
	assert.Empty(t, f.xp.entries)
}
