package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sidequest/internal/models"
	"sidequest/internal/questgen"
	"sidequest/internal/services"
)

type fakeMigrator struct {
	version  uint
	dirty    bool
	upCalls  int
	rollback []int
}

func (m *fakeMigrator) Migrate() error {
	m.upCalls++
	m.version = 2
	return nil
}

func (m *fakeMigrator) Rollback(steps int) error {
	if steps <= 0 {
		return errors.New("steps must be positive")
	}
	m.rollback = append(m.rollback, steps)
	m.version -= uint(steps)
	return nil
}

func (m *fakeMigrator) MigrationVersion() (uint, bool, error) {
	return m.version, m.dirty, nil
}

type fakeAIQuests struct {
	services.AIQuestService
	generated []*services.GenerateQuestRequest
	ideas     []*services.QuestFromIdeaRequest
	actors    []services.Actor
}

func (f *fakeAIQuests) Generate(ctx context.Context, actor services.Actor, req *services.GenerateQuestRequest) (*services.GenerateQuestResponse, error) {
	f.generated = append(f.generated, req)
	f.actors = append(f.actors, actor)
	category := "fitness"
	if req.PreviousCategory == "fitness" {
		category = "learning"
	}
	return &services.GenerateQuestResponse{
		Quest:  questgen.AIQuestOutput{Title: "Quest " + category, Category: category, Difficulty: req.Difficulty, XP: 50, DurationMin: 10},
		Source: questgen.SourceMock,
	}, nil
}

func (f *fakeAIQuests) FromIdea(ctx context.Context, actor services.Actor, req *services.QuestFromIdeaRequest) (*services.GenerateQuestResponse, error) {
	f.ideas = append(f.ideas, req)
	return &services.GenerateQuestResponse{
		Quest: questgen.AIQuestOutput{Title: "Idea quest", Category: "learning", Difficulty: req.Difficulty, XP: 100},
		Saved: &models.Quest{ID: 9, Status: models.QuestStatusDraft},
	}, nil
}

type fakeNotifications struct {
	services.NotificationService
	removed int64
}

func (f *fakeNotifications) PurgeExpired(ctx context.Context) (int64, error) {
	return f.removed, nil
}

type fakeChallenges struct {
	services.ChallengeService
	settled []*models.ChallengeSettlement
	calls   int
}

func (f *fakeChallenges) SettleEnded(ctx context.Context) ([]*models.ChallengeSettlement, error) {
	f.calls++
	return f.settled, nil
}

type fakeBackend struct {
	migrator      *fakeMigrator
	aiQuests      *fakeAIQuests
	notifications *fakeNotifications
	challenges    *fakeChallenges
	closed        bool
}

func (b *fakeBackend) Migrator(ctx context.Context) (Migrator, error) { return b.migrator, nil }
func (b *fakeBackend) AIQuests(ctx context.Context) (services.AIQuestService, error) {
	return b.aiQuests, nil
}
func (b *fakeBackend) Notifications(ctx context.Context) (services.NotificationService, error) {
	return b.notifications, nil
}
func (b *fakeBackend) Challenges(ctx context.Context) (services.ChallengeService, error) {
	return b.challenges, nil
}
func (b *fakeBackend) Close() error {
	b.closed = true
	return nil
}

func execute(t *testing.T, b *fakeBackend, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	out := &bytes.Buffer{}
	cmd := NewRootCmd(&App{Backend: b, Out: out})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		migrator:      &fakeMigrator{},
		aiQuests:      &fakeAIQuests{},
		notifications: &fakeNotifications{removed: 4},
		challenges:    &fakeChallenges{},
	}
}

func TestMigrateUp(t *testing.T) {
	b := newFakeBackend()
	out, err := execute(t, b, "migrate", "up")
	require.NoError(t, err)
	assert.Equal(t, 1, b.migrator.upCalls)
	assert.Equal(t, "schema version 2\n", out)
	assert.True(t, b.closed)
}

func TestMigrateDown_JSON(t *testing.T) {
	b := newFakeBackend()
	b.migrator.version = 2

	out, err := execute(t, b, "migrate", "down", "--steps", "1", "-o", "json")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, b.migrator.rollback)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, float64(1), body["version"])
	assert.Equal(t, false, body["dirty"])
}

func TestMigrateVersion_Dirty(t *testing.T) {
	b := newFakeBackend()
	b.migrator.version = 1
	b.migrator.dirty = true

	out, err := execute(t, b, "migrate", "version")
	require.NoError(t, err)
	assert.Equal(t, "schema version 1 (dirty)\n", out)
}

func TestGenerate_AlternatesCategories(t *testing.T) {
	b := newFakeBackend()
	out, err := execute(t, b, "generate", "--count", "3", "--difficulty", " EASY ", "--as-user", "12")
	require.NoError(t, err)

	require.Len(t, b.aiQuests.generated, 3)
	assert.Equal(t, "", b.aiQuests.generated[0].PreviousCategory)
	assert.Equal(t, "fitness", b.aiQuests.generated[1].PreviousCategory)
	assert.Equal(t, "learning", b.aiQuests.generated[2].PreviousCategory)
	for _, req := range b.aiQuests.generated {
		assert.Equal(t, "easy", req.Difficulty)
		assert.Equal(t, "quick", req.Mode)
	}
	assert.Equal(t, services.Actor{UserID: 12, Role: models.RoleAdmin}, b.aiQuests.actors[0])
	assert.Contains(t, out, "[fitness/easy] Quest fitness")
	assert.Contains(t, out, "[learning/easy] Quest learning")
}

func TestGenerate_FromIdeaSaves(t *testing.T) {
	b := newFakeBackend()
	out, err := execute(t, b, "generate", "--idea", "learn three chess openings", "--difficulty", "medium", "--save")
	require.NoError(t, err)

	require.Len(t, b.aiQuests.ideas, 1)
	assert.True(t, b.aiQuests.ideas[0].Save)
	assert.Empty(t, b.aiQuests.generated)
	assert.Contains(t, out, "saved as quest 9 (DRAFT)")
}

func TestGenerate_RejectsZeroCount(t *testing.T) {
	b := newFakeBackend()
	_, err := execute(t, b, "generate", "--count", "0")
	require.Error(t, err)
	assert.Empty(t, b.aiQuests.generated)
}

func TestNotificationsPurge(t *testing.T) {
	b := newFakeBackend()
	out, err := execute(t, b, "notifications", "purge")
	require.NoError(t, err)
	assert.Equal(t, "removed 4 expired notifications\n", out)
}

func TestConfigFileAndEnvironment(t *testing.T) {
	b := newFakeBackend()
	dir := t.TempDir()
	file := filepath.Join(dir, "ctl.yaml")
	require.NoError(t, os.WriteFile(file, []byte("output: json\n"), 0o600))

	out, err := execute(t, b, "notifications", "purge", "--config", file)
	require.NoError(t, err)
	assert.JSONEq(t, `{"removed":4}`, out)

	t.Setenv("SIDEQUESTCTL_OUTPUT", "json")
	out, err = execute(t, b, "migrate", "version")
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":0,"dirty":false}`, out)
}

func TestChallengesSettle(t *testing.T) {
	b := newFakeBackend()
	b.challenges.settled = []*models.ChallengeSettlement{
		{ChallengeID: 3, Title: "Spring sprint", Rewarded: 2, XPAwarded: 150, Badges: 1},
	}

	out, err := execute(t, b, "challenges", "settle")
	require.NoError(t, err)
	assert.Equal(t, 1, b.challenges.calls)
	assert.Equal(t, "challenge 3 \"Spring sprint\": 2 rewarded, 150 XP, 1 badges\n", out)
	assert.True(t, b.closed)
}

func TestChallengesSettle_NothingDueJSON(t *testing.T) {
	b := newFakeBackend()

	out, err := execute(t, b, "challenges", "settle", "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, out)
}
