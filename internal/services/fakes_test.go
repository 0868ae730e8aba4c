package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"sidequest/internal/events"
	"sidequest/internal/llm"
	"sidequest/internal/models"
	"sidequest/internal/repositories"
)

// ===============================
// TRANSACTIONS
// ===============================

type fakeTx struct{ calls int }

func (t *fakeTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	return fn(ctx)
}

// txScope collects row locks taken by the fakes inside one transaction
type txScope struct{ release []func() }

type txScopeKey struct{}

// lockingTx releases fake row locks when the outermost transaction ends
type lockingTx struct{}

func (lockingTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txScopeKey{}).(*txScope); ok {
		return fn(ctx)
	}
	scope := &txScope{}
	defer func() {
		for _, release := range scope.release {
			release()
		}
	}()
	return fn(context.WithValue(ctx, txScopeKey{}, scope))
}

// ===============================
// USERS
// ===============================

type fakeUserRepo struct {
	mu      sync.Mutex
	rowLock sync.Mutex
	users   map[int64]*models.User
	prefs   map[int64]*models.UserPreferences
	nextID  int64
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	r := &fakeUserRepo{users: map[int64]*models.User{}, prefs: map[int64]*models.UserPreferences{}, nextID: 100}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email || u.Username == user.Username {
			return repositories.ErrDuplicate
		}
	}
	r.nextID++
	user.ID = r.nextID
	user.Level = 1
	user.IsActive = true
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	r.users[user.ID] = user
	r.prefs[user.ID] = models.DefaultUserPreferences(user.ID)
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id], nil
}

// GetByIDForUpdate returns a copy, like a database read, and holds the row
// lock until a lockingTx ends
func (r *fakeUserRepo) GetByIDForUpdate(ctx context.Context, id int64) (*models.User, error) {
	if scope, ok := ctx.Value(txScopeKey{}).(*txScope); ok {
		r.rowLock.Lock()
		scope.release = append(scope.release, r.rowLock.Unlock)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) find(match func(*models.User) bool) *models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			return u
		}
	}
	return nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return strings.EqualFold(u.Email, email) }), nil
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return strings.EqualFold(u.Username, username) }), nil
}

func (r *fakeUserRepo) GetByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.GoogleID != nil && *u.GoogleID == googleID }), nil
}

func (r *fakeUserRepo) UpdateProfile(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) UpdatePassword(ctx context.Context, userID int64, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[userID].PasswordHash = hash
	return nil
}

func (r *fakeUserRepo) UpdateProgress(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) LinkGoogleID(ctx context.Context, userID int64, googleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[userID].GoogleID = &googleID
	return nil
}

func (r *fakeUserRepo) SoftDelete(ctx context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.users[userID].DeletedAt = &now
	return nil
}

func (r *fakeUserRepo) GetPreferences(ctx context.Context, userID int64) (*models.UserPreferences, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.prefs[userID], nil
}

func (r *fakeUserRepo) UpsertPreferences(ctx context.Context, prefs *models.UserPreferences) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefs[prefs.UserID] = prefs
	return nil
}

func (r *fakeUserRepo) Leaderboard(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	return nil, nil
}

func (r *fakeUserRepo) RankOf(ctx context.Context, userID int64) (int, error) {
	return 1, nil
}

// ===============================
// CATEGORIES
// ===============================

type fakeCategoryRepo struct {
	categories  map[int64]*models.QuestCategory
	questCounts map[int64]int64
	deleted     []int64
	deactivated []int64
}

func newFakeCategoryRepo(cats ...*models.QuestCategory) *fakeCategoryRepo {
	r := &fakeCategoryRepo{categories: map[int64]*models.QuestCategory{}, questCounts: map[int64]int64{}}
	for _, c := range cats {
		r.categories[c.ID] = c
	}
	return r
}

func (r *fakeCategoryRepo) Create(ctx context.Context, c *models.QuestCategory) error {
	for _, existing := range r.categories {
		if strings.EqualFold(existing.Name, c.Name) {
			return repositories.ErrDuplicate
		}
	}
	c.ID = int64(len(r.categories) + 1)
	r.categories[c.ID] = c
	return nil
}

func (r *fakeCategoryRepo) GetByID(ctx context.Context, id int64) (*models.QuestCategory, error) {
	return r.categories[id], nil
}

func (r *fakeCategoryRepo) GetByName(ctx context.Context, name string) (*models.QuestCategory, error) {
	for _, c := range r.categories {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, nil
}

func (r *fakeCategoryRepo) List(ctx context.Context, includeInactive bool) ([]*models.QuestCategory, error) {
	var out []*models.QuestCategory
	for _, c := range r.categories {
		if includeInactive || c.IsActive {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeCategoryRepo) Update(ctx context.Context, c *models.QuestCategory) error {
	r.categories[c.ID] = c
	return nil
}

func (r *fakeCategoryRepo) Delete(ctx context.Context, id int64) error {
	delete(r.categories, id)
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *fakeCategoryRepo) Deactivate(ctx context.Context, id int64) error {
	r.categories[id].IsActive = false
	r.deactivated = append(r.deactivated, id)
	return nil
}

func (r *fakeCategoryRepo) CountQuests(ctx context.Context, id int64) (int64, error) {
	return r.questCounts[id], nil
}

// ===============================
// QUESTS
// ===============================

type fakeQuestRepo struct {
	quests      map[int64]*models.Quest
	created     []*models.Quest
	completions map[int64]int
	nextID      int64
}

func newFakeQuestRepo(quests ...*models.Quest) *fakeQuestRepo {
	r := &fakeQuestRepo{quests: map[int64]*models.Quest{}, completions: map[int64]int{}, nextID: 500}
	for _, q := range quests {
		r.quests[q.ID] = q
	}
	return r
}

func (r *fakeQuestRepo) Create(ctx context.Context, q *models.Quest) error {
	r.nextID++
	q.ID = r.nextID
	r.quests[q.ID] = q
	r.created = append(r.created, q)
	return nil
}

func (r *fakeQuestRepo) GetByID(ctx context.Context, id int64) (*models.Quest, error) {
	return r.quests[id], nil
}

func (r *fakeQuestRepo) Update(ctx context.Context, q *models.Quest) error {
	r.quests[q.ID] = q
	return nil
}

func (r *fakeQuestRepo) Delete(ctx context.Context, id int64) error {
	delete(r.quests, id)
	return nil
}

func (r *fakeQuestRepo) List(ctx context.Context, filter repositories.QuestFilter, params models.PaginationParams) (*models.PaginatedResponse[*models.Quest], error) {
	var out []*models.Quest
	for _, q := range r.quests {
		if filter.PublishedOnly && !q.IsPublished() {
			continue
		}
		out = append(out, q)
	}
	return &models.PaginatedResponse[*models.Quest]{Data: out}, nil
}

func (r *fakeQuestRepo) ListByModeration(ctx context.Context, statuses []models.ModerationStatus, params models.PaginationParams) (*models.PaginatedResponse[*models.Quest], error) {
	return &models.PaginatedResponse[*models.Quest]{}, nil
}

func (r *fakeQuestRepo) UpdateModeration(ctx context.Context, q *models.Quest) error {
	r.quests[q.ID] = q
	return nil
}

func (r *fakeQuestRepo) IncrementCompletion(ctx context.Context, id int64) error {
	r.completions[id]++
	return nil
}

func (r *fakeQuestRepo) ListTitles(ctx context.Context, limit int) ([]string, error) {
	var out []string
	for _, q := range r.quests {
		out = append(out, q.Title)
	}
	return out, nil
}

func (r *fakeQuestRepo) CountAIGenerated(ctx context.Context) (int64, error) {
	var n int64
	for _, q := range r.quests {
		if q.IsAIGenerated {
			n++
		}
	}
	return n, nil
}

// ===============================
// SUBMISSIONS
// ===============================

type fakeSubmissionRepo struct {
	subs        map[int64]*models.Submission
	createCalls int
	// openBetween simulates a concurrent submission landing between the
	// pre-check and the transaction
	openBetween bool
	findCalls   int
	nextID      int64
	// beforeReview runs once ahead of the next UpdateReview, standing in
	// for a second moderator acting on the same submission
	beforeReview func()
}

func newFakeSubmissionRepo(subs ...*models.Submission) *fakeSubmissionRepo {
	r := &fakeSubmissionRepo{subs: map[int64]*models.Submission{}, nextID: 900}
	for _, s := range subs {
		r.subs[s.ID] = s
	}
	return r
}

func (r *fakeSubmissionRepo) Create(ctx context.Context, s *models.Submission) error {
	r.createCalls++
	r.nextID++
	s.ID = r.nextID
	r.subs[s.ID] = s
	return nil
}

func (r *fakeSubmissionRepo) GetByID(ctx context.Context, id int64) (*models.Submission, error) {
	s, ok := r.subs[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSubmissionRepo) FindOpen(ctx context.Context, userID, questID int64) (*models.Submission, error) {
	r.findCalls++
	if r.openBetween && r.findCalls > 1 {
		return &models.Submission{UserID: userID, QuestID: questID, Status: models.SubmissionStatusPending}, nil
	}
	for _, s := range r.subs {
		if s.UserID == userID && s.QuestID == questID &&
			(s.Status == models.SubmissionStatusPending || s.Status == models.SubmissionStatusApproved) {
			return s, nil
		}
	}
	return nil, nil
}

func (r *fakeSubmissionRepo) ListByQuest(ctx context.Context, questID int64, viewerID *int64, params models.PaginationParams) (*models.PaginatedResponse[*models.Submission], error) {
	return &models.PaginatedResponse[*models.Submission]{}, nil
}

func (r *fakeSubmissionRepo) ListByUser(ctx context.Context, userID int64, params models.PaginationParams) (*models.PaginatedResponse[*models.Submission], error) {
	return &models.PaginatedResponse[*models.Submission]{}, nil
}

func (r *fakeSubmissionRepo) ListPendingReview(ctx context.Context, params models.PaginationParams) (*models.PaginatedResponse[*models.Submission], error) {
	return &models.PaginatedResponse[*models.Submission]{}, nil
}

func (r *fakeSubmissionRepo) UpdateReview(ctx context.Context, s *models.Submission) error {
	if hook := r.beforeReview; hook != nil {
		r.beforeReview = nil
		hook()
	}
	if cur, ok := r.subs[s.ID]; !ok || cur.Status != models.SubmissionStatusPending {
		return repositories.ErrStateChanged
	}
	r.subs[s.ID] = s
	return nil
}

func (r *fakeSubmissionRepo) CountApprovedByUser(ctx context.Context, userID int64) (int64, error) {
	var n int64
	for _, s := range r.subs {
		if s.UserID == userID && s.Status == models.SubmissionStatusApproved {
			n++
		}
	}
	return n, nil
}

func (r *fakeSubmissionRepo) CountApprovedByCategory(ctx context.Context, userID int64) (map[int64]int64, error) {
	return map[int64]int64{}, nil
}

// ===============================
// GAMIFICATION
// ===============================

type userBadgeKey struct{ userID, badgeID int64 }

type fakeBadgeRepo struct {
	badges   []*models.Badge
	owned    map[userBadgeKey]*models.UserBadge
	unlocked []int64
}

func newFakeBadgeRepo(badges ...*models.Badge) *fakeBadgeRepo {
	return &fakeBadgeRepo{badges: badges, owned: map[userBadgeKey]*models.UserBadge{}}
}

func (r *fakeBadgeRepo) List(ctx context.Context, activeOnly bool) ([]*models.Badge, error) {
	return r.badges, nil
}

func (r *fakeBadgeRepo) GetByID(ctx context.Context, id int64) (*models.Badge, error) {
	for _, b := range r.badges {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, nil
}

func (r *fakeBadgeRepo) ListUserBadges(ctx context.Context, userID int64) ([]*models.UserBadge, error) {
	var out []*models.UserBadge
	for key, ub := range r.owned {
		if key.userID == userID {
			out = append(out, ub)
		}
	}
	return out, nil
}

func (r *fakeBadgeRepo) SaveProgress(ctx context.Context, userID, badgeID, progress int64, unlock bool) error {
	key := userBadgeKey{userID, badgeID}
	ub, ok := r.owned[key]
	if !ok {
		ub = &models.UserBadge{UserID: userID, BadgeID: badgeID}
		r.owned[key] = ub
	}
	ub.Progress = progress
	if unlock && ub.UnlockedAt == nil {
		now := time.Now()
		ub.UnlockedAt = &now
		r.unlocked = append(r.unlocked, badgeID)
	}
	return nil
}

// hasUnlocked reports whether the user holds the badge
func (r *fakeBadgeRepo) hasUnlocked(userID, badgeID int64) bool {
	ub, ok := r.owned[userBadgeKey{userID, badgeID}]
	return ok && ub.IsUnlocked()
}

type fakeXPRepo struct{ entries []*models.XPLog }

func (r *fakeXPRepo) Log(ctx context.Context, entry *models.XPLog) error {
	entry.ID = int64(len(r.entries) + 1)
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeXPRepo) ListByUser(ctx context.Context, userID int64, params models.PaginationParams) (*models.PaginatedResponse[*models.XPLog], error) {
	return &models.PaginatedResponse[*models.XPLog]{Data: r.entries}, nil
}

type fakeChallengeRepo struct {
	challenges map[int64]*models.Challenge
	quests     map[int64][]*models.ChallengeQuest
	rewards    map[int64][]*models.ChallengeReward
	scores     map[int64]map[int64]int
	joinOrder  map[int64][]int64
	scored     []int64
	nextID     int64
}

func newFakeChallengeRepo(challenges ...*models.Challenge) *fakeChallengeRepo {
	r := &fakeChallengeRepo{
		challenges: map[int64]*models.Challenge{},
		quests:     map[int64][]*models.ChallengeQuest{},
		rewards:    map[int64][]*models.ChallengeReward{},
		scores:     map[int64]map[int64]int{},
		joinOrder:  map[int64][]int64{},
		nextID:     20,
	}
	for _, c := range challenges {
		r.challenges[c.ID] = c
	}
	return r
}

func (r *fakeChallengeRepo) Create(ctx context.Context, c *models.Challenge) error {
	r.nextID++
	c.ID = r.nextID
	r.challenges[c.ID] = c
	return nil
}

func (r *fakeChallengeRepo) GetByID(ctx context.Context, id int64) (*models.Challenge, error) {
	c, ok := r.challenges[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	cp.ParticipantCount = len(r.scores[id])
	return &cp, nil
}

func (r *fakeChallengeRepo) List(ctx context.Context, status models.ChallengeStatus, params models.PaginationParams) (*models.PaginatedResponse[*models.Challenge], error) {
	var out []*models.Challenge
	for _, c := range r.challenges {
		if status == "" || challengeStatus(c, time.Now()) == status {
			out = append(out, c)
		}
	}
	return &models.PaginatedResponse[*models.Challenge]{Data: out}, nil
}

func (r *fakeChallengeRepo) AddQuest(ctx context.Context, cq *models.ChallengeQuest) error {
	r.quests[cq.ChallengeID] = append(r.quests[cq.ChallengeID], cq)
	return nil
}

func (r *fakeChallengeRepo) ListQuests(ctx context.Context, challengeID int64) ([]*models.Quest, error) {
	var out []*models.Quest
	for _, cq := range r.quests[challengeID] {
		out = append(out, &models.Quest{ID: cq.QuestID})
	}
	return out, nil
}

func (r *fakeChallengeRepo) AddReward(ctx context.Context, rw *models.ChallengeReward) error {
	rw.ID = int64(len(r.rewards[rw.ChallengeID]) + 1)
	r.rewards[rw.ChallengeID] = append(r.rewards[rw.ChallengeID], rw)
	return nil
}

func (r *fakeChallengeRepo) ListRewards(ctx context.Context, challengeID int64) ([]*models.ChallengeReward, error) {
	return r.rewards[challengeID], nil
}

func (r *fakeChallengeRepo) AddParticipant(ctx context.Context, challengeID, userID int64) error {
	if r.scores[challengeID] == nil {
		r.scores[challengeID] = map[int64]int{}
	}
	if _, ok := r.scores[challengeID][userID]; ok {
		return repositories.ErrDuplicate
	}
	r.scores[challengeID][userID] = 0
	r.joinOrder[challengeID] = append(r.joinOrder[challengeID], userID)
	return nil
}

func (r *fakeChallengeRepo) IsParticipant(ctx context.Context, challengeID, userID int64) (bool, error) {
	_, ok := r.scores[challengeID][userID]
	return ok, nil
}

func (r *fakeChallengeRepo) CountParticipants(ctx context.Context, challengeID int64) (int, error) {
	return len(r.scores[challengeID]), nil
}

// ranked orders participants by score with RANK() semantics
func (r *fakeChallengeRepo) ranked(challengeID int64, positiveOnly bool) []*models.ChallengeLeaderboardEntry {
	var out []*models.ChallengeLeaderboardEntry
	for _, userID := range r.joinOrder[challengeID] {
		score := r.scores[challengeID][userID]
		if positiveOnly && score <= 0 {
			continue
		}
		out = append(out, &models.ChallengeLeaderboardEntry{UserID: userID, Score: score})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	for i, e := range out {
		e.Rank = i + 1
		if i > 0 && out[i-1].Score == e.Score {
			e.Rank = out[i-1].Rank
		}
	}
	return out
}

func (r *fakeChallengeRepo) Leaderboard(ctx context.Context, challengeID int64, limit int) ([]*models.ChallengeLeaderboardEntry, error) {
	out := r.ranked(challengeID, false)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeChallengeRepo) AddScoreForQuest(ctx context.Context, userID, questID int64, at time.Time) (int64, error) {
	r.scored = append(r.scored, questID)
	var updated int64
	for id, cqs := range r.quests {
		c := r.challenges[id]
		if c == nil || !c.IsRunning(at) {
			continue
		}
		if _, joined := r.scores[id][userID]; !joined {
			continue
		}
		for _, cq := range cqs {
			if cq.QuestID == questID {
				r.scores[id][userID] += cq.Points
				updated++
			}
		}
	}
	return updated, nil
}

func (r *fakeChallengeRepo) ListUnsettled(ctx context.Context, now time.Time, limit int) ([]*models.Challenge, error) {
	var out []*models.Challenge
	for _, c := range r.challenges {
		if c.SettledAt == nil && !c.EndsAt.After(now) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeChallengeRepo) MarkSettled(ctx context.Context, challengeID int64, at time.Time) (bool, error) {
	c, ok := r.challenges[challengeID]
	if !ok || c.SettledAt != nil {
		return false, nil
	}
	c.SettledAt = &at
	return true, nil
}

func (r *fakeChallengeRepo) Standings(ctx context.Context, challengeID int64, maxRank int) ([]*models.ChallengeLeaderboardEntry, error) {
	var out []*models.ChallengeLeaderboardEntry
	for _, e := range r.ranked(challengeID, true) {
		if e.Rank <= maxRank {
			out = append(out, e)
		}
	}
	return out, nil
}

// ===============================
// NOTIFICATIONS
// ===============================

type fakeNotificationRepo struct {
	repositories.NotificationRepository
	stored []*models.Notification
}

func (r *fakeNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	n.ID = int64(len(r.stored) + 1)
	r.stored = append(r.stored, n)
	return nil
}

func (r *fakeNotificationRepo) MarkRead(ctx context.Context, id, userID int64) (bool, error) {
	for _, n := range r.stored {
		if n.ID == id && n.UserID == userID {
			n.IsRead = true
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeNotificationRepo) CountUnread(ctx context.Context, userID int64, now time.Time) (int64, error) {
	var n int64
	for _, item := range r.stored {
		if item.UserID == userID && !item.IsRead {
			n++
		}
	}
	return n, nil
}

type pushed struct {
	userID  int64
	kind    string
	payload interface{}
}

type fakePusher struct{ sent []pushed }

func (p *fakePusher) SendToUser(userID int64, messageType string, payload interface{}) int {
	p.sent = append(p.sent, pushed{userID, messageType, payload})
	return 1
}

// ===============================
// PROVIDERS
// ===============================

type fakeProvider struct {
	text  string
	err   error
	calls int
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return &llm.GenerateResponse{Text: p.text, Model: "fake-1"}, nil
}

// ===============================
// FIXTURES
// ===============================

func int64Ptr(v int64) *int64 { return &v }

func publishedQuest(id int64) *models.Quest {
	return &models.Quest{
		ID:               id,
		Title:            "Morning run",
		Description:      "Run five kilometers before breakfast",
		CategoryID:       1,
		Difficulty:       models.DifficultyEasy,
		Points:           50,
		SubmissionTypes:  models.StringArray{"PHOTO", "TEXT"},
		Status:           models.QuestStatusAvailable,
		ModerationStatus: models.ModerationApproved,
		CreatedBy:        int64Ptr(1),
	}
}

func fitnessCategory() *models.QuestCategory {
	return &models.QuestCategory{ID: 1, Name: "Fitness", IsActive: true}
}

func testRepos() *repositories.Collection {
	return &repositories.Collection{
		User:         newFakeUserRepo(),
		Category:     newFakeCategoryRepo(fitnessCategory()),
		Quest:        newFakeQuestRepo(),
		Submission:   newFakeSubmissionRepo(),
		Badge:        newFakeBadgeRepo(),
		XP:           &fakeXPRepo{},
		Notification: &fakeNotificationRepo{},
		Challenge:    newFakeChallengeRepo(),
		Tx:           &fakeTx{},
	}
}

// ===============================
// EVENTS
// ===============================

type recordingBus struct {
	mu        sync.Mutex
	published []events.Event
}

func (b *recordingBus) Publish(ctx context.Context, ev events.Event) error {
	return b.PublishAsync(ctx, ev)
}

func (b *recordingBus) PublishAsync(ctx context.Context, ev events.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, ev)
	return nil
}

func (b *recordingBus) Subscribe(string, events.EventHandler) error        { return nil }
func (b *recordingBus) SubscribePattern(string, events.EventHandler) error { return nil }
func (b *recordingBus) Start(context.Context) error                        { return nil }
func (b *recordingBus) Stop(context.Context) error                         { return nil }
func (b *recordingBus) Stats() events.EventBusStats                        { return events.EventBusStats{} }

func (b *recordingBus) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.published))
	for i, ev := range b.published {
		out[i] = ev.GetEventType()
	}
	return out
}
