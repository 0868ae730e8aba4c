package questgen

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sidequest/internal/models"
)

type fixedPicker struct{ n int }

func (p fixedPicker) Intn(n int) int { return p.n % n }

type fakeCategories map[string]*models.QuestCategory

func (f fakeCategories) GetByName(_ context.Context, name string) (*models.QuestCategory, error) {
	return f[name], nil
}

func seededCategories() fakeCategories {
	return fakeCategories{
		"Fitness":  {ID: 1, Name: "Fitness", IsActive: true},
		"Learning": {ID: 2, Name: "Learning", IsActive: true},
	}
}

// ===============================
// DIFFICULTY TABLE
// ===============================

func TestDifficultyTable_XPValues(t *testing.T) {
	want := map[Tier]int{TierEasy: 50, TierMedium: 100, TierHard: 150, TierEpic: 250}
	for tier, xp := range want {
		p, ok := ParamsFor(tier)
		require.True(t, ok)
		assert.Equal(t, xp, p.XP, tier)
		assert.True(t, IsAllowedXP(p.XP))
	}
}

func TestDifficultyTable_DefaultsInsideWindows(t *testing.T) {
	for _, tier := range Tiers {
		p, _ := ParamsFor(tier)
		for _, c := range Categories {
			w := p.Minutes(c)
			assert.True(t, w.Contains(w.Default), "%s/%s", tier, c)
			assert.LessOrEqual(t, w.Min, w.Max)
		}
	}
}

func TestParseHelpers(t *testing.T) {
	tier, err := ParseTier("Hard")
	require.NoError(t, err)
	assert.Equal(t, TierHard, tier)

	_, err = ParseTier("nightmare")
	assert.Error(t, err)

	c, err := ParseCategory("")
	require.NoError(t, err)
	assert.Equal(t, Category(""), c)

	_, err = ParseCategory("cooking")
	assert.Error(t, err)

	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeQuick, m)
}

// ===============================
// SELECTOR
// ===============================

func TestSelector_QuickModeAlternates(t *testing.T) {
	s := NewSelector(NewAlternator(CategoryLearning), fixedPicker{})

	first, err := s.Select(Request{Mode: ModeQuick, Tier: TierEasy})
	require.NoError(t, err)
	second, err := s.Select(Request{Mode: ModeQuick, Tier: TierEasy})
	require.NoError(t, err)

	assert.Equal(t, CategoryFitness, first.Category)
	assert.Equal(t, CategoryLearning, second.Category)
	assert.NotEqual(t, first.Category, second.Category)
}

func TestSelector_PreviousCategoryOverridesSharedState(t *testing.T) {
	s := NewSelector(NewAlternator(CategoryLearning), fixedPicker{})

	sel, err := s.Select(Request{Mode: ModeQuick, Tier: TierMedium, PreviousCategory: CategoryFitness})
	require.NoError(t, err)
	assert.Equal(t, CategoryLearning, sel.Category)
}

func TestSelector_ExplicitCategoryHonoured(t *testing.T) {
	s := NewSelector(NewAlternator(CategoryLearning), fixedPicker{})

	sel, err := s.Select(Request{Mode: ModeQuick, Tier: TierEasy, Category: CategoryLearning})
	require.NoError(t, err)
	assert.Equal(t, CategoryLearning, sel.Category)
	assert.Equal(t, CategoryLearning, s.Alternator().Last())

	next, err := s.Select(Request{Mode: ModeQuick, Tier: TierEasy})
	require.NoError(t, err)
	assert.Equal(t, CategoryFitness, next.Category)
}

func TestSelector_CustomModeDoesNotTouchAlternation(t *testing.T) {
	alt := NewAlternator(CategoryLearning)
	s := NewSelector(alt, fixedPicker{n: 1})

	sel, err := s.Select(Request{Mode: ModeCustom, Tier: TierHard})
	require.NoError(t, err)
	assert.Equal(t, CategoryLearning, sel.Category)
	assert.Equal(t, CategoryLearning, alt.Last())
	assert.Equal(t, "micro-lesson", sel.Template.Key)
}

func TestSelector_UnknownTier(t *testing.T) {
	s := NewSelector(nil, fixedPicker{})
	_, err := s.Select(Request{Mode: ModeQuick, Tier: "legendary"})
	assert.Error(t, err)
}

func TestAlternator_ConcurrentUse(t *testing.T) {
	alt := NewAlternator(CategoryLearning)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := alt.Next("")
			assert.Contains(t, Categories, c)
		}()
	}
	wg.Wait()
}

// ===============================
// PROMPTS
// ===============================

func TestBuildSystemPrompt_ContainsContract(t *testing.T) {
	p := BuildSystemPrompt()
	for _, want := range []string{
		"at most 60 characters", "at most 120 characters", "duration_min", "safety_notes",
		"proof", "one of 50, 100, 150, 250", "study-sprint", "micro-lesson", "circuit",
	} {
		assert.Contains(t, p, want)
	}
}

func TestBuildUserPrompt_CarriesParameters(t *testing.T) {
	s := NewSelector(NewAlternator(CategoryLearning), fixedPicker{})
	sel, err := s.Select(Request{Mode: ModeCustom, Tier: TierMedium, Category: CategoryFitness, Idea: "sunrise"})
	require.NoError(t, err)

	_, user := BuildPrompts(sel)
	assert.Contains(t, user, "difficulty: medium")
	assert.Contains(t, user, "category: fitness")
	assert.Contains(t, user, "template: run")
	assert.Contains(t, user, "distance: 3 km")
	assert.Contains(t, user, "player idea: sunrise")
}

// ===============================
// MOCK GENERATOR
// ===============================

func TestMockGenerate_AlwaysValid(t *testing.T) {
	for _, tier := range Tiers {
		for _, tpl := range Catalog {
			p, _ := ParamsFor(tier)
			sel := &Selection{
				Mode:          ModeCustom,
				Tier:          tier,
				Category:      tpl.Category,
				Template:      tpl,
				Params:        p,
				TargetMinutes: p.Minutes(tpl.Category).Default,
			}
			out := MockGenerate(sel)
			require.NoError(t, out.Validate(), "%s/%s", tier, tpl.Key)
			assert.True(t, IsAllowedXP(out.XP))
			assert.True(t, p.Minutes(tpl.Category).Contains(out.DurationMin), "%s/%s", tier, tpl.Key)
		}
	}
}

func TestMockGenerate_ClampsOutOfRangeTarget(t *testing.T) {
	p, _ := ParamsFor(TierEasy)
	sel := &Selection{Tier: TierEasy, Category: CategoryFitness, Template: Catalog[0], Params: p, TargetMinutes: 500}
	out := MockGenerate(sel)
	assert.Equal(t, p.Fitness.Minutes.Default, out.DurationMin)
}

func TestAIQuestOutput_ValidateRejectsContractViolations(t *testing.T) {
	out := AIQuestOutput{
		Title:            strings.Repeat("x", 61),
		ShortDescription: "short",
		Category:         "fitness",
		Difficulty:       "easy",
		DurationMin:      10,
		Description:      "desc",
		Proof:            []string{"photo"},
		XP:               75,
	}
	err := out.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "title")
	assert.Contains(t, err.Error(), "xp")
}

// ===============================
// NORMALIZER
// ===============================

func TestInferSubmissionTypes(t *testing.T) {
	cases := []struct {
		proof    []string
		want     models.StringArray
		fallback bool
	}{
		{[]string{"Photo of the view"}, models.StringArray{"PHOTO"}, false},
		{[]string{"a short clip"}, models.StringArray{"PHOTO", "VIDEO"}, false},
		{[]string{"VIDEO of the finish", "Summary of the route"}, models.StringArray{"VIDEO", "TEXT"}, false},
		{[]string{"list of reps", "text note", "photo"}, models.StringArray{"PHOTO", "TEXT"}, false},
		{[]string{"high five a friend"}, models.StringArray{"TEXT"}, true},
		{nil, models.StringArray{"TEXT"}, true},
	}
	for _, tc := range cases {
		got, fallback := InferSubmissionTypes(tc.proof)
		assert.Equal(t, tc.want, got, tc.proof)
		assert.Equal(t, tc.fallback, fallback, tc.proof)
	}
}

func TestNormalize_FitnessRun(t *testing.T) {
	uid := int64(7)
	out := AIQuestOutput{
		Title:            "Sunrise Run",
		ShortDescription: "Catch the sunrise on a 3 km run.",
		Category:         "fitness",
		Difficulty:       "medium",
		DurationMin:      30,
		Description:      "Run 3 km before breakfast.",
		SafetyNotes:      "Hydrate.",
		Proof:            []string{"Photo at sunrise", "Text summary of pace"},
		XP:               100,
	}

	n, err := Normalize(context.Background(), out, seededCategories(), &uid)
	require.NoError(t, err)
	q := n.Quest

	assert.Equal(t, int64(1), q.CategoryID)
	assert.Equal(t, models.DifficultyMedium, q.Difficulty)
	assert.Equal(t, "Safety Notes: Hydrate.", q.Instructions)
	assert.Equal(t, models.StringArray{"PHOTO", "TEXT"}, q.SubmissionTypes)
	assert.True(t, q.LocationRequired)
	require.NotNil(t, q.LocationType)
	assert.Equal(t, "outdoor", *q.LocationType)
	assert.Equal(t, models.StringArray(out.Proof), q.Requirements)
	assert.Equal(t, 100, q.Points)
	assert.Equal(t, 30, q.EstimatedTime)
	assert.Equal(t, models.StringArray{"fitness", "medium", "ai-generated"}, q.Tags)
	assert.True(t, q.IsAIGenerated)
	assert.Equal(t, &uid, q.CreatedBy)
	assert.False(t, n.InferredByFallback)
}

func TestNormalize_LearningNeverRequiresLocation(t *testing.T) {
	out := AIQuestOutput{
		Title:       "Walk through Spanish verbs",
		Category:    "learning",
		Difficulty:  "easy",
		DurationMin: 10,
		Description: "One lesson.",
		Proof:       []string{"answer three questions"},
		XP:          50,
	}

	n, err := Normalize(context.Background(), out, seededCategories(), nil)
	require.NoError(t, err)
	assert.False(t, n.Quest.LocationRequired)
	assert.Nil(t, n.Quest.LocationType)
	assert.Equal(t, "", n.Quest.Instructions)
	assert.True(t, n.InferredByFallback)
}

func TestNormalize_MissingCategory(t *testing.T) {
	out := AIQuestOutput{Category: "learning", Difficulty: "easy", Proof: []string{"photo"}}
	_, err := Normalize(context.Background(), out, fakeCategories{"Fitness": {ID: 1, Name: "Fitness"}}, nil)
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestNormalize_InactiveCategory(t *testing.T) {
	out := AIQuestOutput{Category: "fitness", Difficulty: "easy", Proof: []string{"photo"}}
	cats := seededCategories()
	cats["Fitness"].IsActive = false

	_, err := Normalize(context.Background(), out, cats, nil)
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestPublishStatus(t *testing.T) {
	assert.Equal(t, models.QuestStatusAvailable, PublishStatus(models.RoleAdmin, true))
	assert.Equal(t, models.QuestStatusAvailable, PublishStatus(models.RoleModerator, true))
	assert.Equal(t, models.QuestStatusDraft, PublishStatus(models.RoleAdmin, false))
	assert.Equal(t, models.QuestStatusDraft, PublishStatus(models.RoleUser, true))
	assert.Equal(t, models.QuestStatusDraft, PublishStatus(models.RoleUser, false))
}
