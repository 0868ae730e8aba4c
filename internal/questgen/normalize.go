package questgen

import (
	"context"
	"errors"
	"strings"

	"sidequest/internal/models"
)

// ErrCategoryNotFound is returned when the generated category has no active
// stored row
var ErrCategoryNotFound = errors.New("category not found")

// CategoryLookup resolves a category by its exact stored name
type CategoryLookup interface {
	GetByName(ctx context.Context, name string) (*models.QuestCategory, error)
}

// Normalized is the quest shape derived from a generator output
type Normalized struct {
	Quest *models.Quest
	// InferredByFallback is true when no proof item matched a known type and
	// TEXT was assumed.
	InferredByFallback bool
}

// Normalize maps a generator output onto a persisted quest. The category is
// looked up by its capitalized name and never substituted; an inactive
// category counts as missing.
func Normalize(ctx context.Context, out AIQuestOutput, categories CategoryLookup, createdBy *int64) (*Normalized, error) {
	category := Category(strings.ToLower(strings.TrimSpace(out.Category)))
	cat, err := categories.GetByName(ctx, category.DisplayName())
	if err != nil {
		return nil, err
	}
	if cat == nil || !cat.IsActive {
		return nil, ErrCategoryNotFound
	}

	types, fallback := InferSubmissionTypes(out.Proof)
	difficulty := strings.ToUpper(strings.TrimSpace(out.Difficulty))

	quest := &models.Quest{
		Title:            strings.TrimSpace(out.Title),
		Description:      strings.TrimSpace(out.Description),
		ShortDescription: strings.TrimSpace(out.ShortDescription),
		Instructions:     Instructions(out.SafetyNotes),
		CategoryID:       cat.ID,
		Difficulty:       models.Difficulty(difficulty),
		Tags:             models.StringArray{string(category), strings.ToLower(difficulty), "ai-generated"},
		Requirements:     models.StringArray(append([]string(nil), out.Proof...)),
		Points:           out.XP,
		EstimatedTime:    out.DurationMin,
		SubmissionTypes:  types,
		AllowSharing:     true,
		EncourageSharing: true,
		IsAIGenerated:    true,
		CreatedBy:        createdBy,
		ModerationStatus: models.ModerationPending,
		CategoryName:     cat.Name,
	}

	if RequiresLocation(category, out.Title) {
		quest.LocationRequired = true
		outdoor := "outdoor"
		quest.LocationType = &outdoor
	}

	return &Normalized{Quest: quest, InferredByFallback: fallback}, nil
}

// Instructions prefixes non-empty safety notes
func Instructions(safetyNotes string) string {
	notes := strings.TrimSpace(safetyNotes)
	if notes == "" {
		return ""
	}
	return "Safety Notes: " + notes
}

// InferSubmissionTypes derives accepted proof formats from free-text proof
// items. Matching is case-insensitive on substrings; "clip" counts as both
// photo and video. With no match it falls back to TEXT and reports it.
func InferSubmissionTypes(proof []string) (models.StringArray, bool) {
	var photo, video, text bool
	for _, item := range proof {
		p := strings.ToLower(item)
		if strings.Contains(p, "photo") || strings.Contains(p, "clip") {
			photo = true
		}
		if strings.Contains(p, "video") || strings.Contains(p, "clip") {
			video = true
		}
		if strings.Contains(p, "text") || strings.Contains(p, "summary") || strings.Contains(p, "list") {
			text = true
		}
	}

	out := models.StringArray{}
	if photo {
		out = append(out, string(models.SubmissionTypePhoto))
	}
	if video {
		out = append(out, string(models.SubmissionTypeVideo))
	}
	if text {
		out = append(out, string(models.SubmissionTypeText))
	}
	if len(out) == 0 {
		return models.StringArray{string(models.SubmissionTypeText)}, true
	}
	return out, false
}

// RequiresLocation is true for fitness quests whose title mentions running or walking
func RequiresLocation(category Category, title string) bool {
	if category != CategoryFitness {
		return false
	}
	t := strings.ToLower(title)
	return strings.Contains(t, "run") || strings.Contains(t, "walk")
}

// PublishStatus decides the initial status of a saved quest
func PublishStatus(role models.Role, autoPublish bool) models.QuestStatus {
	if autoPublish && role.IsElevated() {
		return models.QuestStatusAvailable
	}
	return models.QuestStatusDraft
}
