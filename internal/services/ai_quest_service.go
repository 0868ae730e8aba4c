// file: internal/services/ai_quest_service.go
package services

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sahilm/fuzzy"
	"go.uber.org/zap"

	"sidequest/internal/events"
	"sidequest/internal/llm"
	"sidequest/internal/models"
	"sidequest/internal/moderation"
	"sidequest/internal/questgen"
	"sidequest/internal/repositories"
	"sidequest/internal/validation"
)

// AIQuestConfig tunes the generation pipeline
type AIQuestConfig struct {
	// Timeout bounds a single provider call
	Timeout     time.Duration
	Temperature float64
	// TitleScanLimit caps how many stored titles suggestions search
	TitleScanLimit int
}

// DefaultAIQuestConfig returns default generation settings
func DefaultAIQuestConfig() *AIQuestConfig {
	return &AIQuestConfig{
		Timeout:        30 * time.Second,
		Temperature:    0.8,
		TitleScanLimit: 500,
	}
}

type generationCounters struct {
	total     int64
	ai        int64
	mock      int64
	fallbacks int64
	saved     int64
	fitness   int64
	learning  int64
}

// aiQuestService implements AIQuestService
type aiQuestService struct {
	selector     *questgen.Selector
	provider     llm.Provider
	categoryRepo repositories.CategoryRepository
	questRepo    repositories.QuestRepository
	moderator    *moderation.Moderator
	events       events.EventBus
	logger       *zap.Logger
	config       *AIQuestConfig
	counters     generationCounters
}

// NewAIQuestService creates the generation service. A nil provider means
// every quest comes from the local mock generator.
func NewAIQuestService(
	selector *questgen.Selector,
	provider llm.Provider,
	categoryRepo repositories.CategoryRepository,
	questRepo repositories.QuestRepository,
	moderator *moderation.Moderator,
	bus events.EventBus,
	logger *zap.Logger,
	config *AIQuestConfig,
) AIQuestService {
	if config == nil {
		config = DefaultAIQuestConfig()
	}
	return &aiQuestService{
		selector:     selector,
		provider:     provider,
		categoryRepo: categoryRepo,
		questRepo:    questRepo,
		moderator:    moderator,
		events:       bus,
		logger:       logger,
		config:       config,
	}
}

// ===============================
// GENERATION
// ===============================

// Generate produces one quest for the requested difficulty. In quick mode
// without a category, the category alternates between calls.
func (s *aiQuestService) Generate(ctx context.Context, actor Actor, req *GenerateQuestRequest) (*GenerateQuestResponse, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, FromValidation(err)
	}

	mode, err := questgen.ParseMode(req.Mode)
	if err != nil {
		return nil, InvalidInputError("mode", "must be quick or custom")
	}
	sel, err := s.selectFor(mode, req.Difficulty, req.Category, req.PreviousCategory, "")
	if err != nil {
		return nil, err
	}
	return s.run(ctx, actor, sel, req.Save, req.AutoPublish)
}

// FromIdea generates a custom-mode quest themed around the caller's idea
func (s *aiQuestService) FromIdea(ctx context.Context, actor Actor, req *QuestFromIdeaRequest) (*GenerateQuestResponse, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, FromValidation(err)
	}

	idea := models.SanitizeString(req.Idea)
	sel, err := s.selectFor(questgen.ModeCustom, req.Difficulty, req.Category, "", idea)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, actor, sel, req.Save, req.AutoPublish)
}

func (s *aiQuestService) selectFor(mode questgen.Mode, difficulty, category, previous, idea string) (*questgen.Selection, error) {
	tier, err := questgen.ParseTier(difficulty)
	if err != nil {
		return nil, InvalidInputError("difficulty", "must be one of easy, medium, hard, epic")
	}
	cat, err := questgen.ParseCategory(category)
	if err != nil {
		return nil, InvalidInputError("category", "must be fitness or learning")
	}
	prev, err := questgen.ParseCategory(previous)
	if err != nil {
		return nil, InvalidInputError("previous_category", "must be fitness or learning")
	}

	sel, err := s.selector.Select(questgen.Request{
		Mode:             mode,
		Tier:             tier,
		Category:         cat,
		PreviousCategory: prev,
		Idea:             idea,
	})
	if err != nil {
		return nil, NewValidationError(err.Error(), err)
	}
	return sel, nil
}

func (s *aiQuestService) run(ctx context.Context, actor Actor, sel *questgen.Selection, save, autoPublish bool) (*GenerateQuestResponse, error) {
	gen := s.generate(ctx, sel)

	resp := &GenerateQuestResponse{
		Quest:          gen.Output,
		Selection:      gen.Selection,
		Source:         gen.Source,
		Provider:       gen.Provider,
		FallbackReason: gen.FallbackReason,
	}

	publishEvent(ctx, s.events, s.logger, &events.QuestGeneratedEvent{
		BaseEvent:      events.NewBaseEvent(events.TypeQuestGenerated, &actor.UserID),
		Source:         string(gen.Source),
		Provider:       gen.Provider,
		Category:       string(sel.Category),
		Tier:           string(sel.Tier),
		FallbackReason: gen.FallbackReason,
	})

	if !save {
		return resp, nil
	}
	saved, err := s.persist(ctx, actor, gen.Output, autoPublish)
	if err != nil {
		return nil, err
	}
	resp.Saved = saved.Quest
	resp.InferredByFallback = saved.InferredByFallback
	return resp, nil
}

// generate calls the provider once and substitutes the mock generator on
// any failure. It never fails.
func (s *aiQuestService) generate(ctx context.Context, sel *questgen.Selection) *questgen.Generated {
	atomic.AddInt64(&s.counters.total, 1)
	if sel.Category == questgen.CategoryFitness {
		atomic.AddInt64(&s.counters.fitness, 1)
	} else {
		atomic.AddInt64(&s.counters.learning, 1)
	}

	if s.provider == nil {
		atomic.AddInt64(&s.counters.mock, 1)
		return &questgen.Generated{Output: questgen.MockGenerate(sel), Selection: sel, Source: questgen.SourceMock}
	}

	out, err := s.callProvider(ctx, sel)
	if err == nil {
		atomic.AddInt64(&s.counters.ai, 1)
		return &questgen.Generated{
			Output:    out,
			Selection: sel,
			Source:    questgen.SourceAI,
			Provider:  s.provider.Name(),
		}
	}

	s.logger.Warn("Quest generation failed, using mock generator",
		zap.String("provider", s.provider.Name()),
		zap.String("category", string(sel.Category)),
		zap.String("difficulty", string(sel.Tier)),
		zap.Error(err),
	)
	atomic.AddInt64(&s.counters.mock, 1)
	atomic.AddInt64(&s.counters.fallbacks, 1)
	return &questgen.Generated{
		Output:         questgen.MockGenerate(sel),
		Selection:      sel,
		Source:         questgen.SourceMock,
		Provider:       s.provider.Name(),
		FallbackReason: err.Error(),
	}
}

func (s *aiQuestService) callProvider(ctx context.Context, sel *questgen.Selection) (questgen.AIQuestOutput, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	system, user := questgen.BuildPrompts(sel)
	start := time.Now()
	resp, err := s.provider.Generate(callCtx, llm.GenerateRequest{
		SystemPrompt: system,
		UserPrompt:   user,
		JSON:         true,
		Temperature:  s.config.Temperature,
	})
	if err != nil {
		return questgen.AIQuestOutput{}, err
	}

	out, err := llm.ExtractJSON(resp.Text, func(o questgen.AIQuestOutput) error { return o.Validate() })
	if err != nil {
		return questgen.AIQuestOutput{}, err
	}

	s.logger.Debug("Quest generated",
		zap.String("provider", s.provider.Name()),
		zap.String("model", resp.Model),
		zap.Duration("duration", time.Since(start)),
	)
	return out, nil
}

// ===============================
// PERSISTENCE
// ===============================

// Save stores a generated quest through the normalizer and the publish gate
func (s *aiQuestService) Save(ctx context.Context, actor Actor, req *SaveAIQuestRequest) (*SaveAIQuestResponse, error) {
	if err := req.Quest.Validate(); err != nil {
		return nil, FromValidation(err)
	}
	return s.persist(ctx, actor, req.Quest, req.AutoPublish)
}

func (s *aiQuestService) persist(ctx context.Context, actor Actor, out questgen.AIQuestOutput, autoPublish bool) (*SaveAIQuestResponse, error) {
	norm, err := questgen.Normalize(ctx, out, s.categoryRepo, &actor.UserID)
	if err != nil {
		if errors.Is(err, questgen.ErrCategoryNotFound) {
			return nil, NewNotFoundError("category not found")
		}
		s.logger.Error("Failed to normalize generated quest", zap.Error(err))
		return nil, NewInternalError("failed to save quest")
	}

	quest := norm.Quest
	if err := validation.ValidateStruct(quest); err != nil {
		return nil, FromValidation(err)
	}

	quest.Status = questgen.PublishStatus(actor.Role, autoPublish)
	if err := moderateQuest(ctx, s.moderator, quest, s.logger); err != nil {
		return nil, err
	}

	if err := s.questRepo.Create(ctx, quest); err != nil {
		s.logger.Error("Failed to store generated quest", zap.Int64("user_id", actor.UserID), zap.Error(err))
		return nil, NewInternalError("failed to save quest")
	}
	atomic.AddInt64(&s.counters.saved, 1)

	s.logger.Info("Generated quest saved",
		zap.Int64("quest_id", quest.ID),
		zap.Int64("user_id", actor.UserID),
		zap.String("status", string(quest.Status)),
		zap.Bool("inferred_by_fallback", norm.InferredByFallback),
	)

	if quest.IsPublished() {
		publishEvent(ctx, s.events, s.logger, &events.QuestPublishedEvent{
			BaseEvent: events.NewBaseEvent(events.TypeQuestPublished, quest.CreatedBy),
			QuestID:   quest.ID,
			Title:     quest.Title,
		})
	}
	return &SaveAIQuestResponse{Quest: quest, InferredByFallback: norm.InferredByFallback}, nil
}

// ===============================
// STATS & SUGGESTIONS
// ===============================

// Stats reports generation counters since startup and the stored total
func (s *aiQuestService) Stats(ctx context.Context) (*AIQuestStats, error) {
	stored, err := s.questRepo.CountAIGenerated(ctx)
	if err != nil {
		s.logger.Error("Failed to count generated quests", zap.Error(err))
		return nil, NewInternalError("failed to load generation stats")
	}

	provider := llm.ProviderMock
	if s.provider != nil {
		provider = s.provider.Name()
	}
	return &AIQuestStats{
		TotalGenerated:   atomic.LoadInt64(&s.counters.total),
		AIGenerated:      atomic.LoadInt64(&s.counters.ai),
		MockGenerated:    atomic.LoadInt64(&s.counters.mock),
		Fallbacks:        atomic.LoadInt64(&s.counters.fallbacks),
		Saved:            atomic.LoadInt64(&s.counters.saved),
		StoredAIQuests:   stored,
		Provider:         provider,
		LastCategory:     string(s.selector.Alternator().Last()),
		FitnessRequests:  atomic.LoadInt64(&s.counters.fitness),
		LearningRequests: atomic.LoadInt64(&s.counters.learning),
	}, nil
}

// Suggestions fuzzy-matches a partial idea against the template catalog and
// stored quest titles. An empty query lists the catalog.
func (s *aiQuestService) Suggestions(ctx context.Context, query string, limit int) ([]*QuestSuggestion, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	query = strings.TrimSpace(query)

	if query == "" {
		out := make([]*QuestSuggestion, 0, len(questgen.Catalog))
		for _, t := range questgen.Catalog {
			out = append(out, templateSuggestion(t, 0))
			if len(out) == limit {
				break
			}
		}
		return out, nil
	}

	catalog := make([]string, len(questgen.Catalog))
	for i, t := range questgen.Catalog {
		catalog[i] = t.Name + " " + t.Summary
	}

	var out []*QuestSuggestion
	for _, m := range fuzzy.Find(query, catalog) {
		out = append(out, templateSuggestion(questgen.Catalog[m.Index], m.Score))
	}

	titles, err := s.questRepo.ListTitles(ctx, s.config.TitleScanLimit)
	if err != nil {
		s.logger.Warn("Failed to load quest titles for suggestions", zap.Error(err))
	}
	for _, m := range fuzzy.Find(query, titles) {
		out = append(out, &QuestSuggestion{Text: m.Str, Source: "quest", Score: m.Score})
	}

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func templateSuggestion(t questgen.Template, score int) *QuestSuggestion {
	return &QuestSuggestion{
		Text:     t.Name + ": " + t.Summary,
		Source:   "template",
		Category: string(t.Category),
		Template: t.Key,
		Score:    score,
	}
}

