package aiquests

import (
	"net/http"

	"go.uber.org/zap"

	"sidequest/internal/handlers/api/v1/common"
	"sidequest/internal/response"
	"sidequest/internal/services"
)

// AIQuestController exposes the generation pipeline
type AIQuestController struct {
	common.Base
	aiQuestService services.AIQuestService
}

// NewAIQuestController creates a new AI quest controller
func NewAIQuestController(
	aiQuestService services.AIQuestService,
	logger *zap.Logger,
	responseBuilder *response.Builder,
) *AIQuestController {
	return &AIQuestController{
		Base:           common.NewBase(logger, responseBuilder),
		aiQuestService: aiQuestService,
	}
}

// Generate handles POST /api/ai-quests/generate
// @Summary Generate a quest
// @Description Quick mode alternates fitness and learning when no category is given.
// @Description Provider failures fall back to the built-in generator.
// @Tags ai-quests
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body services.GenerateQuestRequest true "Generation options"
// @Success 200 {object} response.APIResponse{data=services.GenerateQuestResponse}
// @Failure 400 {object} response.APIResponse
// @Failure 429 {object} response.APIResponse
// @Router /ai-quests/generate [post]
func (c *AIQuestController) Generate(w http.ResponseWriter, r *http.Request) {
	actor, ok := c.Actor(w, r)
	if !ok {
		return
	}

	var req services.GenerateQuestRequest
	if !c.DecodeJSON(w, r, &req) {
		return
	}

	resp, err := c.aiQuestService.Generate(r.Context(), actor, &req)
	if err != nil {
		c.WriteError(w, r, err)
		return
	}
	c.writeGenerated(w, r, resp)
}

// FromIdea handles POST /api/ai-quests/from-idea
// @Summary Generate a quest around an idea
// @Tags ai-quests
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body services.QuestFromIdeaRequest true "Idea"
// @Success 200 {object} response.APIResponse{data=services.GenerateQuestResponse}
// @Router /ai-quests/from-idea [post]
func (c *AIQuestController) FromIdea(w http.ResponseWriter, r *http.Request) {
	actor, ok := c.Actor(w, r)
	if !ok {
		return
	}

	var req services.QuestFromIdeaRequest
	if !c.DecodeJSON(w, r, &req) {
		return
	}

	resp, err := c.aiQuestService.FromIdea(r.Context(), actor, &req)
	if err != nil {
		c.WriteError(w, r, err)
		return
	}
	c.writeGenerated(w, r, resp)
}

// Save handles POST /api/ai-quests/save
// @Summary Save a generated quest
// @Tags ai-quests
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body services.SaveAIQuestRequest true "Generated quest"
// @Success 201 {object} response.APIResponse{data=services.SaveAIQuestResponse}
// @Router /ai-quests/save [post]
func (c *AIQuestController) Save(w http.ResponseWriter, r *http.Request) {
	actor, ok := c.Actor(w, r)
	if !ok {
		return
	}

	var req services.SaveAIQuestRequest
	if !c.DecodeJSON(w, r, &req) {
		return
	}

	resp, err := c.aiQuestService.Save(r.Context(), actor, &req)
	if err != nil {
		c.WriteError(w, r, err)
		return
	}
	c.ResponseBuilder.WriteCreated(w, r, resp)
}

// Stats handles GET /api/ai-quests/stats
// @Summary Generation statistics
// @Tags ai-quests
// @Produce json
// @Success 200 {object} response.APIResponse{data=services.AIQuestStats}
// @Router /ai-quests/stats [get]
func (c *AIQuestController) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := c.aiQuestService.Stats(r.Context())
	if err != nil {
		c.WriteError(w, r, err)
		return
	}
	c.ResponseBuilder.WriteSuccess(w, r, stats)
}

// Suggestions handles GET /api/ai-quests/suggestions
// @Summary Quest idea suggestions
// @Tags ai-quests
// @Produce json
// @Param q query string false "Search text"
// @Param limit query int false "Maximum suggestions"
// @Success 200 {object} response.APIResponse{data=[]services.QuestSuggestion}
// @Router /ai-quests/suggestions [get]
func (c *AIQuestController) Suggestions(w http.ResponseWriter, r *http.Request) {
	limit := c.IntQuery(r, "limit", 10, 50)
	suggestions, err := c.aiQuestService.Suggestions(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		c.WriteError(w, r, err)
		return
	}
	c.ResponseBuilder.WriteSuccess(w, r, suggestions)
}

func (c *AIQuestController) writeGenerated(w http.ResponseWriter, r *http.Request, resp *services.GenerateQuestResponse) {
	if resp.FallbackReason != "" {
		c.RequestLogger(r).Info("Quest generated by fallback",
			zap.String("reason", resp.FallbackReason),
		)
	}
	if resp.Saved != nil {
		c.ResponseBuilder.WriteCreated(w, r, resp)
		return
	}
	c.ResponseBuilder.WriteSuccess(w, r, resp)
}
