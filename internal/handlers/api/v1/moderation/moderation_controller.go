package moderation

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"sidequest/internal/handlers/api/v1/common"
	"sidequest/internal/response"
	"sidequest/internal/services"
)

// ModerationController exposes text checks and the manual review queue
type ModerationController struct {
	common.Base
	moderationService services.ModerationService
}

// NewModerationController creates a new moderation controller
func NewModerationController(
	moderationService services.ModerationService,
	logger *zap.Logger,
	responseBuilder *response.Builder,
) *ModerationController {
	return &ModerationController{
		Base:              common.NewBase(logger, responseBuilder),
		moderationService: moderationService,
	}
}

// CheckText handles POST /api/moderation/text
// @Summary Moderate a piece of text
// @Tags moderation
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body services.ModerateTextRequest true "Text"
// @Success 200 {object} response.APIResponse{data=moderation.Decision}
// @Router /moderation/text [post]
func (c *ModerationController) CheckText(w http.ResponseWriter, r *http.Request) {
	var req services.ModerateTextRequest
	if !c.DecodeJSON(w, r, &req) {
		return
	}

	decision, err := c.moderationService.CheckText(r.Context(), req.Text)
	if err != nil {
		c.WriteError(w, r, err)
		return
	}
	c.ResponseBuilder.WriteSuccess(w, r, decision)
}

// Queue handles GET /api/moderation/queue
// @Summary Items waiting for manual review
// @Tags moderation
// @Security BearerAuth
// @Produce json
// @Param type query string false "quests (default) or submissions"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.APIResponse
// @Failure 403 {object} response.APIResponse
// @Router /moderation/queue [get]
func (c *ModerationController) Queue(w http.ResponseWriter, r *http.Request) {
	params, ok := c.Pagination(w, r)
	if !ok {
		return
	}

	switch strings.ToLower(r.URL.Query().Get("type")) {
	case "", "quests":
		page, err := c.moderationService.QuestQueue(r.Context(), params)
		if err != nil {
			c.WriteError(w, r, err)
			return
		}
		response.WritePage(c.ResponseBuilder, w, r, page)
	case "submissions":
		page, err := c.moderationService.SubmissionQueue(r.Context(), params)
		if err != nil {
			c.WriteError(w, r, err)
			return
		}
		response.WritePage(c.ResponseBuilder, w, r, page)
	default:
		c.WriteError(w, r, services.InvalidInputError("type", "must be quests or submissions"))
	}
}

// ReviewQuest handles POST /api/moderation/quests/{id}/review
// @Summary Approve or reject a flagged quest
// @Tags moderation
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Quest ID"
// @Param body body services.ReviewQuestRequest true "Decision"
// @Success 200 {object} response.APIResponse{data=models.Quest}
// @Router /moderation/quests/{id}/review [post]
func (c *ModerationController) ReviewQuest(w http.ResponseWriter, r *http.Request) {
	actor, ok := c.Actor(w, r)
	if !ok {
		return
	}
	id, ok := c.IDParam(w, r, "id")
	if !ok {
		return
	}

	var req services.ReviewQuestRequest
	if !c.DecodeJSON(w, r, &req) {
		return
	}
	req.Decision = strings.ToUpper(strings.TrimSpace(req.Decision))

	quest, err := c.moderationService.ReviewQuest(r.Context(), actor, id, &req)
	if err != nil {
		c.WriteError(w, r, err)
		return
	}

	c.RequestLogger(r).Info("Quest moderated",
		zap.Int64("quest_id", id),
		zap.String("decision", req.Decision),
	)
	c.ResponseBuilder.WriteSuccess(w, r, quest)
}
