// ===============================
// FILE: internal/handlers/api/v1/quests/quests_controller.go
// ===============================

package quests

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"sidequest/internal/handlers/api/v1/common"
	"sidequest/internal/response"
	"sidequest/internal/services"
)

// QuestController handles the quest catalog
type QuestController struct {
	common.Base
	questService services.QuestService
}

// NewQuestController creates a new quest controller
func NewQuestController(
	questService services.QuestService,
	logger *zap.Logger,
	responseBuilder *response.Builder,
) *QuestController {
	return &QuestController{
		Base:         common.NewBase(logger, responseBuilder),
		questService: questService,
	}
}

// ListQuests handles GET /api/quests
// @Summary List quests
// @Description Anonymous callers see published quests only. Owners also see their drafts.
// @Tags quests
// @Produce json
// @Param category query string false "Category name"
// @Param difficulty query string false "EASY, MEDIUM, HARD or EPIC"
// @Param tags query string false "Comma separated tags"
// @Param search query string false "Title and description search"
// @Param status query string false "Quest status"
// @Param mine query bool false "Only quests created by the caller"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param sort query string false "Sort field"
// @Param order query string false "asc or desc"
// @Success 200 {object} response.APIResponse{data=[]models.Quest}
// @Router /quests [get]
func (c *QuestController) ListQuests(w http.ResponseWriter, r *http.Request) {
	params, ok := c.Pagination(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	req := &services.ListQuestsRequest{
		Category:   strings.TrimSpace(q.Get("category")),
		Difficulty: strings.ToUpper(strings.TrimSpace(q.Get("difficulty"))),
		Tags:       splitTags(q.Get("tags")),
		Search:     strings.TrimSpace(q.Get("search")),
		Status:     strings.ToUpper(strings.TrimSpace(q.Get("status"))),
		Mine:       q.Get("mine") == "true",
		Pagination: params,
	}

	page, err := c.questService.ListQuests(r.Context(), c.Viewer(r), req)
	if err != nil {
		c.WriteError(w, r, err)
		return
	}
	response.WritePage(c.ResponseBuilder, w, r, page)
}

// GetQuest handles GET /api/quests/{id}
// @Summary Get a quest
// @Tags quests
// @Produce json
// @Param id path int true "Quest ID"
// @Success 200 {object} response.APIResponse{data=models.Quest}
// @Failure 404 {object} response.APIResponse
// @Router /quests/{id} [get]
func (c *QuestController) GetQuest(w http.ResponseWriter, r *http.Request) {
	id, ok := c.IDParam(w, r, "id")
	if !ok {
		return
	}

	quest, err := c.questService.GetQuest(r.Context(), c.Viewer(r), id)
	if err != nil {
		c.WriteError(w, r, err)
		return
	}
	c.ResponseBuilder.WriteSuccess(w, r, quest)
}

// CreateQuest handles POST /api/quests
// @Summary Create a quest
// @Tags quests
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body services.QuestRequest true "Quest"
// @Success 201 {object} response.APIResponse{data=models.Quest}
// @Failure 400 {object} response.APIResponse
// @Failure 404 {object} response.APIResponse
// @Router /quests [post]
func (c *QuestController) CreateQuest(w http.ResponseWriter, r *http.Request) {
	actor, ok := c.Actor(w, r)
	if !ok {
		return
	}

	var req services.QuestRequest
	if !c.DecodeJSON(w, r, &req) {
		return
	}

	quest, err := c.questService.CreateQuest(r.Context(), actor, &req)
	if err != nil {
		c.WriteError(w, r, err)
		return
	}

	c.RequestLogger(r).Info("Quest created",
		zap.Int64("quest_id", quest.ID),
		zap.String("status", string(quest.Status)),
	)
	c.ResponseBuilder.WriteCreated(w, r, quest)
}

// UpdateQuest handles PUT /api/quests/{id}
// @Summary Replace a quest
// @Tags quests
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Quest ID"
// @Param body body services.QuestRequest true "Quest"
// @Success 200 {object} response.APIResponse{data=models.Quest}
// @Failure 403 {object} response.APIResponse
// @Router /quests/{id} [put]
func (c *QuestController) UpdateQuest(w http.ResponseWriter, r *http.Request) {
	actor, ok := c.Actor(w, r)
	if !ok {
		return
	}
	id, ok := c.IDParam(w, r, "id")
	if !ok {
		return
	}

	var req services.QuestRequest
	if !c.DecodeJSON(w, r, &req) {
		return
	}

	quest, err := c.questService.UpdateQuest(r.Context(), actor, id, &req)
	if err != nil {
		c.WriteError(w, r, err)
		return
	}
	c.ResponseBuilder.WriteSuccess(w, r, quest)
}

// DeleteQuest handles DELETE /api/quests/{id}
// @Summary Delete a quest
// @Tags quests
// @Security BearerAuth
// @Param id path int true "Quest ID"
// @Success 200 {object} response.APIResponse
// @Failure 403 {object} response.APIResponse
// @Router /quests/{id} [delete]
func (c *QuestController) DeleteQuest(w http.ResponseWriter, r *http.Request) {
	actor, ok := c.Actor(w, r)
	if !ok {
		return
	}
	id, ok := c.IDParam(w, r, "id")
	if !ok {
		return
	}

	if err := c.questService.DeleteQuest(r.Context(), actor, id); err != nil {
		c.WriteError(w, r, err)
		return
	}
	c.ResponseBuilder.WriteSuccess(w, r, map[string]interface{}{"id": id, "deleted": true})
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
