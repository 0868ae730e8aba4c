package challenges

import (
	"net/http"

	"go.uber.org/zap"

	"sidequest/internal/handlers/api/v1/common"
	"sidequest/internal/response"
	"sidequest/internal/services"
)

// ChallengeController handles time-boxed group challenges
type ChallengeController struct {
	common.Base
	challengeService services.ChallengeService
}

// NewChallengeController creates a new challenge controller
func NewChallengeController(
	challengeService services.ChallengeService,
	logger *zap.Logger,
	responseBuilder *response.Builder,
) *ChallengeController {
	return &ChallengeController{
		Base:             common.NewBase(logger, responseBuilder),
		challengeService: challengeService,
	}
}

// ListChallenges handles GET /api/challenges
// @Summary List challenges
// @Tags challenges
// @Produce json
// @Param status query string false "ACTIVE (default), UPCOMING, ENDED or ALL"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.APIResponse{data=[]models.Challenge}
// @Router /challenges [get]
func (c *ChallengeController) ListChallenges(w http.ResponseWriter, r *http.Request) {
	params, ok := c.Pagination(w, r)
	if !ok {
		return
	}

	page, err := c.challengeService.ListChallenges(r.Context(), r.URL.Query().Get("status"), params)
	if err != nil {
		c.WriteError(w, r, err)
		return
	}
	response.WritePage(c.ResponseBuilder, w, r, page)
}

// GetChallenge handles GET /api/challenges/{id}
// @Summary Get a challenge with its quests and rewards
// @Tags challenges
// @Produce json
// @Param id path int true "Challenge ID"
// @Success 200 {object} response.APIResponse{data=models.Challenge}
// @Router /challenges/{id} [get]
func (c *ChallengeController) GetChallenge(w http.ResponseWriter, r *http.Request) {
	id, ok := c.IDParam(w, r, "id")
	if !ok {
		return
	}

	challenge, err := c.challengeService.GetChallenge(r.Context(), id)
	if err != nil {
		c.WriteError(w, r, err)
		return
	}
	c.ResponseBuilder.WriteSuccess(w, r, challenge)
}

// CreateChallenge handles POST /api/challenges
// @Summary Create a challenge
// @Tags challenges
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body services.CreateChallengeRequest true "Challenge"
// @Success 201 {object} response.APIResponse{data=models.Challenge}
// @Router /challenges [post]
func (c *ChallengeController) CreateChallenge(w http.ResponseWriter, r *http.Request) {
	actor, ok := c.Actor(w, r)
	if !ok {
		return
	}

	var req services.CreateChallengeRequest
	if !c.DecodeJSON(w, r, &req) {
		return
	}

	challenge, err := c.challengeService.CreateChallenge(r.Context(), actor, &req)
	if err != nil {
		c.WriteError(w, r, err)
		return
	}
	c.ResponseBuilder.WriteCreated(w, r, challenge)
}

// JoinChallenge handles POST /api/challenges/{id}/join
// @Summary Join a challenge
// @Tags challenges
// @Security BearerAuth
// @Produce json
// @Param id path int true "Challenge ID"
// @Success 200 {object} response.APIResponse
// @Failure 409 {object} response.APIResponse
// @Router /challenges/{id}/join [post]
func (c *ChallengeController) JoinChallenge(w http.ResponseWriter, r *http.Request) {
	actor, ok := c.Actor(w, r)
	if !ok {
		return
	}
	id, ok := c.IDParam(w, r, "id")
	if !ok {
		return
	}

	if err := c.challengeService.JoinChallenge(r.Context(), actor, id); err != nil {
		c.WriteError(w, r, err)
		return
	}
	c.ResponseBuilder.WriteSuccess(w, r, map[string]interface{}{"challenge_id": id, "joined": true})
}

// Leaderboard handles GET /api/challenges/{id}/leaderboard
// @Summary Challenge standings
// @Tags challenges
// @Produce json
// @Param id path int true "Challenge ID"
// @Param limit query int false "Entries, at most 100"
// @Success 200 {object} response.APIResponse{data=[]models.ChallengeLeaderboardEntry}
// @Router /challenges/{id}/leaderboard [get]
func (c *ChallengeController) Leaderboard(w http.ResponseWriter, r *http.Request) {
	id, ok := c.IDParam(w, r, "id")
	if !ok {
		return
	}

	entries, err := c.challengeService.GetLeaderboard(r.Context(), id, c.IntQuery(r, "limit", 20, 100))
	if err != nil {
		c.WriteError(w, r, err)
		return
	}
	c.ResponseBuilder.WriteSuccess(w, r, entries)
}
