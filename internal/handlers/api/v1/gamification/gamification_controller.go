package gamification

import (
	"net/http"

	"go.uber.org/zap"

	"sidequest/internal/handlers/api/v1/common"
	"sidequest/internal/response"
	"sidequest/internal/services"
)

// GamificationController exposes progression data
type GamificationController struct {
	common.Base
	gamificationService services.GamificationService
}

// NewGamificationController creates a new gamification controller
func NewGamificationController(
	gamificationService services.GamificationService,
	logger *zap.Logger,
	responseBuilder *response.Builder,
) *GamificationController {
	return &GamificationController{
		Base:                common.NewBase(logger, responseBuilder),
		gamificationService: gamificationService,
	}
}

// Profile handles GET /api/gamification/profile
// @Summary Caller's level, streak, rank and badges
// @Tags gamification
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.APIResponse{data=services.GamificationProfile}
// @Router /gamification/profile [get]
func (c *GamificationController) Profile(w http.ResponseWriter, r *http.Request) {
	actor, ok := c.Actor(w, r)
	if !ok {
		return
	}

	profile, err := c.gamificationService.GetProfile(r.Context(), actor.UserID)
	if err != nil {
		c.WriteError(w, r, err)
		return
	}
	c.ResponseBuilder.WriteSuccess(w, r, profile)
}

// Levels handles GET /api/gamification/levels
// @Summary The level table
// @Tags gamification
// @Produce json
// @Success 200 {object} response.APIResponse{data=[]gamification.LevelTableEntry}
// @Router /gamification/levels [get]
func (c *GamificationController) Levels(w http.ResponseWriter, r *http.Request) {
	c.ResponseBuilder.WriteSuccess(w, r, c.gamificationService.GetLevels())
}

// Badges handles GET /api/gamification/badges
// @Summary Badges with the caller's progress
// @Tags gamification
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.APIResponse{data=[]services.BadgeProgress}
// @Router /gamification/badges [get]
func (c *GamificationController) Badges(w http.ResponseWriter, r *http.Request) {
	actor, ok := c.Actor(w, r)
	if !ok {
		return
	}

	badges, err := c.gamificationService.ListBadges(r.Context(), actor.UserID)
	if err != nil {
		c.WriteError(w, r, err)
		return
	}
	c.ResponseBuilder.WriteSuccess(w, r, badges)
}

// Leaderboard handles GET /api/gamification/leaderboard
// @Summary Top users by XP
// @Tags gamification
// @Produce json
// @Param limit query int false "Entries, at most 100"
// @Success 200 {object} response.APIResponse{data=[]models.LeaderboardEntry}
// @Router /gamification/leaderboard [get]
func (c *GamificationController) Leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := c.gamificationService.GetLeaderboard(r.Context(), c.IntQuery(r, "limit", 10, 100))
	if err != nil {
		c.WriteError(w, r, err)
		return
	}
	c.ResponseBuilder.WriteSuccess(w, r, entries)
}

// XPHistory handles GET /api/gamification/xp-history
// @Summary Caller's XP ledger
// @Tags gamification
// @Security BearerAuth
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.APIResponse{data=[]models.XPLog}
// @Router /gamification/xp-history [get]
func (c *GamificationController) XPHistory(w http.ResponseWriter, r *http.Request) {
	actor, ok := c.Actor(w, r)
	if !ok {
		return
	}
	params, ok := c.Pagination(w, r)
	if !ok {
		return
	}

	page, err := c.gamificationService.GetXPHistory(r.Context(), actor.UserID, params)
	if err != nil {
		c.WriteError(w, r, err)
		return
	}
	response.WritePage(c.ResponseBuilder, w, r, page)
}
