// file: internal/handlers/api/v1/users/users_controller.go
package users

import (
	"net/http"

	"go.uber.org/zap"

	"sidequest/internal/handlers/api/v1/common"
	"sidequest/internal/response"
	"sidequest/internal/services"
)

// UserController handles the caller's own account
type UserController struct {
	common.Base
	userService services.UserService
}

// NewUserController creates a new user controller
func NewUserController(
	userService services.UserService,
	logger *zap.Logger,
	responseBuilder *response.Builder,
) *UserController {
	return &UserController{
		Base:        common.NewBase(logger, responseBuilder),
		userService: userService,
	}
}

// ===============================
// PROFILE
// ===============================

// GetProfile handles GET /api/users/profile
// @Summary Caller's profile
// @Tags users
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.APIResponse{data=models.User}
// @Router /users/profile [get]
func (c *UserController) GetProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := c.Actor(w, r)
	if !ok {
		return
	}

	user, err := c.userService.GetProfile(r.Context(), actor.UserID)
	if err != nil {
		c.WriteError(w, r, err)
		return
	}
	c.ResponseBuilder.WriteSuccess(w, r, user)
}

// UpdateProfile handles PUT /api/users/profile
// @Summary Update the caller's profile
// @Tags users
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body services.UpdateProfileRequest true "Profile fields"
// @Success 200 {object} response.APIResponse{data=models.User}
// @Router /users/profile [put]
func (c *UserController) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := c.Actor(w, r)
	if !ok {
		return
	}

	var req services.UpdateProfileRequest
	if !c.DecodeJSON(w, r, &req) {
		return
	}

	user, err := c.userService.UpdateProfile(r.Context(), actor.UserID, &req)
	if err != nil {
		c.WriteError(w, r, err)
		return
	}
	c.ResponseBuilder.WriteSuccess(w, r, user)
}

// ===============================
// PREFERENCES
// ===============================

// GetPreferences handles GET /api/users/preferences
// @Summary Caller's preferences
// @Tags users
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.APIResponse{data=models.UserPreferences}
// @Router /users/preferences [get]
func (c *UserController) GetPreferences(w http.ResponseWriter, r *http.Request) {
	actor, ok := c.Actor(w, r)
	if !ok {
		return
	}

	prefs, err := c.userService.GetPreferences(r.Context(), actor.UserID)
	if err != nil {
		c.WriteError(w, r, err)
		return
	}
	c.ResponseBuilder.WriteSuccess(w, r, prefs)
}

// UpdatePreferences handles PUT /api/users/preferences
// @Summary Update any subset of the caller's preferences
// @Tags users
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body services.UpdatePreferencesRequest true "Preferences"
// @Success 200 {object} response.APIResponse{data=models.UserPreferences}
// @Router /users/preferences [put]
func (c *UserController) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	actor, ok := c.Actor(w, r)
	if !ok {
		return
	}

	var req services.UpdatePreferencesRequest
	if !c.DecodeJSON(w, r, &req) {
		return
	}

	prefs, err := c.userService.UpdatePreferences(r.Context(), actor.UserID, &req)
	if err != nil {
		c.WriteError(w, r, err)
		return
	}
	c.ResponseBuilder.WriteSuccess(w, r, prefs)
}

// ===============================
// ACCOUNT
// ===============================

// ChangePassword handles PUT /api/users/password
// @Summary Change the caller's password
// @Tags users
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body services.ChangePasswordRequest true "Passwords"
// @Success 200 {object} response.APIResponse
// @Failure 401 {object} response.APIResponse
// @Router /users/password [put]
func (c *UserController) ChangePassword(w http.ResponseWriter, r *http.Request) {
	actor, ok := c.Actor(w, r)
	if !ok {
		return
	}

	var req services.ChangePasswordRequest
	if !c.DecodeJSON(w, r, &req) {
		return
	}

	if err := c.userService.ChangePassword(r.Context(), actor.UserID, &req); err != nil {
		c.WriteError(w, r, err)
		return
	}
	c.ResponseBuilder.WriteSuccess(w, r, map[string]string{"message": "Password changed successfully"})
}

// DeleteAccount handles DELETE /api/users/account
// @Summary Delete the caller's account
// @Description Password accounts must confirm with their password.
// @Tags users
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body services.DeleteAccountRequest false "Confirmation"
// @Success 200 {object} response.APIResponse
// @Router /users/account [delete]
func (c *UserController) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	actor, ok := c.Actor(w, r)
	if !ok {
		return
	}

	var req services.DeleteAccountRequest
	if r.ContentLength != 0 && !c.DecodeJSON(w, r, &req) {
		return
	}

	if err := c.userService.DeleteAccount(r.Context(), actor.UserID, &req); err != nil {
		c.WriteError(w, r, err)
		return
	}
	c.ResponseBuilder.WriteSuccess(w, r, map[string]string{"message": "Account deleted"})
}
