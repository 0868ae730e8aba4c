// file: internal/handlers/api/v1/auth/auth_controller.go
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"sidequest/internal/handlers/api/v1/common"
	"sidequest/internal/response"
	"sidequest/internal/services"
)

const (
	oauthStateCookie = "sq_oauth_state"
	oauthStateTTL    = 10 * time.Minute
)

// AuthController handles account endpoints
type AuthController struct {
	common.Base
	authService services.AuthService
	frontendURL string
}

// NewAuthController creates a new auth controller. frontendURL receives the
// token after a Google sign-in.
func NewAuthController(
	authService services.AuthService,
	frontendURL string,
	logger *zap.Logger,
	responseBuilder *response.Builder,
) *AuthController {
	return &AuthController{
		Base:        common.NewBase(logger, responseBuilder),
		authService: authService,
		frontendURL: frontendURL,
	}
}

// Register handles POST /api/auth/register
// @Summary Register a password account
// @Tags auth
// @Accept json
// @Produce json
// @Param body body services.RegisterRequest true "Account"
// @Success 201 {object} response.APIResponse{data=services.AuthResponse}
// @Failure 400 {object} response.APIResponse
// @Failure 409 {object} response.APIResponse
// @Router /auth/register [post]
func (c *AuthController) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterRequest
	if !c.DecodeJSON(w, r, &req) {
		return
	}

	resp, err := c.authService.Register(r.Context(), &req)
	if err != nil {
		c.WriteError(w, r, err)
		return
	}

	c.RequestLogger(r).Info("User registered", zap.Int64("new_user_id", resp.User.ID))
	c.ResponseBuilder.WriteCreated(w, r, resp)
}

// Login handles POST /api/auth/login
// @Summary Log in with email or username
// @Tags auth
// @Accept json
// @Produce json
// @Param body body services.LoginRequest true "Credentials"
// @Success 200 {object} response.APIResponse{data=services.AuthResponse}
// @Failure 401 {object} response.APIResponse
// @Router /auth/login [post]
func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var req services.LoginRequest
	if !c.DecodeJSON(w, r, &req) {
		return
	}

	resp, err := c.authService.Login(r.Context(), &req)
	if err != nil {
		c.WriteError(w, r, err)
		return
	}
	c.ResponseBuilder.WriteSuccess(w, r, resp)
}

// Me handles GET /api/auth/me
// @Summary Current account
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.APIResponse{data=models.User}
// @Failure 401 {object} response.APIResponse
// @Router /auth/me [get]
func (c *AuthController) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := c.Actor(w, r)
	if !ok {
		return
	}

	user, err := c.authService.Me(r.Context(), actor.UserID)
	if err != nil {
		c.WriteError(w, r, err)
		return
	}
	c.ResponseBuilder.WriteSuccess(w, r, user)
}

// ===============================
// GOOGLE OAUTH
// ===============================

// GoogleLogin handles GET /api/auth/google/login by redirecting to Google
// @Summary Start Google sign-in
// @Tags auth
// @Success 307
// @Failure 503 {object} response.APIResponse
// @Router /auth/google/login [get]
func (c *AuthController) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	if !c.authService.GoogleEnabled() {
		c.WriteError(w, r, services.NewServiceUnavailableError("Google sign-in is not configured"))
		return
	}

	state, err := newOAuthState()
	if err != nil {
		c.WriteError(w, r, services.NewInternalError("failed to start Google sign-in"))
		return
	}

	authURL, err := c.authService.GoogleAuthURL(state)
	if err != nil {
		c.WriteError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/api/auth/google",
		Expires:  time.Now().Add(oauthStateTTL),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, authURL, http.StatusTemporaryRedirect)
}

// GoogleCallback handles GET /api/auth/google/callback
// @Summary Finish Google sign-in
// @Tags auth
// @Param state query string true "OAuth state"
// @Param code query string true "Authorization code"
// @Success 200 {object} response.APIResponse{data=services.AuthResponse}
// @Success 303
// @Failure 401 {object} response.APIResponse
// @Router /auth/google/callback [get]
func (c *AuthController) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if errParam := query.Get("error"); errParam != "" {
		c.ResponseBuilder.WriteUnauthorized(w, r, "Google sign-in was cancelled")
		return
	}

	cookie, err := r.Cookie(oauthStateCookie)
	state := query.Get("state")
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(state)) != 1 {
		c.RequestLogger(r).Warn("OAuth state mismatch")
		c.ResponseBuilder.WriteUnauthorized(w, r, "Invalid OAuth state")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Value: "", Path: "/api/auth/google", MaxAge: -1})

	code := query.Get("code")
	if code == "" {
		c.WriteError(w, r, services.InvalidInputError("code", "is required"))
		return
	}

	resp, err := c.authService.GoogleCallback(r.Context(), code)
	if err != nil {
		c.WriteError(w, r, err)
		return
	}

	if c.frontendURL == "" {
		c.ResponseBuilder.WriteSuccess(w, r, resp)
		return
	}

	// token goes in the fragment, not the query
	target := c.frontendURL + "/auth/callback#" + url.Values{
		"access_token": {resp.AccessToken},
		"expires_in":   {strconv.FormatInt(resp.ExpiresIn, 10)},
	}.Encode()
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func newOAuthState() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
