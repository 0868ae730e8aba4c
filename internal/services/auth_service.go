// file: internal/services/auth_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"sidequest/internal/config"
	"sidequest/internal/models"
	"sidequest/internal/repositories"
	"sidequest/internal/validation"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// accessClaims is the JWT payload of an access token
type accessClaims struct {
	UserID   int64       `json:"uid"`
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
	jwt.RegisteredClaims
}

// authService implements AuthService
type authService struct {
	userRepo   repositories.UserRepository
	logger     *zap.Logger
	authConfig *config.AuthConfig
	oauth      *oauth2.Config
	now        func() time.Time
}

// NewAuthService creates a new auth service. Google login is enabled when a
// client ID and secret are configured.
func NewAuthService(userRepo repositories.UserRepository, logger *zap.Logger, authConfig *config.AuthConfig) AuthService {
	s := &authService{
		userRepo:   userRepo,
		logger:     logger,
		authConfig: authConfig,
		now:        time.Now,
	}
	if authConfig.GoogleClientID != "" && authConfig.GoogleClientSecret != "" {
		s.oauth = &oauth2.Config{
			ClientID:     authConfig.GoogleClientID,
			ClientSecret: authConfig.GoogleClientSecret,
			RedirectURL:  authConfig.GoogleRedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		}
	}
	return s
}

// ===============================
// PASSWORD AUTHENTICATION
// ===============================

// Register creates a password account and signs it in
func (s *authService) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, FromValidation(err)
	}
	email := models.NormalizeEmail(req.Email)

	if existing, err := s.userRepo.GetByEmail(ctx, email); err != nil {
		s.logger.Error("Failed to check email", zap.Error(err))
		return nil, NewInternalError("failed to register user")
	} else if existing != nil {
		return nil, NewConflictError("email is already registered", "EMAIL_EXISTS")
	}
	if existing, err := s.userRepo.GetByUsername(ctx, req.Username); err != nil {
		s.logger.Error("Failed to check username", zap.Error(err))
		return nil, NewInternalError("failed to register user")
	} else if existing != nil {
		return nil, NewConflictError("username is already taken", "USERNAME_TAKEN")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost())
	if err != nil {
		s.logger.Error("Failed to hash password", zap.Error(err))
		return nil, NewInternalError("failed to process password")
	}

	user := &models.User{
		Email:        email,
		Username:     req.Username,
		PasswordHash: string(hash),
		DisplayName:  models.SanitizeString(req.DisplayName),
		Role:         models.RoleUser,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, NewConflictError("email or username is already registered", "USER_EXISTS")
		}
		s.logger.Error("Failed to create user", zap.String("username", req.Username), zap.Error(err))
		return nil, NewInternalError("failed to register user")
	}

	s.logger.Info("User registered",
		zap.Int64("user_id", user.ID),
		zap.String("username", user.Username),
	)
	return s.issue(user)
}

// Login authenticates with email or username plus password
func (s *authService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, FromValidation(err)
	}

	login := strings.TrimSpace(req.Login)
	var user *models.User
	var err error
	if strings.Contains(login, "@") {
		user, err = s.userRepo.GetByEmail(ctx, models.NormalizeEmail(login))
	} else {
		user, err = s.userRepo.GetByUsername(ctx, login)
	}
	if err != nil {
		s.logger.Error("Failed to look up user", zap.Error(err))
		return nil, NewInternalError("failed to sign in")
	}

	if user == nil || user.IsDeleted() || user.PasswordHash == "" {
		return nil, NewAuthenticationError("invalid credentials", "unknown_user", nil, login)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Info("Failed login attempt", zap.Int64("user_id", user.ID))
		return nil, NewAuthenticationError("invalid credentials", "invalid_password", &user.ID, user.Username)
	}

	s.logger.Info("User logged in", zap.Int64("user_id", user.ID))
	return s.issue(user)
}

// Me returns the signed-in account
func (s *authService) Me(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to get user", zap.Int64("user_id", userID), zap.Error(err))
		return nil, NewInternalError("failed to load account")
	}
	if user == nil || user.IsDeleted() {
		return nil, NewUnauthorizedError("account no longer exists")
	}
	return user, nil
}

// ===============================
// TOKENS
// ===============================

func (s *authService) bcryptCost() int {
	if s.authConfig.BCryptCost < bcrypt.MinCost {
		return bcrypt.DefaultCost
	}
	return s.authConfig.BCryptCost
}

// issue signs an HS256 access token for the user
func (s *authService) issue(user *models.User) (*AuthResponse, error) {
	now := s.now().UTC()
	expiresAt := now.Add(s.authConfig.JWTExpiry)

	claims := accessClaims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			Issuer:    s.authConfig.JWTIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.authConfig.JWTSecret))
	if err != nil {
		s.logger.Error("Failed to sign token", zap.Int64("user_id", user.ID), zap.Error(err))
		return nil, NewInternalError("failed to issue token")
	}

	return &AuthResponse{
		User:        user,
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.authConfig.JWTExpiry.Seconds()),
		ExpiresAt:   expiresAt,
	}, nil
}

// ValidateToken verifies signature, algorithm, issuer and expiry
func (s *authService) ValidateToken(ctx context.Context, token string) (*TokenClaims, error) {
	claims := &accessClaims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.authConfig.JWTIssuer != "" {
		opts = append(opts, jwt.WithIssuer(s.authConfig.JWTIssuer))
	}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.authConfig.JWTSecret), nil
	}, opts...)
	if err != nil || !parsed.Valid {
		reason := "invalid_token"
		if errors.Is(err, jwt.ErrTokenExpired) {
			reason = "token_expired"
		}
		return nil, NewAuthenticationError("invalid or expired token", reason, nil, "")
	}

	return &TokenClaims{
		UserID:   claims.UserID,
		Username: claims.Username,
		Role:     claims.Role,
		ExpireAt: claims.ExpiresAt.Time,
	}, nil
}

// ===============================
// GOOGLE OAUTH2
// ===============================

// GoogleEnabled reports whether Google sign-in is configured
func (s *authService) GoogleEnabled() bool {
	return s.oauth != nil
}

// GoogleAuthURL returns the consent page URL for the given state
func (s *authService) GoogleAuthURL(state string) (string, error) {
	if s.oauth == nil {
		return "", NewServiceUnavailableError("Google sign-in is not configured")
	}
	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

// GoogleCallback exchanges the code, then signs in the linked account,
// links an existing account by verified email, or creates a new one.
func (s *authService) GoogleCallback(ctx context.Context, code string) (*AuthResponse, error) {
	if s.oauth == nil {
		return nil, NewServiceUnavailableError("Google sign-in is not configured")
	}
	if code == "" {
		return nil, NewValidationError("missing authorization code", nil)
	}

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		s.logger.Warn("Google code exchange failed", zap.Error(err))
		return nil, NewAuthenticationError("Google sign-in failed", "exchange_failed", nil, "")
	}
	info, err := s.fetchGoogleUser(ctx, token)
	if err != nil {
		s.logger.Warn("Google userinfo request failed", zap.Error(err))
		return nil, NewAuthenticationError("Google sign-in failed", "userinfo_failed", nil, "")
	}
	if info.ID == "" || info.Email == "" || !info.VerifiedEmail {
		return nil, NewAuthenticationError("Google account email is not verified", "unverified_email", nil, info.Email)
	}

	user, err := s.userRepo.GetByGoogleID(ctx, info.ID)
	if err != nil {
		s.logger.Error("Failed to look up Google user", zap.Error(err))
		return nil, NewInternalError("failed to sign in")
	}
	if user != nil {
		return s.issue(user)
	}

	email := models.NormalizeEmail(info.Email)
	user, err = s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		s.logger.Error("Failed to look up user by email", zap.Error(err))
		return nil, NewInternalError("failed to sign in")
	}
	if user != nil {
		if err := s.userRepo.LinkGoogleID(ctx, user.ID, info.ID); err != nil {
			s.logger.Error("Failed to link Google account", zap.Int64("user_id", user.ID), zap.Error(err))
			return nil, NewInternalError("failed to link Google account")
		}
		s.logger.Info("Google account linked", zap.Int64("user_id", user.ID))
		return s.issue(user)
	}

	username, err := s.availableUsername(ctx, email)
	if err != nil {
		s.logger.Error("Failed to pick username", zap.Error(err))
		return nil, NewInternalError("failed to create account")
	}
	googleID := info.ID
	user = &models.User{
		Email:       email,
		Username:    username,
		GoogleID:    &googleID,
		DisplayName: models.SanitizeString(info.Name),
		AvatarURL:   stringPtr(info.Picture),
		Role:        models.RoleUser,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, NewConflictError("account already exists", "USER_EXISTS")
		}
		s.logger.Error("Failed to create Google user", zap.Error(err))
		return nil, NewInternalError("failed to create account")
	}

	s.logger.Info("User registered with Google", zap.Int64("user_id", user.ID))
	return s.issue(user)
}

func (s *authService) fetchGoogleUser(ctx context.Context, token *oauth2.Token) (*GoogleUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, googleUserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo returned status %d", resp.StatusCode)
	}
	var info GoogleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo: %w", err)
	}
	return &info, nil
}

// availableUsername derives an alphanumeric username from the email and
// appends a counter until it is free.
func (s *authService) availableUsername(ctx context.Context, email string) (string, error) {
	base := usernameFromEmail(email)
	candidate := base
	for i := 1; i <= 50; i++ {
		existing, err := s.userRepo.GetByUsername(ctx, candidate)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return candidate, nil
		}
		candidate = base + strconv.Itoa(i)
	}
	return "", fmt.Errorf("no free username for %q", base)
}

func usernameFromEmail(email string) string {
	local := email
	if i := strings.IndexByte(email, '@'); i >= 0 {
		local = email[:i]
	}
	var b strings.Builder
	for _, r := range local {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	name := b.String()
	for len(name) < 3 {
		name += "0"
	}
	if len(name) > 26 {
		name = name[:26]
	}
	return name
}
