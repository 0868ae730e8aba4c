// file: internal/services/user_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"sidequest/internal/cache"
	"sidequest/internal/models"
	"sidequest/internal/repositories"
	"sidequest/internal/validation"
)

const userCacheTTL = 5 * time.Minute

// userService implements UserService
type userService struct {
	userRepo   repositories.UserRepository
	cache      cache.Cache
	logger     *zap.Logger
	bcryptCost int
}

// NewUserService creates a new user service
func NewUserService(userRepo repositories.UserRepository, c cache.Cache, logger *zap.Logger, bcryptCost int) UserService {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &userService{
		userRepo:   userRepo,
		cache:      c,
		logger:     logger,
		bcryptCost: bcryptCost,
	}
}

func userCacheKey(id int64) string {
	return fmt.Sprintf("user:%d", id)
}

// ===============================
// PROFILE
// ===============================

// GetProfile retrieves a user by ID with caching
func (s *userService) GetProfile(ctx context.Context, userID int64) (*models.User, error) {
	if userID <= 0 {
		return nil, NewValidationError("invalid user ID", nil)
	}

	var cached models.User
	if s.cache != nil && cache.GetJSON(ctx, s.cache, userCacheKey(userID), &cached) {
		s.logger.Debug("User retrieved from cache", zap.Int64("user_id", userID))
		return &cached, nil
	}

	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := cache.SetJSON(ctx, s.cache, userCacheKey(userID), user, userCacheTTL); err != nil {
			s.logger.Warn("Failed to cache user", zap.Int64("user_id", userID), zap.Error(err))
		}
	}
	return user, nil
}

// UpdateProfile changes the public profile fields that were supplied
func (s *userService) UpdateProfile(ctx context.Context, userID int64, req *UpdateProfileRequest) (*models.User, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, FromValidation(err)
	}

	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.DisplayName != nil {
		user.DisplayName = models.SanitizeString(*req.DisplayName)
	}
	if req.Bio != nil {
		user.Bio = stringPtr(models.SanitizeString(*req.Bio))
	}
	if req.AvatarURL != nil {
		user.AvatarURL = stringPtr(strings.TrimSpace(*req.AvatarURL))
	}

	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		s.logger.Error("Failed to update profile", zap.Int64("user_id", userID), zap.Error(err))
		return nil, NewInternalError("failed to update profile")
	}

	s.invalidate(ctx, userID)
	s.logger.Info("Profile updated", zap.Int64("user_id", userID))
	return user, nil
}

// ===============================
// PREFERENCES
// ===============================

// GetPreferences returns stored preferences or the defaults
func (s *userService) GetPreferences(ctx context.Context, userID int64) (*models.UserPreferences, error) {
	prefs, err := s.userRepo.GetPreferences(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to get preferences", zap.Int64("user_id", userID), zap.Error(err))
		return nil, NewInternalError("failed to load preferences")
	}
	if prefs == nil {
		prefs = models.DefaultUserPreferences(userID)
	}
	return prefs, nil
}

// UpdatePreferences merges the supplied fields into the stored preferences
func (s *userService) UpdatePreferences(ctx context.Context, userID int64, req *UpdatePreferencesRequest) (*models.UserPreferences, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, FromValidation(err)
	}

	prefs, err := s.GetPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.EmailNotifications != nil {
		prefs.EmailNotifications = *req.EmailNotifications
	}
	if req.PushNotifications != nil {
		prefs.PushNotifications = *req.PushNotifications
	}
	if req.BadgeNotifications != nil {
		prefs.BadgeNotifications = *req.BadgeNotifications
	}
	if req.ChallengeReminders != nil {
		prefs.ChallengeReminders = *req.ChallengeReminders
	}
	if req.PreferredCategories != nil {
		prefs.PreferredCategories = dedupe(req.PreferredCategories)
	}
	if req.PreferredDifficulty != nil {
		prefs.PreferredDifficulty = req.PreferredDifficulty
	}
	if req.DefaultPrivacy != nil {
		prefs.DefaultPrivacy = *req.DefaultPrivacy
	}
	if req.ShowOnLeaderboard != nil {
		prefs.ShowOnLeaderboard = *req.ShowOnLeaderboard
	}

	if err := s.userRepo.UpsertPreferences(ctx, prefs); err != nil {
		s.logger.Error("Failed to update preferences", zap.Int64("user_id", userID), zap.Error(err))
		return nil, NewInternalError("failed to update preferences")
	}
	return prefs, nil
}

// ===============================
// ACCOUNT
// ===============================

// ChangePassword replaces the password after verifying the current one
func (s *userService) ChangePassword(ctx context.Context, userID int64, req *ChangePasswordRequest) error {
	if err := validation.ValidateStruct(req); err != nil {
		return FromValidation(err)
	}

	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.PasswordHash == "" {
		return NewBusinessError("account has no password; sign in with Google", "NO_PASSWORD")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)) != nil {
		return NewAuthenticationError("current password is incorrect", "invalid_password", &userID, user.Username)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.bcryptCost)
	if err != nil {
		s.logger.Error("Failed to hash password", zap.Error(err))
		return NewInternalError("failed to process password")
	}
	if err := s.userRepo.UpdatePassword(ctx, userID, string(hash)); err != nil {
		s.logger.Error("Failed to update password", zap.Int64("user_id", userID), zap.Error(err))
		return NewInternalError("failed to change password")
	}

	s.invalidate(ctx, userID)
	s.logger.Info("Password changed", zap.Int64("user_id", userID))
	return nil
}

// DeleteAccount soft-deletes the account. Password accounts must confirm
// with their password.
func (s *userService) DeleteAccount(ctx context.Context, userID int64, req *DeleteAccountRequest) error {
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.PasswordHash != "" {
		if req == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
			return NewAuthenticationError("password confirmation failed", "invalid_password", &userID, user.Username)
		}
	}

	if err := s.userRepo.SoftDelete(ctx, userID); err != nil {
		s.logger.Error("Failed to delete account", zap.Int64("user_id", userID), zap.Error(err))
		return NewInternalError("failed to delete account")
	}

	s.invalidate(ctx, userID)
	if s.cache != nil {
		if err := s.cache.DeletePrefix(ctx, "leaderboard:"); err != nil {
			s.logger.Warn("Failed to invalidate leaderboard cache", zap.Error(err))
		}
	}
	s.logger.Info("Account deleted", zap.Int64("user_id", userID))
	return nil
}

// ===============================
// HELPERS
// ===============================

func (s *userService) activeUser(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to get user by ID", zap.Int64("user_id", userID), zap.Error(err))
		return nil, NewInternalError("failed to retrieve user")
	}
	if user == nil || user.IsDeleted() {
		return nil, NewNotFoundError("user not found")
	}
	return user, nil
}

func (s *userService) invalidate(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, userCacheKey(userID)); err != nil {
		s.logger.Warn("Failed to invalidate user cache", zap.Int64("user_id", userID), zap.Error(err))
	}
}
