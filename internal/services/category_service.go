package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"sidequest/internal/cache"
	"sidequest/internal/models"
	"sidequest/internal/repositories"
	"sidequest/internal/validation"
)

const categoryCacheKey = "categories:active"

// categoryService implements CategoryService
type categoryService struct {
	repo   repositories.CategoryRepository
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCategoryService creates a new category service. The active category
// list is cached since every quest form reads it.
func NewCategoryService(repo repositories.CategoryRepository, c cache.Cache, logger *zap.Logger) CategoryService {
	return &categoryService{
		repo:   repo,
		cache:  c,
		ttl:    10 * time.Minute,
		logger: logger,
	}
}

// ListCategories lists categories ordered by sort order
func (s *categoryService) ListCategories(ctx context.Context, includeInactive bool) ([]*models.QuestCategory, error) {
	if !includeInactive && s.cache != nil {
		var cached []*models.QuestCategory
		if cache.GetJSON(ctx, s.cache, categoryCacheKey, &cached) {
			return cached, nil
		}
	}

	list, err := s.repo.List(ctx, includeInactive)
	if err != nil {
		s.logger.Error("Failed to list categories", zap.Error(err))
		return nil, NewInternalError("failed to list categories")
	}

	if !includeInactive && s.cache != nil {
		if err := cache.SetJSON(ctx, s.cache, categoryCacheKey, list, s.ttl); err != nil {
			s.logger.Warn("Failed to cache categories", zap.Error(err))
		}
	}
	return list, nil
}

// GetCategory returns one category
func (s *categoryService) GetCategory(ctx context.Context, id int64) (*models.QuestCategory, error) {
	cat, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get category", zap.Int64("category_id", id), zap.Error(err))
		return nil, NewInternalError("failed to load category")
	}
	if cat == nil {
		return nil, NewNotFoundError("category not found")
	}
	return cat, nil
}

// CreateCategory adds a category
func (s *categoryService) CreateCategory(ctx context.Context, actor Actor, req *CategoryRequest) (*models.QuestCategory, error) {
	if actor.Role != models.RoleAdmin {
		return nil, InsufficientPermissionsError("create", "category")
	}
	if err := validation.ValidateStruct(req); err != nil {
		return nil, FromValidation(err)
	}

	cat := &models.QuestCategory{IsActive: true}
	applyCategoryRequest(cat, req)

	if err := s.repo.Create(ctx, cat); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, NewConflictError("category name already exists", "CATEGORY_EXISTS")
		}
		s.logger.Error("Failed to create category", zap.String("name", cat.Name), zap.Error(err))
		return nil, NewInternalError("failed to create category")
	}

	s.invalidate(ctx)
	s.logger.Info("Category created", zap.Int64("category_id", cat.ID), zap.String("name", cat.Name))
	return cat, nil
}

// UpdateCategory replaces a category's fields
func (s *categoryService) UpdateCategory(ctx context.Context, actor Actor, id int64, req *CategoryRequest) (*models.QuestCategory, error) {
	if actor.Role != models.RoleAdmin {
		return nil, InsufficientPermissionsError("update", "category")
	}
	if err := validation.ValidateStruct(req); err != nil {
		return nil, FromValidation(err)
	}

	cat, err := s.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	applyCategoryRequest(cat, req)

	if err := s.repo.Update(ctx, cat); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, NewConflictError("category name already exists", "CATEGORY_EXISTS")
		}
		s.logger.Error("Failed to update category", zap.Int64("category_id", id), zap.Error(err))
		return nil, NewInternalError("failed to update category")
	}

	s.invalidate(ctx)
	return cat, nil
}

// DeleteCategory hard-deletes an unused category and deactivates one that
// quests still reference.
func (s *categoryService) DeleteCategory(ctx context.Context, actor Actor, id int64) (*CategoryDeleteResult, error) {
	if actor.Role != models.RoleAdmin {
		return nil, InsufficientPermissionsError("delete", "category")
	}
	if _, err := s.GetCategory(ctx, id); err != nil {
		return nil, err
	}

	count, err := s.repo.CountQuests(ctx, id)
	if err != nil {
		s.logger.Error("Failed to count category quests", zap.Int64("category_id", id), zap.Error(err))
		return nil, NewInternalError("failed to delete category")
	}

	result := &CategoryDeleteResult{ID: id, QuestCount: count}
	if count > 0 {
		err = s.repo.Deactivate(ctx, id)
		result.Deactivated = true
	} else {
		err = s.repo.Delete(ctx, id)
	}
	if err != nil {
		s.logger.Error("Failed to delete category", zap.Int64("category_id", id), zap.Error(err))
		return nil, NewInternalError("failed to delete category")
	}

	s.invalidate(ctx)
	s.logger.Info("Category removed",
		zap.Int64("category_id", id),
		zap.Bool("deactivated", result.Deactivated),
		zap.Int64("quest_count", count),
	)
	return result, nil
}

func (s *categoryService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, categoryCacheKey); err != nil {
		s.logger.Warn("Failed to invalidate category cache", zap.Error(err))
	}
}

func applyCategoryRequest(cat *models.QuestCategory, req *CategoryRequest) {
	cat.Name = strings.TrimSpace(req.Name)
	cat.Description = strings.TrimSpace(req.Description)
	cat.Icon = req.Icon
	cat.Color = req.Color
	cat.SortOrder = req.SortOrder
	if req.IsActive != nil {
		cat.IsActive = *req.IsActive
	}
}
