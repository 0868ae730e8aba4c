package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sidequest/internal/cache"
	"sidequest/internal/models"
)

var testAdmin = Actor{UserID: 1, Role: models.RoleAdmin}

func newCategoryServiceFixture(t *testing.T) (*fakeCategoryRepo, CategoryService) {
	t.Helper()
	repo := newFakeCategoryRepo(
		fitnessCategory(),
		&models.QuestCategory{ID: 2, Name: "Learning", IsActive: true},
		&models.QuestCategory{ID: 3, Name: "Retired", IsActive: false},
	)
	c, err := cache.NewMemoryCache(64, "test:", zap.NewNop())
	require.NoError(t, err)
	return repo, NewCategoryService(repo, c, zap.NewNop())
}

func categoryNames(list []*models.QuestCategory) []string {
	var out []string
	for _, c := range list {
		out = append(out, c.Name)
	}
	return out
}

func TestListCategories_ActiveOnlyUnlessAsked(t *testing.T) {
	_, svc := newCategoryServiceFixture(t)

	list, err := svc.ListCategories(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fitness", "Learning"}, categoryNames(list))

	all, err := svc.ListCategories(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fitness", "Learning", "Retired"}, categoryNames(all))
}

func TestCreateCategory(t *testing.T) {
	_, svc := newCategoryServiceFixture(t)
	ctx := context.Background()

	// cache the active list before creating
	_, err := svc.ListCategories(ctx, false)
	require.NoError(t, err)

	_, err = svc.CreateCategory(ctx, testModerator, &CategoryRequest{Name: "Cooking"})
	assert.True(t, IsAuthorizationError(err))

	cat, err := svc.CreateCategory(ctx, testAdmin, &CategoryRequest{Name: "  Cooking ", Color: "#ff8800"})
	require.NoError(t, err)
	assert.Equal(t, "Cooking", cat.Name)
	assert.True(t, cat.IsActive)

	list, err := svc.ListCategories(ctx, false)
	require.NoError(t, err)
	assert.Contains(t, categoryNames(list), "Cooking")

	_, err = svc.CreateCategory(ctx, testAdmin, &CategoryRequest{Name: "fitness"})
	require.Error(t, err)
	assert.Equal(t, "CATEGORY_EXISTS", GetServiceError(err).Code)

	_, err = svc.CreateCategory(ctx, testAdmin, &CategoryRequest{Name: "Paint", Color: "orange"})
	assert.True(t, IsValidationError(err))
}

func TestDeleteCategory_DeactivatesWhenQuestsRemain(t *testing.T) {
	repo, svc := newCategoryServiceFixture(t)
	repo.questCounts[1] = 4

	result, err := svc.DeleteCategory(context.Background(), testAdmin, 1)
	require.NoError(t, err)
	assert.True(t, result.Deactivated)
	assert.Equal(t, int64(4), result.QuestCount)
	assert.Equal(t, []int64{1}, repo.deactivated)
	assert.False(t, repo.categories[1].IsActive)

	result, err = svc.DeleteCategory(context.Background(), testAdmin, 2)
	require.NoError(t, err)
	assert.False(t, result.Deactivated)
	assert.Equal(t, []int64{2}, repo.deleted)

	_, err = svc.DeleteCategory(context.Background(), testAdmin, 2)
	assert.True(t, IsNotFoundError(err))
}

func TestUpdateCategory(t *testing.T) {
	repo, svc := newCategoryServiceFixture(t)
	inactive := false

	cat, err := svc.UpdateCategory(context.Background(), testAdmin, 2, &CategoryRequest{Name: "Study", IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, "Study", cat.Name)
	assert.False(t, repo.categories[2].IsActive)

	_, err = svc.UpdateCategory(context.Background(), testAdmin, 40, &CategoryRequest{Name: "Nope"})
	assert.True(t, IsNotFoundError(err))
}
