package categories

import (
	"net/http"

	"go.uber.org/zap"

	"sidequest/internal/handlers/api/v1/common"
	"sidequest/internal/response"
	"sidequest/internal/services"
)

// CategoryController handles quest categories
type CategoryController struct {
	common.Base
	categoryService services.CategoryService
}

// NewCategoryController creates a new category controller
func NewCategoryController(
	categoryService services.CategoryService,
	logger *zap.Logger,
	responseBuilder *response.Builder,
) *CategoryController {
	return &CategoryController{
		Base:            common.NewBase(logger, responseBuilder),
		categoryService: categoryService,
	}
}

// ListCategories handles GET /api/categories
// @Summary List categories
// @Description Inactive categories are listed only for elevated callers asking for them.
// @Tags categories
// @Produce json
// @Param include_inactive query bool false "Include inactive categories"
// @Success 200 {object} response.APIResponse{data=[]models.QuestCategory}
// @Router /categories [get]
func (c *CategoryController) ListCategories(w http.ResponseWriter, r *http.Request) {
	includeInactive := false
	if viewer := c.Viewer(r); viewer != nil && viewer.IsElevated() {
		includeInactive = r.URL.Query().Get("include_inactive") == "true"
	}

	categories, err := c.categoryService.ListCategories(r.Context(), includeInactive)
	if err != nil {
		c.WriteError(w, r, err)
		return
	}
	c.ResponseBuilder.WriteSuccess(w, r, categories)
}

// GetCategory handles GET /api/categories/{id}
// @Summary Get a category
// @Tags categories
// @Produce json
// @Param id path int true "Category ID"
// @Success 200 {object} response.APIResponse{data=models.QuestCategory}
// @Router /categories/{id} [get]
func (c *CategoryController) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := c.IDParam(w, r, "id")
	if !ok {
		return
	}

	category, err := c.categoryService.GetCategory(r.Context(), id)
	if err != nil {
		c.WriteError(w, r, err)
		return
	}
	c.ResponseBuilder.WriteSuccess(w, r, category)
}

// CreateCategory handles POST /api/categories
// @Summary Create a category
// @Tags categories
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body services.CategoryRequest true "Category"
// @Success 201 {object} response.APIResponse{data=models.QuestCategory}
// @Failure 409 {object} response.APIResponse
// @Router /categories [post]
func (c *CategoryController) CreateCategory(w http.ResponseWriter, r *http.Request) {
	actor, ok := c.Actor(w, r)
	if !ok {
		return
	}

	var req services.CategoryRequest
	if !c.DecodeJSON(w, r, &req) {
		return
	}

	category, err := c.categoryService.CreateCategory(r.Context(), actor, &req)
	if err != nil {
		c.WriteError(w, r, err)
		return
	}
	c.ResponseBuilder.WriteCreated(w, r, category)
}

// UpdateCategory handles PUT /api/categories/{id}
// @Summary Update a category
// @Tags categories
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Category ID"
// @Param body body services.CategoryRequest true "Category"
// @Success 200 {object} response.APIResponse{data=models.QuestCategory}
// @Router /categories/{id} [put]
func (c *CategoryController) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	actor, ok := c.Actor(w, r)
	if !ok {
		return
	}
	id, ok := c.IDParam(w, r, "id")
	if !ok {
		return
	}

	var req services.CategoryRequest
	if !c.DecodeJSON(w, r, &req) {
		return
	}

	category, err := c.categoryService.UpdateCategory(r.Context(), actor, id, &req)
	if err != nil {
		c.WriteError(w, r, err)
		return
	}
	c.ResponseBuilder.WriteSuccess(w, r, category)
}

// DeleteCategory handles DELETE /api/categories/{id}
// @Summary Delete a category
// @Description Categories that still have quests are deactivated instead of removed.
// @Tags categories
// @Security BearerAuth
// @Produce json
// @Param id path int true "Category ID"
// @Success 200 {object} response.APIResponse{data=services.CategoryDeleteResult}
// @Router /categories/{id} [delete]
func (c *CategoryController) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	actor, ok := c.Actor(w, r)
	if !ok {
		return
	}
	id, ok := c.IDParam(w, r, "id")
	if !ok {
		return
	}

	result, err := c.categoryService.DeleteCategory(r.Context(), actor, id)
	if err != nil {
		c.WriteError(w, r, err)
		return
	}
	c.ResponseBuilder.WriteSuccess(w, r, result)
}
