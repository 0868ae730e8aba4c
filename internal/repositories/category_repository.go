package repositories

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"sidequest/internal/database"
	"sidequest/internal/models"
)

type categoryRepository struct {
	*BaseRepository
}

// NewCategoryRepository creates a category repository
func NewCategoryRepository(db *database.Manager, logger *zap.Logger) CategoryRepository {
	return &categoryRepository{BaseRepository: NewBaseRepository(db, logger)}
}

const categoryColumns = `c.id, c.name, c.description, c.icon, c.color, c.sort_order, c.is_active, c.created_at, c.updated_at`

func scanCategory(s rowScanner, c *models.QuestCategory, extra ...interface{}) error {
	dest := []interface{}{
		&c.ID, &c.Name, &c.Description, &c.Icon, &c.Color, &c.SortOrder, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
	}
	return s.Scan(append(dest, extra...)...)
}

func (r *categoryRepository) Create(ctx context.Context, c *models.QuestCategory) error {
	query := `
		INSERT INTO quest_categories (name, description, icon, color, sort_order, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err := r.QueryRowContext(ctx, query,
		c.Name, c.Description, c.Icon, c.Color, c.SortOrder, c.IsActive,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

func (r *categoryRepository) GetByID(ctx context.Context, id int64) (*models.QuestCategory, error) {
	return r.getOne(ctx, "c.id = $1", id)
}

// GetByName matches the stored name exactly
func (r *categoryRepository) GetByName(ctx context.Context, name string) (*models.QuestCategory, error) {
	return r.getOne(ctx, "c.name = $1", name)
}

func (r *categoryRepository) getOne(ctx context.Context, where string, arg interface{}) (*models.QuestCategory, error) {
	query := `SELECT ` + categoryColumns + `,
		(SELECT COUNT(*) FROM quests q WHERE q.category_id = c.id)
		FROM quest_categories c WHERE ` + where

	var c models.QuestCategory
	if err := scanCategory(r.QueryRowContext(ctx, query, arg), &c, &c.QuestCount); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &c, nil
}

func (r *categoryRepository) List(ctx context.Context, includeInactive bool) ([]*models.QuestCategory, error) {
	query := `SELECT ` + categoryColumns + `,
		(SELECT COUNT(*) FROM quests q WHERE q.category_id = c.id)
		FROM quest_categories c`
	if !includeInactive {
		query += ` WHERE c.is_active`
	}
	query += ` ORDER BY c.sort_order, c.name`

	rows, err := r.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var out []*models.QuestCategory
	for rows.Next() {
		var c models.QuestCategory
		if err := scanCategory(rows, &c, &c.QuestCount); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (r *categoryRepository) Update(ctx context.Context, c *models.QuestCategory) error {
	query := `
		UPDATE quest_categories
		SET name = $2, description = $3, icon = $4, color = $5, sort_order = $6, is_active = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.QueryRowContext(ctx, query,
		c.ID, c.Name, c.Description, c.Icon, c.Color, c.SortOrder, c.IsActive,
	).Scan(&c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to update category: %w", err)
	}
	return nil
}

func (r *categoryRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.ExecContext(ctx, `DELETE FROM quest_categories WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return nil
}

func (r *categoryRepository) Deactivate(ctx context.Context, id int64) error {
	query := `UPDATE quest_categories SET is_active = FALSE, updated_at = NOW() WHERE id = $1`
	if _, err := r.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to deactivate category: %w", err)
	}
	return nil
}

func (r *categoryRepository) CountQuests(ctx context.Context, id int64) (int64, error) {
	var n int64
	err := r.QueryRowContext(ctx, `SELECT COUNT(*) FROM quests WHERE category_id = $1`, id).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count category quests: %w", err)
	}
	return n, nil
}
