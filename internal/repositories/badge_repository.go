package repositories

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"sidequest/internal/database"
	"sidequest/internal/models"
)

type badgeRepository struct {
	*BaseRepository
}

// NewBadgeRepository creates a badge repository
func NewBadgeRepository(db *database.Manager, logger *zap.Logger) BadgeRepository {
	return &badgeRepository{BaseRepository: NewBaseRepository(db, logger)}
}

const badgeColumns = `b.id, b.name, b.description, b.icon, b.type, b.rarity, b.target, b.category_id, b.is_active, b.created_at`

func scanBadge(s rowScanner, b *models.Badge, extra ...interface{}) error {
	dest := []interface{}{
		&b.ID, &b.Name, &b.Description, &b.Icon, &b.Type, &b.Rarity, &b.Target, &b.CategoryID, &b.IsActive, &b.CreatedAt,
	}
	return s.Scan(append(dest, extra...)...)
}

func (r *badgeRepository) List(ctx context.Context, activeOnly bool) ([]*models.Badge, error) {
	query := `SELECT ` + badgeColumns + ` FROM badges b`
	if activeOnly {
		query += ` WHERE b.is_active`
	}
	query += ` ORDER BY b.type, b.target`

	rows, err := r.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list badges: %w", err)
	}
	defer rows.Close()

	var out []*models.Badge
	for rows.Next() {
		var b models.Badge
		if err := scanBadge(rows, &b); err != nil {
			return nil, fmt.Errorf("failed to scan badge: %w", err)
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}

func (r *badgeRepository) GetByID(ctx context.Context, id int64) (*models.Badge, error) {
	var b models.Badge
	err := scanBadge(r.QueryRowContext(ctx, `SELECT `+badgeColumns+` FROM badges b WHERE b.id = $1`, id), &b)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get badge: %w", err)
	}
	return &b, nil
}

func (r *badgeRepository) ListUserBadges(ctx context.Context, userID int64) ([]*models.UserBadge, error) {
	query := `
		SELECT ub.id, ub.user_id, ub.badge_id, ub.progress, ub.unlocked_at, ub.created_at, ub.updated_at, ` + badgeColumns + `
		FROM user_badges ub JOIN badges b ON b.id = ub.badge_id
		WHERE ub.user_id = $1
		ORDER BY ub.unlocked_at DESC NULLS LAST, b.target`

	rows, err := r.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user badges: %w", err)
	}
	defer rows.Close()

	var out []*models.UserBadge
	for rows.Next() {
		ub := &models.UserBadge{Badge: &models.Badge{}}
		b := ub.Badge
		err := rows.Scan(
			&ub.ID, &ub.UserID, &ub.BadgeID, &ub.Progress, &ub.UnlockedAt, &ub.CreatedAt, &ub.UpdatedAt,
			&b.ID, &b.Name, &b.Description, &b.Icon, &b.Type, &b.Rarity, &b.Target, &b.CategoryID, &b.IsActive, &b.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user badge: %w", err)
		}
		out = append(out, ub)
	}
	return out, rows.Err()
}

// SaveProgress records progress; unlock stamps unlocked_at once and never clears it
func (r *badgeRepository) SaveProgress(ctx context.Context, userID, badgeID, progress int64, unlock bool) error {
	query := `
		INSERT INTO user_badges (user_id, badge_id, progress, unlocked_at)
		VALUES ($1, $2, $3, CASE WHEN $4 THEN NOW() END)
		ON CONFLICT (user_id, badge_id) DO UPDATE SET
			progress = EXCLUDED.progress,
			unlocked_at = COALESCE(user_badges.unlocked_at, EXCLUDED.unlocked_at),
			updated_at = NOW()`

	if _, err := r.ExecContext(ctx, query, userID, badgeID, progress, unlock); err != nil {
		return fmt.Errorf("failed to save badge progress: %w", err)
	}
	return nil
}
