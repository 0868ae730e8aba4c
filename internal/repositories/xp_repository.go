package repositories

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"sidequest/internal/database"
	"sidequest/internal/models"
)

type xpRepository struct {
	*BaseRepository
}

// NewXPRepository creates the XP ledger repository
func NewXPRepository(db *database.Manager, logger *zap.Logger) XPRepository {
	return &xpRepository{BaseRepository: NewBaseRepository(db, logger)}
}

func (r *xpRepository) Log(ctx context.Context, e *models.XPLog) error {
	query := `
		INSERT INTO xp_logs (user_id, amount, source, reference_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	if err := r.QueryRowContext(ctx, query, e.UserID, e.Amount, e.Source, e.ReferenceID).Scan(&e.ID, &e.CreatedAt); err != nil {
		return fmt.Errorf("failed to log xp: %w", err)
	}
	return nil
}

func (r *xpRepository) ListByUser(ctx context.Context, userID int64, params models.PaginationParams) (*models.PaginatedResponse[*models.XPLog], error) {
	params.Normalize()

	var total int64
	if err := r.QueryRowContext(ctx, `SELECT COUNT(*) FROM xp_logs WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count xp logs: %w", err)
	}

	query := `
		SELECT id, user_id, amount, source, reference_id, created_at
		FROM xp_logs WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.QueryContext(ctx, query, userID, params.Limit, params.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to list xp logs: %w", err)
	}
	defer rows.Close()

	logs := make([]*models.XPLog, 0, params.Limit)
	for rows.Next() {
		var e models.XPLog
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.Source, &e.ReferenceID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan xp log: %w", err)
		}
		logs = append(logs, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &models.PaginatedResponse[*models.XPLog]{
		Data:       logs,
		Pagination: models.NewPaginationMeta(params, total),
	}, nil
}
