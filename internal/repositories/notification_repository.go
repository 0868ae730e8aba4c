package repositories

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sidequest/internal/database"
	"sidequest/internal/models"
)

type notificationRepository struct {
	*BaseRepository
}

// NewNotificationRepository creates a notification repository
func NewNotificationRepository(db *database.Manager, logger *zap.Logger) NotificationRepository {
	return &notificationRepository{BaseRepository: NewBaseRepository(db, logger)}
}

func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (user_id, type, title, message, data, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.QueryRowContext(ctx, query, n.UserID, n.Type, n.Title, n.Message, n.Data, n.ExpiresAt).
		Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID int64, unreadOnly bool, now time.Time, params models.PaginationParams) (*models.PaginatedResponse[*models.Notification], error) {
	params.Normalize()

	w := &whereBuilder{}
	w.add("user_id = ?", userID)
	w.add("(expires_at IS NULL OR expires_at > ?)", now)
	if unreadOnly {
		w.add("NOT is_read")
	}

	var total int64
	if err := r.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count notifications: %w", err)
	}

	query := `
		SELECT id, user_id, type, title, message, data, is_read, read_at, expires_at, created_at
		FROM notifications` + w.sql() + `
		ORDER BY created_at DESC, id DESC
		LIMIT ` + w.next(params.Limit) + ` OFFSET ` + w.next(params.Offset())

	rows, err := r.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Notification, 0, params.Limit)
	for rows.Next() {
		var n models.Notification
		err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.Data, &n.IsRead, &n.ReadAt, &n.ExpiresAt, &n.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &models.PaginatedResponse[*models.Notification]{
		Data:       out,
		Pagination: models.NewPaginationMeta(params, total),
	}, nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID int64, now time.Time) (int64, error) {
	query := `
		SELECT COUNT(*) FROM notifications
		WHERE user_id = $1 AND NOT is_read AND (expires_at IS NULL OR expires_at > $2)`

	var n int64
	if err := r.QueryRowContext(ctx, query, userID, now).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return n, nil
}

// MarkRead reports false when the notification does not belong to the user
func (r *notificationRepository) MarkRead(ctx context.Context, id, userID int64) (bool, error) {
	query := `
		UPDATE notifications SET is_read = TRUE, read_at = COALESCE(read_at, NOW())
		WHERE id = $1 AND user_id = $2`

	res, err := r.ExecContext(ctx, query, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to mark notification read: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	query := `UPDATE notifications SET is_read = TRUE, read_at = NOW() WHERE user_id = $1 AND NOT is_read`

	res, err := r.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return res.RowsAffected()
}

func (r *notificationRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.ExecContext(ctx, `DELETE FROM notifications WHERE expires_at IS NOT NULL AND expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired notifications: %w", err)
	}
	return res.RowsAffected()
}
