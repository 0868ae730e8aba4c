package repositories

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"sidequest/internal/database"
	"sidequest/internal/models"
)

type submissionRepository struct {
	*BaseRepository
}

// NewSubmissionRepository creates a submission repository
func NewSubmissionRepository(db *database.Manager, logger *zap.Logger) SubmissionRepository {
	return &submissionRepository{BaseRepository: NewBaseRepository(db, logger)}
}

const submissionColumns = `
	s.id, s.quest_id, s.user_id, s.type, s.status, s.caption, s.media_urls, s.checklist,
	s.latitude, s.longitude, s.privacy, s.moderation_status, s.moderation_reason,
	s.reviewed_by, s.review_note, s.reviewed_at, s.created_at, s.updated_at,
	u.username, q.title`

const submissionFrom = `
	FROM submissions s
	JOIN users u ON u.id = s.user_id
	JOIN quests q ON q.id = s.quest_id`

var submissionSorts = map[string]string{
	"created_at": "s.created_at",
	"updated_at": "s.updated_at",
}

func scanSubmission(row rowScanner) (*models.Submission, error) {
	var s models.Submission
	err := row.Scan(
		&s.ID, &s.QuestID, &s.UserID, &s.Type, &s.Status, &s.Caption, &s.MediaURLs, &s.Checklist,
		&s.Latitude, &s.Longitude, &s.Privacy, &s.ModerationStatus, &s.ModerationReason,
		&s.ReviewedBy, &s.ReviewNote, &s.ReviewedAt, &s.CreatedAt, &s.UpdatedAt,
		&s.Username, &s.QuestTitle,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a submission. The partial unique index on open submissions
// surfaces as ErrDuplicate.
func (r *submissionRepository) Create(ctx context.Context, s *models.Submission) error {
	query := `
		INSERT INTO submissions (
			quest_id, user_id, type, status, caption, media_urls, checklist,
			latitude, longitude, privacy, moderation_status, moderation_reason
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`

	if s.Status == "" {
		s.Status = models.SubmissionStatusPending
	}
	if s.Privacy == "" {
		s.Privacy = models.PrivacyPublic
	}
	if s.ModerationStatus == "" {
		s.ModerationStatus = models.ModerationPending
	}

	err := r.QueryRowContext(ctx, query,
		s.QuestID, s.UserID, s.Type, s.Status, s.Caption, s.MediaURLs, s.Checklist,
		s.Latitude, s.Longitude, s.Privacy, s.ModerationStatus, s.ModerationReason,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id int64) (*models.Submission, error) {
	query := `SELECT ` + submissionColumns + submissionFrom + ` WHERE s.id = $1`

	s, err := scanSubmission(r.QueryRowContext(ctx, query, id))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return s, nil
}

// FindOpen returns the user's PENDING or APPROVED submission for a quest.
// Inside a transaction the row is locked.
func (r *submissionRepository) FindOpen(ctx context.Context, userID, questID int64) (*models.Submission, error) {
	query := `SELECT ` + submissionColumns + submissionFrom + `
		WHERE s.user_id = $1 AND s.quest_id = $2 AND s.status IN ('PENDING', 'APPROVED')
		LIMIT 1`
	if txFrom(ctx) != nil {
		query += ` FOR UPDATE OF s`
	}

	s, err := scanSubmission(r.QueryRowContext(ctx, query, userID, questID))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find open submission: %w", err)
	}
	return s, nil
}

// ListByQuest lists submissions visible to the viewer: public ones plus the
// viewer's own.
func (r *submissionRepository) ListByQuest(ctx context.Context, questID int64, viewerID *int64, params models.PaginationParams) (*models.PaginatedResponse[*models.Submission], error) {
	params.Normalize()
	w := &whereBuilder{}
	w.add("s.quest_id = ?", questID)
	if viewerID != nil {
		w.add("(s.privacy = 'PUBLIC' OR s.user_id = ?)", *viewerID)
	} else {
		w.add("s.privacy = 'PUBLIC'")
	}
	w.add("s.moderation_status <> 'REJECTED'")
	return r.page(ctx, w, params)
}

func (r *submissionRepository) ListByUser(ctx context.Context, userID int64, params models.PaginationParams) (*models.PaginatedResponse[*models.Submission], error) {
	params.Normalize()
	w := &whereBuilder{}
	w.add("s.user_id = ?", userID)
	return r.page(ctx, w, params)
}

// ListPendingReview lists submissions waiting on a moderator, oldest first
func (r *submissionRepository) ListPendingReview(ctx context.Context, params models.PaginationParams) (*models.PaginatedResponse[*models.Submission], error) {
	params.Normalize()
	params.Sort = "created_at"
	params.Order = "asc"
	w := &whereBuilder{}
	w.add("s.status = 'PENDING'")
	return r.page(ctx, w, params)
}

func (r *submissionRepository) page(ctx context.Context, w *whereBuilder, params models.PaginationParams) (*models.PaginatedResponse[*models.Submission], error) {
	var total int64
	if err := r.QueryRowContext(ctx, `SELECT COUNT(*)`+submissionFrom+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count submissions: %w", err)
	}

	query := `SELECT ` + submissionColumns + submissionFrom + w.sql() + orderBy(params, submissionSorts, "created_at")
	query += " LIMIT " + w.next(params.Limit) + " OFFSET " + w.next(params.Offset())

	rows, err := r.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Submission, 0, params.Limit)
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &models.PaginatedResponse[*models.Submission]{
		Data:       out,
		Pagination: models.NewPaginationMeta(params, total),
	}, nil
}

func (r *submissionRepository) UpdateReview(ctx context.Context, s *models.Submission) error {
	query := `
		UPDATE submissions SET
			status = $2, moderation_status = $3, moderation_reason = $4,
			reviewed_by = $5, review_note = $6, reviewed_at = $7, updated_at = NOW()
		WHERE id = $1 AND status = $8
		RETURNING updated_at`

	err := r.QueryRowContext(ctx, query,
		s.ID, s.Status, s.ModerationStatus, s.ModerationReason, s.ReviewedBy, s.ReviewNote, s.ReviewedAt,
		models.SubmissionStatusPending,
	).Scan(&s.UpdatedAt)
	if IsNotFound(err) {
		return ErrStateChanged
	}
	if err != nil {
		return fmt.Errorf("failed to update submission review: %w", err)
	}
	return nil
}

func (r *submissionRepository) CountApprovedByUser(ctx context.Context, userID int64) (int64, error) {
	var n int64
	query := `SELECT COUNT(*) FROM submissions WHERE user_id = $1 AND status = 'APPROVED'`
	if err := r.QueryRowContext(ctx, query, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count approved submissions: %w", err)
	}
	return n, nil
}

func (r *submissionRepository) CountApprovedByCategory(ctx context.Context, userID int64) (map[int64]int64, error) {
	query := `
		SELECT q.category_id, COUNT(*)
		FROM submissions s JOIN quests q ON q.id = s.quest_id
		WHERE s.user_id = $1 AND s.status = 'APPROVED'
		GROUP BY q.category_id`

	rows, err := r.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count completions by category: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]int64)
	for rows.Next() {
		var categoryID, n int64
		if err := rows.Scan(&categoryID, &n); err != nil {
			return nil, err
		}
		out[categoryID] = n
	}
	return out, rows.Err()
}
