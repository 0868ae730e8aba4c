package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"sidequest/internal/database"
	"sidequest/internal/models"
)

type questRepository struct {
	*BaseRepository
}

// NewQuestRepository creates a quest repository
func NewQuestRepository(db *database.Manager, logger *zap.Logger) QuestRepository {
	return &questRepository{BaseRepository: NewBaseRepository(db, logger)}
}

const questColumns = `
	q.id, q.title, q.description, q.short_description, q.instructions, q.category_id,
	q.difficulty, q.tags, q.requirements, q.points, q.estimated_time, q.submission_types, q.status,
	q.location_required, q.location_type, q.allow_sharing, q.encourage_sharing, q.is_ai_generated,
	q.created_by, q.moderation_status, q.moderation_reason, q.moderated_by, q.moderated_at,
	q.completion_count, q.rating_sum, q.rating_count, q.created_at, q.updated_at,
	c.name`

const questFrom = ` FROM quests q JOIN quest_categories c ON c.id = q.category_id`

var questSorts = map[string]string{
	"created_at": "q.created_at",
	"updated_at": "q.updated_at",
	"title":      "q.title",
	"points":     "q.points",
	"popularity": "q.completion_count",
	"difficulty": "CASE q.difficulty WHEN 'EASY' THEN 1 WHEN 'MEDIUM' THEN 2 WHEN 'HARD' THEN 3 ELSE 4 END",
}

func scanQuest(s rowScanner) (*models.Quest, error) {
	var q models.Quest
	err := s.Scan(
		&q.ID, &q.Title, &q.Description, &q.ShortDescription, &q.Instructions, &q.CategoryID,
		&q.Difficulty, &q.Tags, &q.Requirements, &q.Points, &q.EstimatedTime, &q.SubmissionTypes, &q.Status,
		&q.LocationRequired, &q.LocationType, &q.AllowSharing, &q.EncourageSharing, &q.IsAIGenerated,
		&q.CreatedBy, &q.ModerationStatus, &q.ModerationReason, &q.ModeratedBy, &q.ModeratedAt,
		&q.CompletionCount, &q.RatingSum, &q.RatingCount, &q.CreatedAt, &q.UpdatedAt,
		&q.CategoryName,
	)
	if err != nil {
		return nil, err
	}
	q.ComputeAverageRating()
	return &q, nil
}

func (r *questRepository) Create(ctx context.Context, q *models.Quest) error {
	query := `
		INSERT INTO quests (
			title, description, short_description, instructions, category_id, difficulty,
			tags, requirements, points, estimated_time, submission_types, status,
			location_required, location_type, allow_sharing, encourage_sharing, is_ai_generated,
			created_by, moderation_status, moderation_reason
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING id, created_at, updated_at`

	if q.ModerationStatus == "" {
		q.ModerationStatus = models.ModerationPending
	}
	if q.Status == "" {
		q.Status = models.QuestStatusDraft
	}

	err := r.QueryRowContext(ctx, query,
		q.Title, q.Description, q.ShortDescription, q.Instructions, q.CategoryID, q.Difficulty,
		q.Tags, q.Requirements, q.Points, q.EstimatedTime, q.SubmissionTypes, q.Status,
		q.LocationRequired, q.LocationType, q.AllowSharing, q.EncourageSharing, q.IsAIGenerated,
		q.CreatedBy, q.ModerationStatus, q.ModerationReason,
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create quest: %w", err)
	}
	return nil
}

func (r *questRepository) GetByID(ctx context.Context, id int64) (*models.Quest, error) {
	query := `SELECT ` + questColumns + questFrom + ` WHERE q.id = $1`

	q, err := scanQuest(r.QueryRowContext(ctx, query, id))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get quest: %w", err)
	}
	return q, nil
}

func (r *questRepository) Update(ctx context.Context, q *models.Quest) error {
	query := `
		UPDATE quests SET
			title = $2, description = $3, short_description = $4, instructions = $5, category_id = $6,
			difficulty = $7, tags = $8, requirements = $9, points = $10, estimated_time = $11,
			submission_types = $12, status = $13, location_required = $14, location_type = $15,
			allow_sharing = $16, encourage_sharing = $17, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.QueryRowContext(ctx, query,
		q.ID, q.Title, q.Description, q.ShortDescription, q.Instructions, q.CategoryID,
		q.Difficulty, q.Tags, q.Requirements, q.Points, q.EstimatedTime,
		q.SubmissionTypes, q.Status, q.LocationRequired, q.LocationType,
		q.AllowSharing, q.EncourageSharing,
	).Scan(&q.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update quest: %w", err)
	}
	return nil
}

func (r *questRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.ExecContext(ctx, `DELETE FROM quests WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete quest: %w", err)
	}
	return nil
}

func buildQuestWhere(f QuestFilter) *whereBuilder {
	w := &whereBuilder{}
	if f.CategoryID != nil {
		w.add("q.category_id = ?", *f.CategoryID)
	}
	if f.Category != "" {
		w.add("LOWER(c.name) = LOWER(?)", f.Category)
	}
	if f.Difficulty != "" {
		w.add("q.difficulty = ?", string(f.Difficulty))
	}
	if len(f.Tags) > 0 {
		w.add("q.tags && ?", pq.StringArray(f.Tags))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		w.add("(q.title ILIKE ? OR q.description ILIKE ?)", "%"+s+"%", "%"+s+"%")
	}
	switch {
	case f.Status != "":
		w.add("q.status = ?", string(f.Status))
	case f.PublishedOnly:
		w.add("q.status IN ('AVAILABLE', 'ACTIVE')")
	}
	if f.CreatedBy != nil {
		w.add("q.created_by = ?", *f.CreatedBy)
	}
	if f.AIGenerated != nil {
		w.add("q.is_ai_generated = ?", *f.AIGenerated)
	}
	return w
}

func (r *questRepository) List(ctx context.Context, f QuestFilter, params models.PaginationParams) (*models.PaginatedResponse[*models.Quest], error) {
	params.Normalize()
	return r.page(ctx, buildQuestWhere(f), params)
}

func (r *questRepository) page(ctx context.Context, w *whereBuilder, params models.PaginationParams) (*models.PaginatedResponse[*models.Quest], error) {
	var total int64
	if err := r.QueryRowContext(ctx, `SELECT COUNT(*)`+questFrom+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count quests: %w", err)
	}

	query := `SELECT ` + questColumns + questFrom + w.sql() + orderBy(params, questSorts, "created_at")
	query += " LIMIT " + w.next(params.Limit) + " OFFSET " + w.next(params.Offset())

	rows, err := r.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list quests: %w", err)
	}
	defer rows.Close()

	quests := make([]*models.Quest, 0, params.Limit)
	for rows.Next() {
		q, err := scanQuest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quest: %w", err)
		}
		quests = append(quests, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &models.PaginatedResponse[*models.Quest]{
		Data:       quests,
		Pagination: models.NewPaginationMeta(params, total),
	}, nil
}

func (r *questRepository) ListByModeration(ctx context.Context, statuses []models.ModerationStatus, params models.PaginationParams) (*models.PaginatedResponse[*models.Quest], error) {
	params.Normalize()
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}
	w := &whereBuilder{}
	w.add("q.moderation_status = ANY(?)", pq.StringArray(values))
	return r.page(ctx, w, params)
}

func (r *questRepository) UpdateModeration(ctx context.Context, q *models.Quest) error {
	query := `
		UPDATE quests SET
			moderation_status = $2, moderation_reason = $3, moderated_by = $4, moderated_at = $5,
			status = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.QueryRowContext(ctx, query,
		q.ID, q.ModerationStatus, q.ModerationReason, q.ModeratedBy, q.ModeratedAt, q.Status,
	).Scan(&q.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update quest moderation: %w", err)
	}
	return nil
}

func (r *questRepository) IncrementCompletion(ctx context.Context, id int64) error {
	query := `UPDATE quests SET completion_count = completion_count + 1 WHERE id = $1`
	if _, err := r.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to bump completion count: %w", err)
	}
	return nil
}

func (r *questRepository) ListTitles(ctx context.Context, limit int) ([]string, error) {
	query := `SELECT title FROM quests WHERE status IN ('AVAILABLE', 'ACTIVE') ORDER BY completion_count DESC, id DESC LIMIT $1`

	rows, err := r.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list quest titles: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		titles = append(titles, t)
	}
	return titles, rows.Err()
}

func (r *questRepository) CountAIGenerated(ctx context.Context) (int64, error) {
	var n int64
	if err := r.QueryRowContext(ctx, `SELECT COUNT(*) FROM quests WHERE is_ai_generated`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count generated quests: %w", err)
	}
	return n, nil
}
