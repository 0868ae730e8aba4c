package repositories

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sidequest/internal/database"
	"sidequest/internal/models"
)

type challengeRepository struct {
	*BaseRepository
}

// NewChallengeRepository creates a challenge repository
func NewChallengeRepository(db *database.Manager, logger *zap.Logger) ChallengeRepository {
	return &challengeRepository{BaseRepository: NewBaseRepository(db, logger)}
}

// status is derived from the time window so it never goes stale
const challengeColumns = `
	ch.id, ch.title, ch.description, ch.starts_at, ch.ends_at, ch.max_participants,
	CASE WHEN NOW() < ch.starts_at THEN 'UPCOMING' WHEN NOW() < ch.ends_at THEN 'ACTIVE' ELSE 'ENDED' END,
	ch.created_by, ch.settled_at, ch.created_at, ch.updated_at,
	(SELECT COUNT(*) FROM challenge_participants cp WHERE cp.challenge_id = ch.id)`

func scanChallenge(s rowScanner) (*models.Challenge, error) {
	var c models.Challenge
	err := s.Scan(
		&c.ID, &c.Title, &c.Description, &c.StartsAt, &c.EndsAt, &c.MaxParticipants,
		&c.Status, &c.CreatedBy, &c.SettledAt, &c.CreatedAt, &c.UpdatedAt, &c.ParticipantCount,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *challengeRepository) Create(ctx context.Context, c *models.Challenge) error {
	query := `
		INSERT INTO challenges (title, description, starts_at, ends_at, max_participants, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	if c.Status == "" {
		c.Status = models.ChallengeUpcoming
	}
	err := r.QueryRowContext(ctx, query,
		c.Title, c.Description, c.StartsAt, c.EndsAt, c.MaxParticipants, c.Status, c.CreatedBy,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create challenge: %w", err)
	}
	return nil
}

func (r *challengeRepository) GetByID(ctx context.Context, id int64) (*models.Challenge, error) {
	c, err := scanChallenge(r.QueryRowContext(ctx, `SELECT `+challengeColumns+` FROM challenges ch WHERE ch.id = $1`, id))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}
	return c, nil
}

func (r *challengeRepository) List(ctx context.Context, status models.ChallengeStatus, params models.PaginationParams) (*models.PaginatedResponse[*models.Challenge], error) {
	params.Normalize()

	w := &whereBuilder{}
	switch status {
	case models.ChallengeUpcoming:
		w.add("NOW() < ch.starts_at")
	case models.ChallengeActive:
		w.add("NOW() >= ch.starts_at AND NOW() < ch.ends_at")
	case models.ChallengeEnded:
		w.add("NOW() >= ch.ends_at")
	}

	var total int64
	if err := r.QueryRowContext(ctx, `SELECT COUNT(*) FROM challenges ch`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count challenges: %w", err)
	}

	query := `SELECT ` + challengeColumns + ` FROM challenges ch` + w.sql() +
		` ORDER BY ch.starts_at DESC, ch.id DESC LIMIT ` + w.next(params.Limit) + ` OFFSET ` + w.next(params.Offset())

	rows, err := r.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Challenge, 0, params.Limit)
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan challenge: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &models.PaginatedResponse[*models.Challenge]{
		Data:       out,
		Pagination: models.NewPaginationMeta(params, total),
	}, nil
}

func (r *challengeRepository) AddQuest(ctx context.Context, cq *models.ChallengeQuest) error {
	query := `
		INSERT INTO challenge_quests (challenge_id, quest_id, points) VALUES ($1, $2, $3)
		ON CONFLICT (challenge_id, quest_id) DO UPDATE SET points = EXCLUDED.points`
	if _, err := r.ExecContext(ctx, query, cq.ChallengeID, cq.QuestID, cq.Points); err != nil {
		return fmt.Errorf("failed to add challenge quest: %w", err)
	}
	return nil
}

func (r *challengeRepository) ListQuests(ctx context.Context, challengeID int64) ([]*models.Quest, error) {
	query := `SELECT ` + questColumns + questFrom + `
		JOIN challenge_quests cq ON cq.quest_id = q.id
		WHERE cq.challenge_id = $1
		ORDER BY q.id`

	rows, err := r.QueryContext(ctx, query, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenge quests: %w", err)
	}
	defer rows.Close()

	var out []*models.Quest
	for rows.Next() {
		q, err := scanQuest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quest: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (r *challengeRepository) AddReward(ctx context.Context, rw *models.ChallengeReward) error {
	query := `
		INSERT INTO challenge_rewards (challenge_id, rank_from, rank_to, xp, badge_id, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	err := r.QueryRowContext(ctx, query, rw.ChallengeID, rw.RankFrom, rw.RankTo, rw.XP, rw.BadgeID, rw.Description).Scan(&rw.ID)
	if err != nil {
		return fmt.Errorf("failed to add challenge reward: %w", err)
	}
	return nil
}

func (r *challengeRepository) ListRewards(ctx context.Context, challengeID int64) ([]*models.ChallengeReward, error) {
	query := `
		SELECT id, challenge_id, rank_from, rank_to, xp, badge_id, description
		FROM challenge_rewards WHERE challenge_id = $1 ORDER BY rank_from`

	rows, err := r.QueryContext(ctx, query, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenge rewards: %w", err)
	}
	defer rows.Close()

	var out []*models.ChallengeReward
	for rows.Next() {
		var rw models.ChallengeReward
		if err := rows.Scan(&rw.ID, &rw.ChallengeID, &rw.RankFrom, &rw.RankTo, &rw.XP, &rw.BadgeID, &rw.Description); err != nil {
			return nil, fmt.Errorf("failed to scan challenge reward: %w", err)
		}
		out = append(out, &rw)
	}
	return out, rows.Err()
}

func (r *challengeRepository) AddParticipant(ctx context.Context, challengeID, userID int64) error {
	query := `INSERT INTO challenge_participants (challenge_id, user_id) VALUES ($1, $2)`
	if _, err := r.ExecContext(ctx, query, challengeID, userID); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to join challenge: %w", err)
	}
	return nil
}

func (r *challengeRepository) IsParticipant(ctx context.Context, challengeID, userID int64) (bool, error) {
	var ok bool
	query := `SELECT EXISTS (SELECT 1 FROM challenge_participants WHERE challenge_id = $1 AND user_id = $2)`
	if err := r.QueryRowContext(ctx, query, challengeID, userID).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to check participation: %w", err)
	}
	return ok, nil
}

func (r *challengeRepository) CountParticipants(ctx context.Context, challengeID int64) (int, error) {
	var n int
	if err := r.QueryRowContext(ctx, `SELECT COUNT(*) FROM challenge_participants WHERE challenge_id = $1`, challengeID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count participants: %w", err)
	}
	return n, nil
}

func (r *challengeRepository) Leaderboard(ctx context.Context, challengeID int64, limit int) ([]*models.ChallengeLeaderboardEntry, error) {
	query := `
		SELECT RANK() OVER (ORDER BY cp.score DESC), cp.user_id, u.username, cp.score
		FROM challenge_participants cp JOIN users u ON u.id = cp.user_id
		WHERE cp.challenge_id = $1
		ORDER BY cp.score DESC, cp.joined_at
		LIMIT $2`

	rows, err := r.QueryContext(ctx, query, challengeID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load challenge leaderboard: %w", err)
	}
	defer rows.Close()

	var out []*models.ChallengeLeaderboardEntry
	for rows.Next() {
		var e models.ChallengeLeaderboardEntry
		if err := rows.Scan(&e.Rank, &e.UserID, &e.Username, &e.Score); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// AddScoreForQuest credits the quest's points in every running challenge the
// user has joined that includes the quest. It returns the number of
// challenges updated.
func (r *challengeRepository) AddScoreForQuest(ctx context.Context, userID, questID int64, at time.Time) (int64, error) {
	query := `
		UPDATE challenge_participants cp
		SET score = cp.score + cq.points
		FROM challenge_quests cq
		JOIN challenges ch ON ch.id = cq.challenge_id
		WHERE cp.challenge_id = cq.challenge_id
			AND cp.user_id = $1
			AND cq.quest_id = $2
			AND ch.starts_at <= $3 AND ch.ends_at > $3`

	res, err := r.ExecContext(ctx, query, userID, questID, at)
	if err != nil {
		return 0, fmt.Errorf("failed to update challenge scores: %w", err)
	}
	return res.RowsAffected()
}

// ===============================
// SETTLEMENT
// ===============================

// ListUnsettled returns ended challenges whose rewards have not been paid
func (r *challengeRepository) ListUnsettled(ctx context.Context, now time.Time, limit int) ([]*models.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges ch
		WHERE ch.ends_at <= $1 AND ch.settled_at IS NULL
		ORDER BY ch.ends_at, ch.id
		LIMIT $2`

	rows, err := r.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unsettled challenges: %w", err)
	}
	defer rows.Close()

	var out []*models.Challenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan challenge: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// MarkSettled stamps settled_at once. It reports false when another run
// already settled the challenge.
func (r *challengeRepository) MarkSettled(ctx context.Context, challengeID int64, at time.Time) (bool, error) {
	query := `UPDATE challenges SET settled_at = $2, updated_at = NOW() WHERE id = $1 AND settled_at IS NULL`

	res, err := r.ExecContext(ctx, query, challengeID, at)
	if err != nil {
		return false, fmt.Errorf("failed to mark challenge settled: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Standings ranks every participant with a positive score down to maxRank.
// Tied scores share a rank.
func (r *challengeRepository) Standings(ctx context.Context, challengeID int64, maxRank int) ([]*models.ChallengeLeaderboardEntry, error) {
	query := `
		SELECT rank, user_id, username, score FROM (
			SELECT RANK() OVER (ORDER BY cp.score DESC) AS rank, cp.user_id, u.username, cp.score
			FROM challenge_participants cp JOIN users u ON u.id = cp.user_id
			WHERE cp.challenge_id = $1 AND cp.score > 0 AND u.deleted_at IS NULL
		) ranked
		WHERE rank <= $2
		ORDER BY rank, user_id`

	rows, err := r.QueryContext(ctx, query, challengeID, maxRank)
	if err != nil {
		return nil, fmt.Errorf("failed to load challenge standings: %w", err)
	}
	defer rows.Close()

	var out []*models.ChallengeLeaderboardEntry
	for rows.Next() {
		var e models.ChallengeLeaderboardEntry
		if err := rows.Scan(&e.Rank, &e.UserID, &e.Username, &e.Score); err != nil {
			return nil, fmt.Errorf("failed to scan standing: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
