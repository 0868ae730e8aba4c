// file: internal/repositories/user_repository.go
package repositories

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"sidequest/internal/database"
	"sidequest/internal/models"
)

// userRepository implements UserRepository
type userRepository struct {
	*BaseRepository
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.Manager, logger *zap.Logger) UserRepository {
	return &userRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

const userColumns = `
	id, email, username, password_hash, google_id, display_name, bio, avatar_url,
	level, xp, current_streak, longest_streak, last_activity_at, role, is_active, deleted_at,
	created_at, updated_at`

func scanUser(s rowScanner) (*models.User, error) {
	var u models.User
	err := s.Scan(
		&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.GoogleID, &u.DisplayName, &u.Bio, &u.AvatarURL,
		&u.Level, &u.XP, &u.CurrentStreak, &u.LongestStreak, &u.LastActivityAt, &u.Role, &u.IsActive, &u.DeletedAt,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ===============================
// BASIC CRUD OPERATIONS
// ===============================

// Create creates a new user together with default preferences
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.WithTransaction(ctx, func(ctx context.Context) error {
		query := `
			INSERT INTO users (email, username, password_hash, google_id, display_name, avatar_url, role)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, level, xp, is_active, created_at, updated_at`

		if user.Role == "" {
			user.Role = models.RoleUser
		}
		err := r.QueryRowContext(ctx, query,
			user.Email, user.Username, user.PasswordHash, user.GoogleID,
			user.DisplayName, user.AvatarURL, user.Role,
		).Scan(&user.ID, &user.Level, &user.XP, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicate
			}
			return fmt.Errorf("failed to create user: %w", err)
		}

		return r.UpsertPreferences(ctx, models.DefaultUserPreferences(user.ID))
	})
}

func (r *userRepository) getOne(ctx context.Context, where string, arg interface{}) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where + ` AND deleted_at IS NULL`

	u, err := scanUser(r.QueryRowContext(ctx, query, arg))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetByID retrieves an active or inactive, non-deleted user
func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, "id = $1", id)
}

// GetByIDForUpdate reads the user with a row lock when called inside a
// transaction, so progress updates serialize per user
func (r *userRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND deleted_at IS NULL`
	if txFrom(ctx) != nil {
		query += ` FOR UPDATE`
	}

	u, err := scanUser(r.QueryRowContext(ctx, query, id))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock user: %w", err)
	}
	return u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, "LOWER(email) = LOWER($1)", email)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, "LOWER(username) = LOWER($1)", username)
}

func (r *userRepository) GetByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	return r.getOne(ctx, "google_id = $1", googleID)
}

// UpdateProfile writes the user-editable fields
func (r *userRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users SET display_name = $2, bio = $3, avatar_url = $4, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING updated_at`

	err := r.QueryRowContext(ctx, query, user.ID, user.DisplayName, user.Bio, user.AvatarURL).Scan(&user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, userID int64, hash string) error {
	query := `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.ExecContext(ctx, query, userID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// UpdateProgress writes xp, level and streak counters
func (r *userRepository) UpdateProgress(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users SET
			xp = $2, level = $3, current_streak = $4, longest_streak = $5, last_activity_at = $6,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.QueryRowContext(ctx, query,
		user.ID, user.XP, user.Level, user.CurrentStreak, user.LongestStreak, user.LastActivityAt,
	).Scan(&user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}
	return nil
}

func (r *userRepository) LinkGoogleID(ctx context.Context, userID int64, googleID string) error {
	query := `UPDATE users SET google_id = $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.ExecContext(ctx, query, userID, googleID); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to link google account: %w", err)
	}
	return nil
}

// SoftDelete deactivates the account and frees its unique identifiers
func (r *userRepository) SoftDelete(ctx context.Context, userID int64) error {
	query := `
		UPDATE users SET
			is_active = FALSE, deleted_at = NOW(), google_id = NULL,
			email = 'deleted+' || id || '@sidequest.invalid',
			username = 'deleted' || id,
			updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`
	if _, err := r.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// ===============================
// PREFERENCES
// ===============================

func (r *userRepository) GetPreferences(ctx context.Context, userID int64) (*models.UserPreferences, error) {
	query := `
		SELECT user_id, email_notifications, push_notifications, badge_notifications, challenge_reminders,
			preferred_categories, preferred_difficulty, default_privacy, show_on_leaderboard, updated_at
		FROM user_preferences WHERE user_id = $1`

	var p models.UserPreferences
	err := r.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID, &p.EmailNotifications, &p.PushNotifications, &p.BadgeNotifications, &p.ChallengeReminders,
		&p.PreferredCategories, &p.PreferredDifficulty, &p.DefaultPrivacy, &p.ShowOnLeaderboard, &p.UpdatedAt,
	)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get preferences: %w", err)
	}
	return &p, nil
}

func (r *userRepository) UpsertPreferences(ctx context.Context, p *models.UserPreferences) error {
	query := `
		INSERT INTO user_preferences (
			user_id, email_notifications, push_notifications, badge_notifications, challenge_reminders,
			preferred_categories, preferred_difficulty, default_privacy, show_on_leaderboard
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE SET
			email_notifications = EXCLUDED.email_notifications,
			push_notifications = EXCLUDED.push_notifications,
			badge_notifications = EXCLUDED.badge_notifications,
			challenge_reminders = EXCLUDED.challenge_reminders,
			preferred_categories = EXCLUDED.preferred_categories,
			preferred_difficulty = EXCLUDED.preferred_difficulty,
			default_privacy = EXCLUDED.default_privacy,
			show_on_leaderboard = EXCLUDED.show_on_leaderboard,
			updated_at = NOW()
		RETURNING updated_at`

	err := r.QueryRowContext(ctx, query,
		p.UserID, p.EmailNotifications, p.PushNotifications, p.BadgeNotifications, p.ChallengeReminders,
		p.PreferredCategories, p.PreferredDifficulty, p.DefaultPrivacy, p.ShowOnLeaderboard,
	).Scan(&p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}

// ===============================
// LEADERBOARD
// ===============================

const leaderboardBase = `
	FROM users u
	LEFT JOIN user_preferences p ON p.user_id = u.id
	WHERE u.is_active AND u.deleted_at IS NULL AND COALESCE(p.show_on_leaderboard, TRUE)`

func (r *userRepository) Leaderboard(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	query := `
		SELECT RANK() OVER (ORDER BY u.xp DESC), u.id, u.username, u.display_name, u.level, u.xp` +
		leaderboardBase + `
		ORDER BY u.xp DESC, u.id
		LIMIT $1`

	rows, err := r.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}
	defer rows.Close()

	var out []*models.LeaderboardEntry
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.Rank, &e.UserID, &e.Username, &e.DisplayName, &e.Level, &e.XP); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// RankOf returns the user's leaderboard rank, 0 when hidden
func (r *userRepository) RankOf(ctx context.Context, userID int64) (int, error) {
	query := `
		SELECT rank FROM (
			SELECT u.id, RANK() OVER (ORDER BY u.xp DESC) AS rank` + leaderboardBase + `
		) ranked WHERE id = $1`

	var rank int
	if err := r.QueryRowContext(ctx, query, userID).Scan(&rank); err != nil {
		if IsNotFound(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to rank user: %w", err)
	}
	return rank, nil
}
