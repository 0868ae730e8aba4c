// file: internal/repositories/collection.go
package repositories

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sidequest/internal/database"
)

// Collection holds all repository instances for dependency injection
type Collection struct {
	User         UserRepository
	Category     CategoryRepository
	Quest        QuestRepository
	Submission   SubmissionRepository
	Badge        BadgeRepository
	XP           XPRepository
	Notification NotificationRepository
	Challenge    ChallengeRepository

	// Tx binds repository calls to one transaction through the context
	Tx Transactor

	db     *database.Manager
	logger *zap.Logger
}

// NewCollection creates a new repository collection with all dependencies
func NewCollection(db *database.Manager, logger *zap.Logger) (*Collection, error) {
	if db == nil {
		return nil, fmt.Errorf("database manager is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Collection{
		User:         NewUserRepository(db, logger),
		Category:     NewCategoryRepository(db, logger),
		Quest:        NewQuestRepository(db, logger),
		Submission:   NewSubmissionRepository(db, logger),
		Badge:        NewBadgeRepository(db, logger),
		XP:           NewXPRepository(db, logger),
		Notification: NewNotificationRepository(db, logger),
		Challenge:    NewChallengeRepository(db, logger),
		Tx:           NewBaseRepository(db, logger),
		db:           db,
		logger:       logger,
	}

	logger.Info("Repository collection initialized successfully")
	return c, nil
}

// ===============================
// HEALTH AND MONITORING
// ===============================

// HealthCheck reports database status plus a sample query per core table
func (c *Collection) HealthCheck(ctx context.Context) map[string]interface{} {
	health := map[string]interface{}{
		"database": c.db.Health(ctx),
	}

	checks := map[string]interface{}{
		"categories": c.checkQuery(func() error {
			_, err := c.Category.List(ctx, false)
			return err
		}),
		"badges": c.checkQuery(func() error {
			_, err := c.Badge.List(ctx, true)
			return err
		}),
		"leaderboard": c.checkQuery(func() error {
			_, err := c.User.Leaderboard(ctx, 1)
			return err
		}),
	}
	health["repositories"] = checks
	return health
}

func (c *Collection) checkQuery(fn func() error) map[string]interface{} {
	start := time.Now()
	err := fn()
	result := map[string]interface{}{
		"duration": time.Since(start).String(),
		"healthy":  err == nil,
	}
	if err != nil {
		result["error"] = err.Error()
		c.logger.Warn("Repository health check query failed", zap.Error(err))
	}
	return result
}

// GetDB returns the underlying database manager
func (c *Collection) GetDB() *database.Manager {
	return c.db
}
