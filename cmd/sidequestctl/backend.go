package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"sidequest/internal/cli"
	"sidequest/internal/config"
	"sidequest/internal/database"
	"sidequest/internal/services"
)

// backend opens the database on first use and the service graph only for
// commands that need it
type backend struct {
	cfg    *config.Config
	logger *zap.Logger

	db       *database.Manager
	services *services.ServiceCollection
}

func newBackend(cfg *config.Config, logger *zap.Logger) *backend {
	return &backend{cfg: cfg, logger: logger}
}

func (b *backend) database(ctx context.Context) (*database.Manager, error) {
	if b.db != nil {
		return b.db, nil
	}
	db, err := database.NewManager(ctx, &b.cfg.Database, b.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	b.db = db
	return db, nil
}

func (b *backend) collection(ctx context.Context) (*services.ServiceCollection, error) {
	if b.services != nil {
		return b.services, nil
	}
	db, err := b.database(ctx)
	if err != nil {
		return nil, err
	}
	sc, err := services.NewServiceCollection(db, b.cfg, b.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	if err := sc.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start services: %w", err)
	}
	b.services = sc
	return sc, nil
}

func (b *backend) Migrator(ctx context.Context) (cli.Migrator, error) {
	return b.database(ctx)
}

func (b *backend) AIQuests(ctx context.Context) (services.AIQuestService, error) {
	sc, err := b.collection(ctx)
	if err != nil {
		return nil, err
	}
	return sc.AIQuestService, nil
}

func (b *backend) Notifications(ctx context.Context) (services.NotificationService, error) {
	sc, err := b.collection(ctx)
	if err != nil {
		return nil, err
	}
	return sc.NotificationService, nil
}

func (b *backend) Challenges(ctx context.Context) (services.ChallengeService, error) {
	sc, err := b.collection(ctx)
	if err != nil {
		return nil, err
	}
	return sc.ChallengeService, nil
}

func (b *backend) Close() error {
	// Shutdown also closes the database it was built on.
	if b.services != nil {
		ctx, cancel := context.WithTimeout(context.Background(), b.cfg.Server.GracefulTimeout)
		defer cancel()
		return b.services.Shutdown(ctx)
	}
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}
