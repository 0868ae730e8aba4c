package database

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"

	"sidequest/internal/config"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Open creates the manager and applies migrations when configured to
func Open(ctx context.Context, cfg *config.DatabaseConfig, logger *zap.Logger) (*Manager, error) {
	m, err := NewManager(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create database manager: %w", err)
	}

	if cfg.AutoMigrate {
		if err := m.Migrate(); err != nil {
			m.Close()
			return nil, fmt.Errorf("failed to run database migrations: %w", err)
		}
	}
	return m, nil
}

func (m *Manager) newMigrator() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded migrations: %w", err)
	}

	// The driver takes ownership of the connection it wraps; hand it a
	// dedicated one so closing the migrator leaves the pool alone.
	conn, err := m.db.Conn(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to reserve migration connection: %w", err)
	}
	driver, err := postgres.WithConnection(context.Background(), conn, &postgres.Config{})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	return migrator, nil
}

// Migrate applies every pending migration
func (m *Manager) Migrate() error {
	migrator, err := m.newMigrator()
	if err != nil {
		return err
	}
	defer migrator.Close()

	from, dirty, err := migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database is in dirty state at version %d", from)
	}

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	to, _, _ := migrator.Version()
	m.logger.Info("Migrations completed",
		zap.Uint("from_version", from),
		zap.Uint("to_version", to),
	)
	return nil
}

// Rollback reverts the given number of migrations
func (m *Manager) Rollback(steps int) error {
	if steps <= 0 {
		return fmt.Errorf("steps must be positive")
	}
	migrator, err := m.newMigrator()
	if err != nil {
		return err
	}
	defer migrator.Close()

	if err := migrator.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to roll back migrations: %w", err)
	}
	return nil
}

// MigrationVersion reports the applied version and dirty flag
func (m *Manager) MigrationVersion() (uint, bool, error) {
	migrator, err := m.newMigrator()
	if err != nil {
		return 0, false, err
	}
	defer migrator.Close()

	v, dirty, err := migrator.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}
