package db

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/sirupsen/logrus"
)

func newMigrator(config *Config) (*migrate.Migrate, error) {
	m, err := migrate.New("file://"+config.MigrationsDir, config.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	return m, nil
}

// RunMigrations applies every pending migration
func RunMigrations(config *Config, logger *logrus.Logger) error {
	logger.WithField("migrations_dir", config.MigrationsDir).Debug("Running database migrations")

	m, err := newMigrator(config)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// MigrationStatus returns the current migration version and dirty state
func MigrationStatus(config *Config, logger *logrus.Logger) (uint, bool, error) {
	m, err := newMigrator(config)
	if err != nil {
		return 0, false, err
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if err != nil {
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"version": version,
		"dirty":   dirty,
	}).Debug("Migration status retrieved")

	return version, dirty, nil
}
