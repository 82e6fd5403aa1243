package db

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// SetupDatabase runs pending migrations and opens the GORM connection
func SetupDatabase(config *Config, logger *logrus.Logger) (*gorm.DB, error) {
	logger.Debug("Starting database setup")

	if err := RunMigrations(config, logger); err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"host": config.Host,
		"name": config.Name,
	}).Debug("Establishing GORM database connection")

	db, err := gorm.Open(postgres.Open(config.DSN()), &gorm.Config{
		Logger: NewGormLogrusLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logger.Info("Database setup completed successfully")
	return db, nil
}
