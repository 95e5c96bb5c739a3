package db

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/lisanmuaddib/mindshare-tracker/pkg/db/models"
)

// SetupDatabase runs migrations, connects with GORM and auto-migrates the tracker schema
func SetupDatabase(logger *logrus.Logger, config *Config) (*gorm.DB, error) {
	logger.Debug("Starting database setup")

	projectRoot, err := findProjectRoot()
	if err != nil {
		return nil, fmt.Errorf("failed to find project root: %w", err)
	}

	// Run migrations
	if err := RunMigrations(logger, config, projectRoot); err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"host":     config.Host,
		"database": config.Name,
	}).Debug("Establishing GORM database connection")

	db, err := Open(postgres.Open(config.DSN()), logger)
	if err != nil {
		return nil, err
	}

	logger.Info("Database setup completed successfully")
	return db, nil
}

// Open connects through dialector with the logrus query logger and brings the
// schema up to date with the models.
func Open(dialector gorm.Dialector, logger *logrus.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewGormLogrusLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(models.All()...); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database schema: %w", err)
	}
	return db, nil
}
