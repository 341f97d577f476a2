package db

import (
	"github.com/certolo/certolo-backend/internal/app/model"
	"github.com/certolo/certolo-backend/pkg/logger"
)

// Migrate runs database migrations
func Migrate() error {
	logger.Info("Running database migrations...")

	models := []interface{}{
		&model.User{},
		&model.Standard{},
		&model.Criterion{},
		&model.Application{},
		&model.ApplicationResponse{},
		&model.ApplicationDocument{},
		&model.Certificate{},
		&model.ActivityLog{},
		&model.LoginAttempt{},
	}

	if err := DB.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}
