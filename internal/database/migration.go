package database

import (
	"fmt"

	"github.com/wfunc/remi-scorer/internal/logger"
	"github.com/wfunc/remi-scorer/internal/models"
	"go.uber.org/zap"
)

// AutoMigrate creates or updates the table schema. The unique
// indexes on series_id and session_id are what backs the allocator's
// check-then-insert pattern: a racing duplicate insert fails here
// instead of overwriting.
func AutoMigrate() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	migrationModels := []interface{}{
		&models.Series{},
		&models.Session{},
		&models.RecentSeries{},
	}

	for _, model := range migrationModels {
		if err := DB.AutoMigrate(model); err != nil {
			logger.Error("migration failed",
				zap.String("model", fmt.Sprintf("%T", model)),
				zap.Error(err))
			return fmt.Errorf("migration failed for %T: %w", model, err)
		}
	}

	logger.Info("database schema migrated",
		zap.Int("models", len(migrationModels)))

	return nil
}
