package repository

import (
	"context"
	"errors"
	"time"

	"github.com/wfunc/remi-scorer/internal/models"
	"gorm.io/gorm"
)

// RecentSeriesRepository per-device recency tracking
type RecentSeriesRepository interface {
	BaseRepository
	Touch(ctx context.Context, seriesID, deviceID string, players models.Players, limit int) error
	FindByDeviceID(ctx context.Context, deviceID string, limit int) ([]*models.RecentSeries, error)
}

type recentSeriesRepo struct {
	*BaseRepo
}

// NewRecentSeriesRepository creates the recency repository
func NewRecentSeriesRepository(db *gorm.DB) RecentSeriesRepository {
	return &recentSeriesRepo{BaseRepo: NewBaseRepo(db)}
}

// Touch upserts the (series, device) entry with a fresh access time
// and prunes anything beyond the newest limit entries for the device.
func (r *recentSeriesRepo) Touch(ctx context.Context, seriesID, deviceID string, players models.Players, limit int) error {
	return r.Transaction(ctx, func(tx *gorm.DB) error {
		var entry models.RecentSeries
		err := tx.Where("series_id = ? AND device_id = ?", seriesID, deviceID).
			First(&entry).Error
		switch {
		case err == nil:
			entry.LastAccessedAt = time.Now()
			entry.Players = players
			if err := tx.Save(&entry).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			entry = models.RecentSeries{
				SeriesID:       seriesID,
				DeviceID:       deviceID,
				LastAccessedAt: time.Now(),
				Players:        players,
			}
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}
		default:
			return err
		}

		// prune entries that fell off the recency window
		var keep []uint
		if err := tx.Model(&models.RecentSeries{}).
			Where("device_id = ?", deviceID).
			Order("last_accessed_at DESC").
			Limit(limit).
			Pluck("id", &keep).Error; err != nil {
			return err
		}

		return tx.Where("device_id = ? AND id NOT IN ?", deviceID, keep).
			Delete(&models.RecentSeries{}).Error
	})
}

// FindByDeviceID newest first, at most limit entries
func (r *recentSeriesRepo) FindByDeviceID(ctx context.Context, deviceID string, limit int) ([]*models.RecentSeries, error) {
	var entries []*models.RecentSeries
	err := r.db.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Order("last_accessed_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
