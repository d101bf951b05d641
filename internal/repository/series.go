package repository

import (
	"context"
	"errors"

	"github.com/wfunc/remi-scorer/internal/models"
	"gorm.io/gorm"
)

// SeriesRepository series persistence
type SeriesRepository interface {
	BaseRepository
	Create(ctx context.Context, series *models.Series) error
	FindBySeriesID(ctx context.Context, seriesID string) (*models.Series, error)
	ExistsBySeriesID(ctx context.Context, seriesID string) (bool, error)
	FindAll(ctx context.Context) ([]*models.Series, error)
	Update(ctx context.Context, series *models.Series) error
	IncrementSessionCount(ctx context.Context, seriesID string) error
	AddViewerDevice(ctx context.Context, series *models.Series, deviceID string) error
}

type seriesRepo struct {
	*BaseRepo
}

// NewSeriesRepository creates the series repository
func NewSeriesRepository(db *gorm.DB) SeriesRepository {
	return &seriesRepo{BaseRepo: NewBaseRepo(db)}
}

func (r *seriesRepo) Create(ctx context.Context, series *models.Series) error {
	return r.db.WithContext(ctx).Create(series).Error
}

func (r *seriesRepo) FindBySeriesID(ctx context.Context, seriesID string) (*models.Series, error) {
	var series models.Series
	err := r.db.WithContext(ctx).Where("series_id = ?", seriesID).First(&series).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &series, nil
}

func (r *seriesRepo) ExistsBySeriesID(ctx context.Context, seriesID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Series{}).
		Where("series_id = ?", seriesID).
		Count(&count).Error
	return count > 0, err
}

func (r *seriesRepo) FindAll(ctx context.Context) ([]*models.Series, error) {
	var series []*models.Series
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&series).Error
	return series, err
}

func (r *seriesRepo) Update(ctx context.Context, series *models.Series) error {
	return r.db.WithContext(ctx).Save(series).Error
}

// IncrementSessionCount bumps the counter in SQL so concurrent
// session creates cannot lose an increment.
func (r *seriesRepo) IncrementSessionCount(ctx context.Context, seriesID string) error {
	return r.db.WithContext(ctx).Model(&models.Series{}).
		Where("series_id = ?", seriesID).
		UpdateColumn("session_count", gorm.Expr("session_count + 1")).Error
}

// AddViewerDevice records the device in the series viewer set. The
// caller checks membership first; this only persists the new set.
func (r *seriesRepo) AddViewerDevice(ctx context.Context, series *models.Series, deviceID string) error {
	series.ViewerDevices = append(series.ViewerDevices, deviceID)
	return r.db.WithContext(ctx).Model(series).
		UpdateColumn("viewer_devices", series.ViewerDevices).Error
}
