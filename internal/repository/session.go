package repository

import (
	"context"
	"errors"

	"github.com/wfunc/remi-scorer/internal/models"
	"gorm.io/gorm"
)

// SessionRepository session persistence
type SessionRepository interface {
	BaseRepository
	Create(ctx context.Context, session *models.Session) error
	Update(ctx context.Context, session *models.Session) error
	FindBySessionID(ctx context.Context, sessionID string) (*models.Session, error)
	ExistsBySessionID(ctx context.Context, sessionID string) (bool, error)
	FindBySeriesID(ctx context.Context, seriesID string) ([]*models.Session, error)
	FindActiveBySeriesID(ctx context.Context, seriesID string) (*models.Session, error)
	CountBySeriesID(ctx context.Context, seriesID string) (int64, error)
	FindAll(ctx context.Context) ([]*models.Session, error)
}

type sessionRepo struct {
	*BaseRepo
}

// NewSessionRepository creates the session repository
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepo{BaseRepo: NewBaseRepo(db)}
}

func (r *sessionRepo) Create(ctx context.Context, session *models.Session) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *sessionRepo) Update(ctx context.Context, session *models.Session) error {
	return r.db.WithContext(ctx).Save(session).Error
}

func (r *sessionRepo) FindBySessionID(ctx context.Context, sessionID string) (*models.Session, error) {
	var session models.Session
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) ExistsBySessionID(ctx context.Context, sessionID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Session{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error
	return count > 0, err
}

// FindBySeriesID newest first, matching how clients render history
func (r *sessionRepo) FindBySeriesID(ctx context.Context, seriesID string) ([]*models.Session, error) {
	var sessions []*models.Session
	err := r.db.WithContext(ctx).
		Where("series_id = ?", seriesID).
		Order("created_at DESC").
		Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepo) FindActiveBySeriesID(ctx context.Context, seriesID string) (*models.Session, error) {
	var session models.Session
	err := r.db.WithContext(ctx).
		Where("series_id = ? AND status = ?", seriesID, models.SessionStatusActive).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) CountBySeriesID(ctx context.Context, seriesID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Session{}).
		Where("series_id = ?", seriesID).
		Count(&count).Error
	return count, err
}

func (r *sessionRepo) FindAll(ctx context.Context) ([]*models.Session, error) {
	var sessions []*models.Session
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&sessions).Error
	return sessions, err
}
