package repository

import (
	"context"

	"gorm.io/gorm"
)

// BaseRepository common repository surface
type BaseRepository interface {
	// GetDB exposes the underlying handle
	GetDB() *gorm.DB
}

// BaseRepo shared repository implementation
type BaseRepo struct {
	db *gorm.DB
}

// NewBaseRepo creates the shared base
func NewBaseRepo(db *gorm.DB) *BaseRepo {
	return &BaseRepo{db: db}
}

// GetDB exposes the underlying handle
func (r *BaseRepo) GetDB() *gorm.DB {
	return r.db
}

// Transaction runs fn inside a transaction
func (r *BaseRepo) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}
