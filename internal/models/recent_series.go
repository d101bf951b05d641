package models

import "time"

// RecentSeries per-device most-recently-used series entry.
// Identity is the (series, device) pair; at most the five newest
// entries per device survive a touch.
type RecentSeries struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	SeriesID       string    `gorm:"size:10;not null;uniqueIndex:idx_recent_series_device" json:"series_id"`
	DeviceID       string    `gorm:"size:100;not null;uniqueIndex:idx_recent_series_device;index" json:"device_id"`
	LastAccessedAt time.Time `json:"last_accessed_date"`
	Players        Players   `gorm:"type:json" json:"players"`
}

// TableName explicit name
func (RecentSeries) TableName() string {
	return "recent_series"
}
