package models

// CreatorUnknown sentinel creator recorded when a client supplies no
// device identifier. Legacy records created before device tracking
// carry it too, which is why some permission checks tolerate it.
const CreatorUnknown = "unknown"

// Series password-scoped group of sequential game sessions
type Series struct {
	BaseModel
	SeriesID      string     `gorm:"uniqueIndex;size:10;not null" json:"series_id"`
	Password      string     `gorm:"size:255;not null" json:"password"`
	CreatorID     string     `gorm:"size:100;default:'unknown'" json:"creator_id"`
	Players       Players    `gorm:"type:json" json:"players"`
	SessionCount  int        `gorm:"default:0" json:"session_count"`
	ViewerDevices StringList `gorm:"type:json" json:"viewer_devices"`
}

// TableName explicit name, gorm would otherwise singularize badly
func (Series) TableName() string {
	return "series"
}

// IsCreator reports whether the device created this series
func (s *Series) IsCreator(deviceID string) bool {
	return s.CreatorID == deviceID
}
