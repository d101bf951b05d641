package models

import (
	"database/sql/driver"
	"time"
)

// Session lifecycle states. The transition is one-way: a session
// starts active and can only be ended, never reopened.
const (
	SessionStatusActive = "active"
	SessionStatusEnded  = "ended"
)

// RoundScore one scored hand inside a session's ledger.
// Round is the 1-based position, equal to the ledger length at
// append time. AtuPlayerIndex marks the trump caller and is opaque
// to the scoring engine.
type RoundScore struct {
	Round          int       `json:"round"`
	Scores         Scores    `json:"scores"`
	AtuPlayerIndex *int      `json:"atu_player_index,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// RoundList append-mostly ledger stored as a JSON column
type RoundList []RoundScore

// Value implements driver.Valuer
func (l RoundList) Value() (driver.Value, error) {
	if l == nil {
		l = RoundList{}
	}
	return marshalJSON(l)
}

// Scan implements sql.Scanner
func (l *RoundList) Scan(value interface{}) error {
	return scanJSON(value, l)
}

// Session one played game inside a series. SeriesID is empty for
// legacy free-standing sessions created before series existed.
type Session struct {
	BaseModel
	SessionID      string    `gorm:"uniqueIndex;size:10;not null" json:"session_id"`
	SeriesID       string    `gorm:"index;size:10" json:"series_id,omitempty"`
	SequenceNumber int       `json:"sequence_number,omitempty"`
	Password       string    `gorm:"size:255" json:"password"`
	CreatorID      string    `gorm:"size:100;default:'unknown'" json:"creator_id"`
	Players        Players   `gorm:"type:json" json:"players"`
	Status         string    `gorm:"size:20;default:'active';index" json:"status"`
	GameScores     RoundList `gorm:"type:json" json:"game_scores"`
	FinalScores    Scores    `gorm:"type:json" json:"final_scores"`
}

// TableName explicit name
func (Session) TableName() string {
	return "sessions"
}

// IsActive reports whether scores may still be recorded
func (s *Session) IsActive() bool {
	return s.Status == SessionStatusActive
}

// CanMutate reports whether the device may change scores or end the
// session. The unknown-creator sentinel accepts any device so that
// legacy sessions stay editable.
func (s *Session) CanMutate(deviceID string) bool {
	return s.CreatorID == deviceID || s.CreatorID == CreatorUnknown
}
