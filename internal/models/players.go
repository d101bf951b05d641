package models

import "database/sql/driver"

// Players fixed four-slot roster keyed by seat position.
// The scoring engine assumes exactly four slots; empty display
// names mark unused seats.
type Players struct {
	Player1 string `json:"player1"`
	Player2 string `json:"player2"`
	Player3 string `json:"player3"`
	Player4 string `json:"player4"`
}

// Value implements driver.Valuer
func (p Players) Value() (driver.Value, error) {
	return marshalJSON(p)
}

// Scan implements sql.Scanner
func (p *Players) Scan(value interface{}) error {
	return scanJSON(value, p)
}

// Complete reports whether all four slots carry a display name
func (p Players) Complete() bool {
	return p.Player1 != "" && p.Player2 != "" && p.Player3 != "" && p.Player4 != ""
}

// Scores per-slot integer score tuple. Used both for single-round
// deltas and for running totals; negative values are legal.
type Scores struct {
	Player1 int `json:"player1"`
	Player2 int `json:"player2"`
	Player3 int `json:"player3"`
	Player4 int `json:"player4"`
}

// Value implements driver.Valuer
func (s Scores) Value() (driver.Value, error) {
	return marshalJSON(s)
}

// Scan implements sql.Scanner
func (s *Scores) Scan(value interface{}) error {
	return scanJSON(value, s)
}

// Add returns the slot-wise sum of two score tuples
func (s Scores) Add(other Scores) Scores {
	return Scores{
		Player1: s.Player1 + other.Player1,
		Player2: s.Player2 + other.Player2,
		Player3: s.Player3 + other.Player3,
		Player4: s.Player4 + other.Player4,
	}
}

// Diff returns the slot-wise difference s - other
func (s Scores) Diff(other Scores) Scores {
	return Scores{
		Player1: s.Player1 - other.Player1,
		Player2: s.Player2 - other.Player2,
		Player3: s.Player3 - other.Player3,
		Player4: s.Player4 - other.Player4,
	}
}
