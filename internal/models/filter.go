package models

import "time"

// FilterSetting is a saved deal screen.
type FilterSetting struct {
	ID           int64     `json:"id,omitempty"`
	User         int64     `json:"user,omitempty"`
	Name         string    `json:"name"`
	MinCapRate   float64   `json:"min_cap_rate"`
	MaxPrice     *int64    `json:"max_price"`
	YearBuiltMin *int      `json:"year_built_min"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
}
