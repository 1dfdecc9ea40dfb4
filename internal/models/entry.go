package models

import "time"

// Entry is a single key-value record in local storage.
type Entry struct {
	Key       string `gorm:"primaryKey"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}
