package models

import "time"

// Base contains common columns for all tables.
// Deletes are hard deletes; rows that must survive for history
// (audit entries) are append-only instead.
type Base struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
