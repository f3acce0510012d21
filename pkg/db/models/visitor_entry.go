package models

import "time"

// VisitorEntry persists one key of a visitor's storefront state.
type VisitorEntry struct {
	VisitorID string     `gorm:"column:visitor_id;primaryKey"`
	Name      string     `gorm:"column:name;primaryKey"`
	Value     string     `gorm:"column:value;not null"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
	ExpiresAt *time.Time `gorm:"column:expires_at"`
}

func (VisitorEntry) TableName() string {
	return "storefront_kv"
}
