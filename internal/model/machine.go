package model

import "time"

// Machine is a registered piece of equipment with a public status page.
type Machine struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:200;not null" json:"name"`
	SerialNumber *string   `gorm:"size:100;uniqueIndex" json:"serial_number"`
	Location     *string   `gorm:"size:200" json:"location"`
	Description  *string   `gorm:"type:text" json:"description"`
	PublicSlug   string    `gorm:"size:20;uniqueIndex;not null" json:"public_slug"` // Immutable once assigned
	CreatedAt    time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}
