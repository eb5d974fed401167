package model

import "time"

// Maintenance records service performed on a machine. NextDueAt is purely
// informational.
type Maintenance struct {
	ID          int64      `gorm:"primaryKey" json:"id"`
	MachineID   int64      `gorm:"index;not null" json:"machine_id"`
	Title       string     `gorm:"size:200;not null" json:"title"`
	Description *string    `gorm:"type:text" json:"description"`
	PerformedBy string     `gorm:"size:100;not null" json:"performed_by"`
	PerformedAt time.Time  `gorm:"not null;index" json:"performed_at"`
	NextDueAt   *time.Time `json:"next_due_at"`

	// Associations
	Machine *Machine `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// TableName keeps the singular table name used by existing deployments.
func (Maintenance) TableName() string { return "maintenance" }
