package model

import "time"

// Issue is a problem reported against a machine.
type Issue struct {
	ID          int64       `gorm:"primaryKey" json:"id"`
	MachineID   int64       `gorm:"index;not null" json:"machine_id"`
	Title       string      `gorm:"size:200;not null" json:"title"`
	Description *string     `gorm:"type:text" json:"description"`
	ReportedBy  string      `gorm:"size:100;not null" json:"reported_by"` // Name snapshot, not an employee reference
	ReportedAt  time.Time   `gorm:"not null;index" json:"reported_at"`
	Status      IssueStatus `gorm:"size:20;not null;default:open;index" json:"status"`
	ClosedAt    *time.Time  `json:"closed_at"`

	// Associations
	Machine *Machine `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// IssueUpdate is a note appended to an issue. A non-nil StatusChange also
// moves the parent issue to that status when the update is recorded.
type IssueUpdate struct {
	ID           int64        `gorm:"primaryKey" json:"id"`
	IssueID      int64        `gorm:"index;not null" json:"issue_id"`
	Note         string       `gorm:"type:text;not null" json:"note"`
	Author       string       `gorm:"size:100;not null" json:"author"`
	CreatedAt    time.Time    `gorm:"not null" json:"created_at"`
	StatusChange *IssueStatus `gorm:"size:20" json:"status_change"`

	// Associations
	Issue *Issue `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
