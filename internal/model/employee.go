package model

import "time"

// Employee is a staff member who can report issues and author updates.
type Employee struct {
	ID           int64          `gorm:"primaryKey" json:"id"`
	FirstName    string         `gorm:"size:100;not null" json:"first_name"`
	LastName     string         `gorm:"size:100;not null" json:"last_name"`
	Email        string         `gorm:"size:200;uniqueIndex;not null" json:"email"`
	Phone        *string        `gorm:"size:50" json:"phone"`
	Department   *string        `gorm:"size:100" json:"department"`
	Position     *string        `gorm:"size:100" json:"position"`
	EmployeeCode string         `gorm:"column:employee_id;size:50;uniqueIndex;not null" json:"employee_id"` // Externally assigned
	Status       EmployeeStatus `gorm:"size:10;not null;default:active;index" json:"status"`
	CreatedAt    time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null" json:"updated_at"`
}

// FullName is the display name captured on issues and updates.
func (e Employee) FullName() string {
	return e.FirstName + " " + e.LastName
}

// IsActive reports whether the employee has not been deactivated.
func (e Employee) IsActive() bool {
	return e.Status == EmployeeStatusActive
}
