package models

import "time"

const (
	RequirementI9Section2 = "i9_section2"

	DeadlinePending   = "pending"
	DeadlineCompleted = "completed"
	DeadlineOverdue   = "overdue"
)

// ComplianceDeadline tracks federally-driven due dates per employee, e.g.
// I-9 Section 2 within 3 business days of hire. Overdue is recomputed by
// the compliance monitor; it is advisory and never blocks other operations.
type ComplianceDeadline struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	EmployeeID      uint       `gorm:"not null;index" json:"employee_id"`
	Employee        Employee   `gorm:"foreignKey:EmployeeID" json:"-"`
	RequirementType string     `gorm:"type:varchar(50);not null" json:"requirement_type"`
	DueDate         time.Time  `gorm:"type:date;not null" json:"due_date"`
	CompletedDate   *time.Time `json:"completed_date,omitempty"`
	Status          string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
