package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EmploymentActive     = "active"
	EmploymentTerminated = "terminated"
)

// Employee is created only as a side effect of approving a job
// application, never directly.
type Employee struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	ApplicationID    uint            `gorm:"not null;uniqueIndex" json:"application_id"`
	Application      JobApplication  `gorm:"foreignKey:ApplicationID" json:"-"`
	PropertyID       uint            `gorm:"not null;index" json:"property_id"`
	Property         Property        `gorm:"foreignKey:PropertyID" json:"-"`
	ManagerID        uint            `gorm:"not null" json:"manager_id"`
	Manager          User            `gorm:"foreignKey:ManagerID" json:"-"`
	Name             string          `gorm:"type:varchar(255);not null" json:"name"`
	Email            string          `gorm:"type:varchar(255);not null" json:"email"`
	Department       string          `gorm:"type:varchar(100)" json:"department"`
	Position         string          `gorm:"type:varchar(100);not null" json:"position"`
	HireDate         time.Time       `gorm:"type:date;not null" json:"hire_date"`
	PayRate          decimal.Decimal `gorm:"type:decimal(10,2)" json:"pay_rate"`
	PayFrequency     string          `gorm:"type:varchar(20);default:'biweekly'" json:"pay_frequency"`
	EmploymentStatus string          `gorm:"type:varchar(20);not null;default:'active'" json:"employment_status"`
	OnboardingStatus string          `gorm:"type:varchar(30);not null;default:'in_progress'" json:"onboarding_status"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}
