package models

import "time"

// Staff roles. Employees never appear here: they have no accounts and
// reach the system only through onboarding/module tokens.
const (
	RoleHR      = "hr"
	RoleManager = "manager"
)

type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Email     string    `gorm:"type:varchar(255);unique;not null" json:"email"`
	Password  string    `gorm:"type:varchar(255);not null" json:"-"`
	Role      string    `gorm:"type:varchar(20);not null" json:"role"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PropertyManagerAssignment links a manager to a property. Removing an
// assignment deactivates the row; re-assigning creates a new one so the
// history stays intact.
type PropertyManagerAssignment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	PropertyID uint      `gorm:"not null;index" json:"property_id"`
	Property   Property  `gorm:"foreignKey:PropertyID" json:"-"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	User       User      `gorm:"foreignKey:UserID" json:"-"`
	IsActive   bool      `gorm:"default:true" json:"is_active"`
	AssignedAt time.Time `gorm:"not null" json:"assigned_at"`
	RemovedAt  *time.Time `json:"removed_at,omitempty"`
}
