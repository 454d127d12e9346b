package models

import "time"

// Known module types for narrow form-update grants.
const (
	ModuleW4Update      = "w4_update"
	ModuleI9Reverify    = "i9_reverify"
	ModuleDirectDeposit = "direct_deposit_update"
	ModuleContactUpdate = "contact_update"
)

var moduleTypes = map[string]bool{
	ModuleW4Update:      true,
	ModuleI9Reverify:    true,
	ModuleDirectDeposit: true,
	ModuleContactUpdate: true,
}

func IsValidModuleType(t string) bool {
	return moduleTypes[t]
}

// EmployeeModule is a single-form access grant outside full onboarding,
// e.g. re-issuing a W-4. The token is effectively single use: once
// CompletedAt is set the token is rejected.
type EmployeeModule struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	EmployeeID    uint       `gorm:"not null;index" json:"employee_id"`
	Employee      Employee   `gorm:"foreignKey:EmployeeID" json:"-"`
	ModuleType    string     `gorm:"type:varchar(50);not null" json:"module_type"`
	Token         string     `gorm:"type:text;not null" json:"-"`
	ExpiresAt     time.Time  `gorm:"not null" json:"expires_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	SubmittedData JSONMap    `gorm:"type:text" json:"submitted_data,omitempty"`
	IssuedBy      uint       `gorm:"not null" json:"issued_by"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
