package models

import "time"

type ApplicationStatus string

const (
	ApplicationPending    ApplicationStatus = "pending"
	ApplicationApproved   ApplicationStatus = "approved"
	ApplicationRejected   ApplicationStatus = "rejected"
	ApplicationTalentPool ApplicationStatus = "talent_pool"
	ApplicationWithdrawn  ApplicationStatus = "withdrawn"
)

// applicationTransitions is the only place transition legality is defined.
// Endpoints must not compare status strings on their own.
var applicationTransitions = map[ApplicationStatus][]ApplicationStatus{
	ApplicationPending:    {ApplicationApproved, ApplicationRejected, ApplicationTalentPool, ApplicationWithdrawn},
	ApplicationTalentPool: {ApplicationPending},
	ApplicationApproved:   {},
	ApplicationRejected:   {},
	ApplicationWithdrawn:  {},
}

func (s ApplicationStatus) Valid() bool {
	_, ok := applicationTransitions[s]
	return ok
}

func (s ApplicationStatus) CanTransitionTo(next ApplicationStatus) bool {
	for _, t := range applicationTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is allowed. Approved is
// terminal for the application row itself; the workflow continues on the
// employee's onboarding session.
func (s ApplicationStatus) IsTerminal() bool {
	return len(applicationTransitions[s]) == 0
}

type JobApplication struct {
	ID             uint              `gorm:"primaryKey" json:"id"`
	PropertyID     uint              `gorm:"not null;index" json:"property_id"`
	Property       Property          `gorm:"foreignKey:PropertyID" json:"-"`
	Department     string            `gorm:"type:varchar(100);not null" json:"department"`
	Position       string            `gorm:"type:varchar(100);not null" json:"position"`
	ApplicantName  string            `gorm:"type:varchar(255);not null" json:"applicant_name"`
	ApplicantEmail string            `gorm:"type:varchar(255);not null;index" json:"applicant_email"`
	ApplicantPhone string            `gorm:"type:varchar(30)" json:"applicant_phone"`
	ApplicantData  JSONMap           `gorm:"type:text" json:"applicant_data"`
	Status         ApplicationStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	AppliedAt      time.Time         `gorm:"not null" json:"applied_at"`
	ReviewedBy     *uint             `json:"reviewed_by,omitempty"`
	ReviewedAt     *time.Time        `json:"reviewed_at,omitempty"`
	RejectionReason string           `gorm:"type:text" json:"rejection_reason,omitempty"`
	TalentPoolDate *time.Time        `json:"talent_pool_date,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}
