package models

import "time"

type OnboardingPhase string

const (
	PhaseEmployee      OnboardingPhase = "employee"
	PhaseManagerReview OnboardingPhase = "manager_review"
	PhaseHRApproval    OnboardingPhase = "hr_approval"
	PhaseApproved      OnboardingPhase = "approved"
	PhaseRejected      OnboardingPhase = "rejected"
)

// phaseTransitions holds every legal edge. Forward edges advance one phase;
// the back edges exist only for explicit request-changes actions, which must
// append to RequestedChanges.
var phaseTransitions = map[OnboardingPhase][]OnboardingPhase{
	PhaseEmployee:      {PhaseManagerReview},
	PhaseManagerReview: {PhaseHRApproval, PhaseEmployee, PhaseRejected},
	PhaseHRApproval:    {PhaseApproved, PhaseManagerReview, PhaseEmployee, PhaseRejected},
	PhaseApproved:      {},
	PhaseRejected:      {},
}

var phaseOrder = map[OnboardingPhase]int{
	PhaseEmployee:      0,
	PhaseManagerReview: 1,
	PhaseHRApproval:    2,
}

func (p OnboardingPhase) Valid() bool {
	_, ok := phaseTransitions[p]
	return ok
}

func (p OnboardingPhase) CanTransitionTo(next OnboardingPhase) bool {
	for _, t := range phaseTransitions[p] {
		if t == next {
			return true
		}
	}
	return false
}

func (p OnboardingPhase) IsTerminal() bool {
	return len(phaseTransitions[p]) == 0
}

// IsBackward reports whether moving p -> next is a request-changes kickback.
func (p OnboardingPhase) IsBackward(next OnboardingPhase) bool {
	po, ok1 := phaseOrder[p]
	no, ok2 := phaseOrder[next]
	return ok1 && ok2 && no < po
}

// Step ids the employee must complete before submitting their phase.
// Order matters for the frontend wizard; completion is tracked per id.
var RequiredEmployeeSteps = []string{
	"personal_info",
	"i9_section1",
	"w4_form",
	"direct_deposit",
	"emergency_contacts",
	"company_policies",
	"final_review",
}

func IsRequiredEmployeeStep(stepID string) bool {
	for _, s := range RequiredEmployeeSteps {
		if s == stepID {
			return true
		}
	}
	return false
}

type OnboardingSession struct {
	ID                uint              `gorm:"primaryKey" json:"id"`
	EmployeeID        uint              `gorm:"not null;uniqueIndex" json:"employee_id"`
	Employee          Employee          `gorm:"foreignKey:EmployeeID" json:"-"`
	Token             string            `gorm:"type:text;not null" json:"-"`
	TokenExpiresAt    time.Time         `gorm:"not null" json:"token_expires_at"`
	CurrentPhase      OnboardingPhase   `gorm:"type:varchar(20);not null;default:'employee';index" json:"current_phase"`
	CompletedSteps    StringList        `gorm:"type:text" json:"completed_steps"`
	StepData          JSONMap           `gorm:"type:text" json:"-"`
	PercentComplete   int               `gorm:"default:0" json:"percent_complete"`
	RequestedChanges  ChangeRequestList `gorm:"type:text" json:"requested_changes"`
	I9Section2Done    bool              `gorm:"default:false" json:"i9_section2_done"`
	FormArtifacts     JSONMap           `gorm:"type:text" json:"form_artifacts"`
	ManagerReviewedBy *uint             `json:"manager_reviewed_by,omitempty"`
	ManagerReviewedAt *time.Time        `json:"manager_reviewed_at,omitempty"`
	HRReviewedBy      *uint             `json:"hr_reviewed_by,omitempty"`
	HRReviewedAt      *time.Time        `json:"hr_reviewed_at,omitempty"`
	ApprovedBy        *uint             `json:"approved_by,omitempty"`
	RejectedBy        *uint             `json:"rejected_by,omitempty"`
	RejectedAt        *time.Time        `json:"rejected_at,omitempty"`
	RejectionReason   string            `gorm:"type:text" json:"rejection_reason,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// RecomputeProgress refreshes PercentComplete from the required step set.
// Only employee-facing steps count toward the percentage.
func (s *OnboardingSession) RecomputeProgress() {
	done := 0
	for _, step := range RequiredEmployeeSteps {
		if s.CompletedSteps.Contains(step) {
			done++
		}
	}
	s.PercentComplete = done * 100 / len(RequiredEmployeeSteps)
}

// MissingSteps returns required employee steps not yet completed.
func (s *OnboardingSession) MissingSteps() []string {
	var missing []string
	for _, step := range RequiredEmployeeSteps {
		if !s.CompletedSteps.Contains(step) {
			missing = append(missing, step)
		}
	}
	return missing
}
