package services

import (
	"github.com/lumenhotels/onboarding-app/utils"
)

// Notification templates used on workflow transitions.
const (
	TemplateOnboardingInvite  = "onboarding_invite"
	TemplateManagerReview     = "manager_review_needed"
	TemplateHRReview          = "hr_review_needed"
	TemplateChangesRequested  = "changes_requested"
	TemplateOnboardingDone    = "onboarding_approved"
	TemplateOnboardingStopped = "onboarding_rejected"
	TemplateModuleInvite      = "module_invite"
)

// NotificationSender delivers workflow notifications. Delivery (SMTP,
// SMS) is out of scope here; the default just logs.
type NotificationSender interface {
	Send(to, template string, context map[string]interface{}) error
}

type logSender struct{}

func (logSender) Send(to, template string, context map[string]interface{}) error {
	utils.InfoLogger.Printf("notify %s template=%s context=%v", to, template, context)
	return nil
}

var sender NotificationSender = logSender{}

// SetNotificationSender swaps the delivery backend.
func SetNotificationSender(s NotificationSender) {
	if s != nil {
		sender = s
	}
}

// Notify sends fire-and-forget. Delivery failures never fail the workflow
// transition that triggered them; they are logged and dropped.
func Notify(to, template string, context map[string]interface{}) {
	if to == "" {
		return
	}
	if err := sender.Send(to, template, context); err != nil {
		utils.ErrorLogger.Printf("notification %s to %s failed: %v", template, to, err)
	}
}
