package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplicationTransitions(t *testing.T) {
	assert.True(t, ApplicationPending.CanTransitionTo(ApplicationApproved))
	assert.True(t, ApplicationPending.CanTransitionTo(ApplicationRejected))
	assert.True(t, ApplicationPending.CanTransitionTo(ApplicationTalentPool))
	assert.True(t, ApplicationPending.CanTransitionTo(ApplicationWithdrawn))

	// Talent pool only reactivates back to pending.
	assert.True(t, ApplicationTalentPool.CanTransitionTo(ApplicationPending))
	assert.False(t, ApplicationTalentPool.CanTransitionTo(ApplicationApproved))

	// Terminal states admit nothing.
	for _, s := range []ApplicationStatus{ApplicationApproved, ApplicationRejected, ApplicationWithdrawn} {
		assert.True(t, s.IsTerminal())
		for _, next := range []ApplicationStatus{ApplicationPending, ApplicationApproved, ApplicationRejected, ApplicationTalentPool, ApplicationWithdrawn} {
			assert.False(t, s.CanTransitionTo(next), "%s -> %s should be illegal", s, next)
		}
	}
}

func TestApplicationStatusValid(t *testing.T) {
	assert.True(t, ApplicationPending.Valid())
	assert.True(t, ApplicationTalentPool.Valid())
	assert.False(t, ApplicationStatus("archived").Valid())
}
