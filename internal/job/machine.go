// Package job owns the job lifecycle: the state machine defining valid
// transitions and the service applying them with their side effects (wallet
// debit on posting, payment release on confirmation).
package job

import (
	"errors"

	"github.com/tanmaydesai/gigflow/pkg/models"
)

// ErrInvalidTransition is returned when a state change is not allowed from
// the job's current status. The state is left unchanged.
var ErrInvalidTransition = errors.New("invalid job transition")

// ErrRaceLost is returned when a conditional update affected zero rows:
// another actor got there first. This is an expected outcome ("job no longer
// available"), not a failure of the caller's own logic.
var ErrRaceLost = errors.New("job no longer available")

// ErrValidation is returned for bad input to a creation or transition call.
var ErrValidation = errors.New("validation failed")

// ErrNotOwner is returned when an actor acts on a job it has no claim to.
var ErrNotOwner = errors.New("not authorized for this job")

// transitions is the authoritative state machine:
//
//	open → in_progress → pending_confirmation → completed
//	open → cancelled
//
// completed and cancelled are terminal.
var transitions = map[string][]string{
	models.JobStatusOpen:                {models.JobStatusInProgress, models.JobStatusCancelled},
	models.JobStatusInProgress:          {models.JobStatusPendingConfirmation},
	models.JobStatusPendingConfirmation: {models.JobStatusCompleted},
	models.JobStatusCompleted:           {},
	models.JobStatusCancelled:           {},
}

// CanTransition reports whether a job may move from one status to another.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStates returns the statuses reachable from the given one.
func NextStates(from string) []string {
	next := transitions[from]
	out := make([]string, len(next))
	copy(out, next)
	return out
}
