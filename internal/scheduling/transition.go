package scheduling

import "fmt"

// Operation is a lifecycle mutation gated by the status state machine.
type Operation string

const (
	OpReschedule Operation = "reschedule"
	OpComplete   Operation = "complete"
	OpCancel     Operation = "cancel"
)

// Transition returns the status the appointment moves to when op is applied.
//
// Completed and Cancelled are both terminal: every operation attempted from
// either fails with TerminalStateError, so a second complete or cancel is an
// error, never a silent no-op, and a completed appointment can never be
// cancelled afterwards.
func Transition(a *Appointment, op Operation) (Status, error) {
	if a.Status.Terminal() {
		return "", &TerminalStateError{ID: a.ID, Status: a.Status, Operation: string(op)}
	}
	switch op {
	case OpReschedule:
		return StatusRescheduled, nil
	case OpComplete:
		return StatusCompleted, nil
	case OpCancel:
		return StatusCancelled, nil
	}
	return "", fmt.Errorf("unknown scheduling operation %q", op)
}
