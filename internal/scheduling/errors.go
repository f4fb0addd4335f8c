package scheduling

import (
	"fmt"
	"time"
)

// PastDateError rejects instants that lie before "now".
type PastDateError struct {
	At time.Time
}

func (e *PastDateError) Error() string {
	return "appointment must be in the future"
}

// OutsideBusinessHoursError rejects instants whose business-local hour falls
// outside the 9 AM - 7 PM window. LocalTime carries the 12-hour rendering of
// the offending wall-clock time for user-facing messages.
type OutsideBusinessHoursError struct {
	LocalTime string
}

func (e *OutsideBusinessHoursError) Error() string {
	return fmt.Sprintf("appointments must be scheduled between 9 AM and 7 PM business time; %s is outside these hours", e.LocalTime)
}

// TerminalStateError rejects lifecycle operations on completed or cancelled
// appointments.
type TerminalStateError struct {
	ID        int64
	Status    Status
	Operation string
}

func (e *TerminalStateError) Error() string {
	return fmt.Sprintf("cannot %s appointment %d: status is %s", e.Operation, e.ID, e.Status)
}

// NotFoundError reports that no appointment exists with the given id.
type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("appointment %d not found", e.ID)
}

// ConflictError reports a double-booking: the subject already holds an
// appointment on the same business-local day.
type ConflictError struct {
	SubjectID int64
	Day       string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("subject %d already has an appointment on %s", e.SubjectID, e.Day)
}

// BusyError reports that the day lock could not be acquired within its
// bounded wait. The caller may retry after backoff.
type BusyError struct {
	SubjectID int64
	Day       string
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("scheduling for subject %d on %s is busy, retry later", e.SubjectID, e.Day)
}

// ConfigurationError reports an unresolvable business timezone. It is the
// one fatal error in the taxonomy: it means the service is misconfigured and
// must not start.
type ConfigurationError struct {
	TimeZone string
	Err      error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("business timezone %q cannot be resolved: %v", e.TimeZone, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
