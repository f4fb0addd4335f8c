package scheduling

import (
	"fmt"
	"time"
)

// Status is the closed set of appointment lifecycle states. It is a typed
// enum rather than free-form text so misspellings ("Canceled" vs "Cancelled")
// cannot enter the system.
type Status string

const (
	StatusScheduled   Status = "Scheduled"
	StatusRescheduled Status = "Rescheduled"
	StatusCompleted   Status = "Completed"
	StatusCancelled   Status = "Cancelled"
)

// Terminal reports whether no further lifecycle transition is permitted.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ParseStatus converts a stored value back into a Status. Anything outside
// the four known states is rejected so bad rows surface loudly instead of
// flowing through the state machine.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusScheduled, StatusRescheduled, StatusCompleted, StatusCancelled:
		return Status(raw), nil
	}
	return "", fmt.Errorf("unknown appointment status %q", raw)
}

// Appointment is a timed booking owned by exactly one subject.
//
// ID is assigned by the repository on first save, never by the engine.
// ScheduledAt is an absolute instant and is always stored and compared in
// UTC; business-hours and conflict rules convert it to the business timezone
// on demand. Once Status is terminal the record never changes again.
type Appointment struct {
	ID          int64
	SubjectID   int64
	ScheduledAt time.Time
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
