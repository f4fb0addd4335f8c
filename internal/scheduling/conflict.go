package scheduling

import (
	"context"
	"time"
)

// ConflictChecker detects double-booking at day granularity: two
// appointments for the same subject conflict when their instants fall on the
// same business-local calendar day. Appointments are modeled as whole-day
// slots, so exact-time overlap is deliberately not considered.
type ConflictChecker struct {
	repo  Repository
	clock *BusinessClock
}

func NewConflictChecker(repo Repository, clock *BusinessClock) *ConflictChecker {
	return &ConflictChecker{repo: repo, clock: clock}
}

// HasConflict reports whether subjectID already holds another appointment on
// the business-local day of at. excludeID skips the appointment being
// rescheduled so it never conflicts with itself; pass 0 when creating.
func (c *ConflictChecker) HasConflict(ctx context.Context, subjectID int64, at time.Time, excludeID int64) (bool, error) {
	existing, err := c.repo.FindBySubjectAndDay(ctx, subjectID, c.clock.Day(at))
	if err != nil {
		return false, err
	}
	for _, appt := range existing {
		if appt.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}
