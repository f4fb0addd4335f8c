package scheduling

import "time"

// Business hours expressed as local wall-clock hours. The closing hour is
// inclusive: a 7:xx PM start is accepted, 8:00 PM is not.
const (
	openHour  = 9
	closeHour = 19
)

// HoursValidator decides whether an instant is schedulable: it must be in
// the future and inside business hours on the business wall clock. The
// window is evaluated in business-local time on every call so it shifts
// correctly across daylight saving boundaries.
type HoursValidator struct {
	clock *BusinessClock
}

func NewHoursValidator(clock *BusinessClock) *HoursValidator {
	return &HoursValidator{clock: clock}
}

// Validate checks at against now, first failure wins. Both arguments are
// absolute instants.
func (v *HoursValidator) Validate(at, now time.Time) error {
	if at.Before(now) {
		return &PastDateError{At: at}
	}
	local := v.clock.Local(at)
	if h := local.Hour(); h < openHour || h > closeHour {
		return &OutsideBusinessHoursError{LocalTime: local.Format("3:04 PM")}
	}
	return nil
}
