package scheduling

import "time"

// BusinessClock converts absolute instants to wall-clock time in the
// configured business timezone. The IANA location is resolved once at
// construction; every conversion goes through the tz database so daylight
// saving transitions are handled correctly, never via a fixed offset.
type BusinessClock struct {
	loc *time.Location
}

func NewBusinessClock(name string) (*BusinessClock, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, &ConfigurationError{TimeZone: name, Err: err}
	}
	return &BusinessClock{loc: loc}, nil
}

// Local returns t on the business wall clock.
func (c *BusinessClock) Local(t time.Time) time.Time {
	return t.In(c.loc)
}

// HourMinute returns the business-local hour and minute of t.
func (c *BusinessClock) HourMinute(t time.Time) (hour, minute int) {
	local := t.In(c.loc)
	return local.Hour(), local.Minute()
}

// Day returns the business-local calendar day of t as YYYY-MM-DD. Two
// instants on the same Day occupy the same booking slot for conflict
// purposes, even when their UTC dates differ.
func (c *BusinessClock) Day(t time.Time) string {
	return t.In(c.loc).Format("2006-01-02")
}
