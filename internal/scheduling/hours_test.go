package scheduling

import (
	"errors"
	"testing"
	"time"
)

var hoursNow = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func TestValidate_PastDate(t *testing.T) {
	v := NewHoursValidator(testClock(t))

	err := v.Validate(hoursNow.Add(-time.Minute), hoursNow)
	var pastErr *PastDateError
	if !errors.As(err, &pastErr) {
		t.Fatalf("expected PastDateError, got %v", err)
	}

	// t == now is not in the past. 00:00 UTC Jan 1 is 16:00 local Dec 31,
	// inside business hours.
	if err := v.Validate(hoursNow, hoursNow); err != nil {
		t.Fatalf("expected t == now to validate, got %v", err)
	}
}

func TestValidate_Window(t *testing.T) {
	v := NewHoursValidator(testClock(t))

	cases := []struct {
		name  string
		at    time.Time // chosen so local (PDT, UTC-7) hits the boundary
		valid bool
	}{
		{"8:59 AM local", time.Date(2025, 4, 10, 15, 59, 0, 0, time.UTC), false},
		{"9:00 AM local", time.Date(2025, 4, 10, 16, 0, 0, 0, time.UTC), true},
		{"3:00 PM local", time.Date(2025, 4, 10, 22, 0, 0, 0, time.UTC), true},
		{"7:59 PM local", time.Date(2025, 4, 11, 2, 59, 0, 0, time.UTC), true},
		{"8:00 PM local", time.Date(2025, 4, 11, 3, 0, 0, 0, time.UTC), false},
	}
	for _, tc := range cases {
		err := v.Validate(tc.at, hoursNow)
		if tc.valid && err != nil {
			t.Fatalf("%s: expected valid, got %v", tc.name, err)
		}
		if !tc.valid {
			var hoursErr *OutsideBusinessHoursError
			if !errors.As(err, &hoursErr) {
				t.Fatalf("%s: expected OutsideBusinessHoursError, got %v", tc.name, err)
			}
		}
	}
}

func TestValidate_ReportsLocalTime(t *testing.T) {
	v := NewHoursValidator(testClock(t))

	// 03:00 UTC Apr 11 is 8:00 PM Apr 10 in Los Angeles.
	err := v.Validate(time.Date(2025, 4, 11, 3, 0, 0, 0, time.UTC), hoursNow)
	var hoursErr *OutsideBusinessHoursError
	if !errors.As(err, &hoursErr) {
		t.Fatalf("expected OutsideBusinessHoursError, got %v", err)
	}
	if hoursErr.LocalTime != "8:00 PM" {
		t.Fatalf("expected local time 8:00 PM, got %q", hoursErr.LocalTime)
	}
}

func TestValidate_DSTShift(t *testing.T) {
	v := NewHoursValidator(testClock(t))

	// The same 03:30 UTC wall reading is 7:30 PM local in January (valid)
	// and 8:30 PM local in July (invalid).
	winter := time.Date(2025, 1, 15, 3, 30, 0, 0, time.UTC)
	if err := v.Validate(winter, hoursNow); err != nil {
		t.Fatalf("winter instant should be inside business hours, got %v", err)
	}
	summer := time.Date(2025, 7, 15, 3, 30, 0, 0, time.UTC)
	if err := v.Validate(summer, hoursNow); err == nil {
		t.Fatal("summer instant should be outside business hours")
	}
}
