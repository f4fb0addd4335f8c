package outbox

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/md-rashed-zaman/apptsched/internal/scheduling"
)

func TestEventTypeFor(t *testing.T) {
	cases := []struct {
		status  scheduling.Status
		created bool
		want    string
	}{
		{scheduling.StatusScheduled, true, EventAppointmentScheduled},
		{scheduling.StatusRescheduled, false, EventAppointmentRescheduled},
		{scheduling.StatusCompleted, false, EventAppointmentCompleted},
		{scheduling.StatusCancelled, false, EventAppointmentCancelled},
	}
	for _, tc := range cases {
		if got := EventTypeFor(tc.status, tc.created); got != tc.want {
			t.Fatalf("EventTypeFor(%s, %v) = %s, want %s", tc.status, tc.created, got, tc.want)
		}
	}
}

func TestAppointmentEvent(t *testing.T) {
	appt := &scheduling.Appointment{
		ID:          42,
		SubjectID:   7,
		ScheduledAt: time.Date(2025, 4, 10, 16, 0, 0, 0, time.UTC),
		Status:      scheduling.StatusScheduled,
		UpdatedAt:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	evt, err := AppointmentEvent(EventAppointmentScheduled, appt)
	if err != nil {
		t.Fatalf("AppointmentEvent failed: %v", err)
	}
	if evt.EventID == "" {
		t.Fatal("expected a generated event id")
	}
	if evt.AggregateType != AggregateAppointment || evt.AggregateID != "42" {
		t.Fatalf("unexpected aggregate fields: %+v", evt)
	}

	var payload struct {
		AppointmentID int64  `json:"appointment_id"`
		SubjectID     int64  `json:"subject_id"`
		ScheduledAt   string `json:"scheduled_at"`
		Status        string `json:"status"`
	}
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if payload.AppointmentID != 42 || payload.SubjectID != 7 {
		t.Fatalf("unexpected payload ids: %+v", payload)
	}
	if payload.ScheduledAt != "2025-04-10T16:00:00Z" {
		t.Fatalf("expected UTC RFC3339 scheduled_at, got %q", payload.ScheduledAt)
	}
	if payload.Status != "Scheduled" {
		t.Fatalf("expected status Scheduled, got %q", payload.Status)
	}
}
