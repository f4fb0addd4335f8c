// Package outbox implements the transactional outbox for appointment
// lifecycle events: mutations write an event row in the same transaction as
// the state change, and a background publisher relays rows to Kafka.
package outbox

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/md-rashed-zaman/apptsched/internal/scheduling"
)

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType (one event per topic).
type Event struct {
	EventID       string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

const (
	AggregateAppointment = "appointment"

	EventAppointmentScheduled   = "appointment.scheduled.v1"
	EventAppointmentRescheduled = "appointment.rescheduled.v1"
	EventAppointmentCompleted   = "appointment.completed.v1"
	EventAppointmentCancelled   = "appointment.cancelled.v1"
	EventAppointmentDeleted     = "appointment.deleted.v1"
)

// EventTypeFor maps a persisted lifecycle change to its topic. created
// distinguishes a first save from later status updates.
func EventTypeFor(status scheduling.Status, created bool) string {
	if created {
		return EventAppointmentScheduled
	}
	switch status {
	case scheduling.StatusRescheduled:
		return EventAppointmentRescheduled
	case scheduling.StatusCompleted:
		return EventAppointmentCompleted
	case scheduling.StatusCancelled:
		return EventAppointmentCancelled
	}
	return EventAppointmentScheduled
}

// AppointmentEvent builds the envelope for a lifecycle change of a.
func AppointmentEvent(eventType string, a *scheduling.Appointment) (Event, error) {
	payload, err := json.Marshal(map[string]any{
		"appointment_id": a.ID,
		"subject_id":     a.SubjectID,
		"scheduled_at":   a.ScheduledAt.UTC().Format(time.RFC3339),
		"status":         string(a.Status),
		"updated_at":     a.UpdatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return Event{}, fmt.Errorf("outbox: build payload: %w", err)
	}
	return Event{
		EventID:       uuid.NewString(),
		AggregateType: AggregateAppointment,
		AggregateID:   strconv.FormatInt(a.ID, 10),
		EventType:     eventType,
		Payload:       payload,
	}, nil
}
