package scheduling

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var engineTracer = otel.Tracer("apptsched.scheduling")

// Repository is the persistence collaborator the engine runs against. The
// engine never touches storage directly; implementations translate their
// failures into the typed errors of this package and never leak provider
// error text.
type Repository interface {
	// Find returns the appointment or a NotFoundError.
	Find(ctx context.Context, id int64) (*Appointment, error)
	// FindBySubjectAndDay returns every appointment the subject holds on the
	// business-local day (YYYY-MM-DD), regardless of status.
	FindBySubjectAndDay(ctx context.Context, subjectID int64, day string) ([]Appointment, error)
	// Save upserts. It assigns ID on first save and returns the stored
	// record. Implementations that enforce a (subject, day) uniqueness
	// constraint surface its violation as a ConflictError. Saving over a
	// row whose stored status is already terminal fails with a
	// TerminalStateError: that guard is what makes concurrent lifecycle
	// calls that both read a non-terminal snapshot lose exactly once.
	Save(ctx context.Context, a *Appointment) (*Appointment, error)
	// Delete reports whether a row existed.
	Delete(ctx context.Context, id int64) (bool, error)
	// List returns every appointment.
	List(ctx context.Context) ([]Appointment, error)
}

// DayLocker serializes the conflict-check-then-save window for one
// (subject, business-local day). Acquire blocks for at most its configured
// wait and returns a BusyError on timeout; the release func must be called
// exactly once.
type DayLocker interface {
	Acquire(ctx context.Context, subjectID int64, day string) (release func(), err error)
}

// Engine orchestrates the appointment lifecycle: status legality, timing
// rules, conflict detection, then a single persistence call. It holds no
// state between calls; every operation loads fresh data.
//
// The check-conflict-then-save sequence is a check-then-act race under
// concurrent requests, so the engine holds the day lock across both steps
// when a locker is configured. With a nil locker the repository's own
// (subject, day) uniqueness constraint is the only guard, which the Postgres
// repository provides; either way a losing writer gets a ConflictError,
// never a double-booking.
type Engine struct {
	repo      Repository
	locker    DayLocker
	clock     *BusinessClock
	hours     *HoursValidator
	conflicts *ConflictChecker
	now       func() time.Time
}

func NewEngine(repo Repository, locker DayLocker, clock *BusinessClock) *Engine {
	if repo == nil {
		panic("scheduling: repository required")
	}
	if clock == nil {
		panic("scheduling: business clock required")
	}
	return &Engine{
		repo:      repo,
		locker:    locker,
		clock:     clock,
		hours:     NewHoursValidator(clock),
		conflicts: NewConflictChecker(repo, clock),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create books a new appointment for the subject at the given instant. The
// instant must be in the future and inside business hours, and the subject
// must not already hold an appointment on that business-local day.
func (e *Engine) Create(ctx context.Context, subjectID int64, at time.Time) (*Appointment, error) {
	ctx, span := engineTracer.Start(ctx, "scheduling.create",
		trace.WithAttributes(attribute.Int64("subject_id", subjectID)))
	defer span.End()

	at = at.UTC()
	now := e.now()
	if err := e.hours.Validate(at, now); err != nil {
		return nil, err
	}

	day := e.clock.Day(at)
	release, err := e.lockDay(ctx, subjectID, day)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer release()

	conflict, err := e.conflicts.HasConflict(ctx, subjectID, at, 0)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if conflict {
		return nil, &ConflictError{SubjectID: subjectID, Day: day}
	}

	saved, err := e.repo.Save(ctx, &Appointment{
		SubjectID:   subjectID,
		ScheduledAt: at,
		Status:      StatusScheduled,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return saved, nil
}

// Reschedule moves a non-terminal appointment to a new instant, subject to
// the same timing rules as Create. The appointment is excluded from its own
// conflict check, so rescheduling within the same day is legal.
func (e *Engine) Reschedule(ctx context.Context, id int64, at time.Time) (*Appointment, error) {
	ctx, span := engineTracer.Start(ctx, "scheduling.reschedule",
		trace.WithAttributes(attribute.Int64("appointment_id", id)))
	defer span.End()

	at = at.UTC()
	now := e.now()

	appt, err := e.repo.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := Transition(appt, OpReschedule)
	if err != nil {
		return nil, err
	}
	if err := e.hours.Validate(at, now); err != nil {
		return nil, err
	}

	day := e.clock.Day(at)
	release, err := e.lockDay(ctx, appt.SubjectID, day)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer release()

	conflict, err := e.conflicts.HasConflict(ctx, appt.SubjectID, at, appt.ID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if conflict {
		return nil, &ConflictError{SubjectID: appt.SubjectID, Day: day}
	}

	appt.ScheduledAt = at
	appt.Status = next
	appt.UpdatedAt = now
	saved, err := e.repo.Save(ctx, appt)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return saved, nil
}

// Complete marks a non-terminal appointment as completed.
func (e *Engine) Complete(ctx context.Context, id int64) (*Appointment, error) {
	return e.transition(ctx, id, OpComplete)
}

// Cancel marks a non-terminal appointment as cancelled.
func (e *Engine) Cancel(ctx context.Context, id int64) (*Appointment, error) {
	return e.transition(ctx, id, OpCancel)
}

func (e *Engine) transition(ctx context.Context, id int64, op Operation) (*Appointment, error) {
	ctx, span := engineTracer.Start(ctx, "scheduling."+string(op),
		trace.WithAttributes(attribute.Int64("appointment_id", id)))
	defer span.End()

	appt, err := e.repo.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := Transition(appt, op)
	if err != nil {
		return nil, err
	}

	appt.Status = next
	appt.UpdatedAt = e.now()
	saved, err := e.repo.Save(ctx, appt)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return saved, nil
}

// Delete removes an appointment unconditionally. It is an administrative
// operation gated only on existence, not on the state machine.
func (e *Engine) Delete(ctx context.Context, id int64) (bool, error) {
	ctx, span := engineTracer.Start(ctx, "scheduling.delete",
		trace.WithAttributes(attribute.Int64("appointment_id", id)))
	defer span.End()

	deleted, err := e.repo.Delete(ctx, id)
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	return deleted, nil
}

// Get returns a single appointment or a NotFoundError.
func (e *Engine) Get(ctx context.Context, id int64) (*Appointment, error) {
	return e.repo.Find(ctx, id)
}

// ListBySubjectAndDay returns the subject's appointments on a business-local
// day given as YYYY-MM-DD.
func (e *Engine) ListBySubjectAndDay(ctx context.Context, subjectID int64, day string) ([]Appointment, error) {
	if _, err := time.Parse("2006-01-02", day); err != nil {
		return nil, fmt.Errorf("invalid day %q: want YYYY-MM-DD", day)
	}
	return e.repo.FindBySubjectAndDay(ctx, subjectID, day)
}

// ListAll returns every appointment.
func (e *Engine) ListAll(ctx context.Context) ([]Appointment, error) {
	return e.repo.List(ctx)
}

func (e *Engine) lockDay(ctx context.Context, subjectID int64, day string) (func(), error) {
	if e.locker == nil {
		return func() {}, nil
	}
	return e.locker.Acquire(ctx, subjectID, day)
}
