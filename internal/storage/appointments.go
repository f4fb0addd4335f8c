// Package storage provides the Postgres-backed appointment repository. It
// translates database failures into the scheduling package's typed errors and
// writes an outbox event in the same transaction as every mutation.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/md-rashed-zaman/apptsched/internal/outbox"
	"github.com/md-rashed-zaman/apptsched/internal/scheduling"
	"github.com/md-rashed-zaman/apptsched/libs/db"
)

const uniqueViolation = "23505"

// DB is the pgx surface the repository needs. *db.Pool satisfies it in
// production; tests substitute a mock pool.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ DB = (*db.Pool)(nil)

type AppointmentRepository struct {
	pool   DB
	clock  *scheduling.BusinessClock
	outbox *outbox.Repository
}

func NewAppointmentRepository(pool DB, clock *scheduling.BusinessClock, ob *outbox.Repository) *AppointmentRepository {
	return &AppointmentRepository{pool: pool, clock: clock, outbox: ob}
}

func (r *AppointmentRepository) Find(ctx context.Context, id int64) (*scheduling.Appointment, error) {
	var appt scheduling.Appointment
	err := r.pool.QueryRow(ctx, `
		SELECT id, subject_id, scheduled_at, status, created_at, updated_at
		FROM appointments
		WHERE id = $1
	`, id).Scan(&appt.ID, &appt.SubjectID, &appt.ScheduledAt, &appt.Status, &appt.CreatedAt, &appt.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &scheduling.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("find appointment %d: %w", id, err)
	}
	return &appt, nil
}

func (r *AppointmentRepository) FindBySubjectAndDay(ctx context.Context, subjectID int64, day string) ([]scheduling.Appointment, error) {
	date, err := time.Parse("2006-01-02", day)
	if err != nil {
		return nil, fmt.Errorf("invalid day %q: want YYYY-MM-DD", day)
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, subject_id, scheduled_at, status, created_at, updated_at
		FROM appointments
		WHERE subject_id = $1 AND scheduled_day = $2
		ORDER BY scheduled_at
	`, subjectID, date)
	if err != nil {
		return nil, fmt.Errorf("find appointments for subject %d on %s: %w", subjectID, day, err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// Save upserts the appointment and records the matching lifecycle event in
// the outbox, both inside one transaction. The scheduled_day column is
// derived here from the business clock so the database's (subject_id,
// scheduled_day) uniqueness constraint enforces the one-per-day rule even
// when callers race past the in-process conflict check.
//
// Updates re-read the stored status under FOR UPDATE before writing: two
// lifecycle calls that both loaded a non-terminal snapshot serialize here,
// and the loser fails with a TerminalStateError instead of silently
// overwriting a completed or cancelled row.
func (r *AppointmentRepository) Save(ctx context.Context, a *scheduling.Appointment) (*scheduling.Appointment, error) {
	day := r.clock.Day(a.ScheduledAt)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("save appointment: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	saved := *a
	created := a.ID == 0
	if created {
		err = tx.QueryRow(ctx, `
			INSERT INTO appointments (subject_id, scheduled_at, scheduled_day, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, a.SubjectID, a.ScheduledAt, day, a.Status, a.CreatedAt, a.UpdatedAt).Scan(&saved.ID)
	} else {
		var current scheduling.Status
		err = tx.QueryRow(ctx, `
			SELECT status FROM appointments WHERE id = $1 FOR UPDATE
		`, a.ID).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &scheduling.NotFoundError{ID: a.ID}
		}
		if err == nil && current.Terminal() {
			return nil, &scheduling.TerminalStateError{ID: a.ID, Status: current, Operation: "update"}
		}
		if err == nil {
			_, err = tx.Exec(ctx, `
				UPDATE appointments
				SET scheduled_at = $2, scheduled_day = $3, status = $4, updated_at = $5
				WHERE id = $1
			`, a.ID, a.ScheduledAt, day, a.Status, a.UpdatedAt)
		}
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, &scheduling.ConflictError{SubjectID: a.SubjectID, Day: day}
		}
		return nil, fmt.Errorf("save appointment: %w", err)
	}

	evt, err := outbox.AppointmentEvent(outbox.EventTypeFor(saved.Status, created), &saved)
	if err != nil {
		return nil, err
	}
	if err := r.outbox.Insert(ctx, tx, evt); err != nil {
		return nil, fmt.Errorf("save appointment: outbox: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("save appointment: commit: %w", err)
	}
	return &saved, nil
}

func (r *AppointmentRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("delete appointment %d: begin: %w", id, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var appt scheduling.Appointment
	err = tx.QueryRow(ctx, `
		DELETE FROM appointments
		WHERE id = $1
		RETURNING id, subject_id, scheduled_at, status, created_at, updated_at
	`, id).Scan(&appt.ID, &appt.SubjectID, &appt.ScheduledAt, &appt.Status, &appt.CreatedAt, &appt.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("delete appointment %d: %w", id, err)
	}

	evt, err := outbox.AppointmentEvent(outbox.EventAppointmentDeleted, &appt)
	if err != nil {
		return false, err
	}
	if err := r.outbox.Insert(ctx, tx, evt); err != nil {
		return false, fmt.Errorf("delete appointment %d: outbox: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("delete appointment %d: commit: %w", id, err)
	}
	return true, nil
}

func (r *AppointmentRepository) List(ctx context.Context) ([]scheduling.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, subject_id, scheduled_at, status, created_at, updated_at
		FROM appointments
		ORDER BY scheduled_at
	`)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

func scanAppointments(rows pgx.Rows) ([]scheduling.Appointment, error) {
	var appts []scheduling.Appointment
	for rows.Next() {
		var appt scheduling.Appointment
		if err := rows.Scan(&appt.ID, &appt.SubjectID, &appt.ScheduledAt, &appt.Status, &appt.CreatedAt, &appt.UpdatedAt); err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}
