package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrScheduleNotFound = errors.New("scheduled workout not found")

const selectSchedule = `
	SELECT
		ws.id, ws.user_id, ws.user_workout_id, ws.workout_day_id,
		ws.scheduled_date, ws.scheduled_time, ws.reminder_enabled, ws.status, ws.created_at,
		wp.name, wd.name, wd.day_number
	FROM workout_schedule ws
	JOIN user_workout uw ON uw.id = ws.user_workout_id
	JOIN workout_plan wp ON wp.id = uw.workout_plan_id
	JOIN workout_day wd ON wd.id = ws.workout_day_id`

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Create(ctx context.Context, sw ScheduledWorkout) (*ScheduledWorkout, error) {
	rows, err := r.db.Query(
		ctx,
		`INSERT INTO workout_schedule
				(user_id, user_workout_id, workout_day_id, scheduled_date, scheduled_time, reminder_enabled, status)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, created_at;`,
		sw.UserID, sw.UserWorkoutID, sw.WorkoutDayID,
		sw.ScheduledDate, sw.ScheduledTime, sw.ReminderEnabled, StatusScheduled,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, errors.New("unexpected error [no rows next]")
	}

	sw.Status = StatusScheduled
	if err := rows.Scan(&sw.ID, &sw.CreatedAt); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}

	return &sw, nil
}

func (r *Repo) Get(ctx context.Context, id int64) (*ScheduledWorkout, error) {
	rows, err := r.db.Query(ctx, selectSchedule+` WHERE ws.id = $1;`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return oneSchedule(rows)
}

func (r *Repo) ListForDate(ctx context.Context, userID int64, date time.Time) ([]ScheduledWorkout, error) {
	rows, err := r.db.Query(
		ctx,
		selectSchedule+` WHERE ws.user_id = $1 AND ws.scheduled_date = $2
			ORDER BY ws.scheduled_date ASC, ws.scheduled_time ASC;`,
		userID, date,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return allSchedules(rows)
}

func (r *Repo) ListUpcoming(ctx context.Context, userID int64, from time.Time, limit int) ([]ScheduledWorkout, error) {
	rows, err := r.db.Query(
		ctx,
		selectSchedule+` WHERE ws.user_id = $1 AND ws.scheduled_date >= $2 AND ws.status = $3
			ORDER BY ws.scheduled_date ASC, ws.scheduled_time ASC
			LIMIT $4;`,
		userID, from, StatusScheduled, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return allSchedules(rows)
}

// ListDueReminders finds reminder-enabled entries for the given date
// whose time falls in [timeFrom, timeTo]. Times are zero-padded HH:MM
// strings, so text comparison orders correctly.
func (r *Repo) ListDueReminders(ctx context.Context, date time.Time, timeFrom, timeTo string) ([]ScheduledWorkout, error) {
	rows, err := r.db.Query(
		ctx,
		selectSchedule+` WHERE ws.status = $1 AND ws.reminder_enabled = TRUE
				AND ws.scheduled_date = $2
				AND ws.scheduled_time >= $3 AND ws.scheduled_time <= $4
			ORDER BY ws.scheduled_time ASC;`,
		StatusScheduled, date, timeFrom, timeTo,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return allSchedules(rows)
}

// MarkPastDueMissed flips still-scheduled entries whose slot is
// before the cutoff to missed, returning how many were flipped.
func (r *Repo) MarkPastDueMissed(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(
		ctx,
		`UPDATE workout_schedule SET status = $1
			WHERE status = $2 AND (scheduled_date + scheduled_time::time) < $3;`,
		StatusMissed, StatusScheduled, cutoff,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *Repo) UpdateStatus(ctx context.Context, id int64, status string) error {
	tag, err := r.db.Exec(
		ctx,
		`UPDATE workout_schedule SET status = $1 WHERE id = $2;`,
		status, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

// Delete removes an entry, scoped to its owner.
func (r *Repo) Delete(ctx context.Context, userID, id int64) error {
	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM workout_schedule WHERE id = $1 AND user_id = $2;`,
		id, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

func oneSchedule(rows pgx.Rows) (*ScheduledWorkout, error) {
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !rows.Next() {
		return nil, ErrScheduleNotFound
	}
	return scanSchedule(rows)
}

func allSchedules(rows pgx.Rows) ([]ScheduledWorkout, error) {
	if err := rows.Err(); err != nil {
		return nil, err
	}

	schedules := make([]ScheduledWorkout, 0)
	for rows.Next() {
		sw, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, *sw)
	}
	return schedules, nil
}

func scanSchedule(rows pgx.Rows) (*ScheduledWorkout, error) {
	var sw ScheduledWorkout
	if err := rows.Scan(
		&sw.ID, &sw.UserID, &sw.UserWorkoutID, &sw.WorkoutDayID,
		&sw.ScheduledDate, &sw.ScheduledTime, &sw.ReminderEnabled, &sw.Status, &sw.CreatedAt,
		&sw.PlanName, &sw.DayName, &sw.DayNumber,
	); err != nil {
		return nil, err
	}
	return &sw, nil
}
