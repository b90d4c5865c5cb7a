package enrollment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fittrack/fittrack/pkg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrEnrollmentExists   = errors.New("enrollment already exists for that user and plan")
)

const selectEnrollment = `
	SELECT
		uw.id, uw.user_id, uw.workout_plan_id, uw.progress, uw.current_day,
		uw.is_active, uw.completed_workouts, uw.last_completed_at,
		uw.created_at, uw.updated_at,
		wp.name,
		(SELECT COUNT(*) FROM workout_day wd WHERE wd.workout_plan_id = uw.workout_plan_id)
	FROM user_workout uw
	JOIN workout_plan wp ON wp.id = uw.workout_plan_id`

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// Create inserts a fresh enrollment. The UNIQUE constraint on
// (user_id, workout_plan_id) is what makes the duplicate check
// race-free: a concurrent double enroll loses here, not in a
// pre-check.
func (r *Repo) Create(ctx context.Context, userID, workoutPlanID int64) (*Enrollment, error) {
	rows, err := r.db.Query(
		ctx,
		`INSERT INTO user_workout (user_id, workout_plan_id)
				VALUES ($1, $2)
			RETURNING id, progress, current_day, is_active, completed_workouts, created_at, updated_at;`,
		userID, workoutPlanID,
	)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return nil, ErrEnrollmentExists
		}
		if pkg.IsForeignKeyViolationError(err) {
			return nil, ErrEnrollmentNotFound
		}
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, errors.New("unexpected error [no rows next]")
	}

	e := Enrollment{UserID: userID, WorkoutPlanID: workoutPlanID}
	if err := rows.Scan(
		&e.ID, &e.Progress, &e.CurrentDay, &e.IsActive, &e.CompletedWorkouts,
		&e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}

	return &e, nil
}

func (r *Repo) Get(ctx context.Context, id int64) (*Enrollment, error) {
	rows, err := r.db.Query(ctx, selectEnrollment+` WHERE uw.id = $1;`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return oneEnrollment(rows)
}

func (r *Repo) GetByUserAndPlan(ctx context.Context, userID, workoutPlanID int64) (*Enrollment, error) {
	rows, err := r.db.Query(
		ctx,
		selectEnrollment+` WHERE uw.user_id = $1 AND uw.workout_plan_id = $2;`,
		userID, workoutPlanID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return oneEnrollment(rows)
}

func (r *Repo) ListForUser(ctx context.Context, userID int64, activeOnly bool) ([]Enrollment, error) {
	query := selectEnrollment + ` WHERE uw.user_id = $1`
	if activeOnly {
		query += ` AND uw.is_active = TRUE`
	} else {
		query += ` AND uw.is_active = FALSE`
	}

	rows, err := r.db.Query(ctx, query+` ORDER BY uw.updated_at DESC;`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	enrollments := make([]Enrollment, 0)
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		enrollments = append(enrollments, *e)
	}
	return enrollments, nil
}

// UpdateState persists a recomputed progress state after a day
// completion.
func (r *Repo) UpdateState(ctx context.Context, id int64, s ProgressState, lastCompletedAt time.Time) error {
	tag, err := r.db.Exec(
		ctx,
		`UPDATE user_workout SET
				progress = $1, current_day = $2, is_active = $3,
				completed_workouts = $4, last_completed_at = $5, updated_at = now()
			WHERE id = $6;`,
		s.Progress, s.CurrentDay, s.IsActive, s.CompletedWorkouts, lastCompletedAt, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEnrollmentNotFound
	}
	return nil
}

// Reset puts an enrollment back to its freshly-enrolled state.
// History rows are kept.
func (r *Repo) Reset(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(
		ctx,
		`UPDATE user_workout SET
				progress = 0, current_day = 1, is_active = TRUE,
				completed_workouts = 0, updated_at = now()
			WHERE id = $1;`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEnrollmentNotFound
	}
	return nil
}

func (r *Repo) DeleteByUserAndPlan(ctx context.Context, userID, workoutPlanID int64) error {
	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM user_workout WHERE user_id = $1 AND workout_plan_id = $2;`,
		userID, workoutPlanID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEnrollmentNotFound
	}
	return nil
}

func (r *Repo) AddHistory(ctx context.Context, h HistoryEntry) (*HistoryEntry, error) {
	rows, err := r.db.Query(
		ctx,
		`INSERT INTO user_workout_history
				(user_workout_id, workout_day_id, completed, duration, calories_burned, completed_at)
				VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id;`,
		h.UserWorkoutID, h.WorkoutDayID, h.Completed, h.Duration, h.CaloriesBurned, h.CompletedAt,
	)
	if err != nil {
		if pkg.IsForeignKeyViolationError(err) {
			return nil, ErrEnrollmentNotFound
		}
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, errors.New("unexpected error [no rows next]")
	}

	if err := rows.Scan(&h.ID); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}

	return &h, nil
}

// CountCompletedSince counts genuinely completed (non rest day)
// history rows for a user since the given time. Used by the
// achievements sweep.
func (r *Repo) CountCompletedSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(
		ctx,
		`SELECT COUNT(*)
			FROM user_workout_history uwh
			JOIN user_workout uw ON uw.id = uwh.user_workout_id
			WHERE uw.user_id = $1 AND uwh.completed = TRUE AND uwh.completed_at >= $2;`,
		userID, since,
	).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// UserIDsWithCompletionsSince lists users with at least one
// completed day since the given time. Drives the achievements sweep.
func (r *Repo) UserIDsWithCompletionsSince(ctx context.Context, since time.Time) ([]int64, error) {
	rows, err := r.db.Query(
		ctx,
		`SELECT DISTINCT uw.user_id
			FROM user_workout_history uwh
			JOIN user_workout uw ON uw.id = uwh.user_workout_id
			WHERE uwh.completed = TRUE AND uwh.completed_at >= $1;`,
		since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	userIDs := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		userIDs = append(userIDs, id)
	}
	return userIDs, nil
}

func oneEnrollment(rows pgx.Rows) (*Enrollment, error) {
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !rows.Next() {
		return nil, ErrEnrollmentNotFound
	}
	return scanEnrollment(rows)
}

func scanEnrollment(rows pgx.Rows) (*Enrollment, error) {
	var e Enrollment
	if err := rows.Scan(
		&e.ID, &e.UserID, &e.WorkoutPlanID, &e.Progress, &e.CurrentDay,
		&e.IsActive, &e.CompletedWorkouts, &e.LastCompletedAt,
		&e.CreatedAt, &e.UpdatedAt,
		&e.PlanName, &e.TotalDays,
	); err != nil {
		return nil, err
	}
	return &e, nil
}
