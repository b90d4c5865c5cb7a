package workout

import (
	"context"
	"errors"
	"fmt"

	"github.com/fittrack/fittrack/pkg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrPlanNotFound        = errors.New("workout plan not found")
	ErrPlanExists          = errors.New("workout plan with that name already exists")
	ErrDayNotFound         = errors.New("workout day not found")
	ErrDayExists           = errors.New("workout day with that number already exists in the plan")
	ErrExerciseInDay       = errors.New("exercise already prescribed for that day")
	ErrPrescriptionMissing = errors.New("exercise prescription not found")
)

// ListPlansParams filters the plan catalog listing.
type ListPlansParams struct {
	Level      string
	Goal       string
	ActiveOnly bool
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) AddPlan(ctx context.Context, p Plan) (*Plan, error) {
	rows, err := r.db.Query(
		ctx,
		`INSERT INTO workout_plan
				(name, level, duration_weeks, goal, equipment, est_calories, image_path, is_active)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id, created_at, updated_at;`,
		p.Name, p.Level, p.DurationWeeks, p.Goal, p.Equipment, p.EstCalories, p.ImagePath, p.IsActive,
	)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return nil, ErrPlanExists
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

	if err := rows.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}

	return &p, nil
}

func (r *Repo) GetPlan(ctx context.Context, id int64) (*Plan, error) {
	rows, err := r.db.Query(
		ctx,
		`SELECT id, name, level, duration_weeks, goal, equipment, est_calories, image_path, is_active, created_at, updated_at
			FROM workout_plan WHERE id = $1;`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return onePlan(rows)
}

// GetPlanDetails loads the plan together with its days and
// per-day exercise prescriptions.
func (r *Repo) GetPlanDetails(ctx context.Context, id int64) (*Plan, error) {
	p, err := r.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}

	days, err := r.ListDays(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list days for plan %d: %w", id, err)
	}

	for i := range days {
		prescriptions, err := r.ListDayExercises(ctx, days[i].ID)
		if err != nil {
			return nil, fmt.Errorf("list exercises for day %d: %w", days[i].ID, err)
		}
		days[i].Exercises = prescriptions
	}

	p.Days = days
	return p, nil
}

func (r *Repo) ListPlans(ctx context.Context, params ListPlansParams) ([]Plan, error) {
	query := `SELECT id, name, level, duration_weeks, goal, equipment, est_calories, image_path, is_active, created_at, updated_at
		FROM workout_plan WHERE TRUE`
	args := make([]interface{}, 0)
	argCounter := 1

	if params.ActiveOnly {
		query += " AND is_active = TRUE"
	}
	if params.Level != "" {
		query += fmt.Sprintf(" AND level = $%d", argCounter)
		args = append(args, params.Level)
		argCounter++
	}
	if params.Goal != "" {
		query += fmt.Sprintf(" AND goal = $%d", argCounter)
		args = append(args, params.Goal)
	}

	rows, err := r.db.Query(ctx, query+" ORDER BY name ASC;", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	plans := make([]Plan, 0)
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *p)
	}
	return plans, nil
}

func (r *Repo) UpdatePlan(ctx context.Context, p *Plan) error {
	tag, err := r.db.Exec(
		ctx,
		`UPDATE workout_plan SET
				name = $1, level = $2, duration_weeks = $3, goal = $4, equipment = $5,
				est_calories = $6, image_path = $7, is_active = $8, updated_at = now()
			WHERE id = $9;`,
		p.Name, p.Level, p.DurationWeeks, p.Goal, p.Equipment, p.EstCalories, p.ImagePath, p.IsActive, p.ID,
	)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return ErrPlanExists
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPlanNotFound
	}
	return nil
}

func (r *Repo) DeletePlan(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM workout_plan WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPlanNotFound
	}
	return nil
}

// CountDays returns the number of days in a plan. Counted live on
// purpose: plan edits change the progress denominator for everyone
// already enrolled.
func (r *Repo) CountDays(ctx context.Context, planID int64) (int, error) {
	var count int
	err := r.db.
		QueryRow(ctx, `SELECT COUNT(*) FROM workout_day WHERE workout_plan_id = $1;`, planID).
		Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *Repo) AddDay(ctx context.Context, d Day) (*Day, error) {
	rows, err := r.db.Query(
		ctx,
		`INSERT INTO workout_day (workout_plan_id, day_number, name)
				VALUES ($1, $2, $3)
			RETURNING id;`,
		d.WorkoutPlanID, d.DayNumber, d.Name,
	)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return nil, ErrDayExists
		}
		if pkg.IsForeignKeyViolationError(err) {
			return nil, ErrPlanNotFound
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

	if err := rows.Scan(&d.ID); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}

	return &d, nil
}

func (r *Repo) GetDay(ctx context.Context, id int64) (*Day, error) {
	rows, err := r.db.Query(
		ctx,
		`SELECT id, workout_plan_id, day_number, name FROM workout_day WHERE id = $1;`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !rows.Next() {
		return nil, ErrDayNotFound
	}

	var d Day
	if err := rows.Scan(&d.ID, &d.WorkoutPlanID, &d.DayNumber, &d.Name); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *Repo) ListDays(ctx context.Context, planID int64) ([]Day, error) {
	rows, err := r.db.Query(
		ctx,
		`SELECT id, workout_plan_id, day_number, name
			FROM workout_day WHERE workout_plan_id = $1 ORDER BY day_number ASC;`,
		planID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	days := make([]Day, 0)
	for rows.Next() {
		var d Day
		if err := rows.Scan(&d.ID, &d.WorkoutPlanID, &d.DayNumber, &d.Name); err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, nil
}

func (r *Repo) DeleteDay(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM workout_day WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDayNotFound
	}
	return nil
}

func (r *Repo) AddDayExercise(ctx context.Context, de DayExercise) (*DayExercise, error) {
	rows, err := r.db.Query(
		ctx,
		`INSERT INTO workout_day_exercise (workout_day_id, exercise_id, sets, reps, rest_time)
				VALUES ($1, $2, $3, $4, $5)
			RETURNING id;`,
		de.WorkoutDayID, de.ExerciseID, de.Sets, de.Reps, de.RestTime,
	)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return nil, ErrExerciseInDay
		}
		if pkg.IsForeignKeyViolationError(err) {
			return nil, ErrDayNotFound
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

	if err := rows.Scan(&de.ID); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}

	return &de, nil
}

func (r *Repo) ListDayExercises(ctx context.Context, dayID int64) ([]DayExercise, error) {
	rows, err := r.db.Query(
		ctx,
		`SELECT wde.id, wde.workout_day_id, wde.exercise_id, e.name, wde.sets, wde.reps, wde.rest_time
			FROM workout_day_exercise wde
			JOIN exercise e ON e.id = wde.exercise_id
			WHERE wde.workout_day_id = $1
			ORDER BY wde.id ASC;`,
		dayID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	prescriptions := make([]DayExercise, 0)
	for rows.Next() {
		var de DayExercise
		if err := rows.Scan(
			&de.ID, &de.WorkoutDayID, &de.ExerciseID, &de.ExerciseName,
			&de.Sets, &de.Reps, &de.RestTime,
		); err != nil {
			return nil, err
		}
		prescriptions = append(prescriptions, de)
	}
	return prescriptions, nil
}

func (r *Repo) RemoveDayExercise(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM workout_day_exercise WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPrescriptionMissing
	}
	return nil
}

func onePlan(rows pgx.Rows) (*Plan, error) {
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !rows.Next() {
		return nil, ErrPlanNotFound
	}
	return scanPlan(rows)
}

func scanPlan(rows pgx.Rows) (*Plan, error) {
	var p Plan
	if err := rows.Scan(
		&p.ID, &p.Name, &p.Level, &p.DurationWeeks, &p.Goal, &p.Equipment,
		&p.EstCalories, &p.ImagePath, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}
