package reporting

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) PlanAddedEvents(ctx context.Context, since time.Time) ([]Activity, error) {
	rows, err := r.db.Query(
		ctx,
		`SELECT u.name, wp.name, uw.created_at
			FROM user_workout uw
			JOIN app_user u ON u.id = uw.user_id
			JOIN workout_plan wp ON wp.id = uw.workout_plan_id
			WHERE uw.created_at >= $1;`,
		since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanActivities(rows, ActivityPlanAdded)
}

func (r *Repo) PlanCreatedEvents(ctx context.Context, since time.Time) ([]Activity, error) {
	rows, err := r.db.Query(
		ctx,
		`SELECT '', name, created_at FROM workout_plan WHERE created_at >= $1;`,
		since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanActivities(rows, ActivityPlanCreated)
}

func (r *Repo) PlanCompletedEvents(ctx context.Context, since time.Time) ([]Activity, error) {
	rows, err := r.db.Query(
		ctx,
		`SELECT u.name, wp.name, uw.updated_at
			FROM user_workout uw
			JOIN app_user u ON u.id = uw.user_id
			JOIN workout_plan wp ON wp.id = uw.workout_plan_id
			WHERE uw.progress >= 100 AND uw.is_active = FALSE AND uw.updated_at >= $1;`,
		since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanActivities(rows, ActivityPlanCompleted)
}

func (r *Repo) PlanRestartedEvents(ctx context.Context, since time.Time) ([]Activity, error) {
	rows, err := r.db.Query(
		ctx,
		`SELECT u.name, wp.name, uw.updated_at
			FROM user_workout uw
			JOIN app_user u ON u.id = uw.user_id
			JOIN workout_plan wp ON wp.id = uw.workout_plan_id
			WHERE uw.is_active = TRUE AND uw.progress = 0 AND uw.completed_workouts = 0
				AND uw.updated_at <> uw.created_at AND uw.updated_at >= $1;`,
		since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanActivities(rows, ActivityPlanRestarted)
}

// UserCreatedAts returns registration times ordered ascending, for
// the growth curve.
func (r *Repo) UserCreatedAts(ctx context.Context) ([]time.Time, error) {
	rows, err := r.db.Query(ctx, `SELECT created_at FROM app_user ORDER BY created_at ASC;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	createdAts := make([]time.Time, 0)
	for rows.Next() {
		var createdAt time.Time
		if err := rows.Scan(&createdAt); err != nil {
			return nil, err
		}
		createdAts = append(createdAts, createdAt)
	}
	return createdAts, nil
}

// PlanPopularity counts enrollments per plan, total and since the
// given time. Trend is left for the service.
func (r *Repo) PlanPopularity(ctx context.Context, recentSince time.Time) ([]PlanPopularity, error) {
	rows, err := r.db.Query(
		ctx,
		`SELECT wp.id, wp.name,
				COUNT(uw.id),
				COUNT(uw.id) FILTER (WHERE uw.created_at >= $1)
			FROM workout_plan wp
			LEFT JOIN user_workout uw ON uw.workout_plan_id = wp.id
			GROUP BY wp.id, wp.name
			ORDER BY COUNT(uw.id) DESC, wp.name ASC;`,
		recentSince,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	rankings := make([]PlanPopularity, 0)
	for rows.Next() {
		var p PlanPopularity
		if err := rows.Scan(&p.WorkoutPlanID, &p.Name, &p.Enrollments, &p.RecentWeek); err != nil {
			return nil, err
		}
		rankings = append(rankings, p)
	}
	return rankings, nil
}

func scanActivities(rows pgx.Rows, kind string) ([]Activity, error) {
	if err := rows.Err(); err != nil {
		return nil, err
	}

	activities := make([]Activity, 0)
	for rows.Next() {
		a := Activity{Kind: kind}
		if err := rows.Scan(&a.UserName, &a.PlanName, &a.OccurredAt); err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, nil
}
