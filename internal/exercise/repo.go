package exercise

import (
	"context"
	"errors"
	"fmt"

	"github.com/fittrack/fittrack/pkg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrExerciseNotFound = errors.New("exercise not found")
	ErrExerciseExists   = errors.New("exercise with that name already exists")
)

// ListParams filters the user-facing catalog listing.
type ListParams struct {
	MuscleGroup string
	ActiveOnly  bool
	Page        int
	Size        int
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, e Exercise) (*Exercise, error) {
	rows, err := r.db.Query(
		ctx,
		`INSERT INTO exercise
				(name, muscle_groups, difficulty, instructions, equipment, image_path, video_path, est_calories, est_duration_seconds, is_active)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id, created_at;`,
		e.Name, e.MuscleGroups, e.Difficulty, e.Instructions, e.Equipment,
		e.ImagePath, e.VideoPath, e.EstCalories, e.EstDurationSeconds, e.IsActive,
	)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return nil, ErrExerciseExists
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

	if err := rows.Scan(&e.ID, &e.CreatedAt); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}

	return &e, nil
}

// GetByName is used by the workout generator to reuse
// exercises that already exist in the catalog.
func (r *Repo) GetByName(ctx context.Context, name string) (*Exercise, error) {
	rows, err := r.db.Query(
		ctx,
		`SELECT id, name, muscle_groups, difficulty, instructions, equipment, image_path, video_path, est_calories, est_duration_seconds, is_active, created_at
			FROM exercise WHERE name = $1;`,
		name,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return oneExercise(rows)
}

func (r *Repo) Get(ctx context.Context, id int64) (*Exercise, error) {
	rows, err := r.db.Query(
		ctx,
		`SELECT id, name, muscle_groups, difficulty, instructions, equipment, image_path, video_path, est_calories, est_duration_seconds, is_active, created_at
			FROM exercise WHERE id = $1;`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return oneExercise(rows)
}

func (r *Repo) List(ctx context.Context, params ListParams) ([]Exercise, error) {
	query := `SELECT id, name, muscle_groups, difficulty, instructions, equipment, image_path, video_path, est_calories, est_duration_seconds, is_active, created_at
		FROM exercise WHERE TRUE`
	args := make([]interface{}, 0)
	argCounter := 1

	if params.ActiveOnly {
		query += " AND is_active = TRUE"
	}
	if params.MuscleGroup != "" {
		query += fmt.Sprintf(" AND $%d = ANY(muscle_groups)", argCounter)
		args = append(args, params.MuscleGroup)
		argCounter++
	}

	query += " ORDER BY name ASC"

	if params.Size > 0 {
		page := params.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCounter, argCounter+1)
		args = append(args, params.Size, (page-1)*params.Size)
	}

	rows, err := r.db.Query(ctx, query+";", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	exercises := make([]Exercise, 0)
	for rows.Next() {
		e, err := scanExercise(rows)
		if err != nil {
			return nil, err
		}
		exercises = append(exercises, *e)
	}
	return exercises, nil
}

func (r *Repo) Update(ctx context.Context, e *Exercise) error {
	tag, err := r.db.Exec(
		ctx,
		`UPDATE exercise SET
				name = $1, muscle_groups = $2, difficulty = $3, instructions = $4,
				equipment = $5, image_path = $6, video_path = $7,
				est_calories = $8, est_duration_seconds = $9, is_active = $10
			WHERE id = $11;`,
		e.Name, e.MuscleGroups, e.Difficulty, e.Instructions, e.Equipment,
		e.ImagePath, e.VideoPath, e.EstCalories, e.EstDurationSeconds, e.IsActive, e.ID,
	)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return ErrExerciseExists
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrExerciseNotFound
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM exercise WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrExerciseNotFound
	}
	return nil
}

func oneExercise(rows pgx.Rows) (*Exercise, error) {
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !rows.Next() {
		return nil, ErrExerciseNotFound
	}
	return scanExercise(rows)
}

func scanExercise(rows pgx.Rows) (*Exercise, error) {
	var e Exercise
	if err := rows.Scan(
		&e.ID, &e.Name, &e.MuscleGroups, &e.Difficulty, &e.Instructions,
		&e.Equipment, &e.ImagePath, &e.VideoPath,
		&e.EstCalories, &e.EstDurationSeconds, &e.IsActive, &e.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &e, nil
}
