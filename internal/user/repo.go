package user

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
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user with that email already exists")
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, u User) (*User, error) {
	rows, err := r.db.Query(
		ctx,
		`INSERT INTO app_user
				(email, password_hash, role, name, height_cm, weight_kg, fitness_goal, fitness_level, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id;`,
		u.Email, u.PasswordHash, u.Role, u.Name, u.HeightCm, u.WeightKg, u.FitnessGoal, u.FitnessLevel, u.CreatedAt,
	)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return nil, ErrUserExists
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

	if err := rows.Scan(&u.ID); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}

	return &u, nil
}

func (r *Repo) Get(ctx context.Context, id int64) (*User, error) {
	rows, err := r.db.Query(
		ctx,
		`SELECT id, email, password_hash, role, name, height_cm, weight_kg, fitness_goal, fitness_level, created_at, last_login_at
			FROM app_user WHERE id = $1;`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return oneUser(rows)
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (*User, error) {
	rows, err := r.db.Query(
		ctx,
		`SELECT id, email, password_hash, role, name, height_cm, weight_kg, fitness_goal, fitness_level, created_at, last_login_at
			FROM app_user WHERE email = $1;`,
		email,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return oneUser(rows)
}

func (r *Repo) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.Query(
		ctx,
		`SELECT id, email, password_hash, role, name, height_cm, weight_kg, fitness_goal, fitness_level, created_at, last_login_at
			FROM app_user ORDER BY created_at DESC;`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	users := make([]User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, nil
}

func (r *Repo) UpdateProfile(ctx context.Context, u *User) error {
	tag, err := r.db.Exec(
		ctx,
		`UPDATE app_user SET name = $1, height_cm = $2, weight_kg = $3, fitness_goal = $4, fitness_level = $5 WHERE id = $6;`,
		u.Name, u.HeightCm, u.WeightKg, u.FitnessGoal, u.FitnessLevel, u.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *Repo) UpdateRole(ctx context.Context, id int64, role string) error {
	tag, err := r.db.Exec(
		ctx,
		`UPDATE app_user SET role = $1 WHERE id = $2;`,
		role, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *Repo) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.db.Exec(
		ctx,
		`UPDATE app_user SET last_login_at = $1 WHERE id = $2;`,
		at, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM app_user WHERE id = $1;`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func oneUser(rows pgx.Rows) (*User, error) {
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !rows.Next() {
		return nil, ErrUserNotFound
	}
	return scanUser(rows)
}

func scanUser(rows pgx.Rows) (*User, error) {
	var u User
	if err := rows.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.Name,
		&u.HeightCm, &u.WeightKg, &u.FitnessGoal, &u.FitnessLevel,
		&u.CreatedAt, &u.LastLoginAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}
