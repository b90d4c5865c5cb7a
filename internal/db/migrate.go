package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS app_user (
	id				BIGSERIAL PRIMARY KEY,
	email			TEXT NOT NULL UNIQUE,
	password_hash	TEXT NOT NULL,
	role			TEXT NOT NULL DEFAULT 'user',
	name			TEXT NOT NULL DEFAULT '',
	height_cm		REAL,
	weight_kg		REAL,
	fitness_goal	TEXT NOT NULL DEFAULT '',
	fitness_level	TEXT NOT NULL DEFAULT '',
	created_at		TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_login_at	TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS settings (
	id						INT PRIMARY KEY CHECK (id = 1),
	platform_name			TEXT NOT NULL DEFAULT 'FitTrack',
	default_role			TEXT NOT NULL DEFAULT 'user',
	registration_allowed	BOOLEAN NOT NULL DEFAULT TRUE,
	maintenance_mode		BOOLEAN NOT NULL DEFAULT FALSE
);
INSERT INTO settings (id) VALUES (1) ON CONFLICT (id) DO NOTHING;

CREATE TABLE IF NOT EXISTS exercise (
	id						BIGSERIAL PRIMARY KEY,
	name					TEXT NOT NULL UNIQUE,
	muscle_groups			TEXT[] NOT NULL DEFAULT '{}',
	difficulty				TEXT NOT NULL DEFAULT '',
	instructions			TEXT NOT NULL DEFAULT '',
	equipment				TEXT[] NOT NULL DEFAULT '{}',
	image_path				TEXT NOT NULL DEFAULT '',
	video_path				TEXT NOT NULL DEFAULT '',
	est_calories			INT NOT NULL DEFAULT 0,
	est_duration_seconds	INT NOT NULL DEFAULT 0,
	is_active				BOOLEAN NOT NULL DEFAULT TRUE,
	created_at				TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS workout_plan (
	id				BIGSERIAL PRIMARY KEY,
	name			TEXT NOT NULL UNIQUE,
	level			TEXT NOT NULL DEFAULT '',
	duration_weeks	INT NOT NULL DEFAULT 0,
	goal			TEXT NOT NULL DEFAULT '',
	equipment		TEXT[] NOT NULL DEFAULT '{}',
	est_calories	INT NOT NULL DEFAULT 0,
	image_path		TEXT NOT NULL DEFAULT '',
	is_active		BOOLEAN NOT NULL DEFAULT TRUE,
	created_at		TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at		TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS workout_day (
	id				BIGSERIAL PRIMARY KEY,
	workout_plan_id	BIGINT NOT NULL REFERENCES workout_plan(id) ON DELETE CASCADE,
	day_number		INT NOT NULL,
	name			TEXT NOT NULL DEFAULT '',
	UNIQUE (workout_plan_id, day_number)
);

CREATE TABLE IF NOT EXISTS workout_day_exercise (
	id				BIGSERIAL PRIMARY KEY,
	workout_day_id	BIGINT NOT NULL REFERENCES workout_day(id) ON DELETE CASCADE,
	exercise_id		BIGINT NOT NULL REFERENCES exercise(id) ON DELETE CASCADE,
	sets			INT NOT NULL DEFAULT 3,
	reps			INT NOT NULL DEFAULT 10,
	rest_time		INT NOT NULL DEFAULT 60,
	UNIQUE (workout_day_id, exercise_id)
);

CREATE TABLE IF NOT EXISTS user_workout (
	id					BIGSERIAL PRIMARY KEY,
	user_id				BIGINT NOT NULL REFERENCES app_user(id) ON DELETE CASCADE,
	workout_plan_id		BIGINT NOT NULL REFERENCES workout_plan(id) ON DELETE CASCADE,
	progress			REAL NOT NULL DEFAULT 0,
	current_day			INT NOT NULL DEFAULT 1,
	is_active			BOOLEAN NOT NULL DEFAULT TRUE,
	completed_workouts	INT NOT NULL DEFAULT 0,
	last_completed_at	TIMESTAMPTZ,
	created_at			TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at			TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (user_id, workout_plan_id)
);

CREATE TABLE IF NOT EXISTS user_workout_history (
	id				BIGSERIAL PRIMARY KEY,
	user_workout_id	BIGINT NOT NULL REFERENCES user_workout(id) ON DELETE CASCADE,
	workout_day_id	BIGINT NOT NULL REFERENCES workout_day(id) ON DELETE CASCADE,
	completed		BOOLEAN NOT NULL DEFAULT TRUE,
	duration		INT NOT NULL DEFAULT 0,
	calories_burned	INT NOT NULL DEFAULT 0,
	completed_at	TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS workout_schedule (
	id					BIGSERIAL PRIMARY KEY,
	user_id				BIGINT NOT NULL REFERENCES app_user(id) ON DELETE CASCADE,
	user_workout_id		BIGINT NOT NULL REFERENCES user_workout(id) ON DELETE CASCADE,
	workout_day_id		BIGINT NOT NULL REFERENCES workout_day(id) ON DELETE CASCADE,
	scheduled_date		DATE NOT NULL,
	scheduled_time		TEXT NOT NULL,
	reminder_enabled	BOOLEAN NOT NULL DEFAULT FALSE,
	status				TEXT NOT NULL DEFAULT 'scheduled',
	created_at			TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS notification (
	id				BIGSERIAL PRIMARY KEY,
	user_id			BIGINT REFERENCES app_user(id) ON DELETE CASCADE,
	audience		TEXT NOT NULL DEFAULT 'user',
	title			TEXT NOT NULL,
	message			TEXT NOT NULL,
	type			TEXT NOT NULL DEFAULT '',
	read			BOOLEAN NOT NULL DEFAULT FALSE,
	related_id		BIGINT,
	related_type	TEXT,
	created_at		TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS notification_milestone (
	user_id				BIGINT PRIMARY KEY REFERENCES app_user(id) ON DELETE CASCADE,
	highest_milestone	INT NOT NULL DEFAULT 0,
	updated_at			TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Migrate ensures tables exist. Call once at startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}
