package settings

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrSettingsNotFound = errors.New("settings row not found")

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Get(ctx context.Context) (*Settings, error) {
	rows, err := r.db.Query(
		ctx,
		`SELECT platform_name, default_role, registration_allowed, maintenance_mode FROM settings WHERE id = 1;`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, ErrSettingsNotFound
	}

	var s Settings
	if err := rows.Scan(&s.PlatformName, &s.DefaultRole, &s.RegistrationAllowed, &s.MaintenanceMode); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repo) Update(ctx context.Context, s *Settings) error {
	tag, err := r.db.Exec(
		ctx,
		`UPDATE settings SET platform_name = $1, default_role = $2, registration_allowed = $3, maintenance_mode = $4 WHERE id = 1;`,
		s.PlatformName, s.DefaultRole, s.RegistrationAllowed, s.MaintenanceMode,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSettingsNotFound
	}
	return nil
}
