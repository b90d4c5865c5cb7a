package pkg

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// postgres error codes: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgCodeUniqueViolation     = "23505"
	pgCodeForeignKeyViolation = "23503"
)

func isPgErrorCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}

// IsUniqueViolationError reports whether err is a postgres unique
// constraint violation. Repos rely on constraints for dedup instead of
// racing with a pre-insert read, and map these to Conflict.
func IsUniqueViolationError(err error) bool {
	return isPgErrorCode(err, pgCodeUniqueViolation)
}

// IsForeignKeyViolationError reports whether err is a postgres foreign
// key violation, surfaced as a not-found of the referenced row.
func IsForeignKeyViolationError(err error) bool {
	return isPgErrorCode(err, pgCodeForeignKeyViolation)
}
