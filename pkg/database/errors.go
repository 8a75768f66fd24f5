package database

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Infrastructure facts returned by repositories. Services translate them into domain
// errors.
var (
	ErrNotFound     = errors.New("record not found")
	ErrConflict     = errors.New("unique constraint violated")
	ErrInvalidState = errors.New("record in wrong state")
)

const uniqueViolation = "23505"

// Translate maps driver errors onto the sentinels above, wrapping the original.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if IsUniqueViolation(err) {
		return errors.Join(ErrConflict, err)
	}
	return err
}

// IsUniqueViolation reports whether err is a PostgreSQL unique_violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// ConstraintName returns the violated constraint, if err is a PostgreSQL error.
func ConstraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}
