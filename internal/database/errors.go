package database

import (
	"database/sql"
	"errors"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when a chart or run does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when a chart for the same date, time and
	// zi rule is already stored.
	ErrDuplicate = errors.New("duplicate record")

	// ErrSchemaMissing is returned by Health when migrations have not run.
	ErrSchemaMissing = errors.New("schema missing")
)

// IsNotFound checks if an error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, sql.ErrNoRows)
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
