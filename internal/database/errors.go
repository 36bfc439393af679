package database

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

var (
	// ErrNotFound is returned when no item matches the requested id.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an item name is already taken.
	ErrDuplicate = errors.New("duplicate record")
)

// IsNotFound reports whether err is ErrNotFound or an unwrapped pgx.ErrNoRows.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, pgx.ErrNoRows)
}

// WrapDBError maps driver errors onto ErrNotFound and ErrDuplicate. Other
// errors pass through unchanged.
func WrapDBError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.Detail)
	}
	return err
}
