package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/thvgger/igs-portal/internal/shared"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// MapError translates driver errors into the shared error taxonomy.
// Anything that is not a recognised constraint or missing row is treated as
// the store being unavailable.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, shared.ErrNotFound) || errors.Is(err, shared.ErrDuplicate) ||
		errors.Is(err, shared.ErrStoreUnavailable) || shared.IsValidation(err) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return shared.ErrDuplicate
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %s", shared.ErrNotFound, pgErr.ConstraintName)
		case pgCheckViolation:
			return shared.NewValidationError(constraintField(pgErr), "violates "+pgErr.ConstraintName)
		}
	}
	return shared.StoreError(op, err)
}

func constraintField(pgErr *pgconn.PgError) string {
	if pgErr.ColumnName != "" {
		return pgErr.ColumnName
	}
	if pgErr.ConstraintName != "" {
		return pgErr.ConstraintName
	}
	return "record"
}
