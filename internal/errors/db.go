package errors

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// MapDBError maps database errors to AppError instances:
//   - sql.ErrNoRows becomes NotFound
//   - unique constraint violations become Conflict
//   - check and NOT NULL violations become Validation
//   - context deadline/cancellation and everything else becomes Network
//
// The credential store treats the database as a remote collaborator, so
// unrecognized failures surface as Network rather than Internal.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &AppError{
			Code:    ErrCodeNetwork,
			Message: "store request interrupted",
			Cause:   err,
		}
	}

	if errors.Is(err, sql.ErrNoRows) {
		return &AppError{
			Code:    ErrCodeNotFound,
			Message: "record not found",
			Cause:   err,
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return mapPgError(pgErr)
	}

	return &AppError{
		Code:    ErrCodeNetwork,
		Message: "store unavailable",
		Cause:   err,
	}
}

// mapPgError maps PostgreSQL-specific errors to AppError instances.
func mapPgError(pgErr *pgconn.PgError) error {
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return &AppError{
			Code:    ErrCodeConflict,
			Message: "record already exists",
			Cause:   pgErr,
		}
	case pgerrcode.CheckViolation, pgerrcode.NotNullViolation:
		return &AppError{
			Code:    ErrCodeValidation,
			Message: "record rejected by constraint",
			Cause:   pgErr,
		}
	default:
		return &AppError{
			Code:    ErrCodeNetwork,
			Message: "database error",
			Cause:   pgErr,
		}
	}
}
