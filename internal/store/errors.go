package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	sqlite3 "github.com/mattn/go-sqlite3"
)

// Common store error types
var (
	// ErrNotFound is returned when a row is not found
	ErrNotFound = errors.New("record not found")

	// ErrUniqueViolation is returned when a unique constraint is violated
	ErrUniqueViolation = errors.New("unique constraint violation")

	// ErrForeignKeyViolation is returned when a foreign key constraint is violated
	ErrForeignKeyViolation = errors.New("foreign key constraint violation")

	// ErrNotNullViolation is returned when a NOT NULL constraint is violated
	ErrNotNullViolation = errors.New("not null constraint violation")
)

// ValidationErrors contains per-field constraint failures surfaced by the
// persistence engine. The web layer renders each entry as one error object
// pointing at /data/attributes/{field}.
type ValidationErrors struct {
	Fields map[string][]string
}

// NewValidationErrors creates an empty ValidationErrors instance
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Fields: make(map[string][]string),
	}
}

// Add adds a validation error for a specific field
func (ve *ValidationErrors) Add(field, message string) {
	if ve.Fields == nil {
		ve.Fields = make(map[string][]string)
	}
	ve.Fields[field] = append(ve.Fields[field], message)
}

// HasErrors returns true if there are any validation errors
func (ve *ValidationErrors) HasErrors() bool {
	return len(ve.Fields) > 0
}

// Error implements the error interface
func (ve *ValidationErrors) Error() string {
	if !ve.HasErrors() {
		return "validation failed"
	}

	var messages []string
	for field, errs := range ve.Fields {
		for _, msg := range errs {
			messages = append(messages, fmt.Sprintf("%s: %s", field, msg))
		}
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// ConvertDBError converts driver-specific errors to store errors. Constraint
// violations carrying a column name become ValidationErrors so the handler
// layer can point at the offending attribute.
func ConvertDBError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	// PostgreSQL via pgx
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return ErrUniqueViolation
		case "23503": // foreign_key_violation
			return ErrForeignKeyViolation
		case "23502": // not_null_violation
			if pgErr.ColumnName != "" {
				ve := NewValidationErrors()
				ve.Add(pgErr.ColumnName, "must not be null")
				return ve
			}
			return ErrNotNullViolation
		}
	}

	// PostgreSQL via lib/pq
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return ErrUniqueViolation
		case "23503":
			return ErrForeignKeyViolation
		case "23502":
			if pqErr.Column != "" {
				ve := NewValidationErrors()
				ve.Add(pqErr.Column, "must not be null")
				return ve
			}
			return ErrNotNullViolation
		}
	}

	// SQLite via mattn/go-sqlite3
	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) {
		switch sqErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return ErrUniqueViolation
		case sqlite3.ErrConstraintForeignKey:
			return ErrForeignKeyViolation
		case sqlite3.ErrConstraintNotNull:
			return ErrNotNullViolation
		}
	}

	return err
}

// IsNotFound returns true if the error is ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation returns the ValidationErrors wrapped in err, if any
func IsValidation(err error) (*ValidationErrors, bool) {
	var ve *ValidationErrors
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
