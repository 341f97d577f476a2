package errors

import (
	"errors"
	"strings"

	"github.com/certolo/certolo-backend/pkg/logger"
	"gorm.io/gorm"
)

// ParsedError carries the classification of a database error.
type ParsedError struct {
	Code    string
	Message string
}

// ParseDBError translates database driver errors into error codes.
// Works for both Postgres (production) and SQLite (tests) wording.
func ParseDBError(err error) *ParsedError {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &ParsedError{
			Code:    ResourceNotFound,
			Message: "The requested resource was not found",
		}
	}

	errMsg := err.Error()

	if IsUniqueViolation(err) {
		return &ParsedError{
			Code:    ResourceAlreadyExists,
			Message: "A resource with the same value already exists",
		}
	}

	// Postgres: foreign key violation (23503)
	if strings.Contains(errMsg, "violates foreign key constraint") ||
		strings.Contains(errMsg, "FOREIGN KEY constraint failed") {
		return &ParsedError{
			Code:    ResourceConflict,
			Message: "The operation conflicts with related data",
		}
	}

	// Postgres: not-null violation (23502)
	if strings.Contains(errMsg, "violates not-null constraint") ||
		strings.Contains(errMsg, "NOT NULL constraint failed") {
		return &ParsedError{
			Code:    ValidationRequired,
			Message: "A required field is missing",
		}
	}

	return &ParsedError{
		Code:    InternalDatabaseError,
		Message: "A database error occurred",
	}
}

// IsUniqueViolation reports whether err is a unique constraint violation.
// The application number generator relies on this to retry on collisions.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	// Postgres: duplicate key value violates unique constraint (23505)
	// SQLite: UNIQUE constraint failed
	return strings.Contains(errMsg, "duplicate key value violates unique constraint") ||
		strings.Contains(errMsg, "UNIQUE constraint failed") ||
		errors.Is(err, gorm.ErrDuplicatedKey)
}

// IsNotFound reports whether err means the record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// ParseAndRespond classifies err and writes the standard error payload.
// Used as the catch-all at the end of a controller's error handling.
func ParseAndRespond(c interface{ JSON(int, interface{}) }, statusCode int, err error, context string) {
	parsed := ParseDBError(err)
	if parsed == nil {
		parsed = &ParsedError{Code: InternalServerError, Message: "An internal error occurred"}
	}
	logger.Error("Request failed: "+context, err, map[string]interface{}{
		"error_code": parsed.Code,
	})
	c.JSON(statusCode, ErrorResponse{
		Error:   parsed.Code,
		Message: parsed.Message,
	})
}
