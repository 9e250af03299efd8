package core

import (
	"errors"
	"fmt"
)

// Domain sentinel errors. Wrapped errors carry context; callers classify
// with errors.Is or the helpers below.
var (
	// ErrEmptyID indicates an identifier was empty when one was required.
	ErrEmptyID = errors.New("identifier is empty")

	// ErrMalformedID indicates an identifier failed to parse.
	ErrMalformedID = errors.New("identifier is malformed")

	// ErrRunNotFound indicates a requested run does not exist.
	ErrRunNotFound = errors.New("run not found")

	// ErrArtifactNotFound indicates a requested artifact does not exist.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrInputShape indicates an input table does not match the declared
	// cohort dimensions.
	ErrInputShape = errors.New("input shape mismatch")

	// ErrConfiguration indicates an invalid or inconsistent pipeline
	// configuration.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrNumericDegeneracy indicates a numerically degenerate condition
	// such as non-finite values or a failed factorization.
	ErrNumericDegeneracy = errors.New("numeric degeneracy")

	// ErrPersistence indicates an artifact or record could not be stored.
	ErrPersistence = errors.New("persistence failed")
)

// ShapeError creates an input-shape error describing actual versus
// declared dimensions.
func ShapeError(gotRows, gotCols, wantRows, wantCols int) error {
	return fmt.Errorf("%w: got %dx%d, declared %dx%d",
		ErrInputShape, gotRows, gotCols, wantRows, wantCols)
}

// ConfigError creates a configuration error for a named field.
func ConfigError(field, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrConfiguration, field, reason)
}

// DegeneracyError creates a numeric-degeneracy error with detail.
func DegeneracyError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNumericDegeneracy, fmt.Sprintf(format, args...))
}

// PersistenceError wraps a storage failure for a given artifact key.
func PersistenceError(key string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, key, cause)
}

// IsShapeError checks if an error is an input-shape error.
func IsShapeError(err error) bool {
	return errors.Is(err, ErrInputShape)
}

// IsConfigError checks if an error is a configuration error.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsDegeneracyError checks if an error is a numeric-degeneracy error.
func IsDegeneracyError(err error) bool {
	return errors.Is(err, ErrNumericDegeneracy)
}

// IsPersistenceError checks if an error is a persistence error.
func IsPersistenceError(err error) bool {
	return errors.Is(err, ErrPersistence)
}

// IsNotFound checks if an error indicates a missing run or artifact.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRunNotFound) || errors.Is(err, ErrArtifactNotFound)
}
