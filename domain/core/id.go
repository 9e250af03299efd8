package core

import (
	"strings"

	"github.com/google/uuid"
)

// ID is a unique identifier for domain entities.
type ID string

// NewID generates a new time-ordered unique identifier.
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		// Fall back to random UUID if V7 generation fails
		return ID(uuid.New().String())
	}
	return ID(id.String())
}

// String returns the string representation of the ID.
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty.
func (id ID) IsEmpty() bool {
	return len(strings.TrimSpace(string(id))) == 0
}

// RunID identifies a single batch execution over a cohort.
type RunID = ID

// NewRunID generates a new run identifier.
func NewRunID() RunID {
	return NewID()
}

// ParseRunID validates a raw string as a run identifier.
func ParseRunID(raw string) (RunID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrEmptyID
	}
	if _, err := uuid.Parse(trimmed); err != nil {
		return "", ErrMalformedID
	}
	return RunID(trimmed), nil
}
