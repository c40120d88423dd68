package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when a product does not exist in the store.
	ErrNotFound = errors.New("product not found")

	// ErrProductExists is returned when attempting to create a product that already exists.
	ErrProductExists = errors.New("product already exists")
)

// ValidationError reports malformed input. Fields maps a field name to the
// rule it broke.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed: " + e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	msg := strings.Join(parts, ", ")
	if e.Message != "" {
		msg = e.Message + ": " + msg
	}
	return "validation failed: " + msg
}

// PersistenceError wraps a store read or write failure.
type PersistenceError struct {
	Op  string
	ID  string
	Err error
}

func (e *PersistenceError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.ID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
