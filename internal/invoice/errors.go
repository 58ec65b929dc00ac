package invoice

import (
	"errors"
	"fmt"
)

// Common invoice editing errors
var (
	// ErrUnknownField is returned when an edit path does not name an editable field.
	ErrUnknownField = errors.New("unknown invoice field")

	// ErrItemNotFound is returned when an edit targets a line item id that does not exist.
	ErrItemNotFound = errors.New("line item not found")

	// ErrInvalidValue is returned when a non-coercible value is given to a
	// field with a closed set of values (e.g. a boolean flag).
	ErrInvalidValue = errors.New("invalid field value")

	// ErrNilTemplate is returned when template derivation is given no template.
	ErrNilTemplate = errors.New("template is nil")

	// ErrNumbering is returned when a fresh invoice number could not be issued.
	ErrNumbering = errors.New("invoice number could not be issued")
)

// EditError wraps errors with the operation and field path that failed.
type EditError struct {
	// Op is the operation that failed (e.g., "ApplyEdit", "RemoveItem").
	Op string

	// Path is the dotted field path or item id the operation targeted.
	Path string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *EditError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("invoice: %s %q: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("invoice: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *EditError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *EditError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewEditError creates a new EditError with the specified operation, path and underlying error.
func NewEditError(op, path string, err error) *EditError {
	return &EditError{
		Op:   op,
		Path: path,
		Err:  err,
	}
}
