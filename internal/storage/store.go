// Package storage provides the key-value persistence the invoice core needs.
//
// Values are stored as JSON blobs under a handful of logical keys. The core
// treats every call as atomic and never retries; a failed write leaves the
// caller's in-memory state authoritative.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// Logical keys used by the invoice core.
const (
	KeyTemplates         = "invoice-templates"
	KeyCurrentInvoice    = "current-invoice"
	KeyLastInvoiceNumber = "last-invoice-number"
)

// AllKeys lists every key the core writes. Clear removes exactly these.
var AllKeys = []string{KeyTemplates, KeyCurrentInvoice, KeyLastInvoiceNumber}

var (
	// ErrMalformed is returned when a stored value cannot be decoded.
	ErrMalformed = errors.New("malformed stored value")

	// ErrUnavailable is returned when the backing store cannot be reached.
	ErrUnavailable = errors.New("storage unavailable")
)

// Store defines the interface for JSON key-value persistence.
// This abstraction allows swapping backends (SQLite, in-memory) without
// changing the services built on it.
type Store interface {
	// GetJSON decodes the value stored under key into v.
	// found is false, with a nil error, when the key is absent.
	GetJSON(ctx context.Context, key string, v any) (found bool, err error)

	// SetJSON encodes v and stores it under key.
	SetJSON(ctx context.Context, key string, v any) error

	// SetJSONBatch stores every entry or none of them.
	SetJSONBatch(ctx context.Context, values map[string]any) error

	// IncrementCounter adds one to the integer counter under key and returns
	// the new value, as a single atomic read-modify-write. An absent or
	// negative counter counts as 0. A non-integer value is ErrMalformed and
	// is left untouched.
	IncrementCounter(ctx context.Context, key string) (int64, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every key in AllKeys.
	Clear(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}

// MalformedError wraps a decode failure with the offending key.
type MalformedError struct {
	Key string
	Err error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("storage: value under %q is malformed: %v", e.Key, e.Err)
}

func (e *MalformedError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrMalformed) match.
func (e *MalformedError) Is(target error) bool { return target == ErrMalformed }
