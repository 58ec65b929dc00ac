// Package invoice implements the invoice calculation engine, the field-level
// edit operations built on it, and derivation of new invoices from templates.
//
// Calculation rules:
//   - Every line item amount is quantity * unitPrice.
//   - The subtotal is the sum of item amounts.
//   - VAT is subtotal * vatRate / 100, or zero when reverse charge applies.
//   - The total is subtotal + VAT.
//
// All arithmetic is exact decimal. Non-numeric input is coerced to zero at the
// edges (JSON decoding, edit values) so no operation can yield NaN.
//
// Every mutating operation in this package ends with Recalculate, so derived
// fields are never stale after a call returns.
package invoice

import (
	"time"

	"github.com/google/uuid"
	"invoicer/pkg/models"
)

// NewID returns a random opaque identifier for invoices, items and templates.
func NewID() string {
	return uuid.NewString()
}

// ParseDate parses a YYYY-MM-DD date. The boolean is false for malformed input.
func ParseDate(s string) (time.Time, bool) {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
