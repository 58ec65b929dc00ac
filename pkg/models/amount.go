package models

import (
	"bytes"
	"encoding/json"
	"math"
	"regexp"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/shopspring/decimal"
)

// groupedThousands matches a comma that can only be a thousands separator
// ("1,000", "12,500,000"), which a lone decimal comma cannot be told apart from.
var groupedThousands = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+$`)

// Amount is an exact decimal used for quantities, prices, rates and money.
//
// The zero value is 0. Construction never fails: non-numeric input, NaN and
// infinities all collapse to 0 so a malformed field can never poison a total.
type Amount struct {
	d decimal.Decimal
}

// NewAmount converts a float. NaN and ±Inf become 0.
func NewAmount(v float64) Amount {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Amount{}
	}
	return Amount{d: decimal.NewFromFloat(v)}
}

// NewAmountFromInt converts an integer.
func NewAmountFromInt(v int64) Amount {
	return Amount{d: decimal.NewFromInt(v)}
}

// AmountFromDecimal wraps an existing decimal.
func AmountFromDecimal(d decimal.Decimal) Amount {
	return Amount{d: d}
}

// ParseAmount parses user input. Blank or non-numeric text yields 0.
// A lone decimal comma ("12,5") is accepted as a decimal point. Text that
// reads as comma-grouped thousands ("1,000") is ambiguous and yields 0.
func ParseAmount(s string) Amount {
	s = strings.TrimSpace(s)
	if s == "" || groupedThousands.MatchString(s) {
		return Amount{}
	}
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}
	}
	return Amount{d: d}
}

// SumAmounts adds the values in order.
func SumAmounts(values ...Amount) Amount {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v.d)
	}
	return Amount{d: total}
}

func (a Amount) Add(b Amount) Amount { return Amount{d: a.d.Add(b.d)} }
func (a Amount) Sub(b Amount) Amount { return Amount{d: a.d.Sub(b.d)} }
func (a Amount) Mul(b Amount) Amount { return Amount{d: a.d.Mul(b.d)} }

// Percent returns a * rate / 100.
func (a Amount) Percent(rate Amount) Amount {
	return Amount{d: a.d.Mul(rate.d).Shift(-2)}
}

func (a Amount) Equal(b Amount) bool      { return a.d.Equal(b.d) }
func (a Amount) Cmp(b Amount) int         { return a.d.Cmp(b.d) }
func (a Amount) IsZero() bool             { return a.d.IsZero() }
func (a Amount) IsNegative() bool         { return a.d.IsNegative() }
func (a Amount) Decimal() decimal.Decimal { return a.d }

// Float64 is lossy and meant for logging only.
func (a Amount) Float64() float64 {
	f, _ := a.d.Float64()
	return f
}

// String renders the exact value without trailing zeros.
func (a Amount) String() string { return a.d.String() }

// Format2 renders the value rounded to two fraction digits for display.
func (a Amount) Format2() string { return a.d.StringFixed(2) }

// MarshalJSON writes a bare JSON number.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.d.String()), nil
}

// UnmarshalJSON accepts numbers and numeric strings. Anything else
// (null, booleans, free text, objects) decodes to 0 instead of failing.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*a = Amount{}
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*a = Amount{}
			return nil
		}
		*a = ParseAmount(s)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		*a = ParseAmount(string(data))
	default:
		*a = Amount{}
	}
	return nil
}

// JSONSchema describes Amount as a plain number.
func (Amount) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "number"}
}
