package invoice

import (
	"fmt"
	"time"

	"invoicer/pkg/models"
)

// Default reverse-charge notices printed when reverse charge applies.
const (
	DefaultArticle44Text = "Place of supply is the recipient's country according to Article 44 of Council Directive 2006/112/EC."
	DefaultArticle13Text = "Reverse charge: the recipient is liable for VAT (§13b UStG / Article 196 of Council Directive 2006/112/EC)."
)

// Seed carries the configurable defaults for a blank invoice.
type Seed struct {
	Today            time.Time
	VATRate          models.Amount
	Currency         string
	PaymentDays      int
	PeriodLengthDays int
	NewID            func() string
}

// NewDefault returns a blank, already recalculated invoice with one empty
// line item. The invoice number is left empty; callers assign one.
func NewDefault(seed Seed) *models.Invoice {
	today := seed.Today
	if today.IsZero() {
		today = time.Now()
	}
	period := seed.PeriodLengthDays
	if period <= 0 {
		period = DefaultPeriodLengthDays
	}

	inv := &models.Invoice{
		ID: seed.NewID(),
		Details: models.Details{
			InvoiceDate:        FormatDate(today),
			ServicePeriodStart: FormatDate(today),
			ServicePeriodEnd:   FormatDate(today.AddDate(0, 0, period)),
		},
		Services: []models.LineItem{
			{ID: seed.NewID(), Quantity: models.NewAmountFromInt(1)},
		},
		Payment: models.Payment{
			Currency: seed.Currency,
			DueDays:  seed.PaymentDays,
			Terms:    paymentTerms(seed.PaymentDays),
		},
		ReverseCharge: models.ReverseCharge{
			Article44Text: DefaultArticle44Text,
			Article13Text: DefaultArticle13Text,
		},
		VATRate: seed.VATRate,
	}
	return Recalculate(inv)
}

func paymentTerms(days int) string {
	if days <= 0 {
		return "Payable immediately without deduction."
	}
	return fmt.Sprintf("Payable within %d days without deduction.", days)
}

// FormatDate renders t as a calendar date.
func FormatDate(t time.Time) string {
	return t.Format(models.DateLayout)
}
