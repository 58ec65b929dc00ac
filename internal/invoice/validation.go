package invoice

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"invoicer/internal/logger"
	"invoicer/pkg/models"
)

// Checker inspects an invoice for problems worth showing to the user.
// It never modifies the invoice.
type Checker struct {
	log zerolog.Logger
}

// NewChecker creates a new invoice checker
func NewChecker() *Checker {
	return &Checker{
		log: logger.WithComponent("invoice-check"),
	}
}

// Warning is one finding. Field is a dotted edit path when the problem is
// tied to a single field.
type Warning struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// CheckResult contains the warnings and whether stored totals disagree with
// a fresh recalculation.
type CheckResult struct {
	Warnings      []Warning `json:"warnings"`
	StaleTotals   bool      `json:"staleTotals"`
	ExpectedTotal string    `json:"expectedTotal"`
}

// OK reports whether no warnings were found.
func (r *CheckResult) OK() bool {
	return len(r.Warnings) == 0
}

// Check runs all checks on inv.
func (c *Checker) Check(inv *models.Invoice) *CheckResult {
	result := &CheckResult{Warnings: []Warning{}}

	c.checkTotals(inv, result)
	c.checkParties(inv, result)
	c.checkItems(inv, result)
	c.checkReverseCharge(inv, result)
	c.checkDates(inv, result)

	c.log.Debug().
		Str("invoice_id", inv.ID).
		Int("warnings", len(result.Warnings)).
		Bool("stale_totals", result.StaleTotals).
		Msg("Invoice check completed")

	return result
}

// checkTotals compares stored aggregates with a recalculated copy
func (c *Checker) checkTotals(inv *models.Invoice, result *CheckResult) {
	fresh := Recalculate(inv.Clone())
	result.ExpectedTotal = fresh.Total.String()

	if !fresh.Subtotal.Equal(inv.Subtotal) || !fresh.VATAmount.Equal(inv.VATAmount) || !fresh.Total.Equal(inv.Total) {
		result.StaleTotals = true
		result.Warnings = append(result.Warnings, Warning{
			Field: "total",
			Message: fmt.Sprintf("stored totals are out of date: total %s, recalculated %s",
				inv.Total.Format2(), fresh.Total.Format2()),
		})
		c.log.Warn().
			Str("stored_total", inv.Total.String()).
			Str("expected_total", fresh.Total.String()).
			Msg("Stale invoice totals detected")
	}

	if fresh.Total.IsNegative() {
		result.Warnings = append(result.Warnings, Warning{Field: "total", Message: "invoice total is negative"})
	}
}

func (c *Checker) checkParties(inv *models.Invoice, result *CheckResult) {
	if inv.Company.Name == "" {
		result.Warnings = append(result.Warnings, Warning{Field: "company.name", Message: "issuer name is empty"})
	}
	if inv.Client.Name == "" {
		result.Warnings = append(result.Warnings, Warning{Field: "client.name", Message: "client name is empty"})
	}
	if inv.Details.InvoiceNumber == "" {
		result.Warnings = append(result.Warnings, Warning{Field: "details.invoiceNumber", Message: "invoice number is empty"})
	}
}

func (c *Checker) checkItems(inv *models.Invoice, result *CheckResult) {
	if len(inv.Services) == 0 {
		result.Warnings = append(result.Warnings, Warning{Field: "services", Message: "invoice has no line items"})
		return
	}
	for _, item := range inv.Services {
		if item.Quantity.IsZero() {
			result.Warnings = append(result.Warnings, Warning{
				Field:   "services." + item.ID + ".quantity",
				Message: fmt.Sprintf("line item %q has zero quantity", item.Description),
			})
		}
		if item.Description == "" {
			result.Warnings = append(result.Warnings, Warning{
				Field:   "services." + item.ID + ".description",
				Message: "line item has no description",
			})
		}
	}
}

func (c *Checker) checkReverseCharge(inv *models.Invoice, result *CheckResult) {
	if !inv.ReverseCharge.Applicable {
		return
	}
	if inv.ReverseCharge.CustomerVAT == "" && inv.Client.VATID == "" {
		result.Warnings = append(result.Warnings, Warning{
			Field:   "reverseCharge.customerVAT",
			Message: "reverse charge applies but the customer VAT id is missing",
		})
	}
}

// Date fields are display-only, so malformed values are reported, not rejected.
func (c *Checker) checkDates(inv *models.Invoice, result *CheckResult) {
	fields := []struct {
		path  string
		value string
	}{
		{"details.invoiceDate", inv.Details.InvoiceDate},
		{"details.servicePeriodStart", inv.Details.ServicePeriodStart},
		{"details.servicePeriodEnd", inv.Details.ServicePeriodEnd},
	}
	parsed := map[string]time.Time{}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		t, ok := ParseDate(f.value)
		if !ok {
			result.Warnings = append(result.Warnings, Warning{
				Field:   f.path,
				Message: fmt.Sprintf("%q is not a YYYY-MM-DD date", f.value),
			})
			continue
		}
		parsed[f.path] = t
	}

	start, okStart := parsed["details.servicePeriodStart"]
	end, okEnd := parsed["details.servicePeriodEnd"]
	if okStart && okEnd && end.Before(start) {
		result.Warnings = append(result.Warnings, Warning{
			Field:   "details.servicePeriodEnd",
			Message: "service period ends before it starts",
		})
	}
}
