package invoice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"invoicer/pkg/models"
)

func completeInvoice() *models.Invoice {
	return Recalculate(&models.Invoice{
		ID: "inv",
		Details: models.Details{
			InvoiceNumber:      "CORE-2025-11-13-01",
			InvoiceDate:        "2025-11-13",
			ServicePeriodStart: "2025-11-13",
			ServicePeriodEnd:   "2025-12-13",
		},
		Company:  models.Party{Name: "Issuer"},
		Client:   models.Party{Name: "Client"},
		Services: []models.LineItem{itemOf("a", "2", "100")},
		VATRate:  amt("19"),
	})
}

func warningFields(r *CheckResult) []string {
	var out []string
	for _, w := range r.Warnings {
		out = append(out, w.Field)
	}
	return out
}

func TestChecker_Check(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(inv *models.Invoice)
		want   []string
		stale  bool
	}{
		{
			name:   "complete invoice",
			mutate: func(inv *models.Invoice) {},
		},
		{
			name:   "stale totals",
			mutate: func(inv *models.Invoice) { inv.Total = amt("1") },
			want:   []string{"total"},
			stale:  true,
		},
		{
			name: "missing parties and number",
			mutate: func(inv *models.Invoice) {
				inv.Company.Name = ""
				inv.Client.Name = ""
				inv.Details.InvoiceNumber = ""
			},
			want: []string{"company.name", "client.name", "details.invoiceNumber"},
		},
		{
			name:   "no items",
			mutate: func(inv *models.Invoice) { inv.Services = nil; Recalculate(inv) },
			want:   []string{"services"},
		},
		{
			name: "zero quantity and empty description",
			mutate: func(inv *models.Invoice) {
				inv.Services[0].Quantity = models.Amount{}
				inv.Services[0].Description = ""
				Recalculate(inv)
			},
			want: []string{"services.a.quantity", "services.a.description"},
		},
		{
			name: "reverse charge without customer VAT id",
			mutate: func(inv *models.Invoice) {
				inv.ReverseCharge.Applicable = true
				Recalculate(inv)
			},
			want: []string{"reverseCharge.customerVAT"},
		},
		{
			name: "client VAT id satisfies reverse charge",
			mutate: func(inv *models.Invoice) {
				inv.ReverseCharge.Applicable = true
				inv.Client.VATID = "FR111"
				Recalculate(inv)
			},
		},
		{
			name:   "malformed date",
			mutate: func(inv *models.Invoice) { inv.Details.InvoiceDate = "13.11.2025" },
			want:   []string{"details.invoiceDate"},
		},
		{
			name:   "period ends before it starts",
			mutate: func(inv *models.Invoice) { inv.Details.ServicePeriodEnd = "2025-11-01" },
			want:   []string{"details.servicePeriodEnd"},
		},
		{
			name: "negative total",
			mutate: func(inv *models.Invoice) {
				inv.Services[0].Quantity = amt("-1")
				Recalculate(inv)
			},
			want: []string{"total"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := completeInvoice()
			tt.mutate(inv)
			before := inv.Clone()

			result := NewChecker().Check(inv)

			assert.Equal(t, tt.want, warningFields(result))
			assert.Equal(t, tt.stale, result.StaleTotals)
			assert.Equal(t, len(tt.want) == 0, result.OK())
			assert.Equal(t, before, inv, "Check must not modify the invoice")
		})
	}
}
