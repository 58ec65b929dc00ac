package invoice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"invoicer/pkg/models"
)

func editable() *models.Invoice {
	return Recalculate(&models.Invoice{
		ID:       "inv",
		Services: []models.LineItem{itemOf("a", "2", "100"), itemOf("b", "1", "50"), itemOf("c", "1", "10")},
		VATRate:  amt("20"),
	})
}

func TestApplyEdit(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		value string
		check func(t *testing.T, inv *models.Invoice)
	}{
		{
			name: "vat rate recalculates", path: "vatRate", value: "10",
			check: func(t *testing.T, inv *models.Invoice) {
				assert.Equal(t, "26", inv.VATAmount.String())
				assert.Equal(t, "286", inv.Total.String())
			},
		},
		{
			name: "non-numeric vat rate becomes zero", path: "vatRate", value: "abc",
			check: func(t *testing.T, inv *models.Invoice) {
				assert.Equal(t, "0", inv.VATAmount.String())
				assert.Equal(t, "260", inv.Total.String())
			},
		},
		{
			name: "item quantity", path: "services.a.quantity", value: "3",
			check: func(t *testing.T, inv *models.Invoice) {
				assert.Equal(t, "300", inv.Services[0].Amount.String())
				assert.Equal(t, "360", inv.Subtotal.String())
			},
		},
		{
			name: "item unit price with decimal comma", path: "services.b.unitPrice", value: "12,5",
			check: func(t *testing.T, inv *models.Invoice) {
				assert.Equal(t, "12.5", inv.Services[1].Amount.String())
			},
		},
		{
			name: "item description", path: "services.c.description", value: "Hosting",
			check: func(t *testing.T, inv *models.Invoice) {
				assert.Equal(t, "Hosting", inv.Services[2].Description)
			},
		},
		{
			name: "client name", path: "client.name", value: "ACME GmbH",
			check: func(t *testing.T, inv *models.Invoice) {
				assert.Equal(t, "ACME GmbH", inv.Client.Name)
			},
		},
		{
			name: "company vat id", path: "company.vatId", value: "DE123456789",
			check: func(t *testing.T, inv *models.Invoice) {
				assert.Equal(t, "DE123456789", inv.Company.VATID)
			},
		},
		{
			name: "malformed date stored as typed", path: "details.invoiceDate", value: "13.11.2025",
			check: func(t *testing.T, inv *models.Invoice) {
				assert.Equal(t, "13.11.2025", inv.Details.InvoiceDate)
			},
		},
		{
			name: "due days coerced", path: "payment.dueDays", value: "soon",
			check: func(t *testing.T, inv *models.Invoice) {
				assert.Equal(t, 0, inv.Payment.DueDays)
			},
		},
		{
			name: "reverse charge on", path: "reverseCharge.applicable", value: "true",
			check: func(t *testing.T, inv *models.Invoice) {
				assert.True(t, inv.ReverseCharge.Applicable)
				assert.Equal(t, "0", inv.VATAmount.String())
				assert.Equal(t, "260", inv.Total.String())
				assert.Equal(t, "20", inv.VATRate.String())
			},
		},
		{
			name: "customer vat", path: "reverseCharge.customerVAT", value: "ATU1234",
			check: func(t *testing.T, inv *models.Invoice) {
				assert.Equal(t, "ATU1234", inv.ReverseCharge.CustomerVAT)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := editable()
			require.NoError(t, ApplyEdit(inv, tt.path, tt.value))
			tt.check(t, inv)
		})
	}
}

func TestApplyEdit_Errors(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		value   string
		wantErr error
	}{
		{name: "unknown top-level", path: "discount", value: "5", wantErr: ErrUnknownField},
		{name: "unknown party field", path: "client.fax", value: "x", wantErr: ErrUnknownField},
		{name: "nested vat rate", path: "vatRate.x", value: "1", wantErr: ErrUnknownField},
		{name: "total is derived", path: "total", value: "1", wantErr: ErrReadOnlyField},
		{name: "item amount is derived", path: "services.a.amount", value: "1", wantErr: ErrReadOnlyField},
		{name: "unknown item", path: "services.zzz.quantity", value: "1", wantErr: ErrItemNotFound},
		{name: "services without field", path: "services.a", value: "1", wantErr: ErrUnknownField},
		{name: "bad boolean", path: "reverseCharge.applicable", value: "maybe", wantErr: ErrInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := editable()
			before := inv.Clone()

			err := ApplyEdit(inv, tt.path, tt.value)

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			var editErr *EditError
			require.ErrorAs(t, err, &editErr)
			assert.Equal(t, tt.path, editErr.Path)
			assert.Equal(t, before, inv)
		})
	}
}

func TestAddItem(t *testing.T) {
	inv := editable()
	id := AddItem(inv, models.LineItem{Description: "Extra", Quantity: amt("4"), UnitPrice: amt("25")}, func() string { return "new" })

	assert.Equal(t, "new", id)
	require.Len(t, inv.Services, 4)
	assert.Equal(t, "100", inv.Services[3].Amount.String())
	assert.Equal(t, "360", inv.Subtotal.String())

	keep := AddItem(inv, models.LineItem{ID: "given"}, func() string { return "unused" })
	assert.Equal(t, "given", keep)
}

func TestRemoveItem(t *testing.T) {
	inv := editable()

	require.NoError(t, RemoveItem(inv, "a"))
	assert.Len(t, inv.Services, 2)
	assert.Equal(t, "60", inv.Subtotal.String())

	err := RemoveItem(inv, "a")
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestMoveItem(t *testing.T) {
	ids := func(inv *models.Invoice) []string {
		var out []string
		for _, item := range inv.Services {
			out = append(out, item.ID)
		}
		return out
	}

	tests := []struct {
		name     string
		id       string
		position int
		want     []string
	}{
		{name: "to front", id: "c", position: 0, want: []string{"c", "a", "b"}},
		{name: "to back", id: "a", position: 2, want: []string{"b", "c", "a"}},
		{name: "same place", id: "b", position: 1, want: []string{"a", "b", "c"}},
		{name: "clamped high", id: "a", position: 99, want: []string{"b", "c", "a"}},
		{name: "clamped low", id: "b", position: -5, want: []string{"b", "a", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := editable()
			total := inv.Total

			require.NoError(t, MoveItem(inv, tt.id, tt.position))
			assert.Equal(t, tt.want, ids(inv))
			assert.True(t, total.Equal(inv.Total))
		})
	}

	assert.ErrorIs(t, MoveItem(editable(), "missing", 0), ErrItemNotFound)
}
