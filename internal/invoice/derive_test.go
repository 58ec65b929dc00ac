package invoice

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"invoicer/internal/diagnostics"
	"invoicer/pkg/models"
)

type fakeNumbers struct {
	next  int
	err   error
	calls int
}

func (f *fakeNumbers) Next(context.Context) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	f.next++
	return fmt.Sprintf("CORE-2025-11-13-%02d", f.next), nil
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func sampleTemplate() *models.InvoiceTemplate {
	src := Recalculate(&models.Invoice{
		ID:      "source",
		Details: models.Details{InvoiceNumber: "CORE-2025-10-01-07", InvoiceDate: "2025-10-01"},
		Company: models.Party{Name: "Issuer GmbH", VATID: "DE999"},
		Client:  models.Party{Name: "Client SARL", VATID: "FR111"},
		Services: []models.LineItem{
			itemOf("a", "2", "100"),
			{ID: "b", Description: "Support", AdditionalInfo: "per month", Quantity: amt("1"), UnitPrice: amt("80")},
		},
		Payment:       models.Payment{Currency: "EUR", IBAN: "DE00 0000", Terms: "14 days"},
		ReverseCharge: models.ReverseCharge{Applicable: true, CustomerVAT: "FR111"},
		VATRate:       amt("20"),
		Notes:         "Thank you",
	})
	return &models.InvoiceTemplate{
		ID:        "tmpl-1",
		Name:      "Monthly",
		Invoice:   src.Content(),
		CreatedAt: time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestDeriver_FromTemplate(t *testing.T) {
	numbers := &fakeNumbers{}
	events := &diagnostics.Recorder{}
	d := NewDeriver(numbers, sequentialIDs("inv"), events)
	tmpl := sampleTemplate()
	snapshot := tmpl.Clone()
	today := time.Date(2025, 11, 13, 10, 30, 0, 0, time.UTC)

	inv, err := d.FromTemplate(context.Background(), tmpl, DeriveOptions{Today: today, PeriodLengthDays: 30})
	require.NoError(t, err)

	assert.Equal(t, "inv-1", inv.ID)
	assert.Equal(t, "CORE-2025-11-13-01", inv.Details.InvoiceNumber)
	assert.Equal(t, "2025-11-13", inv.Details.InvoiceDate)
	assert.Equal(t, "2025-11-13", inv.Details.ServicePeriodStart)
	assert.Equal(t, "2025-12-13", inv.Details.ServicePeriodEnd)
	assert.Equal(t, 1, numbers.calls)

	assert.Equal(t, tmpl.Invoice, inv.Content(), "content must round-trip unchanged")
	assert.Equal(t, "280", inv.Subtotal.String())
	assert.Equal(t, "0", inv.VATAmount.String())
	assert.Equal(t, "280", inv.Total.String())

	inv.Services[0].Description = "edited"
	inv.Client.Name = "edited"
	assert.Equal(t, snapshot, tmpl, "template must not be affected by edits to the derived invoice")

	assert.Equal(t, []string{"template applied"}, events.Messages(diagnostics.CategoryTemplate))
}

func TestDeriver_FromTemplate_TwiceGivesDistinctInvoices(t *testing.T) {
	d := NewDeriver(&fakeNumbers{}, sequentialIDs("inv"), nil)
	tmpl := sampleTemplate()
	opts := DeriveOptions{Today: time.Date(2025, 11, 13, 0, 0, 0, 0, time.UTC)}

	first, err := d.FromTemplate(context.Background(), tmpl, opts)
	require.NoError(t, err)
	second, err := d.FromTemplate(context.Background(), tmpl, opts)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "CORE-2025-11-13-01", first.Details.InvoiceNumber)
	assert.Equal(t, "CORE-2025-11-13-02", second.Details.InvoiceNumber)

	first.Services[0].Quantity = amt("9")
	assert.Equal(t, "2", second.Services[0].Quantity.String())
}

func TestDeriver_FromTemplate_DefaultPeriod(t *testing.T) {
	d := NewDeriver(&fakeNumbers{}, sequentialIDs("inv"), nil)
	today := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)

	inv, err := d.FromTemplate(context.Background(), sampleTemplate(), DeriveOptions{Today: today})
	require.NoError(t, err)

	assert.Equal(t, "2025-03-02", inv.Details.ServicePeriodEnd)
}

func TestDeriver_FromTemplate_Errors(t *testing.T) {
	t.Run("nil template", func(t *testing.T) {
		numbers := &fakeNumbers{}
		d := NewDeriver(numbers, sequentialIDs("inv"), nil)

		inv, err := d.FromTemplate(context.Background(), nil, DeriveOptions{})
		assert.Nil(t, inv)
		assert.ErrorIs(t, err, ErrNilTemplate)
		assert.Zero(t, numbers.calls, "no number may be consumed")
	})

	t.Run("numbering failure", func(t *testing.T) {
		cause := errors.New("disk full")
		d := NewDeriver(&fakeNumbers{err: cause}, sequentialIDs("inv"), nil)
		tmpl := sampleTemplate()
		snapshot := tmpl.Clone()

		inv, err := d.FromTemplate(context.Background(), tmpl, DeriveOptions{})
		assert.Nil(t, inv)
		assert.ErrorIs(t, err, ErrNumbering)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, snapshot, tmpl)
	})
}
