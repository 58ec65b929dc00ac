package invoice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"invoicer/internal/diagnostics"
	"invoicer/internal/logger"
	"invoicer/pkg/models"
)

// DefaultPeriodLengthDays is the service period used when none is configured.
const DefaultPeriodLengthDays = 30

// NumberSource issues fresh human-facing invoice numbers.
type NumberSource interface {
	Next(ctx context.Context) (string, error)
}

// DeriveOptions controls the identity fields of a derived invoice.
type DeriveOptions struct {
	// Today is the issue date and service period start. Zero means now.
	Today time.Time

	// PeriodLengthDays is the service period length in calendar days.
	// Zero or negative means DefaultPeriodLengthDays.
	PeriodLengthDays int
}

// Deriver builds new invoices from templates.
type Deriver struct {
	numbers NumberSource
	newID   func() string
	events  diagnostics.Sink
	log     zerolog.Logger
}

// NewDeriver creates a Deriver. events may be nil.
func NewDeriver(numbers NumberSource, newID func() string, events diagnostics.Sink) *Deriver {
	return &Deriver{
		numbers: numbers,
		newID:   newID,
		events:  diagnostics.OrNop(events),
		log:     logger.WithComponent("template-derivation"),
	}
}

// FromTemplate returns a new invoice carrying a deep copy of the template's
// content, a fresh id and number, today's date and a service period of
// opts.PeriodLengthDays. Aggregates are recomputed before returning.
//
// The template is never modified. Exactly one number is consumed; if
// numbering fails no invoice is returned.
func (d *Deriver) FromTemplate(ctx context.Context, tmpl *models.InvoiceTemplate, opts DeriveOptions) (*models.Invoice, error) {
	const op = "FromTemplate"

	if tmpl == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrNilTemplate)
	}

	today := opts.Today
	if today.IsZero() {
		today = time.Now()
	}
	period := opts.PeriodLengthDays
	if period <= 0 {
		period = DefaultPeriodLengthDays
	}

	number, err := d.numbers.Next(ctx)
	if err != nil {
		d.log.Error().
			Err(err).
			Str("template_id", tmpl.ID).
			Msg("Failed to issue invoice number for template")
		return nil, fmt.Errorf("%s: %w", op, errors.Join(ErrNumbering, err))
	}

	content := tmpl.Invoice.Clone()
	inv := &models.Invoice{
		ID: d.newID(),
		Details: models.Details{
			InvoiceNumber:      number,
			InvoiceDate:        FormatDate(today),
			ServicePeriodStart: FormatDate(today),
			ServicePeriodEnd:   FormatDate(today.AddDate(0, 0, period)),
		},
		Company:       content.Company,
		Client:        content.Client,
		Services:      content.Services,
		Payment:       content.Payment,
		ReverseCharge: content.ReverseCharge,
		VATRate:       content.VATRate,
		Notes:         content.Notes,
	}
	Recalculate(inv)

	d.log.Info().
		Str("template_id", tmpl.ID).
		Str("invoice_id", inv.ID).
		Str("invoice_number", number).
		Int("items", len(inv.Services)).
		Msg("Invoice derived from template")

	d.events.Emit(diagnostics.SeverityInfo, diagnostics.CategoryTemplate, "template applied", map[string]any{
		"template_id":    tmpl.ID,
		"template_name":  tmpl.Name,
		"invoice_id":     inv.ID,
		"invoice_number": number,
		"total":          inv.Total.String(),
	})

	return inv, nil
}
