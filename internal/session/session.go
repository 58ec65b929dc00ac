// Package session is the editing session behind the CLI: it owns the
// invoice being edited, applies user actions to it and persists it after
// every mutation.
//
// The in-memory invoice is authoritative. If persisting fails the change is
// kept in memory and the error is returned; nothing is rolled back.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"invoicer/internal/diagnostics"
	"invoicer/internal/invoice"
	"invoicer/internal/logger"
	"invoicer/internal/numbering"
	"invoicer/internal/storage"
	"invoicer/internal/templates"
	"invoicer/pkg/models"
)

// ErrPersist marks errors where the change was applied in memory but could
// not be saved.
var ErrPersist = errors.New("change applied but not saved")

// Defaults are the configurable values used for new invoices.
type Defaults struct {
	VATRate          models.Amount
	Currency         string
	PaymentDays      int
	PeriodLengthDays int
}

// Deps are the collaborators of a Session. Events and Now are optional.
type Deps struct {
	Store     storage.Store
	Numbers   *numbering.Sequencer
	Templates *templates.Store
	Events    diagnostics.Sink
	NewID     func() string
	Now       func() time.Time
	Defaults  Defaults
}

// Session holds the current invoice.
type Session struct {
	store     storage.Store
	numbers   *numbering.Sequencer
	templates *templates.Store
	deriver   *invoice.Deriver
	events    diagnostics.Sink
	newID     func() string
	now       func() time.Time
	defaults  Defaults
	log       zerolog.Logger

	current *models.Invoice
}

// Open loads the persisted invoice. An absent or unreadable snapshot is
// replaced by a fresh default invoice (without consuming a number).
func Open(ctx context.Context, deps Deps) (*Session, error) {
	if deps.Store == nil || deps.Numbers == nil || deps.Templates == nil {
		return nil, errors.New("session: store, numbering and templates are required")
	}
	if deps.NewID == nil {
		deps.NewID = invoice.NewID
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	events := diagnostics.OrNop(deps.Events)

	s := &Session{
		store:     deps.Store,
		numbers:   deps.Numbers,
		templates: deps.Templates,
		deriver:   invoice.NewDeriver(deps.Numbers, deps.NewID, events),
		events:    events,
		newID:     deps.NewID,
		now:       deps.Now,
		defaults:  deps.Defaults,
		log:       logger.WithComponent("session"),
	}

	var current models.Invoice
	found, err := s.store.GetJSON(ctx, storage.KeyCurrentInvoice, &current)
	switch {
	case errors.Is(err, storage.ErrMalformed):
		s.log.Warn().Err(err).Msg("Stored invoice is malformed, starting from defaults")
		s.events.Emit(diagnostics.SeverityWarn, diagnostics.CategoryStorage, "stored invoice malformed", nil)
		s.current = s.blank()
	case err != nil:
		return nil, fmt.Errorf("session: failed to load current invoice: %w", err)
	case !found:
		s.log.Debug().Msg("No stored invoice, starting from defaults")
		s.current = s.blank()
	default:
		s.current = invoice.Recalculate(&current)
	}

	return s, nil
}

// Current returns a copy of the invoice being edited.
func (s *Session) Current() *models.Invoice {
	return s.current.Clone()
}

// Edit sets one field by dotted path (see invoice.ApplyEdit).
func (s *Session) Edit(ctx context.Context, path, value string) error {
	next := s.current.Clone()
	if err := invoice.ApplyEdit(next, path, value); err != nil {
		return err
	}
	return s.commit(ctx, next, "field edited", map[string]any{"path": path})
}

// AddItem appends a line item and returns its id.
func (s *Session) AddItem(ctx context.Context, item models.LineItem) (string, error) {
	next := s.current.Clone()
	id := invoice.AddItem(next, item, s.newID)
	return id, s.commit(ctx, next, "item added", map[string]any{"item_id": id})
}

// RemoveItem deletes a line item.
func (s *Session) RemoveItem(ctx context.Context, id string) error {
	next := s.current.Clone()
	if err := invoice.RemoveItem(next, id); err != nil {
		return err
	}
	return s.commit(ctx, next, "item removed", map[string]any{"item_id": id})
}

// MoveItem reorders a line item.
func (s *Session) MoveItem(ctx context.Context, id string, position int) error {
	next := s.current.Clone()
	if err := invoice.MoveItem(next, id, position); err != nil {
		return err
	}
	return s.commit(ctx, next, "item moved", map[string]any{"item_id": id, "position": position})
}

// Renumber gives the current invoice a fresh number from the shared counter.
func (s *Session) Renumber(ctx context.Context) (string, error) {
	number, err := s.numbers.Next(ctx)
	if err != nil {
		return "", err
	}
	next := s.current.Clone()
	next.Details.InvoiceNumber = number
	return number, s.commit(ctx, next, "invoice renumbered", map[string]any{"invoice_number": number})
}

// NewInvoice replaces the current invoice with a numbered default invoice.
func (s *Session) NewInvoice(ctx context.Context) (*models.Invoice, error) {
	number, err := s.numbers.Next(ctx)
	if err != nil {
		return nil, err
	}
	next := s.blank()
	next.Details.InvoiceNumber = number
	return next.Clone(), s.commit(ctx, next, "invoice created", map[string]any{"invoice_number": number})
}

// ApplyTemplate replaces the current invoice with one derived from the
// template with the given id. periodDays <= 0 uses the configured default.
// It returns (nil, nil) when no such template exists.
func (s *Session) ApplyTemplate(ctx context.Context, templateID string, periodDays int) (*models.Invoice, error) {
	tmpl, err := s.templates.Load(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if tmpl == nil {
		return nil, nil
	}

	if periodDays <= 0 {
		periodDays = s.defaults.PeriodLengthDays
	}
	next, err := s.deriver.FromTemplate(ctx, tmpl, invoice.DeriveOptions{
		Today:            s.now(),
		PeriodLengthDays: periodDays,
	})
	if err != nil {
		return nil, err
	}
	return next.Clone(), s.commit(ctx, next, "template applied", map[string]any{"template_id": templateID})
}

// SaveAsTemplate stores the content of the current invoice as a new template.
func (s *Session) SaveAsTemplate(ctx context.Context, name, description string) (*models.InvoiceTemplate, error) {
	return s.templates.Create(ctx, name, description, s.current.Content())
}

// UpdateTemplateFromCurrent replaces a template's content with the current invoice's.
func (s *Session) UpdateTemplateFromCurrent(ctx context.Context, id, name, description string) (*models.InvoiceTemplate, error) {
	return s.templates.Update(ctx, id, name, description, s.current.Content())
}

// ClearData removes all persisted data and starts over with a blank invoice.
func (s *Session) ClearData(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		s.log.Error().Err(err).Msg("Failed to clear stored data")
		return fmt.Errorf("session: failed to clear data: %w", err)
	}
	s.current = s.blank()
	s.log.Warn().Msg("All invoice data cleared")
	s.events.Emit(diagnostics.SeverityWarn, diagnostics.CategoryStorage, "data cleared", nil)
	return nil
}

// Save persists the current invoice without changing it.
func (s *Session) Save(ctx context.Context) error {
	return s.persist(ctx)
}

func (s *Session) blank() *models.Invoice {
	return invoice.NewDefault(invoice.Seed{
		Today:            s.now(),
		VATRate:          s.defaults.VATRate,
		Currency:         s.defaults.Currency,
		PaymentDays:      s.defaults.PaymentDays,
		PeriodLengthDays: s.defaults.PeriodLengthDays,
		NewID:            s.newID,
	})
}

// commit makes next the current invoice, then persists it.
func (s *Session) commit(ctx context.Context, next *models.Invoice, message string, payload map[string]any) error {
	s.current = invoice.Recalculate(next)

	fields := map[string]any{
		"invoice_id": next.ID,
		"subtotal":   next.Subtotal.String(),
		"vat_amount": next.VATAmount.String(),
		"total":      next.Total.String(),
	}
	for k, v := range payload {
		fields[k] = v
	}
	s.events.Emit(diagnostics.SeverityInfo, diagnostics.CategoryCalculation, message, fields)

	return s.persist(ctx)
}

func (s *Session) persist(ctx context.Context) error {
	if err := s.store.SetJSON(ctx, storage.KeyCurrentInvoice, s.current); err != nil {
		s.log.Error().
			Err(err).
			Str("invoice_id", s.current.ID).
			Msg("Failed to persist current invoice")
		return fmt.Errorf("session: %w: %w", ErrPersist, err)
	}
	return nil
}
