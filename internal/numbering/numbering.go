// Package numbering issues human-readable invoice numbers of the form
// PREFIX-YYYY-MM-DD-NN from a persisted running counter.
//
// The counter is global: it is not reset when the calendar day changes, so
// the date part records when a number was issued and the suffix keeps
// counting. Suffixes are zero-padded to two digits and simply grow wider past
// 99 (CORE-2026-01-05-100).
package numbering

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"invoicer/internal/diagnostics"
	"invoicer/internal/logger"
	"invoicer/internal/storage"
	"invoicer/pkg/models"
)

// DefaultPrefix is the organization code used when none is configured.
const DefaultPrefix = "CORE"

// Sequencer issues numbers from the persisted counter. The store increments
// the counter atomically, so two callers never receive the same value, even
// from separate processes sharing one database.
type Sequencer struct {
	store  storage.Store
	prefix string
	now    func() time.Time
	events diagnostics.Sink
	log    zerolog.Logger
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithClock overrides the clock used for the date part.
func WithClock(now func() time.Time) Option {
	return func(s *Sequencer) { s.now = now }
}

// WithEvents reports issued numbers to sink.
func WithEvents(sink diagnostics.Sink) Option {
	return func(s *Sequencer) { s.events = diagnostics.OrNop(sink) }
}

// New creates a Sequencer persisting its counter in store.
func New(store storage.Store, prefix string, opts ...Option) *Sequencer {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	s := &Sequencer{
		store:  store,
		prefix: prefix,
		now:    time.Now,
		events: diagnostics.Nop{},
		log:    logger.WithComponent("numbering"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Next increments the counter, persists it and returns the formatted number.
// If the counter cannot be persisted no number is issued.
func (s *Sequencer) Next(ctx context.Context) (string, error) {
	const op = "Next"

	next, err := s.store.IncrementCounter(ctx, storage.KeyLastInvoiceNumber)
	if err != nil {
		s.log.Error().
			Err(err).
			Msg("Failed to advance invoice counter")
		return "", fmt.Errorf("%s: failed to advance counter: %w", op, err)
	}

	number := Format(s.prefix, s.now(), next)

	s.log.Info().
		Str("invoice_number", number).
		Int64("counter", next).
		Msg("Invoice number issued")
	s.events.Emit(diagnostics.SeverityInfo, diagnostics.CategoryNumbering, "number issued", map[string]any{
		"invoice_number": number,
		"counter":        next,
	})

	return number, nil
}

// Peek returns the last issued counter value (0 if none).
func (s *Sequencer) Peek(ctx context.Context) (int64, error) {
	return s.load(ctx)
}

// Prefix returns the configured organization code.
func (s *Sequencer) Prefix() string {
	return s.prefix
}

// load reads the counter. A malformed value is an error, never 0.
func (s *Sequencer) load(ctx context.Context) (int64, error) {
	var last int64
	found, err := s.store.GetJSON(ctx, storage.KeyLastInvoiceNumber, &last)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to read invoice counter")
		return 0, fmt.Errorf("failed to read counter: %w", err)
	}
	if !found || last < 0 {
		return 0, nil
	}
	return last, nil
}

// Format renders an invoice number.
func Format(prefix string, day time.Time, seq int64) string {
	return fmt.Sprintf("%s-%s-%02d", prefix, day.Format(models.DateLayout), seq)
}

// ParseSequence extracts the trailing sequence number of an invoice number
// produced by Format.
func ParseSequence(number string) (int64, bool) {
	idx := strings.LastIndex(number, "-")
	if idx < 0 || idx == len(number)-1 {
		return 0, false
	}
	n, err := strconv.ParseInt(number[idx+1:], 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
