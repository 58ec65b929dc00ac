package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"invoicer/internal/backup"
	"invoicer/internal/diagnostics"
	"invoicer/internal/invoice"
	"invoicer/internal/logger"
	"invoicer/internal/numbering"
	"invoicer/internal/session"
	"invoicer/internal/storage"
	"invoicer/internal/storage/memory"
	"invoicer/internal/storage/sqlite"
	"invoicer/internal/templates"
	"invoicer/pkg/models"
)

// app is the composition root: every service is built here once per command
// and handed to the code that needs it.
type app struct {
	store     storage.Store
	events    diagnostics.Sink
	numbers   *numbering.Sequencer
	templates *templates.Store
	backups   *backup.Service
	log       zerolog.Logger
}

func openApp(cmd *cobra.Command) (*app, error) {
	log := logger.WithComponent("app")

	ephemeral, _ := cmd.Flags().GetBool("ephemeral")
	dbPath, _ := cmd.Flags().GetString("db")
	if dbPath == "" {
		dbPath = cfg.DBPath
	}

	var store storage.Store
	if ephemeral {
		store = memory.New()
		log.Debug().Msg("Using in-memory store")
	} else {
		s, err := sqlite.New(dbPath)
		if err != nil {
			log.Error().Err(err).Str("db", dbPath).Msg("Failed to open database")
			return nil, fmt.Errorf("cannot open invoice database at %s: %w", dbPath, err)
		}
		store = s
		log.Debug().Str("db", dbPath).Msg("Opened SQLite store")
	}

	events := diagnostics.NewZerologSink(logger.WithComponent("diagnostics"))

	return &app{
		store:     store,
		events:    events,
		numbers:   numbering.New(store, cfg.NumberPrefix, numbering.WithEvents(events)),
		templates: templates.NewStore(store, invoice.NewID, nil, events),
		backups:   backup.NewService(store, events),
		log:       log,
	}, nil
}

func (a *app) session(ctx context.Context) (*session.Session, error) {
	return session.Open(ctx, session.Deps{
		Store:     a.store,
		Numbers:   a.numbers,
		Templates: a.templates,
		Events:    a.events,
		Defaults: session.Defaults{
			VATRate:          models.ParseAmount(cfg.DefaultVATRate),
			Currency:         cfg.DefaultCurrency,
			PaymentDays:      cfg.DefaultPaymentDays,
			PeriodLengthDays: cfg.ServicePeriodDays,
		},
	})
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("Failed to close store")
	}
}

// withSession opens the app and session, runs fn and closes everything.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, a *app, s *session.Session) error) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := a.session(ctx)
	if err != nil {
		return handleStorageError(err, a.log)
	}
	return fn(ctx, a, s)
}

// withApp opens the app, runs fn and closes it.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, a)
}

// handleEditError provides user-friendly error messages for edit failures
func handleEditError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Invoice edit failed")

	switch {
	case errors.Is(err, invoice.ErrUnknownField):
		return fmt.Errorf("%w\nEditable fields: vatRate, notes, company.<field>, client.<field>, details.<field>, payment.<field>, reverseCharge.<field>, services.<item-id>.<field>", err)
	case errors.Is(err, invoice.ErrReadOnlyField):
		return fmt.Errorf("%w\nAmounts and totals are calculated; edit quantity, unitPrice or vatRate instead", err)
	case errors.Is(err, invoice.ErrItemNotFound):
		return fmt.Errorf("%w\nRun 'invoicer invoice show' to list line item ids", err)
	case errors.Is(err, invoice.ErrInvalidValue):
		return fmt.Errorf("%w\nUse true or false", err)
	default:
		return handleStorageError(err, log)
	}
}

// handleStorageError provides user-friendly error messages for persistence failures
func handleStorageError(err error, log zerolog.Logger) error {
	switch {
	case errors.Is(err, session.ErrPersist):
		log.Error().Err(err).Msg("Change not persisted")
		return fmt.Errorf("the change was not saved; re-run the command once the database is writable: %w", err)
	case errors.Is(err, storage.ErrMalformed):
		return fmt.Errorf("stored data is corrupted. Restore a backup with 'invoicer backup import' or reset with 'invoicer backup clear': %w", err)
	case errors.Is(err, storage.ErrUnavailable):
		return fmt.Errorf("invoice database is unavailable. Check INVOICER_DB_PATH and disk space: %w", err)
	case errors.Is(err, invoice.ErrNumbering):
		return fmt.Errorf("could not issue an invoice number; the invoice was not created: %w", err)
	default:
		return err
	}
}

func parseBoolFlag(cmd *cobra.Command, name string) bool {
	v, _ := cmd.Flags().GetBool(name)
	return v
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}
