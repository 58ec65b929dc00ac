// Package templates stores named, reusable invoice content snapshots.
//
// The whole collection lives under a single persistence key and is rewritten
// on every change. Template names are not unique.
package templates

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"invoicer/internal/diagnostics"
	"invoicer/internal/logger"
	"invoicer/internal/storage"
	"invoicer/pkg/models"
)

// CopySuffix is appended to the name of a duplicated template.
const CopySuffix = " (Copy)"

var (
	// ErrNotFound is returned by Update when the template does not exist.
	// Load and Delete treat absence as a normal empty result instead.
	ErrNotFound = errors.New("template not found")

	// ErrEmptyName is returned when creating a template without a name.
	ErrEmptyName = errors.New("template name is required")
)

// Store is the CRUD layer over the template collection.
type Store struct {
	kv     storage.Store
	now    func() time.Time
	newID  func() string
	events diagnostics.Sink
	log    zerolog.Logger
}

// NewStore creates a template store. events may be nil.
func NewStore(kv storage.Store, newID func() string, now func() time.Time, events diagnostics.Sink) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		kv:     kv,
		now:    now,
		newID:  newID,
		events: diagnostics.OrNop(events),
		log:    logger.WithComponent("templates"),
	}
}

// List returns every stored template in stored order. An absent collection is empty.
func (s *Store) List(ctx context.Context) ([]models.InvoiceTemplate, error) {
	const op = "List"

	var list []models.InvoiceTemplate
	if _, err := s.kv.GetJSON(ctx, storage.KeyTemplates, &list); err != nil {
		s.log.Error().Err(err).Msg("Failed to read template collection")
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if list == nil {
		list = []models.InvoiceTemplate{}
	}
	return list, nil
}

// Load returns the template with the given id, or nil if there is none.
func (s *Store) Load(ctx context.Context, id string) (*models.InvoiceTemplate, error) {
	list, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].ID == id {
			return &list[i], nil
		}
	}
	return nil, nil
}

// Save upserts tmpl by id: an existing record is replaced in place,
// otherwise the template is appended. The stored record is a deep copy.
func (s *Store) Save(ctx context.Context, tmpl *models.InvoiceTemplate) error {
	const op = "Save"

	list, err := s.List(ctx)
	if err != nil {
		return err
	}

	stored := tmpl.Clone()
	replaced := false
	for i := range list {
		if list[i].ID == tmpl.ID {
			list[i] = *stored
			replaced = true
			break
		}
	}
	if !replaced {
		list = append(list, *stored)
	}

	if err := s.kv.SetJSON(ctx, storage.KeyTemplates, list); err != nil {
		s.log.Error().
			Err(err).
			Str("template_id", tmpl.ID).
			Msg("Failed to persist template collection")
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info().
		Str("template_id", tmpl.ID).
		Str("name", tmpl.Name).
		Bool("replaced", replaced).
		Msg("Template saved")
	return nil
}

// Delete removes the template with the given id. Unknown ids are a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	const op = "Delete"

	list, err := s.List(ctx)
	if err != nil {
		return err
	}

	kept := list[:0]
	for _, t := range list {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(list) {
		s.log.Debug().Str("template_id", id).Msg("Delete of unknown template ignored")
		return nil
	}

	if err := s.kv.SetJSON(ctx, storage.KeyTemplates, kept); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info().Str("template_id", id).Msg("Template deleted")
	return nil
}

// Create builds and saves a new template from content.
func (s *Store) Create(ctx context.Context, name, description string, content models.InvoiceContent) (*models.InvoiceTemplate, error) {
	const op = "Create"

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyName)
	}

	now := s.now()
	tmpl := &models.InvoiceTemplate{
		ID:          s.newID(),
		Name:        name,
		Description: description,
		Invoice:     content.Clone(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Save(ctx, tmpl); err != nil {
		return nil, err
	}

	s.events.Emit(diagnostics.SeverityInfo, diagnostics.CategoryTemplate, "template created", map[string]any{
		"template_id": tmpl.ID,
		"name":        tmpl.Name,
	})
	return tmpl, nil
}

// Update replaces the name, description and content of an existing template
// and refreshes UpdatedAt. An empty name keeps the current one.
func (s *Store) Update(ctx context.Context, id, name, description string, content models.InvoiceContent) (*models.InvoiceTemplate, error) {
	const op = "Update"

	tmpl, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if tmpl == nil {
		return nil, fmt.Errorf("%s: %w: %s", op, ErrNotFound, id)
	}

	if name = strings.TrimSpace(name); name != "" {
		tmpl.Name = name
	}
	tmpl.Description = description
	tmpl.Invoice = content.Clone()
	tmpl.UpdatedAt = s.now()

	if err := s.Save(ctx, tmpl); err != nil {
		return nil, err
	}
	return tmpl, nil
}

// Duplicate saves and returns a copy of tmpl with a new id, fresh timestamps
// and " (Copy)" appended to the name. The copy shares no mutable state with tmpl.
func (s *Store) Duplicate(ctx context.Context, tmpl *models.InvoiceTemplate) (*models.InvoiceTemplate, error) {
	const op = "Duplicate"

	if tmpl == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	now := s.now()
	dup := &models.InvoiceTemplate{
		ID:          s.newID(),
		Name:        tmpl.Name + CopySuffix,
		Description: tmpl.Description,
		Invoice:     tmpl.Invoice.Clone(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Save(ctx, dup); err != nil {
		return nil, err
	}

	s.events.Emit(diagnostics.SeverityInfo, diagnostics.CategoryTemplate, "template duplicated", map[string]any{
		"source_id":   tmpl.ID,
		"template_id": dup.ID,
	})
	return dup, nil
}
