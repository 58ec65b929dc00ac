// Package backup reads and writes the user-facing JSON backup document.
//
// Import is all-or-nothing: the whole payload is decoded before anything is
// written, and the present keys are then written in one batch.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/rs/zerolog"
	"invoicer/internal/diagnostics"
	"invoicer/internal/invoice"
	"invoicer/internal/logger"
	"invoicer/internal/storage"
	"invoicer/pkg/models"
)

// Version is written into every exported document. It is not enforced on import.
const Version = "1.0"

// ErrInvalidBackup is returned when an import payload cannot be decoded.
var ErrInvalidBackup = errors.New("invalid backup document")

// Document is the backup file format.
type Document struct {
	Templates         []models.InvoiceTemplate `json:"templates" jsonschema_description:"Saved invoice templates"`
	CurrentInvoice    *models.Invoice          `json:"currentInvoice,omitempty" jsonschema_description:"The invoice being edited, if any"`
	LastInvoiceNumber int64                    `json:"lastInvoiceNumber" jsonschema_description:"Last issued sequence number"`
	Version           string                   `json:"version" jsonschema_description:"Format version, currently 1.0"`
}

// ImportResult reports which sections of a document were applied.
type ImportResult struct {
	Templates         int    `json:"templates"`
	TemplatesApplied  bool   `json:"templatesApplied"`
	CurrentInvoice    bool   `json:"currentInvoice"`
	LastInvoiceNumber bool   `json:"lastInvoiceNumber"`
	Version           string `json:"version,omitempty"`
}

// Service exports and imports backups through a storage.Store.
type Service struct {
	kv     storage.Store
	events diagnostics.Sink
	log    zerolog.Logger
}

// NewService creates a backup service. events may be nil.
func NewService(kv storage.Store, events diagnostics.Sink) *Service {
	return &Service{
		kv:     kv,
		events: diagnostics.OrNop(events),
		log:    logger.WithComponent("backup"),
	}
}

// Export collects templates, the current invoice and the counter.
func (s *Service) Export(ctx context.Context) (*Document, error) {
	const op = "Export"

	doc := &Document{Templates: []models.InvoiceTemplate{}, Version: Version}

	if _, err := s.kv.GetJSON(ctx, storage.KeyTemplates, &doc.Templates); err != nil {
		return nil, fmt.Errorf("%s: templates: %w", op, err)
	}
	if doc.Templates == nil {
		doc.Templates = []models.InvoiceTemplate{}
	}

	var current models.Invoice
	found, err := s.kv.GetJSON(ctx, storage.KeyCurrentInvoice, &current)
	if err != nil {
		return nil, fmt.Errorf("%s: current invoice: %w", op, err)
	}
	if found {
		doc.CurrentInvoice = &current
	}

	if _, err := s.kv.GetJSON(ctx, storage.KeyLastInvoiceNumber, &doc.LastInvoiceNumber); err != nil {
		return nil, fmt.Errorf("%s: counter: %w", op, err)
	}

	s.log.Info().
		Int("templates", len(doc.Templates)).
		Bool("current_invoice", doc.CurrentInvoice != nil).
		Int64("last_invoice_number", doc.LastInvoiceNumber).
		Msg("Backup exported")
	return doc, nil
}

// Marshal encodes doc as indented JSON.
func Marshal(doc *Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

// Import decodes data and replaces each persisted collection that is present
// in it. Missing keys leave the stored value alone. A decode failure writes
// nothing.
func (s *Service) Import(ctx context.Context, data []byte) (*ImportResult, error) {
	const op = "Import"

	writes, result, err := decode(data)
	if err != nil {
		s.log.Warn().Err(err).Msg("Rejected backup import")
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if len(writes) == 0 {
		s.log.Info().Msg("Backup contained no known keys; nothing imported")
		return result, nil
	}

	if err := s.kv.SetJSONBatch(ctx, writes); err != nil {
		s.log.Error().Err(err).Msg("Failed to persist imported backup")
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info().
		Int("templates", result.Templates).
		Bool("current_invoice", result.CurrentInvoice).
		Bool("last_invoice_number", result.LastInvoiceNumber).
		Msg("Backup imported")
	s.events.Emit(diagnostics.SeverityInfo, diagnostics.CategoryBackup, "backup imported", map[string]any{
		"templates":       result.Templates,
		"current_invoice": result.CurrentInvoice,
		"version":         result.Version,
	})
	return result, nil
}

func decode(data []byte) (map[string]any, *ImportResult, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}

	writes := map[string]any{}
	result := &ImportResult{}

	if msg, ok := present(raw, "templates"); ok {
		var templates []models.InvoiceTemplate
		if err := json.Unmarshal(msg, &templates); err != nil {
			return nil, nil, fmt.Errorf("%w: templates: %v", ErrInvalidBackup, err)
		}
		if templates == nil {
			templates = []models.InvoiceTemplate{}
		}
		writes[storage.KeyTemplates] = templates
		result.Templates = len(templates)
		result.TemplatesApplied = true
	}

	if msg, ok := present(raw, "currentInvoice"); ok {
		var current models.Invoice
		if err := json.Unmarshal(msg, &current); err != nil {
			return nil, nil, fmt.Errorf("%w: currentInvoice: %v", ErrInvalidBackup, err)
		}
		// Stored aggregates in a backup are not trusted.
		invoice.Recalculate(&current)
		writes[storage.KeyCurrentInvoice] = &current
		result.CurrentInvoice = true
	}

	if msg, ok := present(raw, "lastInvoiceNumber"); ok {
		var n int64
		if err := json.Unmarshal(msg, &n); err != nil || n < 0 {
			return nil, nil, fmt.Errorf("%w: lastInvoiceNumber must be a non-negative integer", ErrInvalidBackup)
		}
		writes[storage.KeyLastInvoiceNumber] = n
		result.LastInvoiceNumber = true
	}

	if msg, ok := raw["version"]; ok {
		_ = json.Unmarshal(msg, &result.Version)
	}

	return writes, result, nil
}

// present returns the value under key. A JSON null counts as absent.
func present(raw map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	msg, ok := raw[key]
	if !ok || string(bytes.TrimSpace(msg)) == "null" {
		return nil, false
	}
	return msg, true
}

// Schema returns the JSON Schema of Document.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
	}
	return reflector.Reflect(&Document{})
}
