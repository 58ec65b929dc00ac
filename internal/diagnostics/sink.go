// Package diagnostics is the structured event sink the invoice core reports to.
// The core works the same whether a sink is wired or not.
package diagnostics

import (
	"github.com/rs/zerolog"
)

// Severity of an emitted event.
type Severity string

const (
	SeverityDebug Severity = "debug"
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// Event categories emitted by the core.
const (
	CategoryCalculation = "calculation"
	CategoryTemplate    = "template"
	CategoryNumbering   = "numbering"
	CategoryStorage     = "storage"
	CategoryBackup      = "backup"
	CategoryExport      = "export"
)

// Sink accepts structured events.
type Sink interface {
	Emit(severity Severity, category, message string, payload map[string]any)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Emit(Severity, string, string, map[string]any) {}

// ZerologSink writes events through a zerolog logger.
type ZerologSink struct {
	log zerolog.Logger
}

// NewZerologSink wraps log. Events carry a "category" field.
func NewZerologSink(log zerolog.Logger) *ZerologSink {
	return &ZerologSink{log: log}
}

func (s *ZerologSink) Emit(severity Severity, category, message string, payload map[string]any) {
	var ev *zerolog.Event
	switch severity {
	case SeverityDebug:
		ev = s.log.Debug()
	case SeverityWarn:
		ev = s.log.Warn()
	case SeverityError:
		ev = s.log.Error()
	default:
		ev = s.log.Info()
	}
	ev = ev.Str("category", category)
	if len(payload) > 0 {
		ev = ev.Fields(payload)
	}
	ev.Msg(message)
}

// OrNop returns s, or Nop when s is nil.
func OrNop(s Sink) Sink {
	if s == nil {
		return Nop{}
	}
	return s
}
