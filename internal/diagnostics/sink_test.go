package diagnostics

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologSink_Emit(t *testing.T) {
	var buf bytes.Buffer
	sink := NewZerologSink(zerolog.New(&buf).Level(zerolog.DebugLevel))

	sink.Emit(SeverityWarn, CategoryNumbering, "number issued", map[string]any{"number": "CORE-2025-11-13-01"})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "numbering", entry["category"])
	assert.Equal(t, "number issued", entry["message"])
	assert.Equal(t, "CORE-2025-11-13-01", entry["number"])
}

func TestOrNop(t *testing.T) {
	assert.IsType(t, Nop{}, OrNop(nil))

	sink := NewZerologSink(zerolog.Nop())
	assert.Same(t, sink, OrNop(sink))

	// Nop must accept anything without panicking.
	OrNop(nil).Emit(SeverityError, CategoryStorage, "ignored", nil)
}
