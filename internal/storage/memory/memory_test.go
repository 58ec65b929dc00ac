package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"invoicer/internal/storage"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := New()

	var n int
	found, err := s.GetJSON(ctx, storage.KeyLastInvoiceNumber, &n)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.SetJSON(ctx, storage.KeyLastInvoiceNumber, 3))
	found, err = s.GetJSON(ctx, storage.KeyLastInvoiceNumber, &n)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 3, n)

	s.Put(storage.KeyTemplates, []byte(`{`))
	var list []string
	found, err = s.GetJSON(ctx, storage.KeyTemplates, &list)
	assert.True(t, found)
	assert.ErrorIs(t, err, storage.ErrMalformed)

	require.NoError(t, s.Delete(ctx, storage.KeyTemplates))
	require.NoError(t, s.Delete(ctx, storage.KeyTemplates))
	_, ok := s.Raw(storage.KeyTemplates)
	assert.False(t, ok)
}

func TestStore_BatchIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.SetJSON(ctx, storage.KeyLastInvoiceNumber, 1))

	err := s.SetJSONBatch(ctx, map[string]any{
		storage.KeyLastInvoiceNumber: 2,
		storage.KeyTemplates:         make(chan int),
	})
	require.Error(t, err)

	raw, _ := s.Raw(storage.KeyLastInvoiceNumber)
	assert.Equal(t, "1", string(raw))
	_, ok := s.Raw(storage.KeyTemplates)
	assert.False(t, ok)
}

func TestStore_FailWritesAndClear(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.SetJSON(ctx, storage.KeyCurrentInvoice, map[string]string{"id": "x"}))
	s.Put("unrelated", []byte(`true`))

	s.FailWrites = true
	assert.ErrorIs(t, s.SetJSON(ctx, storage.KeyCurrentInvoice, 1), storage.ErrUnavailable)
	assert.ErrorIs(t, s.Clear(ctx), storage.ErrUnavailable)

	s.FailWrites = false
	require.NoError(t, s.Clear(ctx))
	_, ok := s.Raw(storage.KeyCurrentInvoice)
	assert.False(t, ok)
	_, ok = s.Raw("unrelated")
	assert.True(t, ok, "Clear only removes invoice keys")
}

func TestStore_IncrementCounter(t *testing.T) {
	ctx := context.Background()
	s := New()

	n, err := s.IncrementCounter(ctx, storage.KeyLastInvoiceNumber)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	s.FailWrites = true
	_, err = s.IncrementCounter(ctx, storage.KeyLastInvoiceNumber)
	assert.ErrorIs(t, err, storage.ErrUnavailable)
	raw, _ := s.Raw(storage.KeyLastInvoiceNumber)
	assert.Equal(t, "1", string(raw))

	s.FailWrites = false
	s.Put(storage.KeyLastInvoiceNumber, []byte(`{}`))
	_, err = s.IncrementCounter(ctx, storage.KeyLastInvoiceNumber)
	assert.ErrorIs(t, err, storage.ErrMalformed)
}
