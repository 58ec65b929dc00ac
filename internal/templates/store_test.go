package templates

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"invoicer/internal/diagnostics"
	"invoicer/internal/storage"
	"invoicer/internal/storage/memory"
	"invoicer/pkg/models"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(t *testing.T) (*Store, *memory.Store, *clock, *diagnostics.Recorder) {
	t.Helper()
	kv := memory.New()
	clk := &clock{t: time.Date(2025, 11, 13, 9, 0, 0, 0, time.UTC)}
	n := 0
	ids := func() string {
		n++
		return fmt.Sprintf("tmpl-%d", n)
	}
	events := &diagnostics.Recorder{}
	return NewStore(kv, ids, clk.now, events), kv, clk, events
}

func sampleContent() models.InvoiceContent {
	return models.InvoiceContent{
		Client: models.Party{Name: "ACME GmbH"},
		Services: []models.LineItem{
			{ID: "a", Description: "Retainer", Quantity: models.NewAmountFromInt(1), UnitPrice: models.NewAmountFromInt(1500), Amount: models.NewAmountFromInt(1500)},
		},
		Payment: models.Payment{Currency: "EUR"},
		VATRate: models.NewAmountFromInt(19),
	}
}

func TestStore_ListEmpty(t *testing.T) {
	s, _, _, _ := newTestStore(t)

	list, err := s.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestStore_CreateAndLoad(t *testing.T) {
	ctx := context.Background()
	s, _, clk, events := newTestStore(t)

	created, err := s.Create(ctx, "  Monthly  ", "fixed fee", sampleContent())
	require.NoError(t, err)
	assert.Equal(t, "tmpl-1", created.ID)
	assert.Equal(t, "Monthly", created.Name)
	assert.True(t, created.CreatedAt.Equal(clk.t))
	assert.True(t, created.UpdatedAt.Equal(clk.t))

	loaded, err := s.Load(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "fixed fee", loaded.Description)
	assert.Equal(t, "ACME GmbH", loaded.Invoice.Client.Name)
	assert.True(t, loaded.Invoice.Services[0].UnitPrice.Equal(models.NewAmountFromInt(1500)))

	assert.Equal(t, []string{"template created"}, events.Messages(diagnostics.CategoryTemplate))

	_, err = s.Create(ctx, "   ", "", sampleContent())
	assert.ErrorIs(t, err, ErrEmptyName)
}

func TestStore_LoadMissing(t *testing.T) {
	s, _, _, _ := newTestStore(t)

	tmpl, err := s.Load(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, tmpl)
}

func TestStore_SaveUpserts(t *testing.T) {
	ctx := context.Background()
	s, _, _, _ := newTestStore(t)

	first := &models.InvoiceTemplate{ID: "x", Name: "First", Invoice: sampleContent()}
	second := &models.InvoiceTemplate{ID: "y", Name: "Second", Invoice: sampleContent()}
	require.NoError(t, s.Save(ctx, first))
	require.NoError(t, s.Save(ctx, second))

	first.Name = "First (renamed)"
	require.NoError(t, s.Save(ctx, first))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "First (renamed)", list[0].Name, "replaced in place")
	assert.Equal(t, "Second", list[1].Name)
}

func TestStore_SaveStoresCopy(t *testing.T) {
	ctx := context.Background()
	s, _, _, _ := newTestStore(t)

	tmpl := &models.InvoiceTemplate{ID: "x", Name: "T", Invoice: sampleContent()}
	require.NoError(t, s.Save(ctx, tmpl))

	tmpl.Invoice.Services[0].Description = "changed after save"

	loaded, err := s.Load(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, "Retainer", loaded.Invoice.Services[0].Description)
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	s, _, _, _ := newTestStore(t)

	a, err := s.Create(ctx, "A", "", sampleContent())
	require.NoError(t, err)
	b, err := s.Create(ctx, "B", "", sampleContent())
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, a.ID))
	require.NoError(t, s.Delete(ctx, "unknown"), "unknown id is a no-op")

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)
}

func TestStore_Update(t *testing.T) {
	ctx := context.Background()
	s, _, clk, _ := newTestStore(t)

	tmpl, err := s.Create(ctx, "Monthly", "old", sampleContent())
	require.NoError(t, err)
	created := tmpl.CreatedAt

	clk.advance(time.Hour)
	content := sampleContent()
	content.Client.Name = "New Client"

	updated, err := s.Update(ctx, tmpl.ID, "", "new", content)
	require.NoError(t, err)
	assert.Equal(t, "Monthly", updated.Name, "empty name keeps the current one")
	assert.Equal(t, "new", updated.Description)
	assert.Equal(t, "New Client", updated.Invoice.Client.Name)
	assert.True(t, updated.CreatedAt.Equal(created))
	assert.True(t, updated.UpdatedAt.Equal(clk.t))

	_, err = s.Update(ctx, "missing", "x", "", content)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Duplicate(t *testing.T) {
	ctx := context.Background()
	s, _, clk, _ := newTestStore(t)

	orig, err := s.Create(ctx, "Monthly", "desc", sampleContent())
	require.NoError(t, err)

	clk.advance(24 * time.Hour)
	dup, err := s.Duplicate(ctx, orig)
	require.NoError(t, err)

	assert.NotEqual(t, orig.ID, dup.ID)
	assert.Equal(t, "Monthly (Copy)", dup.Name)
	assert.Equal(t, "desc", dup.Description)
	assert.True(t, dup.CreatedAt.Equal(clk.t))
	assert.True(t, dup.UpdatedAt.Equal(clk.t))
	assert.Equal(t, orig.Invoice, dup.Invoice)

	dup.Invoice.Services[0].Description = "only in copy"
	assert.Equal(t, "Retainer", orig.Invoice.Services[0].Description)

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = s.Duplicate(ctx, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_MalformedCollection(t *testing.T) {
	ctx := context.Background()
	s, kv, _, _ := newTestStore(t)
	kv.Put(storage.KeyTemplates, []byte(`{"not":"a list"}`))

	_, err := s.List(ctx)
	assert.ErrorIs(t, err, storage.ErrMalformed)

	err = s.Save(ctx, &models.InvoiceTemplate{ID: "x", Name: "T"})
	assert.ErrorIs(t, err, storage.ErrMalformed)

	raw, _ := kv.Raw(storage.KeyTemplates)
	assert.Equal(t, `{"not":"a list"}`, string(raw), "malformed data must not be overwritten")
}

func TestStore_WriteFailure(t *testing.T) {
	ctx := context.Background()
	s, kv, _, _ := newTestStore(t)
	kv.FailWrites = true

	_, err := s.Create(ctx, "Monthly", "", sampleContent())
	assert.ErrorIs(t, err, storage.ErrUnavailable)
}
