package store_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genesis/internal/domain"
	"genesis/internal/storage"
	"genesis/internal/store"
)

func TestLoad_FallbackWhenMissing(t *testing.T) {
	kv := storage.NewMemoryKV()
	p := store.Load(kv, "activeTemplate", domain.TemplateCard, nil)
	assert.Equal(t, domain.TemplateCard, p.Get())
}

func TestLoad_NilKVIsInMemory(t *testing.T) {
	p := store.Load[string](nil, "selectedBlockId", "", nil)
	require.NoError(t, p.Set("b1"))
	assert.Equal(t, "b1", p.Get())
}

func TestSet_MirrorsToKV(t *testing.T) {
	kv := storage.NewMemoryKV()
	p := store.Load(kv, "globalStyles", domain.DefaultGlobalStyles(), nil)
	require.NoError(t, p.Set(domain.GlobalStyles{FontFamily: domain.FontLora}))

	raw, ok, err := kv.Get("globalStyles")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"fontFamily":"Lora"}`, raw)

	reloaded := store.Load(kv, "globalStyles", domain.DefaultGlobalStyles(), nil)
	assert.Equal(t, domain.FontLora, reloaded.Get().FontFamily)
}

func TestLoad_MalformedIsDiscarded(t *testing.T) {
	kv := storage.NewMemoryKV()
	require.NoError(t, kv.Set("blocks", "{not json"))

	p := store.Load(kv, "blocks", []domain.Block{}, nil)
	assert.Empty(t, p.Get())

	_, ok, _ := kv.Get("blocks")
	assert.False(t, ok, "malformed value is removed")
}

func TestLoad_BlocksBackfillDefaults(t *testing.T) {
	kv := storage.NewMemoryKV()
	require.NoError(t, kv.Set("blocks", `[{"id":"b1","type":"Header","props":{"titulo":"X"}}]`))

	p := store.Load(kv, "blocks", []domain.Block{}, nil)
	blocks := p.Get()
	require.Len(t, blocks, 1)

	def := domain.DefaultProps(domain.BlockTypeHeader).(domain.HeaderProps)
	got := blocks[0].Props.(domain.HeaderProps)
	assert.Equal(t, "X", got.Titulo)
	assert.Equal(t, def.CorDeFundo, got.CorDeFundo)
	assert.Equal(t, def.TituloStyle, got.TituloStyle)
	assert.Equal(t, def.Geometry, got.Geometry)
}

func TestRoundTrip_Document(t *testing.T) {
	kv := storage.NewMemoryKV()
	blocks := []domain.Block{
		domain.NewBlock(domain.BlockTypeHeader),
		domain.NewBlock(domain.BlockTypeProfileCard),
		domain.NewBlock(domain.BlockTypeLinkList),
		domain.NewBlock(domain.BlockTypeRichText),
		domain.NewBlock(domain.BlockTypeImageBlock),
	}
	require.NoError(t, store.Load(kv, "blocks", []domain.Block{}, nil).Set(blocks))

	reloaded := store.Load(kv, "blocks", []domain.Block{}, nil).Get()
	assert.True(t, domain.EqualBlocks(blocks, reloaded))
}

func TestUpdateAndSubscribe(t *testing.T) {
	p := store.Load(storage.NewMemoryKV(), "counter", 0, nil)

	var seen []int
	unsubscribe := p.Subscribe(func(v int) { seen = append(seen, v) })

	require.NoError(t, p.Update(func(v int) int { return v + 1 }))
	require.NoError(t, p.Set(10))
	unsubscribe()
	require.NoError(t, p.Set(11))

	assert.Equal(t, []int{1, 10}, seen)
	assert.Equal(t, 11, p.Get())
}

type failingKV struct{ *storage.MemoryKV }

func (f *failingKV) Set(string, string) error { return assert.AnError }

func TestSet_WriteFailureKeepsMemoryValue(t *testing.T) {
	kv := &failingKV{MemoryKV: storage.NewMemoryKV()}
	p := store.Load[json.RawMessage](kv, "raw", nil, nil)
	err := p.Set(json.RawMessage(`{"a":1}`))
	assert.ErrorIs(t, err, assert.AnError)
	assert.JSONEq(t, `{"a":1}`, string(p.Get()))
}

func TestRefresh_PicksUpExternalWrites(t *testing.T) {
	kv := storage.NewMemoryKV()
	p := store.Load(kv, "activeTemplate", domain.TemplateNone, nil)

	var seen []domain.Template
	p.Subscribe(func(v domain.Template) { seen = append(seen, v) })

	require.NoError(t, kv.Set("activeTemplate", `"landing"`))
	v, err := p.Refresh()
	require.NoError(t, err)
	assert.Equal(t, domain.TemplateLanding, v)
	assert.Equal(t, domain.TemplateLanding, p.Get())
	assert.Equal(t, []domain.Template{domain.TemplateLanding}, seen)

	require.NoError(t, kv.Set("activeTemplate", `{broken`))
	v, err = p.Refresh()
	assert.Error(t, err)
	assert.Equal(t, domain.TemplateLanding, v)

	require.NoError(t, kv.Delete("activeTemplate"))
	v, err = p.Refresh()
	require.NoError(t, err)
	assert.Equal(t, domain.TemplateLanding, v)
}
