package world

import (
	"testing"

	"github.com/annel0/mmo-client/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnStore_SpansReturnsCopy(t *testing.T) {
	cs := NewColumnStore()
	cell := vec.Vec2{X: 0, Y: 0}
	cs.InsertSpan(cell, Span{Base: 0, Height: 2, Type: SpanSolid})

	spans := cs.Spans(cell)
	spans[0].Height = 99

	assert.Equal(t, 2.0, cs.Spans(cell)[0].Height, "Мутация копии не должна менять хранилище")
}

func TestColumnStore_SetSpansReplacesAndSorts(t *testing.T) {
	cs := NewColumnStore()
	cell := vec.Vec2{X: 1, Y: 1}
	cs.InsertSpan(cell, Span{Base: 0, Height: 1, Type: SpanHazard})

	cs.SetSpans(cell, []Span{
		{Base: 4, Height: 1, Type: SpanSolid},
		{Base: 0, Height: 1, Type: SpanSolid},
	})

	spans := cs.Spans(cell)
	require.Len(t, spans, 2, "SetSpans полностью заменяет колонку")
	assert.Equal(t, 0.0, spans[0].Base, "Спаны должны быть отсортированы по основанию")
	assert.Equal(t, 4.0, spans[1].Base)
}

func TestColumnStore_SetSpansEmptyDeletesCell(t *testing.T) {
	cs := NewColumnStore()
	cell := vec.Vec2{X: 1, Y: 1}
	cs.InsertSpan(cell, Span{Base: 0, Height: 1, Type: SpanSolid})
	require.Equal(t, 1, cs.CellCount())

	cs.SetSpans(cell, nil)
	assert.Equal(t, 0, cs.CellCount(), "Пустая колонка удаляется из карты")
}

func TestColumnStore_ClearAndForEach(t *testing.T) {
	cs := NewColumnStore()
	cs.InsertSpan(vec.Vec2{X: 0, Y: 0}, Span{Base: 0, Height: 1, Type: SpanSolid})
	cs.InsertSpan(vec.Vec2{X: 1, Y: 0}, Span{Base: 0, Height: 1, Type: SpanFence})

	seen := 0
	cs.ForEachColumn(func(cell vec.Vec2, spans []Span) {
		seen++
		assert.NotEmpty(t, spans)
	})
	assert.Equal(t, 2, seen)

	cs.Clear()
	assert.Equal(t, 0, cs.CellCount())
}

func TestPortalStore_SetRemoveSnapshot(t *testing.T) {
	ps := NewPortalStore()
	ps.Set("1,2", "hub")
	ps.Set("3,4", "arena")

	dest, ok := ps.Get("1,2")
	require.True(t, ok)
	assert.Equal(t, "hub", dest)

	ps.Remove("1,2")
	_, ok = ps.Get("1,2")
	assert.False(t, ok, "Удалённый портал не должен находиться")
	assert.Equal(t, 1, ps.Len())

	snap := ps.Snapshot()
	snap["3,4"] = "mutated"
	dest, _ = ps.Get("3,4")
	assert.Equal(t, "arena", dest, "Snapshot должен быть копией")
}

func TestPortalStore_ReplaceAll(t *testing.T) {
	ps := NewPortalStore()
	ps.Set("1,1", "old")
	ps.ReplaceAll(map[string]string{"2,2": "new"})

	_, ok := ps.Get("1,1")
	assert.False(t, ok, "ReplaceAll должен вытеснить прежнее содержимое")
	assert.Equal(t, 1, ps.Len())
}

func TestItemStore_KeyedWithAndWithoutHeight(t *testing.T) {
	is := NewItemStore()
	y := 3
	is.Add(GroundItem{Cell: vec.Vec2{X: 1, Y: 2}, Y: &y, Kind: "gem"})
	is.Add(GroundItem{Cell: vec.Vec2{X: 1, Y: 2}, Kind: "coin"})

	assert.Equal(t, 2, is.Len(), "Предметы с высотой и без — разные ключи")

	is.Remove(vec.Vec2{X: 1, Y: 2}, &y)
	assert.Equal(t, 1, is.Len())

	items := is.Snapshot()
	require.Len(t, items, 1)
	assert.Equal(t, "coin", items[0].Kind)
}
