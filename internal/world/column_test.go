package world

import (
	"math/rand"
	"testing"

	"github.com/annel0/mmo-client/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertSpan_MergeSameType(t *testing.T) {
	cs := NewColumnStore()
	cell := vec.Vec2{X: 1, Y: 2}

	// Примыкающие спаны одного типа сливаются в один
	cs.InsertSpan(cell, Span{Base: 0, Height: 1, Type: SpanSolid})
	cs.InsertSpan(cell, Span{Base: 1, Height: 1, Type: SpanSolid})
	cs.InsertSpan(cell, Span{Base: 2, Height: 1, Type: SpanSolid})

	spans := cs.Spans(cell)
	require.Len(t, spans, 1, "Примыкающие спаны должны слиться")
	assert.Equal(t, Span{Base: 0, Height: 3, Type: SpanSolid}, spans[0])
}

func TestInsertSpan_MergeWithGapStaysSplit(t *testing.T) {
	cs := NewColumnStore()
	cell := vec.Vec2{X: 0, Y: 0}

	cs.InsertSpan(cell, Span{Base: 0, Height: 1, Type: SpanSolid})
	cs.InsertSpan(cell, Span{Base: 3, Height: 1, Type: SpanSolid})

	spans := cs.Spans(cell)
	assert.Len(t, spans, 2, "Спаны с разрывом не должны сливаться")
}

func TestInsertSpan_ConflictingTypeSplits(t *testing.T) {
	// Сценарий из коллизионной модели: SOLID {b:0,h:3} + HAZARD {b:1,h:1}
	// должен дать SOLID {0,1}, HAZARD {1,1}, SOLID {2,1}
	cs := NewColumnStore()
	cell := vec.Vec2{X: 5, Y: 5}

	cs.InsertSpan(cell, Span{Base: 0, Height: 3, Type: SpanSolid})
	cs.InsertSpan(cell, Span{Base: 1, Height: 1, Type: SpanHazard})

	spans := cs.Spans(cell)
	require.Len(t, spans, 3, "Конфликтующий спан должен рассечь существующий")
	assert.Equal(t, Span{Base: 0, Height: 1, Type: SpanSolid}, spans[0])
	assert.Equal(t, Span{Base: 1, Height: 1, Type: SpanHazard}, spans[1])
	assert.Equal(t, Span{Base: 2, Height: 1, Type: SpanSolid}, spans[2])
}

func TestInsertSpan_ConflictKeepsOnlyRemainders(t *testing.T) {
	cs := NewColumnStore()
	cell := vec.Vec2{X: 0, Y: 0}

	// Полное накрытие: существующий спан исчезает целиком
	cs.InsertSpan(cell, Span{Base: 1, Height: 1, Type: SpanFence})
	cs.InsertSpan(cell, Span{Base: 0, Height: 3, Type: SpanSolid})

	spans := cs.Spans(cell)
	require.Len(t, spans, 1)
	assert.Equal(t, Span{Base: 0, Height: 3, Type: SpanSolid}, spans[0])
}

func TestInsertSpan_MarkerOverlaysSolid(t *testing.T) {
	cs := NewColumnStore()
	cell := vec.Vec2{X: 3, Y: 3}

	cs.InsertSpan(cell, Span{Base: 0, Height: 3, Type: SpanSolid})
	cs.InsertSpan(cell, Span{Base: 1, Height: 1, Type: SpanPortal})

	spans := cs.Spans(cell)
	require.Len(t, spans, 2, "Маркер не должен рассекать solid-спан")

	var solid, portal int
	for _, s := range spans {
		switch s.Type {
		case SpanSolid:
			solid++
			assert.Equal(t, 3.0, s.Height, "Solid-спан должен остаться нетронутым")
		case SpanPortal:
			portal++
		}
	}
	assert.Equal(t, 1, solid)
	assert.Equal(t, 1, portal)
}

func TestInsertSpan_SolidDoesNotSplitMarker(t *testing.T) {
	cs := NewColumnStore()
	cell := vec.Vec2{X: 3, Y: 3}

	cs.InsertSpan(cell, Span{Base: 0, Height: 2, Type: SpanLock})
	cs.InsertSpan(cell, Span{Base: 0, Height: 3, Type: SpanSolid})

	spans := cs.Spans(cell)
	require.Len(t, spans, 2)
	for _, s := range spans {
		if s.Type == SpanLock {
			assert.Equal(t, 2.0, s.Height, "Маркер не должен рассекаться solid-спаном")
		}
	}
}

func TestRemoveVoxel_SplitsSpan(t *testing.T) {
	cs := NewColumnStore()
	cell := vec.Vec2{X: 0, Y: 0}

	cs.InsertSpan(cell, Span{Base: 0, Height: 5, Type: SpanSolid})
	cs.RemoveVoxel(cell, 2)

	spans := cs.Spans(cell)
	require.Len(t, spans, 2, "Удаление из середины должно рассечь спан")
	assert.Equal(t, Span{Base: 0, Height: 2, Type: SpanSolid}, spans[0])
	assert.Equal(t, Span{Base: 3, Height: 2, Type: SpanSolid}, spans[1])
}

func TestRemoveVoxel_AllTypes(t *testing.T) {
	cs := NewColumnStore()
	cell := vec.Vec2{X: 0, Y: 0}

	cs.InsertSpan(cell, Span{Base: 0, Height: 2, Type: SpanSolid})
	cs.InsertSpan(cell, Span{Base: 0, Height: 2, Type: SpanPortal})
	cs.RemoveVoxel(cell, 0)

	spans := cs.Spans(cell)
	require.Len(t, spans, 2, "Удаление затрагивает спаны всех типов")
	for _, s := range spans {
		assert.Equal(t, 1.0, s.Base, "Нижняя единица должна быть удалена у обоих типов")
		assert.Equal(t, 1.0, s.Height)
	}
}

func TestRemoveVoxel_EmptyCellIsNoop(t *testing.T) {
	cs := NewColumnStore()
	cs.RemoveVoxel(vec.Vec2{X: 9, Y: 9}, 0)
	assert.Empty(t, cs.Spans(vec.Vec2{X: 9, Y: 9}))
}

func TestRemoveVoxel_DropsDegenerateRemainders(t *testing.T) {
	cs := NewColumnStore()
	cell := vec.Vec2{X: 0, Y: 0}

	cs.InsertSpan(cell, Span{Base: 2, Height: 1, Type: SpanSolid})
	cs.RemoveVoxel(cell, 2)

	assert.Empty(t, cs.Spans(cell), "Остатки нулевой высоты отбрасываются")
	assert.Equal(t, 0, cs.CellCount())
}

func TestRemoveVoxel_HalfSlab(t *testing.T) {
	cs := NewColumnStore()
	cell := vec.Vec2{X: 0, Y: 0}

	cs.InsertSpan(cell, Span{Base: 1, Height: 0.5, Type: SpanHalfSlab})
	cs.RemoveVoxel(cell, 1)

	assert.Empty(t, cs.Spans(cell), "Полуслэб внутри [y, y+1) должен исчезнуть")
}

// checkInvariants проверяет инварианты колонки: слитость одинаковых типов
// и отсутствие пересечений разных solid-like типов
func checkInvariants(t *testing.T, spans []Span) {
	t.Helper()
	for i, a := range spans {
		for j, b := range spans {
			if i >= j {
				continue
			}
			if a.Type == b.Type {
				assert.False(t, a.Touches(b),
					"Спаны одного типа %v не должны пересекаться или примыкать: %+v и %+v", a.Type, a, b)
			} else if a.Type.IsSolidLike() && b.Type.IsSolidLike() {
				assert.False(t, a.Overlaps(b),
					"Solid-like спаны разных типов не должны пересекаться: %+v и %+v", a, b)
			}
		}
	}
}

func TestColumnInvariants_RandomOps(t *testing.T) {
	// Инвариант должен держаться после любой последовательности операций
	cs := NewColumnStore()
	cell := vec.Vec2{X: 7, Y: -3}
	rng := rand.New(rand.NewSource(42))

	types := []SpanType{SpanSolid, SpanHazard, SpanFence, SpanBadFence, SpanNoClimb, SpanHalfSlab, SpanPortal, SpanLock}
	for i := 0; i < 500; i++ {
		if rng.Intn(4) == 0 {
			cs.RemoveVoxel(cell, rng.Intn(12))
		} else {
			tt := types[rng.Intn(len(types))]
			cs.InsertSpan(cell, Span{
				Base:   float64(rng.Intn(10)),
				Height: tt.UnitHeight() * float64(1+rng.Intn(3)),
				Type:   tt,
			})
		}
		checkInvariants(t, cs.Spans(cell))
	}
}
