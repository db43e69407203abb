package world

import (
	"sync"

	"github.com/annel0/mmo-client/internal/vec"
)

// ColumnStore хранит вертикальную геометрию мира: на каждую ячейку сетки —
// упорядоченный по основанию список типизированных спанов.
// Единственный писатель — применитель диффов; рендер и физика читают копии.
type ColumnStore struct {
	mu      sync.RWMutex
	columns map[vec.Vec2][]Span
}

// NewColumnStore создаёт пустое хранилище колонок
func NewColumnStore() *ColumnStore {
	return &ColumnStore{
		columns: make(map[vec.Vec2][]Span),
	}
}

// Spans возвращает копию списка спанов ячейки.
// Для нетронутой ячейки возвращается пустой список.
func (cs *ColumnStore) Spans(cell vec.Vec2) []Span {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	spans := cs.columns[cell]
	out := make([]Span, len(spans))
	copy(out, spans)
	return out
}

// SetSpans заменяет список спанов ячейки целиком.
// Вызывающая сторона отвечает за нормализацию (слияние/рассечение).
func (cs *ColumnStore) SetSpans(cell vec.Vec2, spans []Span) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if len(spans) == 0 {
		delete(cs.columns, cell)
		return
	}
	own := make([]Span, len(spans))
	copy(own, spans)
	sortSpans(own)
	cs.columns[cell] = own
}

// InsertSpan вставляет спан с поддержанием инвариантов колонки
func (cs *ColumnStore) InsertSpan(cell vec.Vec2, span Span) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	updated := insertSpan(cs.columns[cell], span)
	if len(updated) == 0 {
		delete(cs.columns, cell)
		return
	}
	cs.columns[cell] = updated
}

// RemoveVoxel удаляет единичный интервал [y, y+1) из всех спанов ячейки.
// Удаление из пустой ячейки — no-op.
func (cs *ColumnStore) RemoveVoxel(cell vec.Vec2, y int) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	spans, ok := cs.columns[cell]
	if !ok {
		return
	}
	updated := removeVoxel(spans, y)
	if len(updated) == 0 {
		delete(cs.columns, cell)
		return
	}
	cs.columns[cell] = updated
}

// Clear удаляет все колонки
func (cs *ColumnStore) Clear() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.columns = make(map[vec.Vec2][]Span)
}

// CellCount возвращает число непустых ячеек
func (cs *ColumnStore) CellCount() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	return len(cs.columns)
}

// ForEachColumn обходит все колонки, передавая копии списков спанов.
// Используется сериализацией сохранений и отладочными инструментами.
func (cs *ColumnStore) ForEachColumn(fn func(cell vec.Vec2, spans []Span)) {
	cs.mu.RLock()
	cells := make([]vec.Vec2, 0, len(cs.columns))
	for cell := range cs.columns {
		cells = append(cells, cell)
	}
	cs.mu.RUnlock()

	for _, cell := range cells {
		spans := cs.Spans(cell)
		if len(spans) > 0 {
			fn(cell, spans)
		}
	}
}
