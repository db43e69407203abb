package sync

import (
	"sort"
	syncpkg "sync"

	"github.com/annel0/mmo-client/internal/protocol"
	"github.com/annel0/mmo-client/internal/vec"
	"github.com/annel0/mmo-client/internal/world"
)

// ApplyResult — исход применения инкрементальной пачки операций.
type ApplyResult int

const (
	// ResultApplied — версия совпала, операции применены
	ResultApplied ApplyResult = iota
	// ResultStale — версия не новее текущей, пачка молча отброшена
	ResultStale
	// ResultGap — разрыв версий, требуется полный ресинк
	ResultGap
)

// Applier превращает упорядоченный поток типизированных операций add/remove
// в мутации ColumnStore и умеет перестраивать хранилище с нуля из
// накопленной пары множеств. Единственный писатель ColumnStore.
type Applier struct {
	mu    syncpkg.Mutex
	store *world.ColumnStore
	state *DiffState
	hints *TypeHintCache

	// Одноразовый флаг: поднимается добавлением LOCK-спана и потребляется
	// внешней процедурой сверки. Этим компонентом никогда не опускается.
	lockReplay bool
}

// NewApplier создаёт применитель поверх хранилища колонок
func NewApplier(store *world.ColumnStore, hints *TypeHintCache) *Applier {
	if hints == nil {
		hints = NewTypeHintCache(DefaultHintCapacity)
	}
	return &Applier{
		store: store,
		state: NewDiffState(),
		hints: hints,
	}
}

// Version возвращает текущую серверную версию журнала
func (a *Applier) Version() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.Version()
}

// LocalVersion возвращает счётчик локальных офлайн-правок
func (a *Applier) LocalVersion() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.LocalVersion()
}

// LockReplayPending сообщает, поднят ли флаг сверки LOCK-спанов
func (a *Applier) LockReplayPending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lockReplay
}

// Snapshot возвращает сериализуемую копию состояния диффов
func (a *Applier) Snapshot() PersistedState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.Snapshot()
}

// resolveType определяет тип операции add: явный тег, затем кеш подсказок,
// затем тип по умолчанию.
func (a *Applier) resolveType(op protocol.Op) world.SpanType {
	if op.T != nil {
		if t := world.SpanType(*op.T); t.IsValid() {
			return t
		}
	}
	if t, ok := a.hints.Get(op.Key); ok {
		return t
	}
	return world.SpanSolid
}

// recordAddLocked заносит типизированный add в множество. Solid-like тип
// вытесняет ключи других solid-like типов того же вокселя: на одной высоте
// живёт не более одного такого типа, и множества обязаны отражать это так же,
// как живое хранилище (иначе перестройка из снапшота разойдётся с ним).
// Маркеры сосуществуют и ничего не вытесняют.
func (a *Applier) recordAddLocked(cell vec.Vec2, y int, t world.SpanType) {
	if t.IsSolidLike() {
		for other := world.SpanSolid; other <= world.SpanNoClimb; other++ {
			if other != t && other.IsSolidLike() {
				delete(a.state.adds, FormatAddKey(cell, y, other))
			}
		}
	}
	a.state.adds[FormatAddKey(cell, y, t)] = struct{}{}
	if t == world.SpanLock {
		a.lockReplay = true
	}
}

// ApplyFullSnapshot сбрасывает множества add/remove, заново накапливает их
// из ops, выставляет версию снапшота и перестраивает ColumnStore с нуля.
// Вызывается только при (пере)подключении или явном ресинке.
func (a *Applier) ApplyFullSnapshot(version uint64, ops []protocol.Op) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.state.reset()
	for _, op := range ops {
		switch op.Op {
		case protocol.OpAdd:
			cell, y, ok := ParseVoxelKey(op.Key)
			if !ok {
				continue
			}
			a.recordAddLocked(cell, y, a.resolveType(op))
		case protocol.OpRemove:
			if _, _, ok := ParseVoxelKey(op.Key); ok {
				a.state.removes[op.Key] = struct{}{}
			}
		}
	}
	a.state.version = version

	a.rebuildLocked()
}

// rebuildLocked перестраивает всё хранилище колонок из add-множества:
// воксели группируются по ячейке, разделяются по точному типу и
// сливаются в непрерывные интервалы.
func (a *Applier) rebuildLocked() {
	byCell := make(map[vec.Vec2]map[world.SpanType][]int)
	for key := range a.state.adds {
		cell, y, t, ok := ParseAddKey(key)
		if !ok {
			continue
		}
		if byCell[cell] == nil {
			byCell[cell] = make(map[world.SpanType][]int)
		}
		byCell[cell][t] = append(byCell[cell][t], y)
	}

	a.store.Clear()
	for cell, byType := range byCell {
		spans := make([]world.Span, 0, 4)
		for t, ys := range byType {
			spans = append(spans, mergeRuns(ys, t)...)
		}
		a.store.SetSpans(cell, spans)
	}
}

// mergeRuns сливает отсортированные воксельные высоты одного типа в
// непрерывные спаны. Полуслэбы не примыкают друг к другу (высота 0.5)
// и остаются отдельными спанами.
func mergeRuns(ys []int, t world.SpanType) []world.Span {
	if len(ys) == 0 {
		return nil
	}
	sort.Ints(ys)

	unit := t.UnitHeight()
	spans := make([]world.Span, 0, len(ys))
	base, prev := ys[0], ys[0]
	for _, y := range ys[1:] {
		if y == prev {
			continue
		}
		if y == prev+1 && unit == 1.0 {
			prev = y
			continue
		}
		spans = append(spans, world.Span{Base: float64(base), Height: float64(prev-base) + unit, Type: t})
		base, prev = y, y
	}
	spans = append(spans, world.Span{Base: float64(base), Height: float64(prev-base) + unit, Type: t})
	return spans
}

// ApplyIncrementalOps применяет пачку операций версии version.
// Требование: version == текущая версия + 1. Версия не новее текущей —
// ResultStale (дубликат или устаревшее), разрыв — ResultGap; в обоих
// случаях хранилище не мутируется.
func (a *Applier) ApplyIncrementalOps(version uint64, ops []protocol.Op) ApplyResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	if version <= a.state.version {
		return ResultStale
	}
	if version != a.state.version+1 {
		return ResultGap
	}

	for _, op := range ops {
		a.applyOpLocked(op, false)
	}
	a.state.version = version
	return ResultApplied
}

// ApplyLocalOps применяет локальные правки (офлайн-режим или оптимистичное
// применение до серверного эха). Серверная версия не трогается; растёт
// локальный счётчик. Тип каждой типизированной правки запоминается в кеше
// подсказок, чтобы эхо без тега восстановило тип корректно.
func (a *Applier) ApplyLocalOps(ops []protocol.Op) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, op := range ops {
		a.applyOpLocked(op, true)
	}
	a.state.localVersion++
}

// applyOpLocked применяет одну операцию к множествам и проецирует её в
// хранилище. Add отменяет ожидающий remove того же ключа и наоборот.
func (a *Applier) applyOpLocked(op protocol.Op, local bool) {
	cell, y, ok := ParseVoxelKey(op.Key)
	if !ok {
		return
	}

	switch op.Op {
	case protocol.OpAdd:
		t := a.resolveType(op)
		if local {
			a.hints.Put(op.Key, t)
		}
		delete(a.state.removes, op.Key)
		a.recordAddLocked(cell, y, t)
		a.store.InsertSpan(cell, world.Span{Base: float64(y), Height: t.UnitHeight(), Type: t})
	case protocol.OpRemove:
		for t := world.SpanSolid; t <= world.SpanNoClimb; t++ {
			delete(a.state.adds, FormatAddKey(cell, y, t))
		}
		a.state.removes[op.Key] = struct{}{}
		a.store.RemoveVoxel(cell, y)
	}
}

// RestorePersisted восстанавливает состояние из локального хранилища тем же
// путём, что и полный снапшот: множества пересобираются и хранилище
// перестраивается с нуля.
func (a *Applier) RestorePersisted(ps PersistedState) {
	ops := make([]protocol.Op, 0, len(ps.Adds)+len(ps.Removes))
	for _, key := range ps.Adds {
		cell, y, t, ok := ParseAddKey(key)
		if !ok {
			continue
		}
		tt := int(t)
		ops = append(ops, protocol.Op{Op: protocol.OpAdd, Key: FormatVoxelKey(cell, y), T: &tt})
	}
	for _, key := range ps.Removes {
		ops = append(ops, protocol.Op{Op: protocol.OpRemove, Key: key})
	}
	a.ApplyFullSnapshot(ps.Version, ops)
}
