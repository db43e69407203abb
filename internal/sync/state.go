package sync

import "sort"

// DiffState — долговечный источник истины о геометрии: пара множеств
// add/remove плюс счётчик версии. ColumnStore — его детерминированная
// проекция. Владеет состоянием исключительно Applier.
type DiffState struct {
	version      uint64
	localVersion uint64 // Счётчик локальных правок офлайн, не связан с серверной нумерацией
	adds         map[string]struct{}
	removes      map[string]struct{}
}

// PersistedState — сериализованная форма DiffState для локального
// хранилища. Восстанавливается тем же путём, что и полный снапшот.
type PersistedState struct {
	Version uint64   `json:"version"`
	Adds    []string `json:"adds"`
	Removes []string `json:"removes"`
}

// NewDiffState создаёт пустое состояние с версией 0
func NewDiffState() *DiffState {
	return &DiffState{
		adds:    make(map[string]struct{}),
		removes: make(map[string]struct{}),
	}
}

// Version возвращает текущую серверную версию
func (ds *DiffState) Version() uint64 {
	return ds.version
}

// LocalVersion возвращает счётчик локальных правок
func (ds *DiffState) LocalVersion() uint64 {
	return ds.localVersion
}

// reset очищает оба множества (версия выставляется отдельно)
func (ds *DiffState) reset() {
	ds.adds = make(map[string]struct{})
	ds.removes = make(map[string]struct{})
}

// Snapshot возвращает сериализуемую копию состояния.
// Списки сортируются для воспроизводимости вывода.
func (ds *DiffState) Snapshot() PersistedState {
	adds := make([]string, 0, len(ds.adds))
	for k := range ds.adds {
		adds = append(adds, k)
	}
	removes := make([]string, 0, len(ds.removes))
	for k := range ds.removes {
		removes = append(removes, k)
	}
	sort.Strings(adds)
	sort.Strings(removes)

	return PersistedState{Version: ds.version, Adds: adds, Removes: removes}
}
