package world

import "sync"

// PortalStore хранит назначения порталов по ключу ячейки "gx,gy".
// Под-поток порталов версионируется независимо от геометрии и
// реплицируется по принципу last-writer-wins.
type PortalStore struct {
	mu      sync.RWMutex
	portals map[string]string // ключ ячейки -> уровень назначения
}

// NewPortalStore создаёт пустое хранилище порталов
func NewPortalStore() *PortalStore {
	return &PortalStore{portals: make(map[string]string)}
}

// Set устанавливает назначение портала для ячейки
func (ps *PortalStore) Set(key, dest string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.portals[key] = dest
}

// Remove удаляет портал ячейки
func (ps *PortalStore) Remove(key string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	delete(ps.portals, key)
}

// Get возвращает назначение портала ячейки
func (ps *PortalStore) Get(key string) (string, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	dest, ok := ps.portals[key]
	return dest, ok
}

// ReplaceAll заменяет все порталы содержимым полного снапшота
func (ps *PortalStore) ReplaceAll(portals map[string]string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	ps.portals = make(map[string]string, len(portals))
	for k, dest := range portals {
		ps.portals[k] = dest
	}
}

// Snapshot возвращает копию всех порталов
func (ps *PortalStore) Snapshot() map[string]string {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	out := make(map[string]string, len(ps.portals))
	for k, dest := range ps.portals {
		out[k] = dest
	}
	return out
}

// Len возвращает число порталов
func (ps *PortalStore) Len() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.portals)
}
