package world

import (
	"fmt"
	"sync"

	"github.com/annel0/mmo-client/internal/vec"
)

// GroundItem — предмет, лежащий в мире.
type GroundItem struct {
	Cell    vec.Vec2               `json:"cell"`
	Y       *int                   `json:"y,omitempty"` // Высота; nil для предметов на уровне пола
	Kind    string                 `json:"kind"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// key возвращает ключ предмета "gx,gy[,y]"
func (gi GroundItem) key() string {
	if gi.Y != nil {
		return fmt.Sprintf("%d,%d,%d", gi.Cell.X, gi.Cell.Y, *gi.Y)
	}
	return gi.Cell.Key()
}

// ItemStore хранит предметы мира. Как и порталы, под-поток предметов
// реплицируется независимо: полное сообщение замещает всё содержимое.
type ItemStore struct {
	mu    sync.RWMutex
	items map[string]GroundItem
}

// NewItemStore создаёт пустое хранилище предметов
func NewItemStore() *ItemStore {
	return &ItemStore{items: make(map[string]GroundItem)}
}

// Add добавляет или замещает предмет
func (is *ItemStore) Add(item GroundItem) {
	is.mu.Lock()
	defer is.mu.Unlock()
	is.items[item.key()] = item
}

// Remove удаляет предмет по позиции
func (is *ItemStore) Remove(cell vec.Vec2, y *int) {
	is.mu.Lock()
	defer is.mu.Unlock()
	delete(is.items, GroundItem{Cell: cell, Y: y}.key())
}

// ReplaceAll заменяет все предметы содержимым полного снапшота
func (is *ItemStore) ReplaceAll(items []GroundItem) {
	is.mu.Lock()
	defer is.mu.Unlock()

	is.items = make(map[string]GroundItem, len(items))
	for _, item := range items {
		is.items[item.key()] = item
	}
}

// Snapshot возвращает копию всех предметов
func (is *ItemStore) Snapshot() []GroundItem {
	is.mu.RLock()
	defer is.mu.RUnlock()

	out := make([]GroundItem, 0, len(is.items))
	for _, item := range is.items {
		out = append(out, item)
	}
	return out
}

// Len возвращает число предметов
func (is *ItemStore) Len() int {
	is.mu.RLock()
	defer is.mu.RUnlock()
	return len(is.items)
}
