package sync

import (
	syncpkg "sync"

	"github.com/annel0/mmo-client/internal/world"
)

// DefaultHintCapacity — ёмкость кеша подсказок по умолчанию
const DefaultHintCapacity = 4096

// TypeHintCache — ограниченный кеш "воксельный ключ -> последний известный тип".
// Нужен для legacy-совместимости: сервер может эхо-подтверждать операцию
// без явного тега типа, и тип приходится восстанавливать по подсказке.
// При переполнении вытесняется самая старая запись.
type TypeHintCache struct {
	mu       syncpkg.Mutex
	capacity int
	hints    map[string]world.SpanType
	order    []string // Очередь вставки для вытеснения
}

// NewTypeHintCache создаёт кеш с указанной ёмкостью
func NewTypeHintCache(capacity int) *TypeHintCache {
	if capacity <= 0 {
		capacity = DefaultHintCapacity
	}
	return &TypeHintCache{
		capacity: capacity,
		hints:    make(map[string]world.SpanType, capacity),
		order:    make([]string, 0, capacity),
	}
}

// Put запоминает тип локально отправленного add для воксельного ключа
func (c *TypeHintCache) Put(voxelKey string, t world.SpanType) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.hints[voxelKey]; !exists {
		for len(c.order) >= c.capacity {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.hints, oldest)
		}
		c.order = append(c.order, voxelKey)
	}
	c.hints[voxelKey] = t
}

// Get возвращает подсказку типа для воксельного ключа
func (c *TypeHintCache) Get(voxelKey string) (world.SpanType, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.hints[voxelKey]
	return t, ok
}

// Len возвращает число записей в кеше
func (c *TypeHintCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.hints)
}
