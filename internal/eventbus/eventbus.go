package eventbus

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Envelope описывает универсальный контейнер события жизненного цикла клиента.
type Envelope struct {
	ID        string            // Глобально уникальный идентификатор (UUID).
	Timestamp time.Time         // Время создания события (UTC).
	Source    string            // Имя компонента-источника.
	EventType string            // Тип события (session.connected, map.resync…).
	Metadata  map[string]string // Произвольные метаданные.
}

// Типы событий, публикуемых компонентами клиента.
const (
	EventSessionConnected    = "session.connected"
	EventSessionDisconnected = "session.disconnected"
	EventMapSnapshot         = "map.snapshot"
	EventMapResync           = "map.resync"
	EventBaselineInjected    = "map.baseline"
)

// Filter позволяет подписаться только на нужные события.
type Filter struct {
	Types   []string // Если пусто — все типы.
	Sources []string // Если пусто — все источники.
}

// Subscription возвращается при подписке; позволяет отписаться.
type Subscription interface {
	Unsubscribe()
}

// Handler потребляет события.
type Handler func(ctx context.Context, ev *Envelope)

// Stats агрегированные метрики шины.
type Stats struct {
	Published uint64
	Consumed  uint64
	Dropped   uint64
	InFlight  int
}

// EventBus определяет абстракцию шины событий. Клиент — один процесс,
// поэтому реализация одна (in-memory); интерфейс оставлен, чтобы внешние
// потребители не зависели от конкретики.
type EventBus interface {
	Publish(ctx context.Context, ev *Envelope) error
	Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error)
	Metrics() Stats
}

// PublishEvent — вспомогательная публикация события с числовым значением.
// Безопасна при bus == nil (шина опциональна).
func PublishEvent(bus EventBus, eventType string, value uint64) {
	if bus == nil {
		return
	}
	_ = bus.Publish(context.Background(), &Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    "mmo-client",
		EventType: eventType,
		Metadata:  map[string]string{"value": strconv.FormatUint(value, 10)},
	})
}

//================ In-Memory implementation =================//

type memoryBus struct {
	mu          sync.RWMutex
	subscribers map[int]subscriber
	nextID      int
	stats       Stats
	buffer      chan *Envelope
}

type subscriber struct {
	filter  Filter
	handler Handler
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewMemoryBus создаёт in-memory Bus с указанным буфером.
func NewMemoryBus(capacity int) EventBus {
	mb := &memoryBus{
		subscribers: make(map[int]subscriber),
		buffer:      make(chan *Envelope, capacity),
	}
	go mb.dispatchLoop()
	return mb
}

func (mb *memoryBus) Publish(ctx context.Context, ev *Envelope) error {
	select {
	case mb.buffer <- ev:
		mb.mu.Lock()
		mb.stats.Published++
		mb.mu.Unlock()
		return nil
	default:
		// Буфер заполнен — события жизненного цикла не критичны, дропаем
		mb.mu.Lock()
		mb.stats.Dropped++
		mb.mu.Unlock()
		return nil
	}
}

func (mb *memoryBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	mb.mu.Lock()
	id := mb.nextID
	mb.nextID++
	cctx, cancel := context.WithCancel(ctx)
	mb.subscribers[id] = subscriber{filter: f, handler: h, ctx: cctx, cancel: cancel}
	mb.mu.Unlock()

	return &memSub{bus: mb, id: id}, nil
}

func (mb *memoryBus) Metrics() Stats {
	mb.mu.RLock()
	defer mb.mu.RUnlock()
	s := mb.stats
	s.InFlight = len(mb.buffer)
	return s
}

// dispatchLoop рассылает события подписчикам.
func (mb *memoryBus) dispatchLoop() {
	for ev := range mb.buffer {
		mb.mu.RLock()
		subs := make([]subscriber, 0, len(mb.subscribers))
		for _, sub := range mb.subscribers {
			subs = append(subs, sub)
		}
		mb.mu.RUnlock()

		for _, sub := range subs {
			if !matchFilter(ev, sub.filter) {
				continue
			}
			select {
			case <-sub.ctx.Done():
				continue
			default:
				sub.handler(sub.ctx, ev)
				mb.mu.Lock()
				mb.stats.Consumed++
				mb.mu.Unlock()
			}
		}
	}
}

func matchFilter(ev *Envelope, f Filter) bool {
	match := func(val string, arr []string) bool {
		if len(arr) == 0 {
			return true
		}
		for _, v := range arr {
			if v == val {
				return true
			}
		}
		return false
	}
	return match(ev.EventType, f.Types) && match(ev.Source, f.Sources)
}

type memSub struct {
	bus *memoryBus
	id  int
}

func (s *memSub) Unsubscribe() {
	s.bus.mu.Lock()
	if sub, ok := s.bus.subscribers[s.id]; ok {
		sub.cancel()
		delete(s.bus.subscribers, s.id)
	}
	s.bus.mu.Unlock()
}
