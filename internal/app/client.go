// Package app собирает компоненты клиента в единое целое и владеет
// игровым циклом.
package app

import (
	syncpkg "sync"
	"time"

	"github.com/google/uuid"

	"github.com/annel0/mmo-client/internal/config"
	"github.com/annel0/mmo-client/internal/eventbus"
	"github.com/annel0/mmo-client/internal/logging"
	"github.com/annel0/mmo-client/internal/network"
	"github.com/annel0/mmo-client/internal/protocol"
	"github.com/annel0/mmo-client/internal/replica"
	"github.com/annel0/mmo-client/internal/storage"
	"github.com/annel0/mmo-client/internal/sync"
	"github.com/annel0/mmo-client/internal/vec"
	"github.com/annel0/mmo-client/internal/world"
)

// Период отправки собственной позиции при спокойном цикле
const positionSendPeriod = 500 * time.Millisecond

// Client — клиент синхронизации мира: колонночное хранилище геометрии,
// журнал диффов, сессия с сервером присутствия и воспроизведение
// удалённых сущностей. Все компоненты создаются явно и передаются по
// ссылке; глобальных синглтонов нет.
type Client struct {
	cfg *config.Config

	Store   *world.ColumnStore
	Portals *world.PortalStore
	Items   *world.ItemStore

	applier     *sync.Applier
	Coordinator *sync.Coordinator
	Ghosts      *replica.Ghosts
	TimeSync    *replica.TimeSync
	Session     *network.Session

	local *storage.LocalState
	bus   eventbus.EventBus

	id string

	mu          syncpkg.Mutex
	selfPos     vec.Vec3Float
	selfState   string
	selfRot     *float64
	lastPosSend time.Time

	stopCh chan struct{}
}

// NewClient создаёт клиент из конфигурации. Локальное хранилище открывается
// сразу; соединение устанавливается позднее из игрового цикла.
func NewClient(cfg *config.Config) (*Client, error) {
	local, err := storage.Open(cfg.Storage.GetDataPath())
	if err != nil {
		return nil, err
	}

	bus := eventbus.NewMemoryBus(256)
	if err := eventbus.StartLoggingListener(bus); err != nil {
		logging.Warn("Шина событий без логирования: %v", err)
	}

	store := world.NewColumnStore()
	portals := world.NewPortalStore()
	items := world.NewItemStore()
	hints := sync.NewTypeHintCache(sync.DefaultHintCapacity)
	applier := sync.NewApplier(store, hints)

	c := &Client{
		cfg:       cfg,
		Store:     store,
		Portals:   portals,
		Items:     items,
		applier:   applier,
		TimeSync:  replica.NewTimeSync(),
		local:     local,
		bus:       bus,
		id:        uuid.NewString(),
		selfState: "good",
		stopCh:    make(chan struct{}),
	}

	c.Ghosts = replica.NewGhosts(c.TimeSync, replica.Config{
		InterpDelay:    time.Duration(cfg.Replica.GetInterpDelayMs()) * time.Millisecond,
		ExtrapolateCap: time.Duration(cfg.Replica.GetExtrapolateCapMs()) * time.Millisecond,
		Retention:      time.Duration(cfg.Replica.GetRetentionMs()) * time.Millisecond,
		DespawnTTL:     time.Duration(cfg.Replica.GetDespawnTTLMs()) * time.Millisecond,
	})

	c.Session = network.NewSession(network.SessionConfig{
		URL:         cfg.Server.GetURL(),
		ID:          c.id,
		Channel:     cfg.Server.GetChannel(),
		Level:       cfg.Server.GetLevel(),
		RetryBase:   time.Duration(cfg.Session.GetRetryBaseMs()) * time.Millisecond,
		RetryCap:    time.Duration(cfg.Session.GetRetryCapMs()) * time.Millisecond,
		RetryJitter: time.Duration(cfg.Session.GetRetryJitterMs()) * time.Millisecond,
		Keepalive:   time.Duration(cfg.Session.GetKeepaliveSec()) * time.Second,
		Watchdog:    time.Duration(cfg.Session.GetWatchdogMs()) * time.Millisecond,
	}, c, bus)

	c.Coordinator = sync.NewCoordinator(applier, portals, items, c.Session, sync.CoordinatorConfig{
		DefaultLevel: cfg.Server.GetLevel() == "ROOT",
		Baseline:     world.PerlinBaseline(0x5eed, 24),
		Bus:          bus,
	})

	return c, nil
}

// ID возвращает идентификатор клиента
func (c *Client) ID() string {
	return c.id
}

// Bus возвращает шину событий жизненного цикла
func (c *Client) Bus() eventbus.EventBus {
	return c.bus
}

// SetLocalPosition обновляет собственную позицию (источник — внешний ввод)
func (c *Client) SetLocalPosition(pos vec.Vec3Float, state string, rotation *float64) {
	c.mu.Lock()
	c.selfPos = pos
	c.selfState = state
	c.selfRot = rotation
	c.mu.Unlock()
}

// Run крутит игровой цикл с фиксированной частотой до закрытия stop-канала.
// Каждый тик: попытка подключения по расписанию, продвижение интерполяции,
// периодическая отправка позиции.
func (c *Client) Run(tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case now := <-ticker.C:
			c.Session.EnsureConnected(now)
			c.Ghosts.Advance(now)

			c.mu.Lock()
			due := now.Sub(c.lastPosSend) >= positionSendPeriod
			c.mu.Unlock()
			if due {
				c.sendPosition()
			}
		}
	}
}

// sendPosition отправляет текущую позицию, если сессия открыта
func (c *Client) sendPosition() {
	if !c.Session.IsOpen() {
		return
	}

	c.mu.Lock()
	update := protocol.PositionUpdate{
		Type:     "update",
		ID:       c.id,
		Pos:      c.selfPos,
		State:    c.selfState,
		Rotation: c.selfRot,
		Channel:  c.cfg.Server.GetChannel(),
		Level:    c.cfg.Server.GetLevel(),
	}
	c.lastPosSend = time.Now()
	c.mu.Unlock()

	_ = c.Session.Send(update) // Ошибка уже обработана сессией (backoff)
}

// Shutdown останавливает цикл, сохраняет локальное состояние и закрывает
// ресурсы
func (c *Client) Shutdown() {
	close(c.stopCh)
	c.Session.Close()

	if err := c.local.SaveDiffState(c.Coordinator.Snapshot()); err != nil {
		logging.Error("Не удалось сохранить состояние диффов: %v", err)
	}
	if err := c.local.SavePortals(c.Portals.Snapshot()); err != nil {
		logging.Error("Не удалось сохранить порталы: %v", err)
	}
	if err := c.local.Close(); err != nil {
		logging.Error("Не удалось закрыть хранилище: %v", err)
	}
	logging.Info("Клиент остановлен, состояние сохранено (v%d)", c.applier.Version())
}

// ===== network.Handler =====

// OnOpen вызывается при успешном открытии сессии: запрашиваем у сервера
// недостающую геометрию и сразу отправляем позицию
func (c *Client) OnOpen() {
	c.Coordinator.RequestResync()
	c.sendPosition()
}

// OnClose вызывается при закрытии сессии: офлайн-фолбэк загружает локально
// сохранённую геометрию, если живого состояния ещё не было
func (c *Client) OnClose(err error) {
	if c.Coordinator.EverSynced() {
		return
	}
	ps, found, loadErr := c.local.LoadDiffState()
	if loadErr != nil {
		logging.Error("Офлайн-фолбэк: не удалось загрузить состояние: %v", loadErr)
		return
	}
	if found {
		c.Coordinator.RestorePersisted(ps)
	}
	if portals, ok, _ := c.local.LoadPortals(); ok {
		c.Portals.ReplaceAll(portals)
	}
}

// OnMapFull маршрутизирует полный снапшот геометрии
func (c *Client) OnMapFull(m protocol.MapFull) { c.Coordinator.HandleMapFull(m) }

// OnMapOps маршрутизирует инкрементальные операции геометрии
func (c *Client) OnMapOps(m protocol.MapOps) { c.Coordinator.HandleMapOps(m) }

// OnItemsFull маршрутизирует полный снапшот предметов
func (c *Client) OnItemsFull(m protocol.ItemsFull) { c.Coordinator.HandleItemsFull(m) }

// OnItemOps маршрутизирует операции предметов
func (c *Client) OnItemOps(m protocol.ItemOps) { c.Coordinator.HandleItemOps(m) }

// OnPortalFull маршрутизирует полный снапшот порталов
func (c *Client) OnPortalFull(m protocol.PortalFull) { c.Coordinator.HandlePortalFull(m) }

// OnPortalOps маршрутизирует операции порталов
func (c *Client) OnPortalOps(m protocol.PortalOps) { c.Coordinator.HandlePortalOps(m) }

// OnSnapshot маршрутизирует снапшот игроков в воспроизведение сущностей
func (c *Client) OnSnapshot(m protocol.Snapshot) { c.Ghosts.IngestSnapshot(m) }

// OnUpdate маршрутизирует обновление позиции игрока
func (c *Client) OnUpdate(m protocol.Update) { c.Ghosts.IngestUpdate(m) }

// OnPong маршрутизирует измерение времени
func (c *Client) OnPong(serverNow int64, sentAt, receivedAt time.Time) {
	c.TimeSync.OnPong(serverNow, sentAt, receivedAt)
}

// OnSendStalled вызывается сторожевым таймером: форсируем исходящее
// обновление, чтобы сервер не счёл клиента замолчавшим
func (c *Client) OnSendStalled() {
	c.sendPosition()
}
