package sync

import (
	syncpkg "sync"

	"github.com/annel0/mmo-client/internal/eventbus"
	"github.com/annel0/mmo-client/internal/logging"
	"github.com/annel0/mmo-client/internal/protocol"
	"github.com/annel0/mmo-client/internal/vec"
	"github.com/annel0/mmo-client/internal/world"
)

// Transport — минимальный интерфейс исходящего канала, который нужен
// координатору: проверка открытости и отправка сообщения.
type Transport interface {
	IsOpen() bool
	Send(msg interface{}) error
}

// CoordinatorConfig — настройки координатора синхронизации.
type CoordinatorConfig struct {
	// DefaultLevel — является ли текущий уровень миром по умолчанию
	// (только для него срабатывает базовое наполнение)
	DefaultLevel bool
	// Baseline — генератор базового наполнения; nil отключает механизм
	Baseline world.BaselineFunc
	// Bus — шина событий жизненного цикла; nil отключает публикацию
	Bus eventbus.EventBus
}

// Coordinator маршрутизирует входящие полные/инкрементальные снапшоты в
// Applier, обнаруживает разрывы версий и запрашивает ресинк, а при
// отсутствии соединения переводит локальные правки в офлайн-журнал.
// Под-потоки порталов и предметов версионируются независимо и
// реплицируются по принципу last-writer-wins.
type Coordinator struct {
	mu        syncpkg.Mutex
	applier   *Applier
	portals   *world.PortalStore
	items     *world.ItemStore
	transport Transport

	baseline     world.BaselineFunc
	baselineDone bool
	defaultLevel bool
	everSynced   bool

	bus     eventbus.EventBus
	metrics *Metrics
}

// NewCoordinator создаёт координатор синхронизации
func NewCoordinator(applier *Applier, portals *world.PortalStore, items *world.ItemStore, transport Transport, cfg CoordinatorConfig) *Coordinator {
	return &Coordinator{
		applier:      applier,
		portals:      portals,
		items:        items,
		transport:    transport,
		baseline:     cfg.Baseline,
		defaultLevel: cfg.DefaultLevel,
		bus:          cfg.Bus,
		metrics:      GetMetrics(),
	}
}

// EverSynced сообщает, получал ли клиент хотя бы один полный снапшот
func (c *Coordinator) EverSynced() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.everSynced
}

// HandleMapFull применяет полный снапшот геометрии.
// Авторитетный снапшот молча замещает всю локальную геометрию; непустой
// офлайн-журнал при этом теряется (last-writer-wins на сервере).
func (c *Coordinator) HandleMapFull(m protocol.MapFull) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.applier.LocalVersion() > 0 {
		logging.Warn("Полный снапшот v%d замещает %d локальных правок", m.Version, c.applier.LocalVersion())
	}

	c.applier.ApplyFullSnapshot(m.Version, m.Ops)
	c.everSynced = true
	c.metrics.SnapshotsApplied.Inc()
	logging.Info("Применён полный снапшот геометрии: v%d, операций=%d", m.Version, len(m.Ops))
	eventbus.PublishEvent(c.bus, eventbus.EventMapSnapshot, m.Version)

	// Пустой мир по умолчанию наполняется базовым контентом ровно один раз
	if c.defaultLevel && len(m.Ops) == 0 && c.items.Len() == 0 && c.baseline != nil && !c.baselineDone {
		c.injectBaselineLocked()
	}
}

// injectBaselineLocked вливает сгенерированное базовое наполнение как
// локальные правки
func (c *Coordinator) injectBaselineLocked() {
	adds := c.baseline()
	ops := make([]protocol.Op, 0, len(adds))
	for _, add := range adds {
		t := int(add.Type)
		ops = append(ops, protocol.Op{Op: protocol.OpAdd, Key: FormatVoxelKey(add.Cell, add.Y), T: &t})
	}
	c.applier.ApplyLocalOps(ops)
	c.baselineDone = true
	c.metrics.BaselineInjected.Inc()
	logging.Info("Влито базовое наполнение мира: %d вокселей", len(ops))
	eventbus.PublishEvent(c.bus, eventbus.EventBaselineInjected, uint64(len(ops)))
}

// HandleMapOps применяет инкрементальную пачку операций геометрии.
// Устаревшая версия отбрасывается молча; разрыв версий приводит к
// отправке запроса ресинка, сама пачка отбрасывается без буферизации.
func (c *Coordinator) HandleMapOps(m protocol.MapOps) {
	c.mu.Lock()
	gap := false
	var have uint64
	switch c.applier.ApplyIncrementalOps(m.Version, m.Ops) {
	case ResultApplied:
		c.metrics.OpsApplied.Add(float64(len(m.Ops)))
	case ResultStale:
		c.metrics.StaleDropped.Inc()
	case ResultGap:
		c.metrics.VersionGaps.Inc()
		gap = true
		have = c.applier.Version()
	}
	c.mu.Unlock()

	if gap {
		logging.Warn("Разрыв версий геометрии: получено v%d при текущей v%d, запрашиваем ресинк", m.Version, have)
		c.sendResync(have)
	}
}

// sendResync отправляет запрос полного ресинка с последней применённой
// версией. Вызывается без c.mu: транспорт при ошибке записи синхронно
// закрывает сессию и дёргает коллбэки, которые возвращаются в координатор.
func (c *Coordinator) sendResync(have uint64) {
	if !c.transport.IsOpen() {
		return
	}
	if err := c.transport.Send(protocol.NewMapSync(have)); err != nil {
		logging.Error("Не удалось отправить запрос ресинка: %v", err)
		return
	}
	c.metrics.ResyncRequests.Inc()
	eventbus.PublishEvent(c.bus, eventbus.EventMapResync, have)
}

// RequestResync запрашивает полный ресинк вручную (например при открытии
// сессии, чтобы сервер прислал недостающее)
func (c *Coordinator) RequestResync() {
	c.mu.Lock()
	have := c.applier.Version()
	c.mu.Unlock()

	c.sendResync(have)
}

// HandleItemsFull замещает все предметы содержимым полного снапшота
func (c *Coordinator) HandleItemsFull(m protocol.ItemsFull) {
	items := make([]world.GroundItem, 0, len(m.Items))
	for _, it := range m.Items {
		items = append(items, world.GroundItem{
			Cell:    vec.Vec2{X: it.GX, Y: it.GY},
			Y:       it.Y,
			Kind:    it.Kind,
			Payload: it.Payload,
		})
	}
	c.items.ReplaceAll(items)
}

// HandleItemOps применяет операции под-потока предметов
func (c *Coordinator) HandleItemOps(m protocol.ItemOps) {
	for _, op := range m.Ops {
		cell := vec.Vec2{X: op.GX, Y: op.GY}
		switch op.Op {
		case protocol.OpAdd:
			c.items.Add(world.GroundItem{Cell: cell, Y: op.Y, Kind: op.Kind, Payload: op.Payload})
		case protocol.OpRemove:
			c.items.Remove(cell, op.Y)
		}
	}
}

// HandlePortalFull замещает все порталы содержимым полного снапшота
func (c *Coordinator) HandlePortalFull(m protocol.PortalFull) {
	portals := make(map[string]string, len(m.Portals))
	for _, p := range m.Portals {
		portals[p.K] = p.Dest
	}
	c.portals.ReplaceAll(portals)
}

// HandlePortalOps применяет операции под-потока порталов
func (c *Coordinator) HandlePortalOps(m protocol.PortalOps) {
	for _, op := range m.Ops {
		switch op.Op {
		case protocol.PortalOpSet:
			c.portals.Set(op.K, op.Dest)
		case protocol.PortalOpRemove:
			c.portals.Remove(op.K)
		}
	}
}

// AddVoxel применяет локальную правку добавления вокселя. Правка сразу
// применяется оптимистично; при открытой сессии отправляется серверу,
// эхо которого придёт в потоке map_ops (дубликат в множествах идемпотентен).
func (c *Coordinator) AddVoxel(cell vec.Vec2, y int, t world.SpanType) {
	tt := int(t)
	op := protocol.Op{Op: protocol.OpAdd, Key: FormatVoxelKey(cell, y), T: &tt}
	c.applyLocalEdit(op)
}

// RemoveVoxel применяет локальную правку удаления вокселя
func (c *Coordinator) RemoveVoxel(cell vec.Vec2, y int) {
	op := protocol.Op{Op: protocol.OpRemove, Key: FormatVoxelKey(cell, y)}
	c.applyLocalEdit(op)
}

func (c *Coordinator) applyLocalEdit(op protocol.Op) {
	c.mu.Lock()
	c.applier.ApplyLocalOps([]protocol.Op{op})
	c.metrics.LocalOps.Inc()
	c.mu.Unlock()

	// Отправка вне c.mu: ошибка записи синхронно закрывает сессию, и её
	// коллбэки возвращаются в координатор
	if c.transport.IsOpen() {
		if err := c.transport.Send(protocol.NewMapEdit([]protocol.Op{op})); err != nil {
			logging.Warn("Правка не отправлена (останется локальной): %v", err)
		}
	}
}

// Snapshot возвращает сериализуемое состояние диффов для сохранения
func (c *Coordinator) Snapshot() PersistedState {
	return c.applier.Snapshot()
}

// RestorePersisted восстанавливает геометрию из локального хранилища.
// Используется как офлайн-фолбэк, пока сервер недоступен.
func (c *Coordinator) RestorePersisted(ps PersistedState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.applier.RestorePersisted(ps)
	logging.Info("Восстановлено локальное состояние: v%d, adds=%d, removes=%d", ps.Version, len(ps.Adds), len(ps.Removes))
}
