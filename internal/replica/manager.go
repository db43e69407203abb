package replica

import (
	"sync"
	"time"

	"github.com/annel0/mmo-client/internal/protocol"
	"github.com/annel0/mmo-client/internal/vec"
)

// Config — параметры воспроизведения удалённых сущностей.
type Config struct {
	InterpDelay    time.Duration // Задержка рендера относительно серверного времени
	ExtrapolateCap time.Duration // Потолок экстраполяции вперёд
	Retention      time.Duration // Окно хранения семплов
	DespawnTTL     time.Duration // TTL сущности без новых семплов
}

// DefaultConfig возвращает параметры по умолчанию
func DefaultConfig() Config {
	return Config{
		InterpDelay:    150 * time.Millisecond,
		ExtrapolateCap: 250 * time.Millisecond,
		Retention:      2 * time.Second,
		DespawnTTL:     3 * time.Second,
	}
}

// GhostView — снимок сущности для рендера.
type GhostView struct {
	ID       string
	Pos      vec.Vec3Float
	State    string
	Rotation *float64
	Frozen   bool
}

// Ghosts управляет множеством удалённых сущностей: принимает семплы из
// снапшотов и обновлений, раз в кадр продвигает интерполяцию и удаляет
// сущности, замолчавшие дольше TTL.
type Ghosts struct {
	mu   sync.Mutex
	byID map[string]*Ghost
	ts   *TimeSync
	cfg  Config
}

// NewGhosts создаёт менеджер удалённых сущностей
func NewGhosts(ts *TimeSync, cfg Config) *Ghosts {
	if cfg.InterpDelay <= 0 {
		cfg = DefaultConfig()
	}
	return &Ghosts{
		byID: make(map[string]*Ghost),
		ts:   ts,
		cfg:  cfg,
	}
}

// IngestSnapshot принимает начальный снапшот игроков.
// Время каждого семпла восстанавливается как serverNow - ageMs.
func (gm *Ghosts) IngestSnapshot(m protocol.Snapshot) {
	now := time.Now()

	gm.mu.Lock()
	defer gm.mu.Unlock()

	for _, p := range m.Players {
		gm.ingestLocked(p.ID, Sample{
			T:        m.Now - p.AgeMs,
			Pos:      p.Pos,
			State:    p.State,
			Rotation: p.Rotation,
			Frozen:   p.Frozen,
		}, now)
	}
}

// IngestUpdate принимает обновление позиции одного игрока
func (gm *Ghosts) IngestUpdate(m protocol.Update) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	gm.ingestLocked(m.ID, Sample{
		T:        m.Now,
		Pos:      m.Pos,
		State:    m.State,
		Rotation: m.Rotation,
		Frozen:   m.Frozen,
	}, time.Now())
}

// ingestLocked добавляет семпл сущности, создавая её при первом появлении
func (gm *Ghosts) ingestLocked(id string, s Sample, now time.Time) {
	g, ok := gm.byID[id]
	if !ok {
		g = &Ghost{ID: id}
		gm.byID[id] = g
	}
	g.addSample(s, gm.cfg.Retention)
	g.LastSeen = now
}

// Advance продвигает интерполяцию всех сущностей на текущий кадр и
// удаляет замолчавшие. Вызывается раз в кадр из игрового цикла.
func (gm *Ghosts) Advance(now time.Time) {
	renderTime := int64(float64(now.UnixMilli())+gm.ts.OffsetMs()) - gm.cfg.InterpDelay.Milliseconds()

	gm.mu.Lock()
	defer gm.mu.Unlock()

	for id, g := range gm.byID {
		if now.Sub(g.LastSeen) > gm.cfg.DespawnTTL {
			delete(gm.byID, id)
			continue
		}
		g.advance(renderTime, gm.cfg.ExtrapolateCap)
	}
}

// Views возвращает снимки всех сущностей для рендера
func (gm *Ghosts) Views() []GhostView {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	out := make([]GhostView, 0, len(gm.byID))
	for _, g := range gm.byID {
		view := GhostView{
			ID:     g.ID,
			Pos:    g.RenderPos,
			State:  g.RenderState,
			Frozen: g.Frozen,
		}
		if g.HasRotation {
			rot := g.RenderRot
			view.Rotation = &rot
		}
		out = append(out, view)
	}
	return out
}

// Len возвращает число живых сущностей
func (gm *Ghosts) Len() int {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	return len(gm.byID)
}
