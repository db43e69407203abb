package replica

import (
	"math"
	"sort"
	"time"

	"github.com/annel0/mmo-client/internal/vec"
)

// Sample — один временной отсчёт позиции удалённой сущности.
// Время T — серверные часы, мс.
type Sample struct {
	T        int64
	Pos      vec.Vec3Float
	State    string
	Rotation *float64
	Frozen   bool
}

// Ghost — удалённая сущность: кольцо семплов, упорядоченных по времени,
// и сглаженные значения для рендера. Провод не гарантирует порядок
// доставки: семплы пересортировываются при вставке, дубликаты замещаются.
type Ghost struct {
	ID       string
	samples  []Sample
	LastSeen time.Time

	RenderPos   vec.Vec3Float
	RenderRot   float64
	HasRotation bool
	RenderState string
	Frozen      bool
}

// addSample вставляет семпл с сохранением порядка по времени и обрезает
// кольцо по окну retention относительно новейшего семпла
func (g *Ghost) addSample(s Sample, retention time.Duration) {
	idx := sort.Search(len(g.samples), func(i int) bool { return g.samples[i].T >= s.T })
	if idx < len(g.samples) && g.samples[idx].T == s.T {
		g.samples[idx] = s // Дубликат по времени замещается
	} else {
		g.samples = append(g.samples, Sample{})
		copy(g.samples[idx+1:], g.samples[idx:])
		g.samples[idx] = s
	}

	newest := g.samples[len(g.samples)-1].T
	cutoff := newest - retention.Milliseconds()
	first := 0
	for first < len(g.samples) && g.samples[first].T < cutoff {
		first++
	}
	if first > 0 {
		g.samples = append(g.samples[:0], g.samples[first:]...)
	}
}

// advance вычисляет позицию рендера на момент renderTime (серверные мс).
// Между двумя семплами — линейная интерполяция; за последним семплом —
// линейная экстраполяция по последней скорости, ограниченная extrapolateCap,
// затем заморозка.
func (g *Ghost) advance(renderTime int64, extrapolateCap time.Duration) {
	n := len(g.samples)
	if n == 0 {
		return
	}

	first, last := g.samples[0], g.samples[n-1]

	switch {
	case renderTime < first.T:
		// Рендер ещё позади первого семпла — прижимаемся к нему
		g.applySample(first)

	case renderTime >= last.T:
		g.extrapolate(renderTime, extrapolateCap)

	default:
		// Ищем пару (a, b) с a.T <= renderTime < b.T
		idx := sort.Search(n, func(i int) bool { return g.samples[i].T > renderTime })
		a, b := g.samples[idx-1], g.samples[idx]
		g.interpolate(a, b, renderTime)
	}
}

// interpolate — линейная интерполяция между семплами a и b
func (g *Ghost) interpolate(a, b Sample, renderTime int64) {
	span := b.T - a.T
	if span <= 0 {
		g.applySample(b)
		return
	}
	t := float64(renderTime-a.T) / float64(span)
	g.RenderPos = a.Pos.Lerp(b.Pos, t)

	// Состояние берём из темпорально ближайшего семпла — меньше мерцания
	closer := a
	if renderTime-a.T > b.T-renderTime {
		closer = b
	}
	g.RenderState = closer.State
	g.Frozen = closer.Frozen

	if a.Rotation != nil && b.Rotation != nil {
		g.RenderRot = lerpAngle(*a.Rotation, *b.Rotation, t)
		g.HasRotation = true
	} else if closer.Rotation != nil {
		g.RenderRot = *closer.Rotation
		g.HasRotation = true
	} else {
		g.HasRotation = false
	}
}

// extrapolate продолжает движение по последней известной скорости
func (g *Ghost) extrapolate(renderTime int64, extrapolateCap time.Duration) {
	n := len(g.samples)
	last := g.samples[n-1]

	ahead := renderTime - last.T
	if capMs := extrapolateCap.Milliseconds(); ahead > capMs {
		ahead = capMs // Дальше потолка — заморозка
	}

	if n < 2 || ahead <= 0 {
		g.applySample(last)
		return
	}

	prev := g.samples[n-2]
	span := last.T - prev.T
	if span <= 0 {
		g.applySample(last)
		return
	}

	vel := last.Pos.Sub(prev.Pos).Mul(1.0 / float64(span))
	g.RenderPos = last.Pos.Add(vel.Mul(float64(ahead)))
	g.RenderState = last.State
	g.Frozen = last.Frozen
	if last.Rotation != nil {
		g.RenderRot = *last.Rotation
		g.HasRotation = true
	}
}

// applySample переносит семпл в значения рендера как есть
func (g *Ghost) applySample(s Sample) {
	g.RenderPos = s.Pos
	g.RenderState = s.State
	g.Frozen = s.Frozen
	if s.Rotation != nil {
		g.RenderRot = *s.Rotation
		g.HasRotation = true
	} else {
		g.HasRotation = false
	}
}

// lerpAngle интерполирует угол по кратчайшей дуге с переходом через 360°
func lerpAngle(a, b, t float64) float64 {
	d := math.Mod(b-a+540, 360) - 180
	return math.Mod(a+d*t+360, 360)
}
