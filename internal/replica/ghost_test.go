package replica

import (
	"testing"
	"time"

	"github.com/annel0/mmo-client/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rotPtr(v float64) *float64 { return &v }

func sampleAt(t int64, x float64) Sample {
	return Sample{T: t, Pos: vec.Vec3Float{X: x}, State: "good"}
}

func TestGhost_InterpolateBetweenSamples(t *testing.T) {
	g := &Ghost{ID: "p1"}
	g.addSample(sampleAt(0, 0), 2*time.Second)
	g.addSample(sampleAt(100, 10), 2*time.Second)

	g.advance(50, 250*time.Millisecond)
	assert.InDelta(t, 5.0, g.RenderPos.X, 1e-9, "Середина интервала даёт середину пути")

	g.advance(25, 250*time.Millisecond)
	assert.InDelta(t, 2.5, g.RenderPos.X, 1e-9)
}

func TestGhost_BeforeFirstSampleClamps(t *testing.T) {
	g := &Ghost{ID: "p1"}
	g.addSample(sampleAt(100, 7), 2*time.Second)

	g.advance(50, 250*time.Millisecond)
	assert.Equal(t, 7.0, g.RenderPos.X, "До первого семпла позиция прижимается к нему")
}

func TestGhost_ExtrapolationCapped(t *testing.T) {
	g := &Ghost{ID: "p1"}
	g.addSample(sampleAt(0, 0), 2*time.Second)
	g.addSample(sampleAt(100, 10), 2*time.Second) // Скорость 0.1/мс

	g.advance(200, 250*time.Millisecond)
	assert.InDelta(t, 20.0, g.RenderPos.X, 1e-9, "Экстраполяция продолжает последнюю скорость")

	g.advance(1000, 250*time.Millisecond)
	assert.InDelta(t, 35.0, g.RenderPos.X, 1e-9, "Дальше потолка 250мс сущность замирает")

	g.advance(5000, 250*time.Millisecond)
	assert.InDelta(t, 35.0, g.RenderPos.X, 1e-9)
}

func TestGhost_SingleSampleNeverExtrapolates(t *testing.T) {
	g := &Ghost{ID: "p1"}
	g.addSample(sampleAt(0, 3), 2*time.Second)

	g.advance(500, 250*time.Millisecond)
	assert.Equal(t, 3.0, g.RenderPos.X, "По одному семплу скорость неизвестна")
}

func TestGhost_StateFromCloserSample(t *testing.T) {
	g := &Ghost{ID: "p1"}
	g.addSample(Sample{T: 0, Pos: vec.Vec3Float{}, State: "good"}, 2*time.Second)
	g.addSample(Sample{T: 100, Pos: vec.Vec3Float{X: 10}, State: "ball", Frozen: true}, 2*time.Second)

	g.advance(20, 250*time.Millisecond)
	assert.Equal(t, "good", g.RenderState, "Ближе к раннему семплу — его состояние")
	assert.False(t, g.Frozen)

	g.advance(80, 250*time.Millisecond)
	assert.Equal(t, "ball", g.RenderState, "Ближе к позднему семплу — его состояние")
	assert.True(t, g.Frozen)
}

func TestGhost_RotationShortestArc(t *testing.T) {
	g := &Ghost{ID: "p1"}
	g.addSample(Sample{T: 0, State: "ball", Rotation: rotPtr(350)}, 2*time.Second)
	g.addSample(Sample{T: 100, State: "ball", Rotation: rotPtr(10)}, 2*time.Second)

	g.advance(50, 250*time.Millisecond)
	require.True(t, g.HasRotation)
	assert.InDelta(t, 0.0, g.RenderRot, 1e-9, "Поворот идёт по кратчайшей дуге через 0°")
}

func TestLerpAngle(t *testing.T) {
	assert.InDelta(t, 90.0, lerpAngle(80, 100, 0.5), 1e-9)
	assert.InDelta(t, 355.0, lerpAngle(10, 340, 0.5), 1e-9, "Кратчайшая дуга проходит через 0°")
	assert.InDelta(t, 180.0, lerpAngle(180, 180, 0.7), 1e-9)
}

func TestGhost_RotationAbsentWhenNeitherHas(t *testing.T) {
	g := &Ghost{ID: "p1"}
	g.addSample(sampleAt(0, 0), 2*time.Second)
	g.addSample(sampleAt(100, 10), 2*time.Second)

	g.advance(50, 250*time.Millisecond)
	assert.False(t, g.HasRotation)
}

func TestGhost_OutOfOrderSamples(t *testing.T) {
	g := &Ghost{ID: "p1"}
	g.addSample(sampleAt(100, 10), 2*time.Second)
	g.addSample(sampleAt(0, 0), 2*time.Second) // Пришёл позже, но времени раннего

	g.advance(50, 250*time.Millisecond)
	assert.InDelta(t, 5.0, g.RenderPos.X, 1e-9, "Семплы упорядочиваются по времени при вставке")
}

func TestGhost_DuplicateTimestampReplaced(t *testing.T) {
	g := &Ghost{ID: "p1"}
	g.addSample(sampleAt(100, 1), 2*time.Second)
	g.addSample(sampleAt(100, 9), 2*time.Second)

	require.Len(t, g.samples, 1)
	assert.Equal(t, 9.0, g.samples[0].Pos.X)
}

func TestGhost_RetentionTrimsOldSamples(t *testing.T) {
	g := &Ghost{ID: "p1"}
	for i := int64(0); i < 10; i++ {
		g.addSample(sampleAt(i*500, float64(i)), 2*time.Second)
	}

	// Новейший семпл на 4500; окно 2000 оставляет T >= 2500
	require.Len(t, g.samples, 5)
	assert.Equal(t, int64(2500), g.samples[0].T)
}
