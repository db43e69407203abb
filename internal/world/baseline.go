package world

import (
	"github.com/aquilax/go-perlin"

	"github.com/annel0/mmo-client/internal/vec"
)

// VoxelAdd — одно воксельное добавление базового наполнения.
type VoxelAdd struct {
	Cell vec.Vec2
	Y    int
	Type SpanType
}

// BaselineFunc генерирует базовое наполнение мира по умолчанию.
// Координатор синхронизации вызывает её ровно один раз, когда сервер
// прислал пустой полный снапшот для мира по умолчанию.
type BaselineFunc func() []VoxelAdd

// PerlinBaseline возвращает генератор базового ландшафта на шуме Перлина:
// квадрат radius x radius колонн переменной высоты вокруг начала координат.
func PerlinBaseline(seed int64, radius int) BaselineFunc {
	const (
		alpha     = 2.0 // Сглаживание шума
		beta      = 2.0 // Частота шума
		octaves   = 3
		maxHeight = 4
	)

	return func() []VoxelAdd {
		noise := perlin.NewPerlin(alpha, beta, octaves, seed)

		adds := make([]VoxelAdd, 0, radius*radius*2)
		for gx := -radius; gx <= radius; gx++ {
			for gy := -radius; gy <= radius; gy++ {
				// Шум от -1 до 1 -> высота колонны от 1 до maxHeight
				n := (noise.Noise2D(float64(gx)/10.0, float64(gy)/10.0) + 1.0) / 2.0
				h := 1 + int(n*float64(maxHeight-1))
				for y := 0; y < h; y++ {
					adds = append(adds, VoxelAdd{Cell: vec.Vec2{X: gx, Y: gy}, Y: y, Type: SpanSolid})
				}
			}
		}
		return adds
	}
}
