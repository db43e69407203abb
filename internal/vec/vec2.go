package vec

import (
	"fmt"
	"math"
)

// Vec2 представляет целочисленные координаты ячейки сетки (gx, gy)
type Vec2 struct {
	X, Y int
}

// Key возвращает ключ ячейки в формате "gx,gy"
func (v Vec2) Key() string {
	return fmt.Sprintf("%d,%d", v.X, v.Y)
}

// ParseVec2 разбирает ключ ячейки "gx,gy"
func ParseVec2(s string) (Vec2, bool) {
	var v Vec2
	if _, err := fmt.Sscanf(s, "%d,%d", &v.X, &v.Y); err != nil {
		return Vec2{}, false
	}
	return v, true
}

// Add складывает два вектора
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Y: v.Y + other.Y}
}

// DistanceTo вычисляет расстояние до другой ячейки
func (v Vec2) DistanceTo(other Vec2) float64 {
	dx := float64(v.X - other.X)
	dy := float64(v.Y - other.Y)
	return math.Sqrt(dx*dx + dy*dy)
}
