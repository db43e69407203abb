package vec

import "math"

// Vec3Float представляет трехмерный вектор с плавающими координатами.
// Используется для позиций удалённых сущностей.
type Vec3Float struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add складывает два вектора
func (v Vec3Float) Add(other Vec3Float) Vec3Float {
	return Vec3Float{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

// Sub вычитает вектор
func (v Vec3Float) Sub(other Vec3Float) Vec3Float {
	return Vec3Float{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

// Mul умножает вектор на скаляр
func (v Vec3Float) Mul(scalar float64) Vec3Float {
	return Vec3Float{X: v.X * scalar, Y: v.Y * scalar, Z: v.Z * scalar}
}

// Lerp линейно интерполирует между v и other с коэффициентом t (0..1)
func (v Vec3Float) Lerp(other Vec3Float, t float64) Vec3Float {
	return v.Add(other.Sub(v).Mul(t))
}

// Length возвращает длину вектора
func (v Vec3Float) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// DistanceTo вычисляет расстояние до другой точки
func (v Vec3Float) DistanceTo(other Vec3Float) float64 {
	return v.Sub(other).Length()
}
