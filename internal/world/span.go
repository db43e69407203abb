package world

// SpanType определяет тип вертикального интервала в ячейке.
// Числовые значения совпадают с полем "t" сетевого протокола;
// SOLID передаётся без явного тега.
type SpanType int

const (
	SpanSolid SpanType = iota
	SpanHazard
	SpanFence
	SpanBadFence
	SpanHalfSlab
	SpanPortal
	SpanLock
	SpanNoClimb
)

// String возвращает строковое представление типа
func (t SpanType) String() string {
	switch t {
	case SpanSolid:
		return "SOLID"
	case SpanHazard:
		return "HAZARD"
	case SpanFence:
		return "FENCE"
	case SpanBadFence:
		return "BADFENCE"
	case SpanHalfSlab:
		return "HALFSLAB"
	case SpanPortal:
		return "PORTAL"
	case SpanLock:
		return "LOCK"
	case SpanNoClimb:
		return "NOCLIMB"
	default:
		return "UNKNOWN"
	}
}

// IsSolidLike сообщает, занимает ли тип физическое пространство.
// Два solid-like типа не могут сосуществовать на одной высоте.
func (t SpanType) IsSolidLike() bool {
	switch t {
	case SpanSolid, SpanHazard, SpanNoClimb, SpanFence, SpanBadFence:
		return true
	default:
		return false
	}
}

// IsMarker сообщает, является ли тип независимым оверлеем
// (триггер/декорация, не участвует в физической занятости).
func (t SpanType) IsMarker() bool {
	return !t.IsSolidLike()
}

// IsValid проверяет, что значение входит в известный диапазон типов
func (t SpanType) IsValid() bool {
	return t >= SpanSolid && t <= SpanNoClimb
}

// UnitHeight возвращает высоту одиночного воксельного добавления данного типа.
// Полуслэб занимает половину единичного интервала.
func (t SpanType) UnitHeight() float64 {
	if t == SpanHalfSlab {
		return 0.5
	}
	return 1.0
}

// Span — типизированный полуоткрытый вертикальный интервал [Base, Base+Height)
// внутри одной ячейки. Base хранится как float64: остатки от рассечения
// дробных интервалов могут иметь нецелое основание.
type Span struct {
	Base   float64  `json:"b"`
	Height float64  `json:"h"`
	Type   SpanType `json:"t"`
}

// End возвращает верхнюю границу интервала
func (s Span) End() float64 {
	return s.Base + s.Height
}

// Overlaps проверяет пересечение двух интервалов (полуоткрытых)
func (s Span) Overlaps(other Span) bool {
	return s.Base < other.End() && other.Base < s.End()
}

// Touches проверяет, что интервалы пересекаются или примыкают друг к другу
func (s Span) Touches(other Span) bool {
	return s.Base <= other.End() && other.Base <= s.End()
}
