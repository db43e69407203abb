package world

import "sort"

// Алгебра колонки: чистые функции над отсортированным по Base списком спанов.
// Инварианты, которые поддерживает insertSpan/removeVoxel:
//   - спаны одного типа никогда не пересекаются и не примыкают (слиты);
//   - среди solid-like типов на одной высоте живёт не более одного типа
//     (вставка рассекает конфликтующий чужой спан, середина отбрасывается);
//   - marker-типы — независимые оверлеи, не рассекают solid и не рассекаются ими.

// sortSpans упорядочивает список по основанию, при равенстве — по типу
func sortSpans(spans []Span) {
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].Base != spans[j].Base {
			return spans[i].Base < spans[j].Base
		}
		return spans[i].Type < spans[j].Type
	})
}

// insertSpan добавляет спан в колонку, поддерживая инварианты.
func insertSpan(spans []Span, span Span) []Span {
	if span.Height <= 0 {
		return spans
	}

	if span.Type.IsSolidLike() {
		// Рассекаем конфликтующие solid-like спаны других типов:
		// левый и правый остатки сохраняются, перекрытая середина выбрасывается.
		kept := make([]Span, 0, len(spans)+1)
		for _, existing := range spans {
			if !existing.Type.IsSolidLike() || existing.Type == span.Type || !existing.Overlaps(span) {
				kept = append(kept, existing)
				continue
			}
			if left := (Span{Base: existing.Base, Height: span.Base - existing.Base, Type: existing.Type}); left.Height > 0 {
				kept = append(kept, left)
			}
			if right := (Span{Base: span.End(), Height: existing.End() - span.End(), Type: existing.Type}); right.Height > 0 {
				kept = append(kept, right)
			}
		}
		spans = kept
	}

	spans = append(spans, span)
	return mergeSameType(spans, span.Type)
}

// mergeSameType сливает все спаны указанного типа, которые пересекаются
// или примыкают (next.Base <= prev.End()), в единые интервалы.
func mergeSameType(spans []Span, t SpanType) []Span {
	sortSpans(spans)

	out := spans[:0]
	var acc *Span
	for i := range spans {
		s := spans[i]
		if s.Type != t {
			out = append(out, s)
			continue
		}
		if acc == nil {
			out = append(out, s)
			acc = &out[len(out)-1]
			continue
		}
		if s.Base <= acc.End() {
			if s.End() > acc.End() {
				acc.Height = s.End() - acc.Base
			}
			continue
		}
		out = append(out, s)
		acc = &out[len(out)-1]
	}

	sortSpans(out)
	return out
}

// removeVoxel удаляет единичный интервал [y, y+1) из каждого спана колонки
// независимо от типа. Спан, накрывающий интервал, рассекается на остатки;
// остатки с неположительной высотой отбрасываются.
func removeVoxel(spans []Span, y int) []Span {
	lo := float64(y)
	hi := float64(y + 1)

	out := make([]Span, 0, len(spans))
	for _, s := range spans {
		if s.End() <= lo || s.Base >= hi {
			out = append(out, s)
			continue
		}
		if left := (Span{Base: s.Base, Height: lo - s.Base, Type: s.Type}); left.Height > 0 {
			out = append(out, left)
		}
		if right := (Span{Base: hi, Height: s.End() - hi, Type: s.Type}); right.Height > 0 {
			out = append(out, right)
		}
	}

	sortSpans(out)
	return out
}
