package sync

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/annel0/mmo-client/internal/vec"
	"github.com/annel0/mmo-client/internal/world"
)

// Ключи журнала диффов:
//   - воксельный ключ "gx,gy,y" — адрес единичного вокселя, без типа;
//   - типизированный ключ "gx,gy,y#t" — элемент add-множества;
//     суффикс "#t" опускается для типа по умолчанию (SOLID).

// FormatVoxelKey возвращает воксельный ключ "gx,gy,y"
func FormatVoxelKey(cell vec.Vec2, y int) string {
	return fmt.Sprintf("%d,%d,%d", cell.X, cell.Y, y)
}

// ParseVoxelKey разбирает воксельный ключ "gx,gy,y"
func ParseVoxelKey(key string) (vec.Vec2, int, bool) {
	parts := strings.Split(key, ",")
	if len(parts) != 3 {
		return vec.Vec2{}, 0, false
	}
	gx, err1 := strconv.Atoi(parts[0])
	gy, err2 := strconv.Atoi(parts[1])
	y, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return vec.Vec2{}, 0, false
	}
	return vec.Vec2{X: gx, Y: gy}, y, true
}

// FormatAddKey возвращает типизированный ключ add-множества
func FormatAddKey(cell vec.Vec2, y int, t world.SpanType) string {
	if t == world.SpanSolid {
		return FormatVoxelKey(cell, y)
	}
	return fmt.Sprintf("%d,%d,%d#%d", cell.X, cell.Y, y, int(t))
}

// ParseAddKey разбирает типизированный ключ add-множества
func ParseAddKey(key string) (vec.Vec2, int, world.SpanType, bool) {
	t := world.SpanSolid
	if idx := strings.IndexByte(key, '#'); idx >= 0 {
		n, err := strconv.Atoi(key[idx+1:])
		if err != nil {
			return vec.Vec2{}, 0, 0, false
		}
		t = world.SpanType(n)
		if !t.IsValid() {
			return vec.Vec2{}, 0, 0, false
		}
		key = key[:idx]
	}
	cell, y, ok := ParseVoxelKey(key)
	if !ok {
		return vec.Vec2{}, 0, 0, false
	}
	return cell, y, t, true
}
