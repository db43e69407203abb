// Package protocol описывает JSON-протокол сервера присутствия:
// закрытое размеченное объединение входящих сообщений и исходящие сообщения.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/annel0/mmo-client/internal/vec"
)

// Op — одна операция журнала геометрии.
type Op struct {
	Op  string `json:"op"`          // "add" или "remove"
	Key string `json:"key"`         // "gx,gy,y"
	T   *int   `json:"t,omitempty"` // Тип спана; nil означает SOLID либо подбор по кешу подсказок
}

const (
	OpAdd    = "add"
	OpRemove = "remove"
)

// ItemOp — операция под-потока предметов.
type ItemOp struct {
	Op      string                 `json:"op"`
	GX      int                    `json:"gx"`
	GY      int                    `json:"gy"`
	Y       *int                   `json:"y,omitempty"`
	Kind    string                 `json:"kind,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// ItemEntry — предмет в полном снапшоте предметов.
type ItemEntry struct {
	GX      int                    `json:"gx"`
	GY      int                    `json:"gy"`
	Y       *int                   `json:"y,omitempty"`
	Kind    string                 `json:"kind"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// PortalEntry — портал в полном снапшоте порталов.
type PortalEntry struct {
	K    string `json:"k"` // Ключ ячейки "gx,gy"
	Dest string `json:"dest"`
}

// PortalOp — операция под-потока порталов.
type PortalOp struct {
	Op   string `json:"op"` // "set" или "remove"
	K    string `json:"k"`
	Dest string `json:"dest,omitempty"`
}

const (
	PortalOpSet    = "set"
	PortalOpRemove = "remove"
)

// PlayerEntry — позиция удалённого игрока в снапшоте или обновлении.
type PlayerEntry struct {
	ID       string        `json:"id"`
	Pos      vec.Vec3Float `json:"pos"`
	State    string        `json:"state"`
	Rotation *float64      `json:"rotation,omitempty"`
	Frozen   bool          `json:"frozen,omitempty"`
	AgeMs    int64         `json:"ageMs,omitempty"`
}

// Message — закрытое объединение входящих сообщений.
// Реализации перечислены ниже; неизвестный тег декодируется в Unknown.
type Message interface {
	kind() string
}

// MapFull — полный снапшот геометрии.
type MapFull struct {
	Version uint64 `json:"version"`
	Ops     []Op   `json:"ops"`
}

// MapOps — инкрементальная пачка операций геометрии версии Version.
type MapOps struct {
	Version uint64 `json:"version"`
	Ops     []Op   `json:"ops"`
}

// ItemsFull — полный снапшот предметов.
type ItemsFull struct {
	Items []ItemEntry `json:"items"`
}

// ItemOps — операции предметов.
type ItemOps struct {
	Ops []ItemOp `json:"ops"`
}

// PortalFull — полный снапшот порталов.
type PortalFull struct {
	Portals []PortalEntry `json:"portals"`
}

// PortalOps — операции порталов.
type PortalOps struct {
	Ops []PortalOp `json:"ops"`
}

// Snapshot — начальный снапшот игроков при подключении.
type Snapshot struct {
	Now     int64         `json:"now"`
	TTLMs   int64         `json:"ttlMs,omitempty"`
	Players []PlayerEntry `json:"players"`
}

// Update — позиция одного удалённого игрока.
type Update struct {
	Now      int64         `json:"now"`
	ID       string        `json:"id"`
	Pos      vec.Vec3Float `json:"pos"`
	State    string        `json:"state"`
	Rotation *float64      `json:"rotation,omitempty"`
	Frozen   bool          `json:"frozen,omitempty"`
}

// Pong — ответ на keepalive ping, несёт серверное время.
type Pong struct {
	Now int64 `json:"now"`
}

// Unknown — нераспознанный тег; сообщение игнорируется.
type Unknown struct {
	Type string
}

func (MapFull) kind() string    { return "map_full" }
func (MapOps) kind() string     { return "map_ops" }
func (ItemsFull) kind() string  { return "items_full" }
func (ItemOps) kind() string    { return "item_ops" }
func (PortalFull) kind() string { return "portal_full" }
func (PortalOps) kind() string  { return "portal_ops" }
func (Snapshot) kind() string   { return "snapshot" }
func (Update) kind() string     { return "update" }
func (Pong) kind() string       { return "pong" }
func (u Unknown) kind() string  { return u.Type }

// envelope используется только для извлечения тега типа
type envelope struct {
	Type string `json:"type"`
}

// Decode разбирает входящее сообщение по тегу "type".
// Ошибка возвращается только для полностью нечитаемого JSON;
// неизвестный тег — это Unknown, а не ошибка.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("нечитаемое сообщение: %w", err)
	}

	switch env.Type {
	case "map_full":
		var m MapFull
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("map_full: %w", err)
		}
		return m, nil
	case "map_ops":
		var m MapOps
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("map_ops: %w", err)
		}
		return m, nil
	case "items_full":
		var m ItemsFull
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("items_full: %w", err)
		}
		return m, nil
	case "item_ops":
		var m ItemOps
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("item_ops: %w", err)
		}
		return m, nil
	case "portal_full":
		var m PortalFull
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("portal_full: %w", err)
		}
		return m, nil
	case "portal_ops":
		var m PortalOps
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("portal_ops: %w", err)
		}
		return m, nil
	case "snapshot":
		var m Snapshot
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("snapshot: %w", err)
		}
		return m, nil
	case "update":
		var m Update
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("update: %w", err)
		}
		return m, nil
	case "pong":
		var m Pong
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("pong: %w", err)
		}
		return m, nil
	default:
		return Unknown{Type: env.Type}, nil
	}
}
