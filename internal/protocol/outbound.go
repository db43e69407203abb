package protocol

import (
	"encoding/json"

	"github.com/annel0/mmo-client/internal/vec"
)

// Исходящие сообщения клиента. Каждое кодируется самостоятельно:
// сериализация не имеет частичных режимов отказа, поэтому Encode паникует
// только на непредставимых значениях (которых в этих структурах нет).

// Hello — рукопожатие после открытия соединения.
type Hello struct {
	Type    string `json:"type"` // "hello"
	ID      string `json:"id"`
	Channel string `json:"channel"`
	Level   string `json:"level"`
}

// NewHello создаёт рукопожатие с проставленным тегом
func NewHello(id, channel, level string) Hello {
	return Hello{Type: "hello", ID: id, Channel: channel, Level: level}
}

// MapSync — запрос полного ресинка после обнаруженного разрыва версий.
type MapSync struct {
	Type string `json:"type"` // "map_sync"
	Have uint64 `json:"have"` // Последняя применённая версия
}

// NewMapSync создаёт запрос ресинка
func NewMapSync(have uint64) MapSync {
	return MapSync{Type: "map_sync", Have: have}
}

// Ping — keepalive; сервер отвечает Pong с серверным временем.
type Ping struct {
	Type string `json:"type"` // "ping"
}

// NewPing создаёт keepalive ping
func NewPing() Ping {
	return Ping{Type: "ping"}
}

// PositionUpdate — периодическая отправка собственной позиции.
type PositionUpdate struct {
	Type     string        `json:"type"` // "update"
	ID       string        `json:"id"`
	Pos      vec.Vec3Float `json:"pos"`
	State    string        `json:"state"`
	Rotation *float64      `json:"rotation,omitempty"`
	Frozen   bool          `json:"frozen,omitempty"`
	Channel  string        `json:"channel,omitempty"`
	Level    string        `json:"level,omitempty"`
}

// MapEdit — локально инициированная правка геометрии.
// Сервер подтверждает её эхом в потоке map_ops.
type MapEdit struct {
	Type string `json:"type"` // "map_edit"
	Ops  []Op   `json:"ops"`
}

// NewMapEdit создаёт сообщение правки геометрии
func NewMapEdit(ops []Op) MapEdit {
	return MapEdit{Type: "map_edit", Ops: ops}
}

// Encode сериализует исходящее сообщение в компактный JSON
func Encode(msg interface{}) []byte {
	data, err := json.Marshal(msg)
	if err != nil {
		// Структуры исходящих сообщений всегда сериализуемы
		return []byte("{}")
	}
	return data
}
