package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_MapFull(t *testing.T) {
	raw := `{"type":"map_full","version":12,"ops":[{"op":"add","key":"1,2,0"},{"op":"add","key":"1,2,3","t":1},{"op":"remove","key":"5,5,0"}]}`

	msg, err := Decode([]byte(raw))
	require.NoError(t, err)

	m, ok := msg.(MapFull)
	require.True(t, ok)
	assert.Equal(t, uint64(12), m.Version)
	require.Len(t, m.Ops, 3)
	assert.Nil(t, m.Ops[0].T, "Отсутствующий тег типа декодируется в nil")
	require.NotNil(t, m.Ops[1].T)
	assert.Equal(t, 1, *m.Ops[1].T)
	assert.Equal(t, OpRemove, m.Ops[2].Op)
}

func TestDecode_Snapshot(t *testing.T) {
	raw := `{"type":"snapshot","now":1000,"ttlMs":3000,"players":[
		{"id":"p1","pos":{"x":1,"y":2,"z":3},"state":"good","ageMs":120},
		{"id":"p2","pos":{"x":0,"y":0,"z":0},"state":"ball","rotation":45.5,"frozen":true}]}`

	msg, err := Decode([]byte(raw))
	require.NoError(t, err)

	m, ok := msg.(Snapshot)
	require.True(t, ok)
	assert.Equal(t, int64(1000), m.Now)
	assert.Equal(t, int64(3000), m.TTLMs)
	require.Len(t, m.Players, 2)

	assert.Nil(t, m.Players[0].Rotation, "Поворот опционален")
	assert.Equal(t, int64(120), m.Players[0].AgeMs)
	require.NotNil(t, m.Players[1].Rotation)
	assert.Equal(t, 45.5, *m.Players[1].Rotation)
	assert.True(t, m.Players[1].Frozen)
}

func TestDecode_UpdateAndPong(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"update","now":500,"id":"p1","pos":{"x":1,"y":0,"z":2},"state":"good"}`))
	require.NoError(t, err)
	u, ok := msg.(Update)
	require.True(t, ok)
	assert.Equal(t, "p1", u.ID)
	assert.Equal(t, 1.0, u.Pos.X)

	msg, err = Decode([]byte(`{"type":"pong","now":777}`))
	require.NoError(t, err)
	p, ok := msg.(Pong)
	require.True(t, ok)
	assert.Equal(t, int64(777), p.Now)
}

func TestDecode_SubStreams(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"portal_full","portals":[{"k":"1,1","dest":"hub"}]}`))
	require.NoError(t, err)
	pf, ok := msg.(PortalFull)
	require.True(t, ok)
	require.Len(t, pf.Portals, 1)
	assert.Equal(t, "hub", pf.Portals[0].Dest)

	msg, err = Decode([]byte(`{"type":"item_ops","ops":[{"op":"add","gx":1,"gy":2,"y":3,"kind":"gem"}]}`))
	require.NoError(t, err)
	iops, ok := msg.(ItemOps)
	require.True(t, ok)
	require.Len(t, iops.Ops, 1)
	require.NotNil(t, iops.Ops[0].Y)
	assert.Equal(t, 3, *iops.Ops[0].Y)
}

func TestDecode_UnknownTypeIsNotAnError(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"weather","rain":true}`))
	require.NoError(t, err, "Неизвестный тег — не ошибка протокола")

	u, ok := msg.(Unknown)
	require.True(t, ok)
	assert.Equal(t, "weather", u.Type)
}

func TestDecode_MalformedJSON(t *testing.T) {
	_, err := Decode([]byte(`{not json`))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"type":"map_ops","version":"not-a-number"}`))
	assert.Error(t, err, "Сообщение известного типа с неверной схемой — ошибка")
}

func TestEncode_Outbound(t *testing.T) {
	t.Run("hello", func(t *testing.T) {
		data := Encode(NewHello("p1", "DEFAULT", "ROOT"))
		var got map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, "hello", got["type"])
		assert.Equal(t, "p1", got["id"])
		assert.Equal(t, "DEFAULT", got["channel"])
		assert.Equal(t, "ROOT", got["level"])
	})

	t.Run("map_sync несёт последнюю применённую версию", func(t *testing.T) {
		data := Encode(NewMapSync(41))
		var got map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, "map_sync", got["type"])
		assert.Equal(t, float64(41), got["have"])
	})

	t.Run("ping", func(t *testing.T) {
		assert.JSONEq(t, `{"type":"ping"}`, string(Encode(NewPing())))
	})

	t.Run("map_edit", func(t *testing.T) {
		tt := 4
		data := Encode(NewMapEdit([]Op{{Op: OpAdd, Key: "1,1,0", T: &tt}}))
		assert.JSONEq(t, `{"type":"map_edit","ops":[{"op":"add","key":"1,1,0","t":4}]}`, string(data))
	})

	t.Run("пустые опциональные поля опускаются", func(t *testing.T) {
		data := Encode(PositionUpdate{Type: "update", ID: "p1", State: "good"})
		var got map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &got))
		_, hasRotation := got["rotation"]
		assert.False(t, hasRotation)
		_, hasFrozen := got["frozen"]
		assert.False(t, hasFrozen)
	})
}
