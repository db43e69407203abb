package replica

import (
	"testing"
	"time"

	"github.com/annel0/mmo-client/internal/protocol"
	"github.com/annel0/mmo-client/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeSync_FirstSampleTakenAsIs(t *testing.T) {
	ts := NewTimeSync()
	sentAt := time.UnixMilli(1000)
	receivedAt := time.UnixMilli(1100) // rtt 100

	ts.OnPong(5000, sentAt, receivedAt)

	// offset = 5000 + 50 - 1100
	assert.InDelta(t, 3950.0, ts.OffsetMs(), 1e-9)
	assert.InDelta(t, 100.0, ts.RTTMs(), 1e-9)
	assert.False(t, ts.Ready(), "Одного измерения недостаточно")
}

func TestTimeSync_ReadyAfterThreePongs(t *testing.T) {
	ts := NewTimeSync()
	base := time.UnixMilli(0)

	for i := 0; i < 3; i++ {
		sentAt := base.Add(time.Duration(i) * time.Second)
		ts.OnPong(int64(i*1000+500), sentAt, sentAt.Add(40*time.Millisecond))
	}

	assert.True(t, ts.Ready())
}

func TestTimeSync_SmoothsTowardNewMeasurements(t *testing.T) {
	ts := NewTimeSync()
	sentAt := time.UnixMilli(0)
	receivedAt := sentAt.Add(100 * time.Millisecond)

	ts.OnPong(1000, sentAt, receivedAt) // offset 1000+50-100 = 950
	before := ts.OffsetMs()

	// Второе измерение с другим смещением сдвигает оценку, но не замещает её
	ts.OnPong(2000, sentAt, receivedAt) // мгновенный offset 1950
	after := ts.OffsetMs()

	assert.Greater(t, after, before)
	assert.Less(t, after, 1950.0, "EMA не перескакивает на новое измерение целиком")
}

func TestTimeSync_IgnoresInvalidMeasurements(t *testing.T) {
	ts := NewTimeSync()

	ts.OnPong(1000, time.Time{}, time.UnixMilli(100))
	assert.Zero(t, ts.OffsetMs(), "Pong без отправленного ping игнорируется")

	sentAt := time.UnixMilli(1000)
	ts.OnPong(1000, sentAt, sentAt.Add(-time.Second))
	assert.Zero(t, ts.OffsetMs(), "Отрицательный rtt игнорируется")
}

func TestGhosts_IngestSnapshotRestoresSampleTime(t *testing.T) {
	gm := NewGhosts(NewTimeSync(), DefaultConfig())

	gm.IngestSnapshot(protocol.Snapshot{
		Now: 10000,
		Players: []protocol.PlayerEntry{
			{ID: "p1", Pos: vec.Vec3Float{X: 1}, State: "good", AgeMs: 400},
			{ID: "p2", Pos: vec.Vec3Float{X: 2}, State: "ball"},
		},
	})

	require.Equal(t, 2, gm.Len())
	gm.mu.Lock()
	assert.Equal(t, int64(9600), gm.byID["p1"].samples[0].T, "Время семпла = serverNow - ageMs")
	assert.Equal(t, int64(10000), gm.byID["p2"].samples[0].T)
	gm.mu.Unlock()
}

func TestGhosts_DespawnAfterTTL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DespawnTTL = 3 * time.Second
	gm := NewGhosts(NewTimeSync(), cfg)

	gm.IngestUpdate(protocol.Update{Now: 0, ID: "p1", State: "good"})
	require.Equal(t, 1, gm.Len())

	// Состариваем сущность за пределы TTL
	gm.mu.Lock()
	gm.byID["p1"].LastSeen = time.Now().Add(-4 * time.Second)
	gm.mu.Unlock()

	gm.Advance(time.Now())
	assert.Zero(t, gm.Len(), "Замолчавшая сущность удаляется")
}

func TestGhosts_ViewsCarryRotationOnlyWhenKnown(t *testing.T) {
	gm := NewGhosts(NewTimeSync(), DefaultConfig())

	gm.IngestUpdate(protocol.Update{Now: 0, ID: "a", State: "good"})
	gm.IngestUpdate(protocol.Update{Now: 0, ID: "b", State: "ball", Rotation: rotPtr(90)})
	gm.Advance(time.Now())

	views := gm.Views()
	require.Len(t, views, 2)
	for _, v := range views {
		switch v.ID {
		case "a":
			assert.Nil(t, v.Rotation)
		case "b":
			require.NotNil(t, v.Rotation)
			assert.InDelta(t, 90.0, *v.Rotation, 1e-9)
		}
	}
}
