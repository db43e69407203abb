// Package replica воспроизводит движение удалённых сущностей по
// буферизованным семплам, синхронизированным с серверными часами.
package replica

import (
	"sync"
	"time"
)

// Сглаживание: до готовности оценка сходится быстрее
const (
	alphaWarmup     = 0.5
	alphaSteady     = 0.1
	readyAfterPongs = 3
)

// TimeSync поддерживает экспоненциально сглаженную оценку смещения часов
// клиент-сервер и round-trip времени. Создаётся один раз и никогда не
// сбрасывается; каждое измерение только уточняет оценку.
type TimeSync struct {
	mu       sync.Mutex
	offsetMs float64
	rttMs    float64
	ready    bool
	samples  int
}

// NewTimeSync создаёт состояние синхронизации времени
func NewTimeSync() *TimeSync {
	return &TimeSync{}
}

// OnPong учитывает одно измерение по круговому обмену ping -> pong.
// serverNow — серверное время (мс) из pong; sentAt/receivedAt — локальные
// моменты отправки ping и приёма pong.
func (ts *TimeSync) OnPong(serverNow int64, sentAt, receivedAt time.Time) {
	if sentAt.IsZero() || receivedAt.Before(sentAt) {
		return
	}

	rtt := float64(receivedAt.Sub(sentAt).Milliseconds())
	// Серверное время в момент приёма ≈ serverNow + rtt/2
	offset := float64(serverNow) + rtt/2 - float64(receivedAt.UnixMilli())

	ts.mu.Lock()
	defer ts.mu.Unlock()

	alpha := alphaSteady
	if !ts.ready {
		alpha = alphaWarmup
	}

	if ts.samples == 0 {
		ts.offsetMs = offset
		ts.rttMs = rtt
	} else {
		ts.offsetMs += alpha * (offset - ts.offsetMs)
		ts.rttMs += alpha * (rtt - ts.rttMs)
	}

	ts.samples++
	if ts.samples >= readyAfterPongs {
		ts.ready = true
	}
}

// OffsetMs возвращает оценку смещения часов (server - local), мс
func (ts *TimeSync) OffsetMs() float64 {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.offsetMs
}

// RTTMs возвращает оценку round-trip времени, мс
func (ts *TimeSync) RTTMs() float64 {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.rttMs
}

// Ready сообщает, накоплено ли достаточно измерений
func (ts *TimeSync) Ready() bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.ready
}
