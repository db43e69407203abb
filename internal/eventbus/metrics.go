package eventbus

import (
	"net/http"
	"time"

	"github.com/annel0/mmo-client/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsExporter управляет HTTP-эндпоинтом Prometheus и периодически
// обновляет счётчики шины. Экспортер не делает предположений о конкретной
// реализации шины — он опирается исключительно на интерфейс EventBus.
type MetricsExporter struct {
	bus  EventBus
	quit chan struct{}
	done chan struct{}
	// Prometheus metrics
	published prometheus.Counter
	consumed  prometheus.Counter
	dropped   prometheus.Counter
	inflight  prometheus.Gauge

	lastStats Stats
}

// NewMetricsExporter создаёт экспортер, но не запускает HTTP-сервер.
func NewMetricsExporter(bus EventBus) *MetricsExporter {
	me := &MetricsExporter{
		bus:  bus,
		quit: make(chan struct{}),
		done: make(chan struct{}),
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventbus",
			Name:      "messages_published_total",
			Help:      "Общее число опубликованных событий.",
		}),
		consumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventbus",
			Name:      "messages_consumed_total",
			Help:      "Общее число доставленных событий подписчикам.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventbus",
			Name:      "messages_dropped_total",
			Help:      "Событий, отброшенных из-за переполнения буфера.",
		}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "eventbus",
			Name:      "messages_inflight",
			Help:      "Количество событий в очереди (не доставленных).",
		}),
	}

	prometheus.MustRegister(me.published, me.consumed, me.dropped, me.inflight)
	return me
}

// StartHTTP запускает HTTP-эндпоинт Prometheus на указанном адресе
// (например ":2112"). Метод неблокирующий.
func (m *MetricsExporter) StartHTTP(addr string) {
	go func() {
		logging.Info("📈 Prometheus /metrics доступен по адресу %s", addr)
		if err := http.ListenAndServe(addr, promhttp.Handler()); err != nil {
			logging.Error("Ошибка Prometheus HTTP сервера: %v", err)
		}
	}()
}

// Start запускает периодическое обновление метрик из статистики шины.
func (m *MetricsExporter) Start(interval time.Duration) {
	go func() {
		defer close(m.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-m.quit:
				return
			case <-ticker.C:
				m.collect()
			}
		}
	}()
}

// Stop останавливает обновление метрик.
func (m *MetricsExporter) Stop() {
	close(m.quit)
	<-m.done
}

// collect переносит дельту статистики шины в Prometheus-счётчики.
func (m *MetricsExporter) collect() {
	stats := m.bus.Metrics()
	m.published.Add(float64(stats.Published - m.lastStats.Published))
	m.consumed.Add(float64(stats.Consumed - m.lastStats.Consumed))
	m.dropped.Add(float64(stats.Dropped - m.lastStats.Dropped))
	m.inflight.Set(float64(stats.InFlight))
	m.lastStats = stats
}
