package network

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// ErrSessionClosed возвращается при попытке отправки в закрытую сессию
var ErrSessionClosed = errors.New("сессия закрыта")

// Metrics — Prometheus-метрики сетевой подсистемы.
type Metrics struct {
	Connects         prometheus.Counter
	Disconnects      prometheus.Counter
	MessagesSent     prometheus.Counter
	MessagesReceived *prometheus.CounterVec
	Malformed        prometheus.Counter
}

var (
	metricsOnce     sync.Once
	metricsInstance *Metrics
)

// GetMetrics возвращает глобальный набор сетевых метрик,
// регистрируя его при первом обращении.
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = &Metrics{
			Connects: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "session",
				Name:      "connects_total",
				Help:      "Число успешных подключений.",
			}),
			Disconnects: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "session",
				Name:      "disconnects_total",
				Help:      "Число разрывов соединения.",
			}),
			MessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "session",
				Name:      "messages_sent_total",
				Help:      "Число отправленных сообщений.",
			}),
			MessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "session",
				Name:      "messages_received_total",
				Help:      "Число принятых сообщений по типам.",
			}, []string{"type"}),
			Malformed: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "session",
				Name:      "malformed_total",
				Help:      "Число отброшенных нечитаемых сообщений.",
			}),
		}
		prometheus.MustRegister(
			metricsInstance.Connects,
			metricsInstance.Disconnects,
			metricsInstance.MessagesSent,
			metricsInstance.MessagesReceived,
			metricsInstance.Malformed,
		)
	})
	return metricsInstance
}
