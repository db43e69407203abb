package sync

import (
	syncpkg "sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics — Prometheus-метрики подсистемы синхронизации.
type Metrics struct {
	SnapshotsApplied prometheus.Counter
	OpsApplied       prometheus.Counter
	LocalOps         prometheus.Counter
	StaleDropped     prometheus.Counter
	VersionGaps      prometheus.Counter
	ResyncRequests   prometheus.Counter
	BaselineInjected prometheus.Counter
}

var (
	metricsOnce     syncpkg.Once
	metricsInstance *Metrics
)

// GetMetrics возвращает глобальный набор метрик, регистрируя его при первом
// обращении. Повторные вызовы возвращают тот же экземпляр.
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = &Metrics{
			SnapshotsApplied: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "mapsync",
				Name:      "snapshots_applied_total",
				Help:      "Число применённых полных снапшотов геометрии.",
			}),
			OpsApplied: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "mapsync",
				Name:      "ops_applied_total",
				Help:      "Число применённых инкрементальных операций.",
			}),
			LocalOps: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "mapsync",
				Name:      "local_ops_total",
				Help:      "Число локальных правок, применённых без сервера.",
			}),
			StaleDropped: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "mapsync",
				Name:      "stale_dropped_total",
				Help:      "Число отброшенных устаревших/дублирующихся пачек.",
			}),
			VersionGaps: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "mapsync",
				Name:      "version_gaps_total",
				Help:      "Число обнаруженных разрывов версий.",
			}),
			ResyncRequests: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "mapsync",
				Name:      "resync_requests_total",
				Help:      "Число отправленных запросов полного ресинка.",
			}),
			BaselineInjected: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "mapsync",
				Name:      "baseline_injected_total",
				Help:      "Число срабатываний базового наполнения мира.",
			}),
		}
		prometheus.MustRegister(
			metricsInstance.SnapshotsApplied,
			metricsInstance.OpsApplied,
			metricsInstance.LocalOps,
			metricsInstance.StaleDropped,
			metricsInstance.VersionGaps,
			metricsInstance.ResyncRequests,
			metricsInstance.BaselineInjected,
		)
	})
	return metricsInstance
}
